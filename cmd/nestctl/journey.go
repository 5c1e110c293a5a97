package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/bookmart/nestable-sdk-go/pkg/journey"
)

func newJourneyCommand(state *app) *cobra.Command {
	var journalPath string
	var format string
	var generateAccounts bool

	cmd := &cobra.Command{
		Use:   "journey",
		Short: "Deploy the gallery collections and play the walkthrough",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "yaml" && format != "json" {
				return fmt.Errorf("unsupported format %q", format)
			}
			if generateAccounts {
				scenario, err := journey.WithGeneratedAccounts(state.config.Journey)
				if err != nil {
					return err
				}
				state.config.Journey = scenario
			}

			seeded, err := state.seed(cmd.Context(), journalPath, true)
			if err != nil {
				return err
			}
			defer seeded.Close()

			out := cmd.OutOrStdout()
			if format == "json" {
				encoder := json.NewEncoder(out)
				encoder.SetIndent("", "  ")
				return encoder.Encode(seeded.report)
			}
			encoder := yaml.NewEncoder(out)
			encoder.SetIndent(2)
			if err := encoder.Encode(seeded.report); err != nil {
				return err
			}
			return encoder.Close()
		},
	}

	cmd.Flags().StringVar(&journalPath, "journal", "", "append committed events to this SQLite file")
	cmd.Flags().StringVarP(&format, "format", "o", "yaml", "output format (yaml or json)")
	cmd.Flags().BoolVar(&generateAccounts, "generate-accounts", false, "use fresh secp256k1 accounts for the curator and visitor")
	return cmd
}
