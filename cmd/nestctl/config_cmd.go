package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newConfigCommand(state *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the nestctl config file",
		// The config may not exist yet.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := state.configFile
			if path == "" {
				path = defaultConfigPath()
			}
			if err := writeDefaultConfig(path, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config")

	cmd.AddCommand(initCmd)
	return cmd
}
