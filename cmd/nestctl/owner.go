package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/bookmart/nestable-sdk-go/pkg/mirror"
	"github.com/bookmart/nestable-sdk-go/pkg/nestable"
)

func newOwnerCommand(state *app) *cobra.Command {
	var remotes []string

	cmd := &cobra.Command{
		Use:   "owner REGISTRY TOKEN_ID",
		Short: "Resolve the root owner of a token served by remote query APIs",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(remotes) == 0 {
				return fmt.Errorf("at least one --remote is required")
			}
			registryID, err := nestable.NormalizeRegistryID(args[0])
			if err != nil {
				return err
			}
			tokenID, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil || tokenID == 0 {
				return fmt.Errorf("invalid token id %q", args[1])
			}

			directory := nestable.NewDirectory(nestable.DirectoryOptions{
				Logger: &state.logger,
				Tracer: state.tracer,
			})
			defer directory.Close()
			for _, baseURL := range remotes {
				if err := registerRemote(cmd, directory, baseURL); err != nil {
					return err
				}
			}

			ref := nestable.TokenRef{Registry: registryID, TokenID: nestable.TokenID(tokenID)}
			owner, err := directory.OwnerOf(cmd.Context(), ref)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), owner)
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&remotes, "remote", nil, "query API base URL whose registries join the lookup (repeatable)")
	return cmd
}

// registerRemote attaches every registry served at baseURL as a read-only
// source. A registry already attached by an earlier remote is kept.
func registerRemote(cmd *cobra.Command, directory *nestable.Directory, baseURL string) error {
	client, err := mirror.NewClient(mirror.Config{BaseURL: baseURL})
	if err != nil {
		return err
	}
	listed, err := client.GetRegistries(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing registries at %s: %w", baseURL, err)
	}
	for _, id := range listed.Registries {
		if _, err := directory.Lookup(id); err == nil {
			continue
		}
		source, err := mirror.NewRemoteSource(client, string(id))
		if err != nil {
			return err
		}
		if err := directory.Register(source); err != nil {
			return err
		}
	}
	return nil
}
