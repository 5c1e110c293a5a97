package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	hedera "github.com/hashgraph/hedera-sdk-go/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/bookmart/nestable-sdk-go/pkg/checkpoint"
	"github.com/bookmart/nestable-sdk-go/pkg/shared"
)

const checkpointsFile = "checkpoints.json"

func newCheckpointCommand(state *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Build and verify registry checkpoints",
	}
	cmd.AddCommand(newCheckpointBuildCommand(state), newCheckpointVerifyCommand(state))
	return cmd
}

func archiveName(registry string) string {
	return registry + ".archive.br"
}

func newCheckpointBuildCommand(state *app) *cobra.Command {
	var unsigned bool

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Play the walkthrough and archive every registry with a signed checkpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var key hedera.PrivateKey
			var signer string
			if !unsigned {
				operator, err := shared.OperatorConfigFromEnv()
				if err != nil {
					return fmt.Errorf("%w (pass --unsigned to skip signing)", err)
				}
				key, err = operator.SigningKey()
				if err != nil {
					return err
				}
				signer = operator.AccountID
			}

			seeded, err := state.seed(cmd.Context(), "", true)
			if err != nil {
				return err
			}
			defer seeded.Close()

			outputDir := state.config.Checkpoint.OutputDir
			if err := os.MkdirAll(outputDir, 0o755); err != nil {
				return fmt.Errorf("creating %s: %w", outputDir, err)
			}

			signed := make([]checkpoint.SignedCheckpoint, 0)
			for _, id := range seeded.directory.Registries() {
				registry, err := seeded.directory.Registry(id)
				if err != nil {
					continue
				}
				snapshot, err := registry.Snapshot(cmd.Context())
				if err != nil {
					return err
				}

				path := filepath.Join(outputDir, archiveName(string(id)))
				file, err := os.Create(path)
				if err != nil {
					return fmt.Errorf("creating archive: %w", err)
				}
				built, err := checkpoint.WriteArchive(file, snapshot)
				closeErr := file.Close()
				if err != nil {
					return err
				}
				if closeErr != nil {
					return fmt.Errorf("writing %s: %w", path, closeErr)
				}

				entry := checkpoint.SignedCheckpoint{Checkpoint: built}
				if !unsigned {
					entry, err = checkpoint.Sign(built, key, signer)
					if err != nil {
						return err
					}
				}
				signed = append(signed, entry)
				fmt.Fprintf(cmd.OutOrStdout(), "%s generation=%d tokens=%d assets=%d root=%s\n",
					built.Registry, built.Generation, built.TokenCount, built.AssetCount, built.Root)
			}

			encoded, err := json.MarshalIndent(signed, "", "  ")
			if err != nil {
				return err
			}
			if err := os.WriteFile(filepath.Join(outputDir, checkpointsFile), append(encoded, '\n'), 0o644); err != nil {
				return fmt.Errorf("writing checkpoints: %w", err)
			}
			state.logger.Info().Str("dir", outputDir).Int("registries", len(signed)).Bool("signed", !unsigned).Msg("checkpoints written")
			return nil
		},
	}

	cmd.Flags().BoolVar(&unsigned, "unsigned", false, "skip signing")
	cmd.Flags().String("output-dir", "", "directory for archives (default from config)")
	_ = state.viper.BindPFlag("checkpoint.output_dir", cmd.Flags().Lookup("output-dir"))
	return cmd
}

func newCheckpointVerifyCommand(state *app) *cobra.Command {
	var checkpointsPath string
	var publicKey string

	cmd := &cobra.Command{
		Use:   "verify ARCHIVE",
		Short: "Check an archive against its checkpoint and optional signature",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer file.Close()

			archive, err := checkpoint.ReadArchive(file)
			if err != nil {
				return err
			}

			if checkpointsPath != "" {
				if err := verifySigned(archive.Checkpoint, checkpointsPath, publicKey); err != nil {
					return err
				}
			}

			encoder := yaml.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent(2)
			if err := encoder.Encode(archive.Checkpoint); err != nil {
				return err
			}
			return encoder.Close()
		},
	}

	cmd.Flags().StringVar(&checkpointsPath, "checkpoints", "", "checkpoints.json to match the archive against")
	cmd.Flags().StringVar(&publicKey, "public-key", "", "trusted signer public key")
	return cmd
}

// verifySigned finds the entry for built in the checkpoints file and, when a
// trusted key is given, checks its signature.
func verifySigned(built checkpoint.Checkpoint, checkpointsPath, publicKey string) error {
	raw, err := os.ReadFile(checkpointsPath)
	if err != nil {
		return err
	}
	var entries []checkpoint.SignedCheckpoint
	if err := json.Unmarshal(raw, &entries); err != nil {
		return fmt.Errorf("decoding %s: %w", checkpointsPath, err)
	}

	for _, entry := range entries {
		if entry.Checkpoint.Registry != built.Registry {
			continue
		}
		if entry.Checkpoint != built {
			return fmt.Errorf("archive for %s does not match the recorded checkpoint", built.Registry)
		}
		if publicKey == "" {
			return nil
		}
		key, err := hedera.PublicKeyFromString(publicKey)
		if err != nil {
			return fmt.Errorf("invalid public key: %w", err)
		}
		return checkpoint.Verify(entry, key)
	}
	return fmt.Errorf("no checkpoint recorded for %s", built.Registry)
}
