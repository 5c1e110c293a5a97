package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/bookmart/nestable-sdk-go/pkg/journey"
)

type Config struct {
	LogLevel    string           `mapstructure:"log_level" yaml:"log_level"`
	Trace       bool             `mapstructure:"trace" yaml:"trace"`
	JournalPath string           `mapstructure:"journal_path" yaml:"journal_path"`
	Listen      string           `mapstructure:"listen" yaml:"listen"`
	Relay       RelayConfig      `mapstructure:"relay" yaml:"relay"`
	Checkpoint  CheckpointConfig `mapstructure:"checkpoint" yaml:"checkpoint"`
	Journey     journey.Scenario `mapstructure:"journey" yaml:"journey"`
}

type RelayConfig struct {
	URL    string `mapstructure:"url" yaml:"url"`
	APIKey string `mapstructure:"api_key" yaml:"api_key"`
}

type CheckpointConfig struct {
	OutputDir string `mapstructure:"output_dir" yaml:"output_dir"`
}

func Defaults() Config {
	return Config{
		LogLevel:    "info",
		JournalPath: "nestctl-journal.db",
		Listen:      "127.0.0.1:8080",
		Checkpoint:  CheckpointConfig{OutputDir: "checkpoints"},
		Journey:     journey.DefaultScenario(),
	}
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".nestctl", "config.yaml")
	}
	return filepath.Join(home, ".config", "nestctl", "config.yaml")
}

func applyDefaults(v *viper.Viper) {
	defaults := Defaults()
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("trace", defaults.Trace)
	v.SetDefault("journal_path", defaults.JournalPath)
	v.SetDefault("listen", defaults.Listen)
	v.SetDefault("relay.url", defaults.Relay.URL)
	v.SetDefault("relay.api_key", defaults.Relay.APIKey)
	v.SetDefault("checkpoint.output_dir", defaults.Checkpoint.OutputDir)
	v.SetDefault("journey.curator", string(defaults.Journey.Curator))
	v.SetDefault("journey.visitor", string(defaults.Journey.Visitor))
	v.SetDefault("journey.film_registry", string(defaults.Journey.FilmRegistry))
	v.SetDefault("journey.character_registry", string(defaults.Journey.CharacterRegistry))
	v.SetDefault("journey.film_assets", defaults.Journey.FilmAssets)
	v.SetDefault("journey.character_assets", defaults.Journey.CharacterAssets)
	v.SetDefault("journey.characters_per_film", defaults.Journey.CharactersPerFilm)
}

// loadConfig reads the config file when one exists. An explicit path must
// exist; the default location is optional.
func loadConfig(v *viper.Viper, explicitPath string) (Config, error) {
	applyDefaults(v)
	v.SetEnvPrefix("NESTCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if explicitPath != "" {
		v.SetConfigFile(explicitPath)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config %s: %w", explicitPath, err)
		}
	} else {
		v.AddConfigPath(filepath.Dir(defaultConfigPath()))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("reading config: %w", err)
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	return config, nil
}

// writeDefaultConfig writes the default configuration as YAML.
func writeDefaultConfig(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config %s already exists (use --force to overwrite)", path)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	encoded, err := yaml.Marshal(Defaults())
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	content := append([]byte("# nestctl configuration\n"), encoded...)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
