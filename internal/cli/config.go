package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ppiankov/panelgraph/internal/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage panelgraph configuration",
	Long: `Manage panelgraph configuration files and settings.

Configuration hierarchy (highest to lowest priority):
1. CLI flags
2. Environment variables (PANELGRAPH_*)
3. Config file (~/.panelgraph/config.yaml)
4. Defaults`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the effective configuration after defaults, config file and environment variables are applied.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		// never echo secrets
		if cfg.LLM.APIKey != "" {
			cfg.LLM.APIKey = "********"
		}

		if configFile := viper.ConfigFileUsed(); configFile != "" {
			fmt.Fprintf(os.Stderr, "Configuration file: %s\n\n", configFile)
		} else {
			fmt.Fprintf(os.Stderr, "No configuration file found (using defaults)\n\n")
		}

		yamlData, err := yaml.Marshal(cfg)
		if err != nil {
			return errors.Wrap(err, "marshal config")
		}
		fmt.Fprint(cmd.OutOrStdout(), string(yamlData))

		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "\nWarning: configuration is invalid: %v\n", err)
		}
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize default configuration file",
	Long:  `Create a default configuration file at ~/.panelgraph/config.yaml.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		home, err := os.UserHomeDir()
		if err != nil {
			return errors.Wrap(err, "find home directory")
		}
		configPath := filepath.Join(home, ".panelgraph", "config.yaml")
		return writeDefaultConfig(configPath, cmd)
	},
}

func writeDefaultConfig(configPath string, cmd *cobra.Command) (err error) {
	if _, err := os.Stat(configPath); err == nil {
		return errors.WithHint(
			errors.Newf("config file already exists: %s", configPath),
			"use 'panelgraph config show' to view it, or delete it first to recreate")
	}
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return errors.Wrap(err, "create config directory")
	}

	f, err := os.Create(configPath)
	if err != nil {
		return errors.Wrap(err, "create config file")
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = errors.Wrap(closeErr, "close config file")
		}
	}()

	printf := func(format string, a ...interface{}) {
		if err != nil {
			return
		}
		_, err = fmt.Fprintf(f, format, a...)
	}

	printf("# panelgraph configuration\n")
	printf("#\n")
	printf("# Configuration hierarchy (highest to lowest priority):\n")
	printf("#   1. CLI flags\n")
	printf("#   2. Environment variables (PANELGRAPH_*, e.g. PANELGRAPH_GRAPH_STRICT=false)\n")
	printf("#   3. This config file\n")
	printf("#   4. Built-in defaults\n\n")

	cfg, cfgErr := loadConfig()
	if cfgErr != nil {
		return cfgErr
	}
	cfg.LLM.APIKey = ""
	yamlData, mErr := yaml.Marshal(cfg)
	if mErr != nil {
		return errors.Wrap(mErr, "marshal config")
	}
	printf("%s", yamlData)

	printf("\n# Storytime overrides can also live in a separate file (storytime.overrides_file):\n")
	printf("#   overrides:\n")
	printf("#     - before: Intro_1\n")
	printf("#       after: Get new rice_cooker_1\n")
	printf("#     - [Think of family_1, Message from family_1]\n")
	printf("\n# API keys are best taken from the environment:\n")
	printf("#   export OPENAI_API_KEY=sk-...\n")
	printf("#   export OLLAMA_BASE_URL=http://localhost:11434/v1\n")
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created default configuration: %s\n", configPath)
	return nil
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}
