package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/panelgraph/internal/errors"
	"github.com/ppiankov/panelgraph/internal/logger"
	"github.com/ppiankov/panelgraph/internal/model"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Version is set at build time with -ldflags "-X .../internal/cli.Version=..."
var Version = "dev"

var (
	cfgFile string
	verbose bool
	logJSON bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "panelgraph",
	Short: "Panelgraph - multi-level knowledge graphs for annotated comics",
	Long: `Panelgraph turns per-panel comic annotations and a plot metadata table
into knowledge graphs at three levels:

  panel content   characters, actions, objects, scenes, dialogue
  event hierarchy macro-events, events and segments, with story-time order
  reading sequence pages and panels in reading order

It integrates them into one graph, answers retrieval queries over it, and
scores the answers against ground truth derived from the same annotations.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logger.Initialize(logJSON, verbose)
	},
}

// Execute runs the root command
func Execute() error {
	defer logger.Cleanup()
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "panelgraph %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.panelgraph/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "log as JSON to stderr")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}
		viper.AddConfigPath(home + "/.panelgraph")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// PANELGRAPH_GRAPH_STRICT overrides graph.strict, and so on
	viper.SetEnvPrefix("PANELGRAPH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	_ = viper.BindEnv("llm.api_key", "PANELGRAPH_LLM_API_KEY", "OPENAI_API_KEY")
	_ = viper.BindEnv("llm.base_url", "PANELGRAPH_LLM_BASE_URL", "OLLAMA_BASE_URL")

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// loadConfig layers the config file and environment over the defaults.
// Command flags are applied by the caller afterwards.
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	registerDefaults(cfg)
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "decode configuration")
	}
	return cfg, nil
}

// registerDefaults makes every key known to viper so environment variables
// bind even when no config file sets them
func registerDefaults(cfg *model.Config) {
	defaults := map[string]interface{}{
		"graph.character_scope":    cfg.Graph.CharacterScope,
		"graph.strict":             cfg.Graph.Strict,
		"graph.include_sequence":   cfg.Graph.IncludeSequence,
		"storytime.overrides_file": cfg.Storytime.OverridesFile,
		"output.dir":               cfg.Output.Dir,
		"output.indent":            cfg.Output.Indent,
		"cache.enabled":            cfg.Cache.Enabled,
		"cache.dir":                cfg.Cache.Dir,
		"cache.memory_ttl":         cfg.Cache.MemoryTTL,
		"cache.disk_ttl":           cfg.Cache.DiskTTL,
		"concurrency.books":        cfg.Concurrency.Books,
		"llm.provider":             cfg.LLM.Provider,
		"llm.model":                cfg.LLM.Model,
		"llm.timeout":              cfg.LLM.Timeout,
		"llm.strict_evidence":      cfg.LLM.StrictEvidence,
		"llm.max_tokens":           cfg.LLM.MaxTokens,
		"llm.requests_per_second":  cfg.LLM.RequestsPerSecond,
		"llm.http_proxy":           cfg.LLM.HTTPProxy,
		"llm.https_proxy":          cfg.LLM.HTTPSProxy,
		"llm.no_proxy":             cfg.LLM.NoProxy,
	}
	for k, v := range defaults {
		viper.SetDefault(k, v)
	}
}
