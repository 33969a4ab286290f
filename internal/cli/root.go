package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/SwaroopMeher/deep-research-agent/internal/model"
)

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "deepresearch",
	Short: "Deep Research - iterative multi-phase research orchestration",
	Long: `Deep Research runs an iterative research loop over a topic:
it plans search queries, fans them out across a bounded worker pool,
deep-dives the most promising results, merges extracted claims into
findings with corroboration-derived confidence tiers, cross-validates
the high-impact ones, and decides algorithmically when to stop.

Confidence measures source agreement, never truth. Contradictions are
surfaced and retained, not resolved.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command and maps errors to exit codes
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitCode(err)
	}
	return 0
}

// exitCode maps the error taxonomy onto process exit codes
func exitCode(err error) int {
	var emptyPlan *model.EmptyPlanError
	if errors.As(err, &emptyPlan) {
		return 2
	}
	var persistence *model.PersistenceError
	if errors.As(err, &persistence) {
		return 3
	}
	var provider *model.ProviderError
	if errors.As(err, &provider) {
		return 4
	}
	return 1
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("deepresearch v0.1.0")
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.deepresearch/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and DEEPRESEARCH_* env variables
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}
		viper.AddConfigPath(home + "/.deepresearch")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("DEEPRESEARCH")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// loadConfig layers the config file and environment over the defaults
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse configuration: %w", err)
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" && cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = key
	}
	return cfg, nil
}
