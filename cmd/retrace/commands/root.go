// Package commands implements the CLI commands for retrace.
package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/overwatch/retrace/internal/llm"
	"github.com/overwatch/retrace/internal/version"
)

var rootCmd = &cobra.Command{
	Use:     "retrace",
	Short:   "LLM-powered missing-person record extraction",
	Version: version.String(),
	Long: `Retrace extracts structured missing-person records from noisy HTML
using an LLM, validates them against a strict schema, and serves the
results over HTTP.

Examples:
  # Run the extraction service
  retrace serve --port 8000

  # One-shot extraction from a saved page
  retrace extract --file page.html --state Maharashtra

  # One-shot extraction straight from a URL, local Ollama
  retrace extract --url "https://example.gov/missing" -p ollama -m qwen2.5:7b-instruct`,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default $HOME/.retrace.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "suppress progress output")

	rootCmd.PersistentFlags().StringP("provider", "p", "", "LLM provider: anthropic, openai, openrouter, ollama (auto-detects from env vars)")
	rootCmd.PersistentFlags().StringP("model", "m", "", "model name (provider-specific)")
	rootCmd.PersistentFlags().StringP("api-key", "k", "", "API key (or use env var)")
	rootCmd.PersistentFlags().String("base-url", "", "custom API base URL")
	rootCmd.PersistentFlags().Float64("temperature", 0.1, "sampling temperature")
	rootCmd.PersistentFlags().Duration("timeout", 60*time.Second, "inference request timeout")

	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("provider", rootCmd.PersistentFlags().Lookup("provider"))
	_ = viper.BindPFlag("model", rootCmd.PersistentFlags().Lookup("model"))
	_ = viper.BindPFlag("api_key", rootCmd.PersistentFlags().Lookup("api-key"))
	_ = viper.BindPFlag("base_url", rootCmd.PersistentFlags().Lookup("base-url"))
	_ = viper.BindPFlag("temperature", rootCmd.PersistentFlags().Lookup("temperature"))
	_ = viper.BindPFlag("timeout", rootCmd.PersistentFlags().Lookup("timeout"))
}

func initConfig() {
	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigName(".retrace")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("RETRACE")
	viper.AutomaticEnv()

	// Also check common API key env vars
	_ = viper.BindEnv("api_key", "ANTHROPIC_API_KEY", "OPENAI_API_KEY", "OPENROUTER_API_KEY")

	// Read config file (ignore error if not found)
	_ = viper.ReadInConfig()
}

// buildProvider constructs the configured LLM provider, auto-detecting one
// from available API keys when none is named.
func buildProvider() (llm.Provider, error) {
	name := viper.GetString("provider")
	apiKey := viper.GetString("api_key")

	if name == "" {
		detected, detectedKey := llm.DetectProvider()
		name = detected
		if apiKey == "" {
			apiKey = detectedKey
		}
	}

	model := viper.GetString("model")
	if model == "" {
		model = llm.GetDefaultModel(name)
	}

	cfg := llm.DefaultProviderConfig()
	cfg.APIKey = apiKey
	cfg.Model = model
	cfg.BaseURL = viper.GetString("base_url")
	if timeout := viper.GetDuration("timeout"); timeout > 0 {
		cfg.Timeout = timeout
	}

	provider, err := llm.NewProvider(name, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider %q: %w", name, err)
	}
	return provider, nil
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
