package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/KaramelBytes/odap/internal/ai"
	cfgpkg "github.com/KaramelBytes/odap/internal/config"
	"github.com/KaramelBytes/odap/internal/dataset"
	"github.com/KaramelBytes/odap/internal/insight"
	"github.com/KaramelBytes/odap/internal/logger"
	"github.com/KaramelBytes/odap/internal/pipeline"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	cfgFile string
	debug   bool
	// Overrides applied on top of the loaded config when set
	flagHTTPTimeoutSec int
	flagProvider       string
	flagModel          string

	// Loaded configuration
	cfg *cfgpkg.Global
	log = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "odap",
	Short: "Open Data Analysis Platform: explore CSV datasets and ask questions about them",
	Long: `odap loads a CSV dataset and renders a preview, a sentiment distribution, a word cloud,
a sentiment trend over time and summary statistics. Questions about the data are answered
by an OpenAI-compatible chat model (or a local Ollama runtime).`,
	SilenceUsage: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	cobra.OnInitialize(loadConfig)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.odap/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().IntVar(&flagHTTPTimeoutSec, "http-timeout", 0, "HTTP client timeout in seconds (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagProvider, "provider", "", "model provider: openai | ollama (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagModel, "model", "", "chat model name (overrides config)")
}

func loadConfig() {
	if err := cfgpkg.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "⚠ Warning: %v\n", err)
	}
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: commands fall back to built-in defaults
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		c = &cfgpkg.Global{}
	}
	cfg = c

	f := rootCmd.PersistentFlags()
	if f.Changed("http-timeout") && flagHTTPTimeoutSec > 0 {
		cfg.HTTPTimeoutSec = flagHTTPTimeoutSec
	}
	if f.Changed("provider") && flagProvider != "" {
		cfg.Provider = flagProvider
	}
	if f.Changed("model") && flagModel != "" {
		cfg.Model = flagModel
	}
	level := cfg.LogLevel
	if debug {
		level = "debug"
	}
	log = logger.New(level, cfg.LogFormat)
}

// currentConfig returns the loaded config, or defaults when loading was skipped.
func currentConfig() *cfgpkg.Global {
	if cfg == nil {
		loadConfig()
	}
	return cfg
}

func newCache(c *cfgpkg.Global) *dataset.Cache {
	return dataset.NewCache(c.CacheEntries, dataset.DefaultOptions())
}

func renderOptions(c *cfgpkg.Global) pipeline.Options {
	opt := pipeline.DefaultOptions()
	opt.PreviewRows = c.PreviewRows
	opt.MaxWords = c.MaxWords
	opt.Logger = log
	return opt
}

// newRequester builds the insight requester for the configured provider.
// Insight submissions are never retried.
func newRequester(c *cfgpkg.Global) (*insight.Requester, error) {
	timeout := time.Duration(c.HTTPTimeoutSec) * time.Second
	rt, err := ai.NewRuntime(c.Provider, ai.RuntimeConfig{
		HTTPTimeout: timeout,
		Retry:       ai.NoRetry,
		Logger:      log,
		APIKey:      c.APIKey,
		BaseURL:     c.BaseURL,
		Host:        c.OllamaHost,
	})
	if err != nil {
		return nil, err
	}
	return insight.New(rt, insight.Config{
		Model:       c.Model,
		PreviewRows: c.PreviewRows,
		MaxTokens:   c.MaxTokens,
		Temperature: c.Temperature,
	}, log), nil
}
