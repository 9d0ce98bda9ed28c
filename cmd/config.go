package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/KaramelBytes/odap/internal/ai"
	"github.com/KaramelBytes/odap/internal/charts"
	cfgpkg "github.com/KaramelBytes/odap/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set odap configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := currentConfig()
		out := cmd.OutOrStdout()
		for _, k := range cfgpkg.Keys {
			fmt.Fprintf(out, "%s: %s\n", k, configValue(c, k))
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		c, err := cfgpkg.Load(cfgFile)
		if err != nil {
			return err
		}
		if err := setConfigValue(c, key, val); err != nil {
			return err
		}
		if err := cfgpkg.Save(c, cfgFile); err != nil {
			return err
		}
		cfg = c
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func configValue(c *cfgpkg.Global, key string) string {
	switch key {
	case "api_key":
		return mask(c.APIKey)
	case "provider":
		return c.Provider
	case "model":
		return c.Model
	case "base_url":
		return c.BaseURL
	case "max_tokens":
		return strconv.Itoa(c.MaxTokens)
	case "temperature":
		return strconv.FormatFloat(c.Temperature, 'f', 3, 64)
	case "http_timeout_sec":
		return strconv.Itoa(c.HTTPTimeoutSec)
	case "ollama_host":
		return c.OllamaHost
	case "preview_rows":
		return strconv.Itoa(c.PreviewRows)
	case "max_words":
		return strconv.Itoa(c.MaxWords)
	case "cache_entries":
		return strconv.Itoa(c.CacheEntries)
	case "addr":
		return c.Addr
	case "max_upload_mb":
		return strconv.Itoa(c.MaxUploadMB)
	case "log_level":
		return c.LogLevel
	case "log_format":
		return c.LogFormat
	}
	return ""
}

func setConfigValue(c *cfgpkg.Global, key, val string) error {
	atoi := func(floor int) (int, error) {
		i, err := strconv.Atoi(val)
		if err != nil || i < floor {
			return 0, fmt.Errorf("invalid int for %s: %v", key, val)
		}
		return i, nil
	}
	var err error
	switch key {
	case "api_key":
		c.APIKey = val
	case "provider":
		switch strings.ToLower(val) {
		case ai.ProviderOpenAI:
			c.Provider = ai.ProviderOpenAI
		case ai.ProviderOllama, "local":
			c.Provider = ai.ProviderOllama
		default:
			return fmt.Errorf("invalid provider: %s (use openai or ollama)", val)
		}
	case "model":
		c.Model = val
	case "base_url":
		c.BaseURL = val
	case "max_tokens":
		c.MaxTokens, err = atoi(0)
	case "temperature":
		f, perr := strconv.ParseFloat(val, 64)
		if perr != nil || f < 0 {
			return fmt.Errorf("invalid float for temperature: %v", val)
		}
		c.Temperature = f
	case "http_timeout_sec":
		c.HTTPTimeoutSec, err = atoi(1)
	case "ollama_host":
		c.OllamaHost = val
	case "preview_rows":
		c.PreviewRows, err = atoi(1)
	case "max_words":
		c.MaxWords, err = atoi(1)
		if err == nil && c.MaxWords > charts.MaxWords {
			return fmt.Errorf("max_words must be at most %d: %v", charts.MaxWords, val)
		}
	case "cache_entries":
		c.CacheEntries, err = atoi(0)
	case "addr":
		c.Addr = val
	case "max_upload_mb":
		c.MaxUploadMB, err = atoi(1)
	case "log_level":
		switch strings.ToLower(val) {
		case "debug", "info", "warn", "error":
			c.LogLevel = strings.ToLower(val)
		default:
			return fmt.Errorf("invalid log_level: %s", val)
		}
	case "log_format":
		switch strings.ToLower(val) {
		case "json", "console":
			c.LogFormat = strings.ToLower(val)
		default:
			return fmt.Errorf("invalid log_format: %s (use json or console)", val)
		}
	default:
		return fmt.Errorf("unknown key: %s (known: %s)", key, strings.Join(cfgpkg.Keys, ", "))
	}
	return err
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "******"
	}
	return s[:3] + "****" + s[len(s)-3:]
}
