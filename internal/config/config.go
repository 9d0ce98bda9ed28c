package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	APIKey      string  `mapstructure:"api_key" yaml:"api_key"`
	Provider    string  `mapstructure:"provider" yaml:"provider"`
	Model       string  `mapstructure:"model" yaml:"model"`
	BaseURL     string  `mapstructure:"base_url" yaml:"base_url"`
	MaxTokens   int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	Temperature float64 `mapstructure:"temperature" yaml:"temperature"`

	// HTTP
	HTTPTimeoutSec int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`

	// Local runtimes (Ollama)
	OllamaHost string `mapstructure:"ollama_host" yaml:"ollama_host"`

	// Dashboard
	PreviewRows  int    `mapstructure:"preview_rows" yaml:"preview_rows"`
	MaxWords     int    `mapstructure:"max_words" yaml:"max_words"`
	CacheEntries int    `mapstructure:"cache_entries" yaml:"cache_entries"`
	Addr         string `mapstructure:"addr" yaml:"addr"`
	MaxUploadMB  int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb"`

	// Logging
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`
}

// Keys lists the settable configuration keys in display order.
var Keys = []string{
	"api_key", "provider", "model", "base_url", "max_tokens", "temperature",
	"http_timeout_sec", "ollama_host",
	"preview_rows", "max_words", "cache_entries", "addr", "max_upload_mb",
	"log_level", "log_format",
}

// configDir returns ~/.odap.
func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".odap"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.odap/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := configDir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file > defaults. CLI flags are applied by the caller.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("ODAP")
	v.AutomaticEnv()
	// The conventional OpenAI variable is honored alongside ODAP_API_KEY.
	if err := v.BindEnv("api_key", "ODAP_API_KEY", "OPENAI_API_KEY"); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	v.SetDefault("api_key", "")
	v.SetDefault("provider", "openai")
	v.SetDefault("model", "gpt-4")
	v.SetDefault("base_url", "https://api.openai.com/v1")
	v.SetDefault("max_tokens", 0)
	v.SetDefault("temperature", 0.0)
	v.SetDefault("http_timeout_sec", 60)
	v.SetDefault("ollama_host", "http://127.0.0.1:11434")
	v.SetDefault("preview_rows", 5)
	v.SetDefault("max_words", 100)
	v.SetDefault("cache_entries", 16)
	v.SetDefault("addr", ":8501")
	v.SetDefault("max_upload_mb", 200)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := configDir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// An explicit file that cannot be read is an error; a missing default file is not.
		if cfgFile != "" && !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.PreviewRows <= 0 {
		c.PreviewRows = 5
	}
	if c.MaxWords <= 0 {
		c.MaxWords = 100
	}
	return &c, nil
}

// LoadDotEnv loads a .env file from the working directory when present.
// Existing environment variables win over file values.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("load dotenv: %w", err)
	}
	return nil
}
