// Package config loads tool configuration from translaitor.yaml files,
// environment variables, and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/agobi/translaitor/gemini"
	"github.com/agobi/translaitor/translate"
)

// ConfigFileName is the base name of the config file, without extension.
const ConfigFileName = "translaitor"

// Config holds all tool settings. Values merge in order: defaults, config
// file, TRANSLAITOR_* environment variables, command-line flags.
type Config struct {
	APIKey       string        `mapstructure:"api_key"`
	Model        string        `mapstructure:"model"`
	BaseURL      string        `mapstructure:"base_url"`
	Proxy        string        `mapstructure:"proxy"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxRetries   int           `mapstructure:"max_retries"`
	InitialDelay time.Duration `mapstructure:"initial_delay"`

	TargetLang string `mapstructure:"target_lang"`
	SourceLang string `mapstructure:"source_lang"`
	Style      string `mapstructure:"style"`
	Topic      string `mapstructure:"topic"`
	ChunkSize  int    `mapstructure:"chunk_size"`

	PromptsFile string `mapstructure:"prompts_file"`
	CacheFile   string `mapstructure:"cache_file"`

	// loadedFrom is the config file used, empty when running on defaults.
	loadedFrom string
}

// Source reports the config file the settings were read from, or "" when no
// file was found.
func (c *Config) Source() string { return c.loadedFrom }

// New returns a viper instance with the tool's defaults and lookup paths
// registered. Callers may bind command flags onto it before calling Load.
func New() *viper.Viper {
	v := viper.New()

	// Every key needs a default registered, or AutomaticEnv values would
	// not survive Unmarshal.
	v.SetDefault("api_key", "")
	v.SetDefault("proxy", "")
	v.SetDefault("target_lang", "")
	v.SetDefault("source_lang", "")
	v.SetDefault("prompts_file", "")
	v.SetDefault("cache_file", "")
	v.SetDefault("model", gemini.DefaultModel)
	v.SetDefault("base_url", gemini.DefaultBaseURL)
	v.SetDefault("timeout", 120*time.Second)
	v.SetDefault("max_retries", 5)
	v.SetDefault("initial_delay", time.Second)
	v.SetDefault("style", "direct")
	v.SetDefault("topic", "general")
	v.SetDefault("chunk_size", 0)

	v.SetConfigName(ConfigFileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
	}

	v.SetEnvPrefix("TRANSLAITOR")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	return v
}

// Load reads the config file, if one exists, and unmarshals everything into
// a Config. An explicit file path overrides the search paths; a missing
// explicit file is an error, a missing implicit one is not.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.loadedFrom = v.ConfigFileUsed()
	return &cfg, nil
}

// Gemini converts the settings into an API client config.
func (c *Config) Gemini() gemini.Config {
	return gemini.Config{
		APIKey:       c.APIKey,
		Model:        c.Model,
		BaseURL:      c.BaseURL,
		Proxy:        c.Proxy,
		Timeout:      c.Timeout,
		MaxRetries:   c.MaxRetries,
		InitialDelay: c.InitialDelay,
	}
}

// TranslateOptions converts the settings into translator options. The
// prompts file, when configured, is loaded here.
func (c *Config) TranslateOptions() (translate.Options, error) {
	opts := translate.Options{
		Style:      c.Style,
		Topic:      c.Topic,
		SourceLang: c.SourceLang,
		ChunkSize:  c.ChunkSize,
	}
	if c.PromptsFile != "" {
		ps, err := translate.LoadPromptsFile(c.PromptsFile)
		if err != nil {
			return opts, err
		}
		opts.Prompts = ps
	}
	return opts, nil
}
