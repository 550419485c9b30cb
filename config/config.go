// Package config loads gtmkit settings from a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. GTMKIT_SERVER_ADDR.
const EnvPrefix = "gtmkit"

// Config is the full gtmkit configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Store      StoreConfig      `yaml:"store"`
	Export     ExportConfig     `yaml:"export"`
	Generation GenerationConfig `yaml:"generation"`
	Log        LogConfig        `yaml:"log"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type StoreConfig struct {
	// Path of the sqlite database. Empty or ":memory:" keeps results in memory.
	Path string `yaml:"path"`
}

type ExportConfig struct {
	Title         string        `yaml:"title"`
	PDFEngine     string        `yaml:"pdf_engine" split_words:"true"`
	BrowserBin    string        `yaml:"browser_bin" split_words:"true"`
	NoSandbox     bool          `yaml:"no_sandbox" split_words:"true"`
	RenderTimeout time.Duration `yaml:"render_timeout" split_words:"true"`
	OutputDir     string        `yaml:"output_dir" split_words:"true"`

	// PDFFont is a UTF-8 TrueType font for the fpdf engine.
	PDFFont     string `yaml:"pdf_font" split_words:"true"`
	PDFBoldFont string `yaml:"pdf_bold_font" split_words:"true"`
}

type GenerationConfig struct {
	// Provider is "openai", "mock" or empty to disable generation.
	Provider         string `yaml:"provider"`
	Model            string `yaml:"model"`
	APIKey           string `yaml:"api_key" split_words:"true"`
	BaseURL          string `yaml:"base_url" split_words:"true"`
	MaxOutputTokens  int    `yaml:"max_output_tokens" split_words:"true"`
	MaxContinuations int    `yaml:"max_continuations" split_words:"true"`
	TailChars        int    `yaml:"tail_chars" split_words:"true"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{Addr: ":8080"},
		Store:  StoreConfig{Path: "gtmkit.db"},
		Export: ExportConfig{
			Title:         "Go-to-market plan",
			PDFEngine:     "chrome",
			RenderTimeout: 60 * time.Second,
			OutputDir:     "./output",
		},
		Generation: GenerationConfig{
			Provider:         "openai",
			Model:            "gpt-4o",
			MaxOutputTokens:  8000,
			MaxContinuations: 4,
			TailChars:        1000,
		},
		Log: LogConfig{Level: "info"},
	}
}

// envVarPattern matches ${VAR_NAME} patterns.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load reads the YAML file at path over the defaults, then applies GTMKIT_*
// environment overrides. An empty path skips the file. OPENAI_API_KEY fills
// in a missing API key.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}
	if cfg.Generation.APIKey == "" {
		cfg.Generation.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the enumerated settings.
func (c *Config) Validate() error {
	var errs []error
	switch c.Export.PDFEngine {
	case "chrome", "fpdf":
	default:
		errs = append(errs, fmt.Errorf("export.pdf_engine: unknown engine %q", c.Export.PDFEngine))
	}
	switch c.Generation.Provider {
	case "", "openai", "mock":
	default:
		errs = append(errs, fmt.Errorf("generation.provider: unknown provider %q", c.Generation.Provider))
	}
	if c.Export.RenderTimeout < 0 {
		errs = append(errs, errors.New("export.render_timeout: must not be negative"))
	}
	return errors.Join(errs...)
}

// expandEnvVars replaces ${VAR_NAME} with environment variable values.
// Unset variables expand to the empty string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		return os.Getenv(name)
	})
}
