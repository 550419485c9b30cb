// Package cmd implements the gtmkit CLI using Cobra.
package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gaurav-prasanna/gtmkit/config"
	"github.com/gaurav-prasanna/gtmkit/core/export"
	"github.com/gaurav-prasanna/gtmkit/core/generate"
	"github.com/gaurav-prasanna/gtmkit/core/store"
	"github.com/gaurav-prasanna/gtmkit/logging"
)

var (
	flagConfig  string
	flagVerbose bool

	// Set by the root command before any subcommand runs.
	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "gtmkit",
	Short: "gtmkit — normalize and export AI-generated go-to-market plans",
	Long: `gtmkit turns raw model output for a go-to-market plan into canonical Markdown
and renders it as text, HTML, JSON, Word or PDF.

Usage:
  gtmkit normalize plan.txt
  gtmkit export plan.txt --docx --pdf
  gtmkit generate --order ord_1 --brief brief.json
  gtmkit serve`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(flagConfig)
		if err != nil {
			return err
		}
		level := cfg.Log.Level
		if flagVerbose {
			level = "debug"
		}
		logger, err = logging.New(level, cfg.Log.Development)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Log at debug level")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// --- helpers ---

// readInput reads the named file, or stdin for "-" or no argument.
func readInput(args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", args[0], err)
	}
	return string(data), nil
}

func newExporter(engine string) (*export.Exporter, error) {
	if engine == "" {
		engine = cfg.Export.PDFEngine
	}
	return export.NewDefault(export.Options{
		PDFEngine:     engine,
		BrowserBin:    cfg.Export.BrowserBin,
		NoSandbox:     cfg.Export.NoSandbox,
		RenderTimeout: cfg.Export.RenderTimeout,
		PDFFont:       cfg.Export.PDFFont,
		PDFBoldFont:   cfg.Export.PDFBoldFont,
		Logger:        logger,
	})
}

func openStore() (*store.Store, error) {
	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("opening result store: %w", err)
	}
	return st, nil
}

// newGenerator returns nil when no provider is configured.
func newGenerator(st *store.Store) (*generate.Generator, error) {
	g := cfg.Generation
	limits := generate.Limits{
		MaxOutputTokens:  g.MaxOutputTokens,
		MaxContinuations: g.MaxContinuations,
		TailChars:        g.TailChars,
	}
	switch g.Provider {
	case "":
		return nil, nil
	case "mock":
		return generate.New(generate.MockCompleter{}, st, limits, logger), nil
	default:
		completer, err := generate.NewOpenAICompleter(g.APIKey, g.Model, g.BaseURL)
		if err != nil {
			return nil, err
		}
		return generate.New(completer, st, limits, logger), nil
	}
}
