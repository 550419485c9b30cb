// Package cmd — export command.
// Reads raw model output from a file, stdin or the result store, then
// normalizes it and writes one file per requested format.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gaurav-prasanna/gtmkit/core"
	"github.com/gaurav-prasanna/gtmkit/core/export"
	"github.com/gaurav-prasanna/gtmkit/core/output"
)

var (
	flagTxt       bool
	flagHTML      bool
	flagJSON      bool
	flagDOCX      bool
	flagPDF       bool
	flagAll       bool
	flagTitle     string
	flagOrder     string
	flagEngine    string
	flagOutputDir string
)

var exportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Export a plan as text, HTML, JSON, Word or PDF",
	Long: `Export normalizes raw model output to canonical Markdown and renders it in
each requested format. Input is read from the file argument, from stdin, or,
with --order, from the result store.

Examples:
  gtmkit export plan.txt --docx
  gtmkit export plan.txt --pdf --engine fpdf --output_dir ./out
  gtmkit export --order ord_42 --all`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().BoolVar(&flagTxt, "txt", false, "Output plain text (canonical Markdown)")
	exportCmd.Flags().BoolVar(&flagHTML, "html", false, "Output an HTML page")
	exportCmd.Flags().BoolVar(&flagJSON, "json", false, "Output structured JSON")
	exportCmd.Flags().BoolVar(&flagDOCX, "docx", false, "Output a Word document")
	exportCmd.Flags().BoolVar(&flagPDF, "pdf", false, "Output a PDF")
	exportCmd.Flags().BoolVar(&flagAll, "all", false, "Output every format")

	exportCmd.Flags().StringVar(&flagTitle, "title", "", "Document title (default: config export.title)")
	exportCmd.Flags().StringVar(&flagOrder, "order", "", "Order ID; without a file argument the plan is read from the store")
	exportCmd.Flags().StringVar(&flagEngine, "engine", "", "PDF engine: chrome or fpdf (default: config export.pdf_engine)")
	exportCmd.Flags().StringVar(&flagOutputDir, "output_dir", "", "Output directory (default: config export.output_dir)")
}

func runExport(cmd *cobra.Command, args []string) error {
	formats, err := selectedFormats()
	if err != nil {
		return err
	}
	if flagOrder != "" && len(args) > 0 {
		return errors.New("--order and a file argument are mutually exclusive")
	}

	exporter, err := newExporter(flagEngine)
	if err != nil {
		return err
	}

	dir := flagOutputDir
	if dir == "" {
		dir = cfg.Export.OutputDir
	}
	writer, err := output.New(dir)
	if err != nil {
		return fmt.Errorf("initializing output writer: %w", err)
	}

	ctx := cmd.Context()
	raw, meta, err := loadPlan(ctx, args)
	if err != nil {
		return err
	}

	artifacts, err := exporter.ExportAll(ctx, raw, formats, meta)
	if err != nil {
		return err
	}
	for _, a := range artifacts {
		path, err := writer.Write(a.Filename, a.Data)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "✓ Written: %s\n", path)
	}
	return nil
}

// loadPlan returns the raw plan text and its document metadata.
func loadPlan(ctx context.Context, args []string) (string, core.DocumentMeta, error) {
	meta := core.DocumentMeta{Title: flagTitle, OrderID: flagOrder}
	if meta.Title == "" {
		meta.Title = cfg.Export.Title
	}

	if flagOrder == "" || len(args) > 0 {
		raw, err := readInput(args)
		return raw, meta, err
	}

	st, err := openStore()
	if err != nil {
		return "", meta, err
	}
	defer st.Close()

	r, err := st.Get(ctx, flagOrder)
	if err != nil {
		return "", meta, err
	}
	if !r.Frozen {
		return "", meta, fmt.Errorf("order %s: generation has not finished", flagOrder)
	}
	if flagTitle == "" && r.Title != "" {
		meta.Title = r.Title
	}
	return r.RawText, meta, nil
}

// selectedFormats maps the format flags to export formats. At least one is required.
func selectedFormats() ([]export.Format, error) {
	if flagAll {
		return []export.Format{export.FormatText, export.FormatHTML, export.FormatJSON, export.FormatDOCX, export.FormatPDF}, nil
	}
	var formats []export.Format
	for _, f := range []struct {
		set    bool
		format export.Format
	}{
		{flagTxt, export.FormatText},
		{flagHTML, export.FormatHTML},
		{flagJSON, export.FormatJSON},
		{flagDOCX, export.FormatDOCX},
		{flagPDF, export.FormatPDF},
	} {
		if f.set {
			formats = append(formats, f.format)
		}
	}
	if len(formats) == 0 {
		return nil, errors.New("at least one output format is required: --txt, --html, --json, --docx, --pdf or --all")
	}
	return formats, nil
}
