// Package output handles file naming and writing for gtmkit exports.
// Every export is named after its order: gtm-kit-<orderID>.<ext>.
package output

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// filePrefix starts every export file name.
const filePrefix = "gtm-kit"

// Writer writes rendered output to disk.
type Writer struct {
	OutputDir string
}

// New creates a Writer targeting the given output directory.
// If outputDir is empty, it defaults to the current working directory.
func New(outputDir string) (*Writer, error) {
	if outputDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("getting working directory: %w", err)
		}
		outputDir = wd
	}

	// Ensure the output directory exists.
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	return &Writer{OutputDir: outputDir}, nil
}

// Write writes data under the output directory and returns the full path.
// The name is reduced to its base so it cannot escape the directory.
func (w *Writer) Write(name string, data []byte) (string, error) {
	path := filepath.Join(w.OutputDir, filepath.Base(name))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing file %s: %w", path, err)
	}
	return path, nil
}

// Filename returns the export file name for an order.
// Example: ("ord 42", ".docx") → gtm-kit-ord_42.docx
func Filename(orderID, ext string) string {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	id := sanitize(orderID)
	if id == "" {
		return filePrefix + ext
	}
	return filePrefix + "-" + id + ext
}

// sanitize replaces characters outside [A-Za-z0-9_-] with underscores.
func sanitize(s string) string {
	var b strings.Builder
	for _, ch := range strings.TrimSpace(s) {
		if (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') || ch == '-' || ch == '_' {
			b.WriteRune(ch)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}
