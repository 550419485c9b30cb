package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gaurav-prasanna/gtmkit/core/export"
)

var flagCheck bool

var normalizeCmd = &cobra.Command{
	Use:   "normalize [file]",
	Short: "Print the canonical Markdown for raw model output",
	Long: `Normalize reads raw model output from a file or stdin and prints canonical
Markdown. With --check it prints nothing and fails when the input is not
already canonical.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runNormalize,
}

func init() {
	rootCmd.AddCommand(normalizeCmd)
	normalizeCmd.Flags().BoolVar(&flagCheck, "check", false, "Fail if the input is not already canonical")
}

func runNormalize(cmd *cobra.Command, args []string) error {
	raw, err := readInput(args)
	if err != nil {
		return err
	}
	md := export.NormalizePlanToMarkdown(raw)
	if flagCheck {
		if md != strings.TrimSuffix(raw, "\n") {
			return errors.New("input is not canonical Markdown")
		}
		return nil
	}
	fmt.Fprintln(os.Stdout, md)
	return nil
}
