package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gaurav-prasanna/gtmkit/core/generate"
)

var (
	flagGenOrder   string
	flagGenCountry string
	flagGenBrief   string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate the plan for an order and store it",
	Long: `Generate calls the configured completion provider for an order, follows up
with continuation calls while the answer is truncated, and stores the result.
An order that already has a finished result is left untouched.

Examples:
  gtmkit generate --order ord_42 --country DE --brief brief.json`,
	Args: cobra.NoArgs,
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().StringVar(&flagGenOrder, "order", "", "Order ID (required)")
	generateCmd.Flags().StringVar(&flagGenCountry, "country", "", "Customer country code")
	generateCmd.Flags().StringVar(&flagGenBrief, "brief", "", "Path to the brief (JSON, or plain text)")
	_ = generateCmd.MarkFlagRequired("order")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	brief, err := readBrief(flagGenBrief)
	if err != nil {
		return err
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	gen, err := newGenerator(st)
	if err != nil {
		return err
	}
	if gen == nil {
		return errors.New("no generation provider configured (generation.provider)")
	}

	r, err := gen.Generate(cmd.Context(), generate.Request{
		OrderID:     flagGenOrder,
		CountryCode: flagGenCountry,
		Brief:       brief,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "✓ Generated: %s (%d chunks, finish reason %s)\n", r.OrderID, r.Chunks, r.FinishReason)
	return nil
}

// readBrief loads the brief file. Text that is not JSON is sent as a string.
func readBrief(path string) (json.RawMessage, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading brief: %w", err)
	}
	if json.Valid(data) {
		return data, nil
	}
	return json.Marshal(string(data))
}
