package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var flagLimit int

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "List the most recently updated results in the store",
	Args:  cobra.NoArgs,
	RunE:  runResults,
}

func init() {
	rootCmd.AddCommand(resultsCmd)
	resultsCmd.Flags().IntVar(&flagLimit, "limit", 20, "Maximum number of results to list")
}

func runResults(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	results, err := st.Recent(cmd.Context(), flagLimit)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ORDER\tSTATUS\tCHUNKS\tFINISH\tUPDATED")
	for _, r := range results {
		status := "generating"
		if r.Frozen {
			status = "ready"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", r.OrderID, status, r.Chunks, r.FinishReason, r.UpdatedAt.Format(time.RFC3339))
	}
	return tw.Flush()
}
