package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jward/scantree/internal/index"
)

var (
	flagDupesDB     string
	flagDupesFormat string
)

var dupesCmd = &cobra.Command{
	Use:   "dupes",
	Short: "List files sharing identical content digests",
	Long:  "Reads a scan index database and groups file paths by SHA1 digest, largest group first.",
	Args:  cobra.NoArgs,
	RunE:  runDupes,
}

func init() {
	dupesCmd.Flags().StringVar(&flagDupesDB, "db", "", "scan index database (required)")
	dupesCmd.Flags().StringVar(&flagDupesFormat, "format", "json", "output format: json|text")
	_ = dupesCmd.MarkFlagRequired("db")
}

func runDupes(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(flagDupesDB); os.IsNotExist(err) {
		return fmt.Errorf("database not found: %s (run 'scantree scan --db' first)", flagDupesDB)
	}
	ix, err := index.Open(flagDupesDB)
	if err != nil {
		return err
	}
	defer ix.Close()

	dups, err := ix.DuplicateDigests()
	if err != nil {
		return err
	}

	if flagDupesFormat == "text" {
		formatDupesText(os.Stdout, dups)
		return nil
	}

	out := make([]CLIDuplicate, len(dups))
	for i, d := range dups {
		out[i] = duplicateToCLI(d)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// formatDupesText renders duplicate groups as aligned columns.
func formatDupesText(w io.Writer, dups []index.Duplicate) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SHA1\tCOUNT\tPATH")
	for _, d := range dups {
		for _, p := range d.Paths {
			fmt.Fprintf(tw, "%s\t%d\t%s\n", d.SHA1, d.Count, p)
		}
	}
	tw.Flush()
}
