package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jward/scantree"
	"github.com/jward/scantree/internal/index"
)

var (
	flagScanOutput  string
	flagScanDB      string
	flagScanWorkers int
	flagScanNoCache bool
	flagStripRoot   bool
)

var scanCmd = &cobra.Command{
	Use:   "scan <dir>",
	Short: "Scan a directory tree and emit one JSON record per path",
	Long:  "Inventories the tree, collects classification attributes and content digests for every file, and writes JSON Lines records to the output.",
	Args:  cobra.ExactArgs(1),
	RunE:  runScan,
}

func init() {
	scanCmd.Flags().StringVarP(&flagScanOutput, "output", "o", "-", "write JSONL records here (- for stdout)")
	scanCmd.Flags().StringVar(&flagScanDB, "db", "", "also index file records into this SQLite database")
	scanCmd.Flags().IntVar(&flagScanWorkers, "workers", 0, "scan parallelism (0 uses the config value)")
	scanCmd.Flags().BoolVar(&flagScanNoCache, "no-cache", false, "run without the on-disk scan cache")
	scanCmd.Flags().BoolVar(&flagStripRoot, "strip-root", false, "strip the root segment from emitted paths")
}

func runScan(cmd *cobra.Command, args []string) error {
	start := time.Now()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	opts := []scantree.Option{
		scantree.WithConfig(cfg),
		scantree.WithLogger(newLogger()),
	}
	if flagScanWorkers > 0 {
		opts = append(opts, scantree.WithWorkers(flagScanWorkers))
	}
	if flagScanNoCache {
		opts = append(opts, scantree.WithoutCache())
	}

	cb, err := scantree.NewCodebase(args[0], opts...)
	if err != nil {
		return err
	}
	defer cb.Close()

	if err := cb.Scan(cmd.Context()); err != nil {
		return fmt.Errorf("scanning: %w", err)
	}
	// Refresh aggregates before any record is emitted.
	files, dirs, size := cb.Counts(false)

	out := os.Stdout
	if flagScanOutput != "-" {
		f, err := os.Create(flagScanOutput)
		if err != nil {
			return fmt.Errorf("creating output: %w", err)
		}
		defer f.Close()
		out = f
	}
	w := bufio.NewWriter(out)
	defer w.Flush()
	enc := json.NewEncoder(w)

	var recs []index.Record
	for res := range cb.Walk(scantree.WalkOptions{Sorted: true}) {
		m, err := res.ToMap(scantree.MapOptions{WithInfo: true, StripRoot: flagStripRoot})
		if err != nil {
			return err
		}
		if err := enc.Encode(m); err != nil {
			return fmt.Errorf("writing record: %w", err)
		}
		if flagScanDB != "" {
			recs = append(recs, indexRecord(res))
		}
	}

	if flagScanDB != "" {
		if err := indexRecords(flagScanDB, recs); err != nil {
			return err
		}
	}

	for _, e := range cb.Errors {
		fmt.Fprintf(os.Stderr, "warning: %s\n", e)
	}
	fmt.Fprintf(os.Stderr, "Scanned %d files and %d dirs (%d bytes) in %s\n",
		files, dirs, size, time.Since(start).Round(time.Millisecond))
	return nil
}

// indexRecord flattens a resource into its index row.
func indexRecord(res *scantree.Resource) index.Record {
	typ := res.Type
	if typ == "" {
		typ = "directory"
		if res.IsFile {
			typ = "file"
		}
	}
	return index.Record{
		Path:       res.Path(scantree.PathOptions{}),
		Name:       res.Name,
		Type:       typ,
		Size:       res.Size,
		SHA1:       res.SHA1,
		MD5:        res.MD5,
		MimeType:   res.MimeType,
		Language:   res.ProgrammingLanguage,
		ScanErrors: strings.Join(res.Errors, "\n"),
	}
}

func indexRecords(dbPath string, recs []index.Record) error {
	ix, err := index.Open(dbPath)
	if err != nil {
		return err
	}
	defer ix.Close()
	if err := ix.Migrate(); err != nil {
		return err
	}
	if err := ix.InsertRecords(recs); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Indexed %d records into %s\n", len(recs), dbPath)
	return nil
}
