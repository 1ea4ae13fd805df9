package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/iancoleman/orderedmap"
	"github.com/spf13/cobra"

	"github.com/jward/scantree"
)

var flagTreeHashed string

var treeCmd = &cobra.Command{
	Use:   "tree <records.jsonl>",
	Short: "Rebuild the directory tree from scan records and print it",
	Long:  "Reads JSON Lines scan records (- for stdin), reassembles the directory tree, recomputes directory digests bottom-up, and prints an indented listing.",
	Args:  cobra.ExactArgs(1),
	RunE:  runTree,
}

func init() {
	treeCmd.Flags().StringVar(&flagTreeHashed, "hashed-records", "", "also write the digest-filled records as JSONL here")
}

func runTree(cmd *cobra.Command, args []string) error {
	records, err := readRecords(args[0])
	if err != nil {
		return err
	}

	root, err := scantree.BuildMerkleTree(records)
	if err != nil {
		return err
	}

	if flagTreeHashed != "" {
		if err := writeHashedRecords(flagTreeHashed, root); err != nil {
			return err
		}
	} else {
		// Digests are computed by draining the record stream.
		for range root.HashedRecords() {
		}
	}

	return root.WriteTree(os.Stdout)
}

// readRecords loads JSONL records from path, or stdin for "-".
func readRecords(path string) ([]scantree.Record, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var records []scantree.Record
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 1024*1024), 1024*1024)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		rec := orderedmap.New()
		if err := json.Unmarshal(line, rec); err != nil {
			return nil, fmt.Errorf("parsing record: %w", err)
		}
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func writeHashedRecords(path string, root *scantree.DirNode) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating hashed records output: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for rec := range root.HashedRecords() {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("writing hashed record: %w", err)
		}
	}
	return w.Flush()
}
