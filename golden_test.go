package scantree

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/iancoleman/orderedmap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sha1Pattern = regexp.MustCompile(`^[0-9a-f]{40}$`)

// TestGolden builds the hash tree for each fixture under testdata/trees and
// compares the rendered listing against the case's tree.txt. Each case is a
// directory holding records.jsonl (flat scan records, one JSON object per
// line) and tree.txt (the expected listing).
func TestGolden(t *testing.T) {
	cases, err := os.ReadDir(filepath.Join("testdata", "trees"))
	require.NoError(t, err)

	for _, tc := range cases {
		if !tc.IsDir() {
			continue
		}
		dir := filepath.Join("testdata", "trees", tc.Name())
		t.Run(tc.Name(), func(t *testing.T) {
			records := loadRecordsFile(t, filepath.Join(dir, "records.jsonl"))
			root, err := BuildMerkleTree(records)
			require.NoError(t, err)

			// Every directory comes out of the hash pass with a digest,
			// synthesized placeholders included.
			for rec := range root.HashedRecords() {
				if recordString(rec, "type") == "directory" {
					assert.Regexp(t, sha1Pattern, recordString(rec, "sha1"),
						"digest for %s", recordString(rec, "path"))
				}
			}

			var sb strings.Builder
			require.NoError(t, root.WriteTree(&sb))
			want, err := os.ReadFile(filepath.Join(dir, "tree.txt"))
			require.NoError(t, err)
			assert.Equal(t, string(want), sb.String())
		})
	}
}

func loadRecordsFile(t *testing.T, path string) []Record {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var records []Record
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		rec := orderedmap.New()
		require.NoError(t, json.Unmarshal([]byte(line), rec))
		records = append(records, rec)
	}
	require.NoError(t, sc.Err())
	return records
}
