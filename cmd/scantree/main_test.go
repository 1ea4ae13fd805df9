package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/scantree"
	"github.com/jward/scantree/internal/index"
)

func TestIndexRecord_TypeFallback(t *testing.T) {
	t.Parallel()
	res := &scantree.Resource{
		ParentID: scantree.RootParentID,
		Name:     "a.txt",
		IsFile:   true,
		Errors:   []string{"first", "second"},
	}

	rec := indexRecord(res)
	assert.Equal(t, "a.txt", rec.Path)
	assert.Equal(t, "file", rec.Type)
	assert.Equal(t, "first\nsecond", rec.ScanErrors)

	res.IsFile = false
	assert.Equal(t, "directory", indexRecord(res).Type)

	res.Type = "file"
	assert.Equal(t, "file", indexRecord(res).Type)
}

func TestDuplicateToCLI(t *testing.T) {
	t.Parallel()
	d := scantree.Duplicate{SHA1: "abc", Count: 2, Paths: []string{"x", "y"}}

	got := duplicateToCLI(d)
	assert.Equal(t, "abc", got.SHA1)
	assert.Equal(t, 2, got.Count)
	assert.Equal(t, []string{"x", "y"}, got.Paths)
}

func TestFormatDupesText(t *testing.T) {
	t.Parallel()
	var sb strings.Builder
	formatDupesText(&sb, []index.Duplicate{
		{SHA1: "abc", Count: 2, Paths: []string{"tree/a", "tree/b"}},
	})

	out := sb.String()
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "SHA1")
	assert.Contains(t, lines[1], "tree/a")
	assert.Contains(t, lines[2], "tree/b")
}

func TestReadRecords(t *testing.T) {
	t.Parallel()
	p := filepath.Join(t.TempDir(), "records.jsonl")
	require.NoError(t, os.WriteFile(p, []byte(
		`{"path":"r","type":"directory","name":"r"}`+"\n\n"+
			`{"path":"r/a.txt","type":"file","sha1":"abc"}`+"\n"), 0o644))

	records, err := readRecords(p)
	require.NoError(t, err)
	require.Len(t, records, 2)

	// Key order survives parsing.
	assert.Equal(t, []string{"path", "type", "name"}, records[0].Keys())
	v, ok := records[1].Get("sha1")
	require.True(t, ok)
	assert.Equal(t, "abc", v)
}

func TestReadRecords_Malformed(t *testing.T) {
	t.Parallel()
	p := filepath.Join(t.TempDir(), "bad.jsonl")
	require.NoError(t, os.WriteFile(p, []byte("{oops\n"), 0o644))

	_, err := readRecords(p)
	require.Error(t, err)
}

func TestReadRecords_MissingFile(t *testing.T) {
	t.Parallel()
	_, err := readRecords(filepath.Join(t.TempDir(), "absent.jsonl"))
	require.Error(t, err)
}
