package scantree

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// buildBenchTree writes a synthetic tree: dirs directories under the root,
// each holding filesPerDir small text files.
func buildBenchTree(b *testing.B, dirs, filesPerDir int) string {
	b.Helper()
	root := filepath.Join(b.TempDir(), "tree")
	for d := 0; d < dirs; d++ {
		dp := filepath.Join(root, fmt.Sprintf("dir%03d", d))
		if err := os.MkdirAll(dp, 0o755); err != nil {
			b.Fatal(err)
		}
		for f := 0; f < filesPerDir; f++ {
			name := filepath.Join(dp, fmt.Sprintf("f%03d.txt", f))
			content := []byte(fmt.Sprintf("content %d %d\n", d, f))
			if err := os.WriteFile(name, content, 0o644); err != nil {
				b.Fatal(err)
			}
		}
	}
	return root
}

// benchCodebase inventories a synthetic tree without a scan cache, so the
// benchmarks measure tree work rather than cache setup.
func benchCodebase(b *testing.B, dirs, filesPerDir int) *Codebase {
	b.Helper()
	cb, err := NewCodebase(buildBenchTree(b, dirs, filesPerDir), WithoutCache())
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { cb.Close() })
	return cb
}

// benchRecords builds a flat record stream for dirs directories of
// filesPerDir files each, with synthetic digests.
func benchRecords(dirs, filesPerDir int) []Record {
	records := []Record{dirRecord("bench")}
	for d := 0; d < dirs; d++ {
		dp := fmt.Sprintf("bench/dir%03d", d)
		records = append(records, dirRecord(dp))
		for f := 0; f < filesPerDir; f++ {
			digest := fmt.Sprintf("%040x", d*filesPerDir+f+1)
			records = append(records, fileRecord(fmt.Sprintf("%s/f%03d.txt", dp, f), digest))
		}
	}
	return records
}

// BenchmarkPopulate measures inventorying a 20x10 tree from a cold start.
func BenchmarkPopulate(b *testing.B) {
	root := buildBenchTree(b, 20, 10)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cb, err := NewCodebase(root, WithoutCache())
		if err != nil {
			b.Fatal(err)
		}
		b.StopTimer()
		cb.Close()
		b.StartTimer()
	}
}

// BenchmarkWalk measures a full lazy top-down traversal.
func BenchmarkWalk(b *testing.B) {
	cb := benchCodebase(b, 20, 10)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		n := 0
		for range cb.Walk(WalkOptions{}) {
			n++
		}
		if n == 0 {
			b.Fatal("empty walk")
		}
	}
}

// BenchmarkWalkSorted measures the traversal with per-node child sorting.
func BenchmarkWalkSorted(b *testing.B) {
	cb := benchCodebase(b, 20, 10)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for range cb.Walk(WalkOptions{Sorted: true, BottomUp: true}) {
		}
	}
}

// BenchmarkUpdateCounts measures recomputing the directory aggregates.
func BenchmarkUpdateCounts(b *testing.B) {
	cb := benchCodebase(b, 20, 10)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cb.UpdateCounts()
	}
}

// BenchmarkScan measures the parallel content scan over a small tree.
func BenchmarkScan(b *testing.B) {
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		cb := benchCodebase(b, 5, 10)
		b.StartTimer()

		if err := cb.Scan(ctx); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkBuildMerkleTree measures assembling the hash tree from a flat
// stream of 50x10 records.
func BenchmarkBuildMerkleTree(b *testing.B) {
	records := benchRecords(50, 10)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := BuildMerkleTree(records); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkHashedRecords measures the digest pass over a built hash tree.
func BenchmarkHashedRecords(b *testing.B) {
	root, err := BuildMerkleTree(benchRecords(50, 10))
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for range root.HashedRecords() {
		}
	}
}
