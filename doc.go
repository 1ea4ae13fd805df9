// Package scantree inventories directory trees into arenas of
// handle-addressed resource nodes, scans file contents into per-node
// classification attributes and cached payloads, and derives
// content-based directory digests from flat scan records.
//
// # Model
//
// A [Codebase] holds one inventoried tree. Every file and directory is a
// [Resource] with a stable integer handle; nodes reference their parent,
// children, and owning tree by handle rather than by pointer, resolving
// them through a process-wide registry. Removal leaves tombstones, so a
// handle observed once stays valid or nil forever.
//
// # Usage
//
// Create a codebase, scan it, and emit records:
//
//	cb, err := scantree.NewCodebase("path/to/project")
//	if err != nil { ... }
//	defer cb.Close()
//
//	err = cb.Scan(context.Background())
//	files, dirs, size := cb.Counts(false)
//
//	for res := range cb.Walk(scantree.WalkOptions{Sorted: true}) {
//		rec, err := res.ToMap(scantree.MapOptions{WithInfo: true})
//		...
//	}
//
// # Scan cache
//
// Scan payloads are opaque ordered mappings persisted one file per node,
// sharded by handle under the tree's cache directory. Reads of missing
// entries yield empty payloads; writes merge or replace, always
// rewriting entries whole. [Codebase.Close] deletes the tree's cache.
// Trees built with [WithoutCache] hold payloads in memory on each node
// instead.
//
// # Hash tree
//
// [BuildMerkleTree] reassembles emitted records into a directory tree
// keyed by path, synthesizing placeholders for parents that have not been
// seen yet. [DirNode.HashedRecords] then recomputes directory digests
// bottom-up from file content digests and re-emits every record lazily.
package scantree
