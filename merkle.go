package scantree

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"iter"
	"path"
	"sort"
	"strings"

	"github.com/iancoleman/orderedmap"
)

// ErrNoRecords is returned by BuildMerkleTree when there is nothing to
// build a tree from.
var ErrNoRecords = errors.New("no records to build a tree from")

// Record is a flat scan record: an ordered mapping carrying at least
// "path" and "type" keys, plus "sha1" for files. Records pass through the
// hash tree opaquely; whatever other keys they carry are preserved in
// order.
type Record = *orderedmap.OrderedMap

// FileNode is a file leaf in the hash tree.
type FileNode struct {
	Data Record
}

// DirNode is a directory in the hash tree. Node identity is the "path"
// value of its record; Dirs and Files hold children in the order they
// were attached.
type DirNode struct {
	Data  Record
	Dirs  []*DirNode
	Files []*FileNode
}

func (d *DirNode) path() string { return recordString(d.Data, "path") }

// BuildMerkleTree assembles a directory tree from a finite stream of flat
// path records. The first record's topmost path segment seeds the root.
// A record whose parent has not been seen yet gets placeholder ancestors
// synthesized up to the nearest known one; a placeholder's data is
// replaced in place when its real record arrives later, keeping any
// children attached in the meantime.
func BuildMerkleTree(records []Record) (*DirNode, error) {
	if len(records) == 0 {
		return nil, ErrNoRecords
	}

	rootPath := topSegment(recordString(records[0], "path"))
	b := &treeBuilder{
		rootPath: rootPath,
		root:     newPlaceholderDir(rootPath),
	}
	b.dirs = map[string]*DirNode{rootPath: b.root}

	for _, rec := range records {
		p := recordString(rec, "path")
		if recordString(rec, "type") == "directory" {
			if p == b.rootPath {
				b.root.Data = rec
				continue
			}
			if existing, ok := b.dirs[p]; ok {
				existing.Data = rec
				continue
			}
			nd := &DirNode{Data: rec}
			b.dirs[p] = nd
			parent := b.dirAt(parentPath(p))
			parent.Dirs = append(parent.Dirs, nd)
		} else {
			parent := b.dirAt(parentPath(p))
			parent.Files = append(parent.Files, &FileNode{Data: rec})
		}
	}
	return b.root, nil
}

type treeBuilder struct {
	rootPath string
	root     *DirNode
	dirs     map[string]*DirNode
}

// dirAt returns the directory node for p, synthesizing a placeholder
// chain up to the nearest known ancestor when needed. Paths outside the
// root segment resolve to the root.
func (b *treeBuilder) dirAt(p string) *DirNode {
	if p == "" || p == b.rootPath {
		return b.root
	}
	if d, ok := b.dirs[p]; ok {
		return d
	}
	d := newPlaceholderDir(p)
	b.dirs[p] = d
	parent := b.dirAt(parentPath(p))
	parent.Dirs = append(parent.Dirs, d)
	return d
}

func newPlaceholderDir(p string) *DirNode {
	data := orderedmap.New()
	data.Set("path", p)
	data.Set("type", "directory")
	data.Set("name", path.Base(p))
	data.Set("base_name", path.Base(p))
	return &DirNode{Data: data}
}

// HashedRecords lazily recomputes directory digests bottom-up and yields
// every record: each directory's files first, ordered by their own
// digest, then the directory's record with its "sha1" filled in.
//
// A directory's digest folds in its files' digests in ascending order.
// Subdirectory digests travel through a single traversal-wide pending
// list: a directory with subdirectories folds the whole pending list
// (ascending) into its digest and clears it without contributing its own
// digest, while a leaf directory pushes its digest onto the list. Each
// call starts a fresh traversal with an empty pending list.
func (d *DirNode) HashedRecords() iter.Seq[Record] {
	return func(yield func(Record) bool) {
		var pending []string
		d.fold(&pending, yield)
	}
}

func (d *DirNode) fold(pending *[]string, yield func(Record) bool) bool {
	for _, sub := range d.Dirs {
		if !sub.fold(pending, yield) {
			return false
		}
	}

	h := sha1.New()
	files := make([]*FileNode, len(d.Files))
	copy(files, d.Files)
	sort.Slice(files, func(i, j int) bool {
		return recordString(files[i].Data, "sha1") < recordString(files[j].Data, "sha1")
	})
	for _, f := range files {
		io.WriteString(h, recordString(f.Data, "sha1"))
		if !yield(f.Data) {
			return false
		}
	}

	if len(d.Dirs) > 0 {
		sort.Strings(*pending)
		for _, dg := range *pending {
			io.WriteString(h, dg)
		}
		*pending = (*pending)[:0]
	}
	digest := hex.EncodeToString(h.Sum(nil))
	if len(d.Dirs) == 0 {
		*pending = append(*pending, digest)
	}
	d.Data.Set("sha1", digest)
	return yield(d.Data)
}

// WriteTree renders the tree as an indented listing: each directory's
// files first, then its subdirectories, nested two spaces per level.
func (d *DirNode) WriteTree(w io.Writer) error {
	return d.writeTree(w, "")
}

func (d *DirNode) writeTree(w io.Writer, indent string) error {
	if _, err := fmt.Fprintf(w, "%s%s/\n", indent, nodeName(d.Data)); err != nil {
		return err
	}
	for _, f := range d.Files {
		if _, err := fmt.Fprintf(w, "%s  %s\n", indent, nodeName(f.Data)); err != nil {
			return err
		}
	}
	for _, sub := range d.Dirs {
		if err := sub.writeTree(w, indent+"  "); err != nil {
			return err
		}
	}
	return nil
}

func nodeName(r Record) string {
	if name := recordString(r, "name"); name != "" {
		return name
	}
	return path.Base(recordString(r, "path"))
}

func recordString(r Record, key string) string {
	if r == nil {
		return ""
	}
	if v, ok := r.Get(key); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// topSegment returns the first path segment: "a/b/c" yields "a".
func topSegment(p string) string {
	p = strings.Trim(p, "/")
	if i := strings.IndexByte(p, '/'); i >= 0 {
		return p[:i]
	}
	return p
}

// parentPath returns the parent of a relative path, "" for a top-level
// segment.
func parentPath(p string) string {
	d := path.Dir(strings.Trim(p, "/"))
	if d == "." || d == "/" {
		return ""
	}
	return d
}
