package scantree

import (
	"iter"
	"path"
	"path/filepath"
	"sort"

	"github.com/iancoleman/orderedmap"
)

// RootParentID is the ParentID of a tree's root resource.
const RootParentID = -1

// Resource is a single node in an inventoried tree: one file or directory.
// Resources never hold pointers to each other or to their tree; they carry
// integer handles (ID, ParentID, ChildIDs, TreeID) and resolve them
// through the codebase arena on access, which keeps nodes cheap to
// persist and compare.
type Resource struct {
	// ID is the resource handle: the node's index in the codebase arena.
	ID int
	// ParentID is the parent's handle, or RootParentID for the root.
	ParentID int
	// TreeID is the registry handle of the owning codebase.
	TreeID int

	Name     string
	IsFile   bool
	ChildIDs []int

	// Classification attributes, set once per node by SetInfo.
	Type                string
	BaseName            string
	Extension           string
	Date                string
	Size                int64
	SHA1                string
	MD5                 string
	MimeType            string
	FileType            string
	ProgrammingLanguage string
	IsBinary            bool
	IsText              bool
	IsArchive           bool
	IsMedia             bool
	IsSource            bool
	IsScript            bool

	// FilesCount and DirsCount are directory aggregates maintained by
	// Codebase.UpdateCounts. For directories, Size doubles as the
	// aggregate byte size of all file descendants.
	FilesCount int
	DirsCount  int

	// Errors holds scan error messages for this node.
	Errors []string

	// ScanTime is the wall-clock seconds spent collecting this node's
	// scan data; ScanTimings breaks that down per scanner name.
	ScanTime    float64
	ScanTimings *orderedmap.OrderedMap

	// cacheDir is the owning tree's scan cache directory, empty when the
	// tree keeps scans in memory.
	cacheDir string
	// scans holds the node's payload for in-memory trees.
	scans *orderedmap.OrderedMap
}

// IsRoot reports whether the resource is its tree's root.
func (r *Resource) IsRoot() bool { return r.ParentID == RootParentID }

// HasChildren reports whether the resource has any children.
func (r *Resource) HasChildren() bool { return len(r.ChildIDs) > 0 }

// Codebase resolves the owning tree through the registry. Returns nil once
// the tree has been closed.
func (r *Resource) Codebase() *Codebase { return lookupCodebase(r.TreeID) }

// Parent returns the parent resource, or nil for the root.
func (r *Resource) Parent() *Resource {
	if r.IsRoot() {
		return nil
	}
	cb := r.Codebase()
	if cb == nil {
		return nil
	}
	return cb.ResourceByID(r.ParentID)
}

// Children returns the child resources in insertion order. The slice is
// freshly built; callers may reorder it freely.
func (r *Resource) Children() []*Resource {
	cb := r.Codebase()
	if cb == nil {
		return nil
	}
	children := make([]*Resource, 0, len(r.ChildIDs))
	for _, id := range r.ChildIDs {
		if child := cb.ResourceByID(id); child != nil {
			children = append(children, child)
		}
	}
	return children
}

// Ancestors returns the chain of resources from the root down to and
// including this resource.
func (r *Resource) Ancestors() []*Resource {
	var chain []*Resource
	for res := r; res != nil; res = res.Parent() {
		chain = append(chain, res)
	}
	// Reverse into root-first order.
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// PathOptions controls how Resource.Path renders a path.
type PathOptions struct {
	// Absolute prefixes the tree's base location, yielding the on-disk
	// location of the resource.
	Absolute bool
	// StripRoot drops the leading root segment. The root's own path keeps
	// its name.
	StripRoot bool
	// Native joins segments with the OS separator instead of "/".
	Native bool
}

// Path returns the resource path, rooted at the tree root's name. With the
// zero options this is the POSIX-style relative path used in emitted
// records, e.g. "tree/src/main.go".
func (r *Resource) Path(opts PathOptions) string {
	ancestors := r.Ancestors()
	segments := make([]string, 0, len(ancestors)+1)
	for _, a := range ancestors {
		segments = append(segments, a.Name)
	}
	if opts.StripRoot && len(segments) > 1 {
		segments = segments[1:]
	}
	if opts.Absolute {
		if cb := r.Codebase(); cb != nil {
			segments = append([]string{cb.base}, segments...)
		}
	}
	if opts.Native || opts.Absolute {
		return filepath.Join(segments...)
	}
	return path.Join(segments...)
}

// Location returns the absolute on-disk location of the resource.
func (r *Resource) Location() string {
	return r.Path(PathOptions{Absolute: true})
}

// WalkOptions controls tree traversal order. The zero value walks top-down
// in insertion order, including the root.
type WalkOptions struct {
	// BottomUp yields every node after its children instead of before.
	BottomUp bool
	// Sorted visits the children of each node ordered directories-first,
	// then by name.
	Sorted bool
	// SkipRoot omits the walk's starting node. Ignored when the starting
	// node is a childless root, which is always yielded.
	SkipRoot bool
}

// Walk lazily traverses the subtree rooted at r.
func (r *Resource) Walk(opts WalkOptions) iter.Seq[*Resource] {
	return func(yield func(*Resource) bool) {
		if r.IsRoot() && !r.HasChildren() {
			yield(r)
			return
		}
		var skip *Resource
		if opts.SkipRoot {
			skip = r
		}
		r.walk(opts, skip, yield)
	}
}

func (r *Resource) walk(opts WalkOptions, skip *Resource, yield func(*Resource) bool) bool {
	if !opts.BottomUp && r != skip {
		if !yield(r) {
			return false
		}
	}
	children := r.Children()
	if opts.Sorted {
		sortResources(children)
	}
	for _, child := range children {
		if !child.walk(opts, skip, yield) {
			return false
		}
	}
	if opts.BottomUp && r != skip {
		if !yield(r) {
			return false
		}
	}
	return true
}

// sortResources orders siblings directories-first, then by name.
func sortResources(rs []*Resource) {
	sort.Slice(rs, func(i, j int) bool {
		if rs[i].IsFile != rs[j].IsFile {
			return !rs[i].IsFile
		}
		return rs[i].Name < rs[j].Name
	})
}

// SetInfo applies collected classification attributes to the resource.
func (r *Resource) SetInfo(inf FileInfo) {
	r.Type = inf.Type
	r.BaseName = inf.BaseName
	r.Extension = inf.Extension
	r.Date = inf.Date
	r.Size = inf.Size
	r.SHA1 = inf.SHA1
	r.MD5 = inf.MD5
	r.MimeType = inf.MimeType
	r.FileType = inf.FileType
	r.ProgrammingLanguage = inf.ProgrammingLanguage
	r.IsBinary = inf.IsBinary
	r.IsText = inf.IsText
	r.IsArchive = inf.IsArchive
	r.IsMedia = inf.IsMedia
	r.IsSource = inf.IsSource
	r.IsScript = inf.IsScript
}

// MapOptions controls ToMap output.
type MapOptions struct {
	// WithInfo includes the classification attributes and counts.
	WithInfo bool
	// StripRoot drops the root segment from the emitted path.
	StripRoot bool
}

// ToMap renders the resource as an ordered mapping in the emitted record
// shape: path first, then (optionally) the classification attributes and
// counts, then any cached scan payload entries, then scan errors last.
func (r *Resource) ToMap(opts MapOptions) (*orderedmap.OrderedMap, error) {
	m := orderedmap.New()
	m.Set("path", r.Path(PathOptions{StripRoot: opts.StripRoot}))
	if opts.WithInfo {
		typ := r.Type
		if typ == "" {
			typ = "directory"
			if r.IsFile {
				typ = "file"
			}
		}
		m.Set("type", typ)
		m.Set("name", r.Name)
		m.Set("base_name", r.BaseName)
		m.Set("extension", r.Extension)
		m.Set("date", r.Date)
		m.Set("size", r.Size)
		m.Set("sha1", r.SHA1)
		m.Set("md5", r.MD5)
		m.Set("files_count", r.FilesCount)
		m.Set("dirs_count", r.DirsCount)
		m.Set("mime_type", r.MimeType)
		m.Set("file_type", r.FileType)
		m.Set("programming_language", r.ProgrammingLanguage)
		m.Set("is_binary", r.IsBinary)
		m.Set("is_text", r.IsText)
		m.Set("is_archive", r.IsArchive)
		m.Set("is_media", r.IsMedia)
		m.Set("is_source", r.IsSource)
		m.Set("is_script", r.IsScript)
	}
	scans, err := r.Scans()
	if err != nil {
		return nil, err
	}
	for _, k := range scans.Keys() {
		v, _ := scans.Get(k)
		m.Set(k, v)
	}
	errs := r.Errors
	if errs == nil {
		errs = []string{}
	}
	m.Set("scan_errors", errs)
	return m, nil
}
