package scantree

import (
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/iancoleman/orderedmap"
	"github.com/sirupsen/logrus"

	"github.com/jward/scantree/internal/walkfs"
)

// ErrRemoveRoot is returned when attempting to remove a tree's root.
var ErrRemoveRoot = errors.New("cannot remove the root resource")

// Codebase is an inventoried directory tree: an arena of Resource nodes
// addressed by integer handles, a per-tree scan cache, and run
// bookkeeping. Build one with NewCodebase and release it with Close.
type Codebase struct {
	// Location is the cleaned absolute path of the inventoried root.
	Location string
	// Root is the tree's root resource.
	Root *Resource
	// Errors accumulates non-fatal inventory problems, such as
	// unreadable directories.
	Errors []string
	// Summary and Timings collect run statistics in insertion order for
	// emission alongside scan results. TotalTime accumulates the
	// wall-clock seconds of every scan pass.
	Summary   *orderedmap.OrderedMap
	Timings   *orderedmap.OrderedMap
	TotalTime float64

	// resources is the node arena. A node's handle is its index; removed
	// nodes leave nil tombstones so handles are never reassigned.
	resources []*Resource

	base         string // parent dir of Location; prefix for absolute paths
	id           int    // registry handle
	useCache     bool
	cacheBaseDir string
	cacheDir     string
	lockPath     string
	lockTimeout  time.Duration
	minFreeGB    int
	workers      int
	extraIgnores []string
	ignorer      *walkfs.Ignorer
	log          *logrus.Logger
}

// Option configures a Codebase before it is populated.
type Option func(*Codebase)

// WithConfig applies cfg wholesale. Later options override single fields.
func WithConfig(cfg Config) Option {
	return func(c *Codebase) { c.applyConfig(cfg) }
}

// WithCacheDir overrides the base directory under which the per-tree scan
// cache is created.
func WithCacheDir(dir string) Option {
	return func(c *Codebase) { c.cacheBaseDir = dir }
}

// WithoutCache disables the on-disk scan cache. Scan payloads are held in
// memory on each resource instead.
func WithoutCache() Option {
	return func(c *Codebase) { c.useCache = false }
}

// WithLogger routes codebase logging to l.
func WithLogger(l *logrus.Logger) Option {
	return func(c *Codebase) { c.log = l }
}

// WithWorkers sets the scan parallelism.
func WithWorkers(n int) Option {
	return func(c *Codebase) { c.workers = n }
}

// WithIgnore adds names or glob patterns to skip during inventory, on top
// of the built-in defaults.
func WithIgnore(patterns ...string) Option {
	return func(c *Codebase) { c.extraIgnores = append(c.extraIgnores, patterns...) }
}

// NewCodebase inventories the tree rooted at location: every file and
// directory becomes a Resource with a stable integer handle. The codebase
// is registered process-wide so its resources can resolve their tree
// handle; callers must release it with Close.
func NewCodebase(location string, opts ...Option) (*Codebase, error) {
	loc, err := absLocation(location)
	if err != nil {
		return nil, fmt.Errorf("codebase: %w", err)
	}
	fi, err := os.Stat(loc)
	if err != nil {
		return nil, fmt.Errorf("codebase: %w", err)
	}

	c := &Codebase{
		Location: loc,
		base:     filepath.Dir(loc),
		Summary:  orderedmap.New(),
		Timings:  orderedmap.New(),
		useCache: true,
		log:      defaultLogger(),
	}
	c.applyConfig(DefaultConfig())
	for _, opt := range opts {
		opt(c)
	}
	ignores := append([]string{}, walkfs.DefaultIgnores...)
	c.ignorer = walkfs.NewIgnorer(append(ignores, c.extraIgnores...)...)

	if c.useCache {
		if err := c.setupCache(); err != nil {
			return nil, fmt.Errorf("codebase: %w", err)
		}
		c.lockPath = filepath.Join(c.cacheBaseDir, "registry.lock")
	}

	id, err := registerCodebase(c, c.lockPath, c.lockTimeout)
	if err != nil {
		_ = c.removeCacheDir()
		return nil, err
	}
	c.id = id

	start := time.Now()
	c.populate(fi.IsDir())
	c.Timings.Set("inventory", time.Since(start).Seconds())
	files, dirs := c.ResourceCounts()
	c.Summary.Set("initial_files_count", files)
	c.Summary.Set("initial_dirs_count", dirs)
	return c, nil
}

func (c *Codebase) applyConfig(cfg Config) {
	c.cacheBaseDir = cfg.CacheBaseDir
	c.lockTimeout = cfg.lockTimeout()
	c.minFreeGB = cfg.MinFreeGB
	c.workers = cfg.Workers
	c.extraIgnores = append(c.extraIgnores, cfg.Ignore...)
}

// absLocation expands a leading ~ and absolutizes location.
func absLocation(location string) (string, error) {
	if location == "~" || strings.HasPrefix(location, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		location = filepath.Join(home, strings.TrimPrefix(location, "~"))
	}
	return filepath.Abs(location)
}

// populate builds the initial inventory by walking the filesystem
// top-down. The root is never filtered. Special files and ignored names
// are skipped. Unreadable directories are recorded in Errors and skipped.
func (c *Codebase) populate(isDir bool) {
	root := c.newResource(nil, filepath.Base(c.Location), !isDir)
	if isDir {
		c.populateDir(c.Location, root)
	}
}

func (c *Codebase) populateDir(loc string, parent *Resource) {
	dirs, files, err := walkfs.ListDir(loc)
	if err != nil {
		c.Errors = append(c.Errors, fmt.Sprintf("cannot list %s: %v", loc, err))
		c.log.WithError(err).WithField("dir", loc).Debug("inventory: list failed")
		return
	}

	// All children of a directory get handles before any descent:
	// subdirectories first, then files, each in name order.
	type pending struct {
		loc string
		res *Resource
	}
	var subdirs []pending
	for _, name := range dirs {
		child := filepath.Join(loc, name)
		if walkfs.IsSpecial(child) || c.ignorer.Match(name) {
			continue
		}
		subdirs = append(subdirs, pending{child, c.newResource(parent, name, false)})
	}
	for _, name := range files {
		child := filepath.Join(loc, name)
		if walkfs.IsSpecial(child) || c.ignorer.Match(name) {
			continue
		}
		c.newResource(parent, name, true)
	}
	for _, sd := range subdirs {
		c.populateDir(sd.loc, sd.res)
	}
}

// newResource appends a node to the arena. The handle is the arena index;
// tombstoned slots keep their position so handles stay stable.
func (c *Codebase) newResource(parent *Resource, name string, isFile bool) *Resource {
	r := &Resource{
		ID:       len(c.resources),
		ParentID: RootParentID,
		TreeID:   c.id,
		Name:     name,
		IsFile:   isFile,
		cacheDir: c.cacheDir,
	}
	if parent != nil {
		r.ParentID = parent.ID
		parent.ChildIDs = append(parent.ChildIDs, r.ID)
	} else {
		c.Root = r
	}
	c.resources = append(c.resources, r)
	return r
}

// ResourceByID resolves a resource handle. Returns nil for out-of-range
// handles and removed (tombstoned) nodes.
func (c *Codebase) ResourceByID(id int) *Resource {
	if id < 0 || id >= len(c.resources) {
		return nil
	}
	return c.resources[id]
}

// AddChild creates a new resource named name under parent.
func (c *Codebase) AddChild(parent *Resource, name string, isFile bool) (*Resource, error) {
	if parent == nil {
		return nil, errors.New("add child: nil parent")
	}
	return c.newResource(parent, name, isFile), nil
}

// RemoveResource removes res and its whole subtree, returning the handles
// of every removed node in top-down order. Removed handles are tombstoned
// and never reassigned. Removing the root is ErrRemoveRoot.
func (c *Codebase) RemoveResource(res *Resource) ([]int, error) {
	if res == nil {
		return nil, errors.New("remove resource: nil resource")
	}
	if res.IsRoot() {
		return nil, ErrRemoveRoot
	}

	var removed []int
	for node := range res.Walk(WalkOptions{}) {
		removed = append(removed, node.ID)
	}

	if parent := res.Parent(); parent != nil {
		kept := parent.ChildIDs[:0]
		for _, id := range parent.ChildIDs {
			if id != res.ID {
				kept = append(kept, id)
			}
		}
		parent.ChildIDs = kept
	}
	for _, id := range removed {
		c.resources[id] = nil
	}
	return removed, nil
}

// Walk lazily traverses the whole tree from the root.
func (c *Codebase) Walk(opts WalkOptions) iter.Seq[*Resource] {
	return c.Root.Walk(opts)
}

// Resources enumerates the arena as (handle, resource) pairs in handle
// order, skipping removed slots.
func (c *Codebase) Resources() iter.Seq2[int, *Resource] {
	return func(yield func(int, *Resource) bool) {
		for id, res := range c.resources {
			if res == nil {
				continue
			}
			if !yield(id, res) {
				return
			}
		}
	}
}

// ResourceCounts tallies the live resources by kind. Unlike Counts it is
// a plain census of the arena and never touches the aggregates.
func (c *Codebase) ResourceCounts() (filesCount, dirsCount int) {
	for _, res := range c.Resources() {
		if res.IsFile {
			filesCount++
		} else {
			dirsCount++
		}
	}
	return filesCount, dirsCount
}

// UpdateCounts recomputes every directory's aggregates bottom-up: the
// recursive file and directory counts and the total byte size of file
// descendants. Files keep their own size and never carry counts. Each
// call recomputes from scratch, so repeated calls are idempotent.
func (c *Codebase) UpdateCounts() {
	for res := range c.Walk(WalkOptions{BottomUp: true}) {
		if res.IsFile {
			continue
		}
		var files, dirs int
		var size int64
		for _, child := range res.Children() {
			files += child.FilesCount
			dirs += child.DirsCount
			size += child.Size
			if child.IsFile {
				files++
			} else {
				dirs++
			}
		}
		res.FilesCount, res.DirsCount, res.Size = files, dirs, size
	}
}

// Counts returns the tree-wide file count, directory count, and byte
// size, refreshing the aggregates first. With skipRoot the root itself is
// not counted, only its contents.
func (c *Codebase) Counts(skipRoot bool) (filesCount, dirsCount int, size int64) {
	c.UpdateCounts()
	root := c.Root
	filesCount, dirsCount, size = root.FilesCount, root.DirsCount, root.Size
	if !skipRoot {
		if root.IsFile {
			filesCount++
		} else {
			dirsCount++
		}
	}
	return filesCount, dirsCount, size
}

// Close deregisters the codebase and deletes its on-disk scan cache. The
// codebase is unusable afterwards: its resources can no longer resolve
// their tree handle.
func (c *Codebase) Close() error {
	var firstErr error
	if err := c.removeCacheDir(); err != nil {
		firstErr = err
	}
	if _, err := deregisterCodebase(c.id, c.lockPath, c.lockTimeout); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// defaultLogger logs warnings and up to stderr. Override with WithLogger.
func defaultLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.WarnLevel)
	return l
}
