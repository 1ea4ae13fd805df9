package scantree

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/iancoleman/orderedmap"
)

// setupCache creates the per-tree cache directory under the cache base
// dir, after checking that the cache filesystem has enough free space.
func (c *Codebase) setupCache() error {
	if err := os.MkdirAll(c.cacheBaseDir, 0o755); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	if c.minFreeGB > 0 {
		free, err := freeDiskBytes(c.cacheBaseDir)
		if err == nil && free < uint64(c.minFreeGB)<<30 {
			return fmt.Errorf("cache: %s has %d bytes free, below the %d GiB minimum",
				c.cacheBaseDir, free, c.minFreeGB)
		}
	}
	dir, err := os.MkdirTemp(c.cacheBaseDir, "tree-")
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	c.cacheDir = dir
	return nil
}

func (c *Codebase) removeCacheDir() error {
	if c.cacheDir == "" {
		return nil
	}
	return os.RemoveAll(c.cacheDir)
}

// cacheKeys derives the on-disk location of a resource's cache entry from
// its handle: the file name is the zero-padded hex handle, sharded into a
// subdirectory named after its last two hex digits.
func cacheKeys(rid int) (shard, key string) {
	hx := fmt.Sprintf("%08x", rid)
	return hx[len(hx)-2:], hx
}

func (r *Resource) cachePath() string {
	shard, key := cacheKeys(r.ID)
	return filepath.Join(r.cacheDir, shard, key)
}

// Scans returns the scan payload for the resource, with key order
// preserved as stored. Trees built with WithoutCache hold the payload on
// the resource itself and return it directly; otherwise the node's cache
// file is read, a missing entry yielding an empty payload. A malformed
// entry is an error.
func (r *Resource) Scans() (*orderedmap.OrderedMap, error) {
	if r.cacheDir == "" {
		if r.scans == nil {
			r.scans = orderedmap.New()
		}
		return r.scans, nil
	}
	p := r.cachePath()
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return orderedmap.New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read scans for %s: %w", r.Name, err)
	}
	m := orderedmap.New()
	if err := json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("decode scans for %s: %w", r.Name, err)
	}
	return m, nil
}

// PutScans stores payload as the resource's scans. With merge, the
// payload is folded into any existing entry: existing keys keep their
// position and take the new value, new keys append. Without merge the
// entry is replaced outright. An empty payload is a no-op. Trees built
// with WithoutCache store into the resource's in-memory payload;
// otherwise the node's cache file is rewritten whole.
func (r *Resource) PutScans(payload *orderedmap.OrderedMap, merge bool) error {
	if payload == nil || len(payload.Keys()) == 0 {
		return nil
	}
	if r.cacheDir == "" {
		if !merge || r.scans == nil {
			r.scans = orderedmap.New()
		}
		for _, k := range payload.Keys() {
			v, _ := payload.Get(k)
			r.scans.Set(k, v)
		}
		return nil
	}

	target := payload
	if merge {
		existing, err := r.Scans()
		if err != nil {
			return err
		}
		if len(existing.Keys()) > 0 {
			for _, k := range payload.Keys() {
				v, _ := payload.Get(k)
				existing.Set(k, v)
			}
			target = existing
		}
	}

	p := r.cachePath()
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("write scans for %s: %w", r.Name, err)
	}
	data, err := json.Marshal(target)
	if err != nil {
		return fmt.Errorf("encode scans for %s: %w", r.Name, err)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return fmt.Errorf("write scans for %s: %w", r.Name, err)
	}
	return nil
}
