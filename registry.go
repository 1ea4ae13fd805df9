package scantree

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

// ErrLockTimeout is returned when the cross-process registration lock
// cannot be acquired within the configured timeout.
var ErrLockTimeout = errors.New("timed out waiting for the codebase registration lock")

// lockRetryDelay is how often the registration lock is re-attempted while
// waiting for the timeout.
const lockRetryDelay = 100 * time.Millisecond

// The process-wide codebase registry. Resources carry an integer tree
// handle instead of a pointer, and resolve it here on access. A file lock
// serializes registration against sibling processes sharing the same cache
// base directory; the mutex covers in-process access.
var (
	codebasesMu    sync.Mutex
	codebases      = make(map[int]*Codebase)
	lastCodebaseID int
)

// registerCodebase assigns a tree handle to cb and records it in the
// registry. Registering the same codebase again returns its existing
// handle. Handles start at 1 and are never reused within a process, even
// after deregistration.
func registerCodebase(cb *Codebase, lockPath string, timeout time.Duration) (int, error) {
	unlock, err := acquireRegistryLock(lockPath, timeout)
	if err != nil {
		return 0, err
	}
	defer unlock()

	codebasesMu.Lock()
	defer codebasesMu.Unlock()

	for id, existing := range codebases {
		if existing == cb {
			return id, nil
		}
	}
	lastCodebaseID++
	codebases[lastCodebaseID] = cb
	return lastCodebaseID, nil
}

// deregisterCodebase removes the codebase with the given handle and
// returns it, or nil when the handle is unknown. The handle is retired
// either way.
func deregisterCodebase(cid int, lockPath string, timeout time.Duration) (*Codebase, error) {
	unlock, err := acquireRegistryLock(lockPath, timeout)
	if err != nil {
		return nil, err
	}
	defer unlock()

	codebasesMu.Lock()
	defer codebasesMu.Unlock()

	cb := codebases[cid]
	delete(codebases, cid)
	return cb, nil
}

// lookupCodebase resolves a tree handle. Returns nil for unknown or
// deregistered handles.
func lookupCodebase(cid int) *Codebase {
	codebasesMu.Lock()
	defer codebasesMu.Unlock()
	return codebases[cid]
}

// acquireRegistryLock takes the cross-process file lock, waiting up to
// timeout. The returned func releases it.
func acquireRegistryLock(lockPath string, timeout time.Duration) (func(), error) {
	if lockPath == "" {
		// Caching disabled: no shared cache dir means no sibling processes
		// to coordinate with.
		return func() {}, nil
	}

	fl := flock.New(lockPath)
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	locked, err := fl.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%s: %w", lockPath, ErrLockTimeout)
		}
		return nil, fmt.Errorf("registry lock %s: %w", lockPath, err)
	}
	if !locked {
		return nil, fmt.Errorf("%s: %w", lockPath, ErrLockTimeout)
	}
	return func() { _ = fl.Unlock() }, nil
}
