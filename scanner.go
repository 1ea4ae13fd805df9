package scantree

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/iancoleman/orderedmap"
	"github.com/sirupsen/logrus"

	"github.com/jward/scantree/internal/fileinfo"
)

// scanResult carries one collected node from a worker to the applier.
type scanResult struct {
	res  *Resource
	inf  fileinfo.Info
	took time.Duration
	err  error
}

// Scan collects classification attributes for every resource in the tree
// and stores derived scan payloads through PutScans. Collection runs on a
// worker pool; all tree and cache mutation happens on a single applier
// goroutine, so no locking is needed on resources.
//
// Per-node failures are recorded on the node's Errors and do not abort
// the scan. Cancelling ctx stops feeding work and returns ctx.Err().
func (c *Codebase) Scan(ctx context.Context) error {
	workers := c.workers
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	start := time.Now()

	workCh := make(chan *Resource, workers)
	resultCh := make(chan scanResult, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for res := range workCh {
				began := time.Now()
				inf, err := fileinfo.Collect(res.Location())
				r := scanResult{res: res, inf: inf, took: time.Since(began), err: err}
				select {
				case resultCh <- r:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(workCh)
		for res := range c.Walk(WalkOptions{}) {
			select {
			case workCh <- res:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	// Applier: the only goroutine touching resources and the cache.
	var firstErr error
	scanned := 0
	failed := 0
	for r := range resultCh {
		r.res.ScanTime = r.took.Seconds()
		timings := orderedmap.New()
		timings.Set("info", r.took.Seconds())
		r.res.ScanTimings = timings
		if r.err != nil {
			r.res.Errors = append(r.res.Errors, r.err.Error())
			failed++
			continue
		}
		r.res.SetInfo(r.inf)
		if payload := scanPayload(r.inf); payload != nil {
			if err := r.res.PutScans(payload, true); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		scanned++
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if firstErr != nil {
		return firstErr
	}

	elapsed := time.Since(start)
	c.Timings.Set("scan", elapsed.Seconds())
	c.TotalTime += elapsed.Seconds()
	c.Summary.Set("scanned_count", scanned)
	c.Summary.Set("scan_errors_count", failed)
	c.log.WithFields(logrus.Fields{
		"resources": scanned,
		"errors":    failed,
		"elapsed":   elapsed.Round(time.Millisecond).String(),
	}).Debug("scan complete")
	return nil
}

// scanPayload derives the cached scan payload for a collected node.
// Only text files produce one: a metrics entry with the line count.
func scanPayload(inf fileinfo.Info) *orderedmap.OrderedMap {
	if inf.Type != "file" || !inf.IsText {
		return nil
	}
	metrics := orderedmap.New()
	metrics.Set("line_count", inf.Lines)
	payload := orderedmap.New()
	payload.Set("metrics", metrics)
	return payload
}
