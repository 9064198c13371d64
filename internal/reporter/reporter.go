// Package reporter accumulates SyncOutcomes and Differ Decisions into the
// SyncStatsReport of spec.md §8 (--report-sync-status), and into the plain
// run summary printed for a normal sync.
package reporter

import (
	"sync"
	"time"

	"github.com/yuya-takeyama/s3sync/internal/differ"
	"github.com/yuya-takeyama/s3sync/internal/objmodel"
)

// Summary is the end-of-run totals for a normal (non-report) sync.
type Summary struct {
	Transferred      int64
	Deleted          int64
	Skipped          int64
	Errored          int64
	BytesTransferred int64
	Warnings         []string
	Duration         time.Duration
}

// Reporter aggregates outcomes across the worker pool; all methods are
// safe for concurrent use since the scheduler calls them from every
// worker goroutine.
type Reporter struct {
	mu      sync.Mutex
	summary Summary
	stats   objmodel.SyncStatsReport
	start   time.Time
}

// New starts a Reporter's clock.
func New() *Reporter {
	return &Reporter{start: timeNow()}
}

// timeNow is the clock New and Summary read; it is a variable so tests can
// substitute a fixed clock.
var timeNow = time.Now

// RecordOutcome folds one Transferrer/Deleter SyncOutcome into the
// running Summary.
func (r *Reporter) RecordOutcome(outcome objmodel.SyncOutcome) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if outcome.Error != nil {
		r.summary.Errored++
		return
	}
	if outcome.Warning != "" {
		r.summary.Warnings = append(r.summary.Warnings, outcome.Warning)
	}
	switch outcome.Action {
	case objmodel.ActionDeleteTarget:
		r.summary.Deleted++
	case objmodel.ActionTransferSingle, objmodel.ActionTransferMultipart:
		r.summary.Transferred++
		r.summary.BytesTransferred += int64(outcome.Bytes)
	case objmodel.ActionSkip:
		r.summary.Skipped++
	}
}

// RecordSkip records a Differ decision that resolved to Skip without ever
// becoming a SyncOutcome (the common, no-op path for most objects).
func (r *Reporter) RecordSkip() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summary.Skipped++
}

// RecordDecision folds one Differ Decision into the SyncStatsReport for
// --report-sync-status runs. It is orthogonal to RecordOutcome/RecordSkip:
// report mode never transfers, so only this path is used in that mode.
func (r *Reporter) RecordDecision(d differ.Decision) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d.Category != "" {
		r.stats.Add(d.Category)
	}
	if d.MetadataCategory != "" {
		r.stats.AddOrthogonal(d.MetadataCategory)
	}
	if d.TaggingCategory != "" {
		r.stats.AddOrthogonal(d.TaggingCategory)
	}
}

// Summary returns the accumulated run summary, stamping Duration against
// the Reporter's start time.
func (r *Reporter) Summary() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.summary
	s.Warnings = append([]string(nil), r.summary.Warnings...)
	s.Duration = timeNow().Sub(r.start)
	return s
}

// StatsReport returns the accumulated SyncStatsReport for
// --report-sync-status runs.
func (r *Reporter) StatsReport() objmodel.SyncStatsReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}
