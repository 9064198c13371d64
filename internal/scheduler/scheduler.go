// Package scheduler wires the pipeline stages of spec.md §4 together:
// Lister → Filter → Differ → Transferrer, with the Deleter's second pass
// run after. It owns the bounded channel between listing and worker
// dispatch, the worker pool itself, and cooperative cancellation — the
// same shapes the teacher's internal/worker.Pool uses (bounded jobs
// channel, sync.WaitGroup fan-out), generalized to errgroup so the first
// worker error can cancel the rest when spec.md §7 calls for a Script or
// Config error to abort the whole run (PipelineFatal).
package scheduler

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/yuya-takeyama/s3sync/internal/chunkplanner"
	"github.com/yuya-takeyama/s3sync/internal/deleter"
	"github.com/yuya-takeyama/s3sync/internal/differ"
	"github.com/yuya-takeyama/s3sync/internal/endpoint"
	"github.com/yuya-takeyama/s3sync/internal/errs"
	"github.com/yuya-takeyama/s3sync/internal/filter"
	"github.com/yuya-takeyama/s3sync/internal/lister"
	"github.com/yuya-takeyama/s3sync/internal/objmodel"
	"github.com/yuya-takeyama/s3sync/internal/reporter"
	"github.com/yuya-takeyama/s3sync/internal/synclog"
	"github.com/yuya-takeyama/s3sync/internal/transfer"
)

// Config holds the scheduler's pipeline-level knobs (spec.md §6).
type Config struct {
	WorkerSize   int // --worker-size, object-level concurrency
	DryRun       bool
	Delete       bool
	DifferConfig differ.Config
	ChunkConfig  chunkplanner.Config
}

// Scheduler runs one sync pass.
type Scheduler struct {
	source endpoint.Endpoint
	target endpoint.Endpoint
	filter *filter.Filter
	tr     *transfer.Transferrer
	rep    *reporter.Reporter
	log    *synclog.Logger
	cfg    Config
}

// New builds a Scheduler.
func New(source, target endpoint.Endpoint, f *filter.Filter, tr *transfer.Transferrer, rep *reporter.Reporter, log *synclog.Logger, cfg Config) *Scheduler {
	if cfg.WorkerSize <= 0 {
		cfg.WorkerSize = 8
	}
	return &Scheduler{source: source, target: target, filter: f, tr: tr, rep: rep, log: log, cfg: cfg}
}

// Run executes the transfer pass: it lists the source, filters and diffs
// each entry against the target, and dispatches ActionTransfer* decisions
// to a bounded worker pool. It returns the first PipelineFatal error
// encountered (spec.md §7); per-object errors are recorded on the
// Reporter and logged as warnings instead of aborting the run.
func (s *Scheduler) Run(ctx context.Context) error {
	entries, err := lister.New(s.source).Stream(ctx)
	if err != nil {
		return errs.Wrap(errs.Fatal, "", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.WorkerSize)

	for listed := range entries {
		listed := listed
		if listed.Err != nil {
			return errs.Wrap(errs.Fatal, "", listed.Err)
		}

		accepted, err := s.filter.Accept(listed.Entry)
		if err != nil {
			if errorKind(err).PipelineFatal() {
				return err
			}
			s.log.Warning(listed.Entry.Key, listed.Entry.VersionID, err)
			continue
		}
		if !accepted {
			continue
		}

		g.Go(func() error {
			return s.processOne(gctx, listed.Entry)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	if s.cfg.Delete {
		return s.runDeletePass(ctx)
	}
	return nil
}

func (s *Scheduler) processOne(ctx context.Context, entry objmodel.ObjectEntry) error {
	target, err := s.target.Head(ctx, entry.Key, entry.VersionID)
	var targetPtr *objmodel.ObjectEntry
	if err == nil {
		targetPtr = &target
	} else if !errs.Is(err, errs.NotFound) {
		s.log.Warning(entry.Key, entry.VersionID, err)
		s.rep.RecordOutcome(objmodel.SyncOutcome{Key: entry.Key, Error: err})
		return nil
	}

	// The listed entry never carries the source's additional checksum or
	// user metadata/tags (List doesn't fetch them), and for a local source
	// it never carries an etag either (spec.md §4.4 needs a content
	// comparison, not just a name match). Fetch the source's own Head the
	// same way the target already is, but only once a size match makes the
	// comparison worth the call — on a size mismatch Decide transfers
	// unconditionally and never looks at etag/checksum.
	source := entry
	if targetPtr != nil && entry.Size == targetPtr.Size {
		if enriched, herr := s.source.Head(ctx, entry.Key, entry.VersionID); herr == nil {
			source = enriched
		} else if !errs.Is(herr, errs.NotFound) {
			s.log.Warning(entry.Key, entry.VersionID, herr)
			s.rep.RecordOutcome(objmodel.SyncOutcome{Key: entry.Key, Error: herr})
			return nil
		}
	}

	decision := differ.Decide(s.cfg.DifferConfig, source, targetPtr)

	if s.cfg.DifferConfig.ReportMode {
		s.rep.RecordDecision(decision)
		return nil
	}

	if decision.TagOnly {
		s.log.Transfer("sync_tagging", entry.Key, decision.Reason)
		outcome := s.tr.SyncTagging(ctx, source)
		s.rep.RecordOutcome(outcome)
		if outcome.Error != nil {
			s.log.Warning(entry.Key, entry.VersionID, outcome.Error)
		}
		return nil
	}

	if decision.Action == objmodel.ActionSkip {
		s.rep.RecordSkip()
		return nil
	}

	layout := chunkplanner.Plan(source.Size, s.cfg.ChunkConfig, source.ETag)
	action := objmodel.ActionTransferSingle
	if layout.Multipart {
		action = objmodel.ActionTransferMultipart
	}
	plan := objmodel.TransferPlan{Entry: source, Action: action, Reason: decision.Reason, ChunkSize: layout.ChunkSize, PartCount: layout.PartCount}
	s.log.Transfer(string(action), entry.Key, decision.Reason)

	outcome := s.tr.Transfer(ctx, plan)
	s.rep.RecordOutcome(outcome)
	if outcome.Error != nil {
		s.log.Warning(entry.Key, entry.VersionID, outcome.Error)
		if errorKind(outcome.Error).PipelineFatal() {
			return outcome.Error
		}
	}
	if outcome.Warning != "" {
		s.log.Warning(entry.Key, entry.VersionID, errs.New(errs.Transport, entry.Key, "%s", outcome.Warning))
	}
	return nil
}

// runDeletePass needs the full source key set, so it re-lists the source
// (spec.md §4.7: the delete pass runs after the transfer pass completes,
// not interleaved with it, so a transfer failure never races a delete of
// the same key).
func (s *Scheduler) runDeletePass(ctx context.Context) error {
	sourceEntries, err := lister.New(s.source).Collect(ctx)
	if err != nil {
		return errs.Wrap(errs.Fatal, "", err)
	}
	sourceKeys := make(map[string]struct{}, len(sourceEntries))
	for _, e := range sourceEntries {
		sourceKeys[e.Key] = struct{}{}
	}

	targets, err := lister.New(s.target).Collect(ctx)
	if err != nil {
		return errs.Wrap(errs.Fatal, "", err)
	}

	del := deleter.New(s.target, s.cfg.DryRun)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.WorkerSize)
	for _, entry := range deleter.Plan(targets, sourceKeys) {
		entry := entry
		g.Go(func() error {
			s.log.Transfer("delete_target", entry.Key, "not present at source")
			outcome := del.Delete(gctx, entry)
			s.rep.RecordOutcome(outcome)
			if outcome.Error != nil {
				s.log.Warning(entry.Key, entry.VersionID, outcome.Error)
			}
			return nil
		})
	}
	return g.Wait()
}

func errorKind(err error) errs.Kind {
	if e, ok := err.(*errs.Error); ok {
		return e.Kind
	}
	return errs.Fatal
}
