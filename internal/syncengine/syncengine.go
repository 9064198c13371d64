// Package syncengine wires Lister → Filter → Differ → (Transferrer ∥
// Deleter) → Reporter into the single Run entry point both cmd/s3sync and
// cmd/s3sync-report call. Everything AWS-specific (credentials, client
// construction) stays in the cmd layer; syncengine only needs endpoints
// that already satisfy endpoint.Endpoint.
package syncengine

import (
	"context"

	"github.com/yuya-takeyama/s3sync/internal/chunkplanner"
	"github.com/yuya-takeyama/s3sync/internal/differ"
	"github.com/yuya-takeyama/s3sync/internal/endpoint"
	"github.com/yuya-takeyama/s3sync/internal/errs"
	"github.com/yuya-takeyama/s3sync/internal/filter"
	"github.com/yuya-takeyama/s3sync/internal/objmodel"
	"github.com/yuya-takeyama/s3sync/internal/ratelimit"
	"github.com/yuya-takeyama/s3sync/internal/reporter"
	"github.com/yuya-takeyama/s3sync/internal/scheduler"
	"github.com/yuya-takeyama/s3sync/internal/synclog"
	"github.com/yuya-takeyama/s3sync/internal/transfer"
)

// Config is the fully-resolved configuration for one sync run: every flag
// of spec.md §6, translated out of raw strings by the cmd layer.
type Config struct {
	Source endpoint.Endpoint
	Target endpoint.Endpoint

	Filter   filter.Config
	Differ   differ.Config
	Chunk    chunkplanner.Config
	Transfer transfer.Config

	RateLimitObjectsPerSecond float64
	RateLimitBandwidthBytes   float64

	WorkerSize int
	Delete     bool
	DryRun     bool
	Quiet      bool
}

// Result bundles both report shapes a run can produce: Summary for a plain
// sync, StatsReport for --report-sync-status (only one is meaningful per
// run, depending on Config.Differ.ReportMode).
type Result struct {
	Summary     reporter.Summary
	StatsReport objmodel.SyncStatsReport
}

// Run validates cfg, then executes one sync pass end to end. A non-nil
// error is always an *errs.Error: Config or Script (the two PipelineFatal
// kinds spec.md §7 names), CapabilityUnsupported from validation, or, for
// a listing failure, the kind the endpoint reported (Transport, or Fatal
// when it carried none); per-object failures are folded into the returned
// Result instead of failing the run.
func Run(ctx context.Context, cfg Config) (Result, error) {
	if err := validate(cfg); err != nil {
		return Result{}, err
	}

	f, err := filter.New(cfg.Filter)
	if err != nil {
		return Result{}, errs.Wrap(errs.Config, "", err)
	}

	limiter := ratelimit.New(cfg.RateLimitObjectsPerSecond, cfg.RateLimitBandwidthBytes)
	tr := transfer.New(cfg.Source, cfg.Target, cfg.Transfer, limiter)
	rep := reporter.New()
	log := synclog.New(cfg.Quiet, cfg.DryRun)

	schedCfg := scheduler.Config{
		WorkerSize:   cfg.WorkerSize,
		DryRun:       cfg.DryRun,
		Delete:       cfg.Delete,
		DifferConfig: cfg.Differ,
		ChunkConfig:  cfg.Chunk,
	}
	sched := scheduler.New(cfg.Source, cfg.Target, f, tr, rep, log, schedCfg)

	if err := sched.Run(ctx); err != nil {
		return Result{Summary: rep.Summary(), StatsReport: rep.StatsReport()}, err
	}

	return Result{Summary: rep.Summary(), StatsReport: rep.StatsReport()}, nil
}

// validate checks the flag-incompatibility rules of spec.md §6 that are
// detectable from Config alone, without touching either endpoint.
func validate(cfg Config) error {
	if cfg.Source == nil || cfg.Target == nil {
		return errs.New(errs.Config, "", "both source and target endpoints are required")
	}
	if (cfg.Transfer.EnableAdditionalChecksum || cfg.Transfer.CheckAdditionalChecksum) && cfg.Transfer.ChecksumAlgorithm == objmodel.ChecksumNone {
		return errs.New(errs.Config, "", "--enable-additional-checksum/--check-additional-checksum requires an algorithm")
	}
	if cfg.Transfer.CheckAdditionalChecksum && cfg.Transfer.EnableAdditionalChecksum {
		return errs.New(errs.Config, "", "--check-additional-checksum and --enable-additional-checksum are mutually exclusive uploaders")
	}
	if cfg.Differ.SyncLatestTagging && cfg.Differ.DisableTagging {
		return errs.New(errs.Config, "", "--sync-latest-tagging and --disable-tagging are mutually exclusive")
	}
	// A tagging-incapable endpoint (e.g. local) is not rejected here: the
	// Transferrer tolerates CapabilityUnsupported from GetTagging/PutTagging
	// and degrades tag sync to a no-op rather than failing the run.
	if cfg.Transfer.SSEKMSKeyID != "" && !cfg.Target.Capabilities().ServerSideEncryption {
		return errs.New(errs.CapabilityUnsupported, "", "target endpoint does not support server-side encryption")
	}
	return nil
}
