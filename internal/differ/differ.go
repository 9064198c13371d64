// Package differ implements the per-object decision table of spec.md §4.4:
// given a source entry and the target's current state (or absence of one),
// decide whether to transfer, skip, or categorize for a sync-status report.
package differ

import (
	"github.com/yuya-takeyama/s3sync/internal/checksum"
	"github.com/yuya-takeyama/s3sync/internal/objmodel"
)

// Config holds the flags that alter the Differ's decision (spec.md §6).
type Config struct {
	DryRun    bool
	ReportMode bool // --report-sync-status
	ReportMetadata bool // --report-metadata-sync-status
	ReportTagging  bool // --report-tagging-sync-status
	SyncLatestTagging bool
	DisableTagging    bool
}

// Decision is the outcome of comparing one source entry against the
// target's current state.
type Decision struct {
	Action   objmodel.Action
	Reason   string
	Category objmodel.StatsCategory // only meaningful when ReportMode is set

	// MetadataCategory/TaggingCategory are the orthogonal extensions to
	// Category, populated only when the corresponding report flag is set.
	MetadataCategory objmodel.StatsCategory
	TaggingCategory  objmodel.StatsCategory

	// TagOnly indicates the object body already matches but the tag set
	// must still be re-synced (the --sync-latest-tagging case described in
	// spec.md §9's Open Question; resolved in DESIGN.md to count as a
	// transfer, not a skip).
	TagOnly bool
}

// Decide implements the decision table of spec.md §4.4. A nil target means
// the target is absent (its Head returned NotFound); a non-nil target is the
// target's current state.
func Decide(cfg Config, source objmodel.ObjectEntry, target *objmodel.ObjectEntry) Decision {
	if target == nil {
		if cfg.ReportMode {
			return Decision{Action: objmodel.ActionSkip, Reason: "not found at target", Category: objmodel.CategoryNotFound}
		}
		if cfg.DryRun {
			return Decision{Action: objmodel.ActionSkip, Reason: "would transfer (dry-run)"}
		}
		return transferDecision(source, "new object")
	}

	if source.Size != target.Size {
		if cfg.ReportMode {
			return Decision{Action: objmodel.ActionSkip, Reason: "size differs", Category: objmodel.CategoryEtagMismatch}
		}
		if cfg.DryRun {
			return Decision{Action: objmodel.ActionSkip, Reason: "would transfer (dry-run, size differs)"}
		}
		return transferDecision(source, "size differs")
	}

	// Additional checksum is authoritative when present on both sides
	// (spec.md §3 invariant).
	if !source.AdditionalChecksum.IsZero() && !target.AdditionalChecksum.IsZero() &&
		source.AdditionalChecksum.Algorithm == target.AdditionalChecksum.Algorithm {
		equal := bytesEqual(source.AdditionalChecksum.Value, target.AdditionalChecksum.Value)
		if equal {
			d := Decision{Action: objmodel.ActionSkip, Reason: "checksum matches", Category: objmodel.CategoryChecksumMatches}
			return withTaggingAndMetadata(cfg, d, source, *target)
		}
		if cfg.ReportMode {
			return Decision{Action: objmodel.ActionSkip, Reason: "checksum differs", Category: objmodel.CategoryChecksumMismatch}
		}
		if cfg.DryRun {
			return Decision{Action: objmodel.ActionSkip, Reason: "would transfer (dry-run, checksum differs)"}
		}
		return transferDecision(source, "checksum differs")
	}

	// SSE-KMS forces the etag to be treated as non-comparable (spec.md
	// §4.4 tie-break): it is not an MD5 in that case.
	etagComparable := source.SSEType != objmodel.SSEKMS && target.SSEType != objmodel.SSEKMS &&
		checksum.IsComparableETag(source.ETag, target.ETag)

	if etagComparable {
		if source.ETag == target.ETag {
			d := Decision{Action: objmodel.ActionSkip, Reason: "etag matches", Category: objmodel.CategoryEtagMatches}
			return withTaggingAndMetadata(cfg, d, source, *target)
		}
		if cfg.ReportMode {
			return Decision{Action: objmodel.ActionSkip, Reason: "etag differs", Category: objmodel.CategoryEtagMismatch}
		}
		if cfg.DryRun {
			return Decision{Action: objmodel.ActionSkip, Reason: "would transfer (dry-run, etag differs)"}
		}
		return transferDecision(source, "etag differs")
	}

	// Etag non-comparable and no checksum: fall back to mtime.
	if cfg.ReportMode {
		cat := objmodel.CategoryEtagUnknown
		if !source.AdditionalChecksum.IsZero() || !target.AdditionalChecksum.IsZero() {
			cat = objmodel.CategoryChecksumUnknown
		}
		return Decision{Action: objmodel.ActionSkip, Reason: "etag not comparable", Category: cat}
	}

	if source.LastModified.After(target.LastModified) {
		if cfg.DryRun {
			return Decision{Action: objmodel.ActionSkip, Reason: "would transfer (dry-run, source newer, etag unknown)"}
		}
		return transferDecision(source, "source newer, etag unknown")
	}

	d := Decision{Action: objmodel.ActionSkip, Reason: "etag unknown, target not older", Category: objmodel.CategoryEtagUnknown}
	return withTaggingAndMetadata(cfg, d, source, *target)
}

// withTaggingAndMetadata extends a Skip decision with the report's
// orthogonal metadata/tagging rows, and — outside report mode — upgrades a
// body-equal object to a tagging-only transfer when --sync-latest-tagging
// requests it and the tag sets differ (Open Question resolved in
// DESIGN.md: this counts as sync_complete).
func withTaggingAndMetadata(cfg Config, d Decision, source, target objmodel.ObjectEntry) Decision {
	metadataEqual := objmodel.MetadataEqual(source.UserMetadata, target.UserMetadata)
	tagsEqual := objmodel.TagsEqual(source.TagSet, target.TagSet)

	if cfg.ReportMetadata {
		if metadataEqual {
			d.MetadataCategory = objmodel.CategoryMetadataMatches
		} else {
			d.MetadataCategory = objmodel.CategoryMetadataMismatch
		}
	}
	if cfg.ReportTagging {
		if tagsEqual {
			d.TaggingCategory = objmodel.CategoryTaggingMatches
		} else {
			d.TaggingCategory = objmodel.CategoryTaggingMismatch
		}
	}

	if !cfg.ReportMode && !cfg.DryRun && cfg.SyncLatestTagging && !cfg.DisableTagging && !tagsEqual {
		d.TagOnly = true
		d.Reason = "body matches, tag set differs (--sync-latest-tagging)"
	}

	return d
}

// transferDecision marks an entry as needing a transfer. It always reports
// ActionTransferSingle as a placeholder: single-vs-multipart is a sizing
// decision the chunkplanner makes from the object's size, not something the
// Differ can determine from a before/after comparison.
func transferDecision(source objmodel.ObjectEntry, reason string) Decision {
	return Decision{Action: objmodel.ActionTransferSingle, Reason: reason}
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
