// Package deleter implements the second-pass delete of spec.md §4.7
// (--delete): objects present at the target but absent from the source
// are removed after the main transfer pass completes, so a transfer
// failure never races a delete of the same key.
package deleter

import (
	"context"

	"github.com/yuya-takeyama/s3sync/internal/objmodel"
)

// Endpoint is the narrow capability the Deleter needs; endpoint.Endpoint
// satisfies it.
type Endpoint interface {
	DeleteObject(ctx context.Context, key, versionID string) error
}

// Deleter removes target-only objects.
type Deleter struct {
	target Endpoint
	dryRun bool
}

// New builds a Deleter against target. In dry-run mode Delete reports the
// outcome without calling the endpoint.
func New(target Endpoint, dryRun bool) *Deleter {
	return &Deleter{target: target, dryRun: dryRun}
}

// Delete removes one target-only entry.
func (d *Deleter) Delete(ctx context.Context, entry objmodel.ObjectEntry) objmodel.SyncOutcome {
	outcome := objmodel.SyncOutcome{Key: entry.Key, VersionID: entry.VersionID, Action: objmodel.ActionDeleteTarget}
	if d.dryRun {
		return outcome
	}
	if err := d.target.DeleteObject(ctx, entry.Key, entry.VersionID); err != nil {
		outcome.Error = err
	}
	return outcome
}

// Plan computes the target-only keys given the full set of source keys
// observed during this run. targetEntries and sourceKeys are both
// indexed by key (version-agnostic: spec.md §4.7 deletes by key, not by
// version, since --delete targets "no longer present at the source" at
// the key level).
func Plan(targetEntries []objmodel.ObjectEntry, sourceKeys map[string]struct{}) []objmodel.ObjectEntry {
	var toDelete []objmodel.ObjectEntry
	for _, e := range targetEntries {
		if _, ok := sourceKeys[e.Key]; !ok {
			toDelete = append(toDelete, e)
		}
	}
	return toDelete
}
