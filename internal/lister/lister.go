// Package lister is the Scheduler-facing view of spec.md §4.2: it drives an
// endpoint's lazy, paginated, channel-backed List() and gives the rest of
// the pipeline two ways to consume it — streamed, for the main per-object
// pass, or collected into a slice, for the --delete pass's full-key-set
// comparison.
package lister

import (
	"context"

	"github.com/yuya-takeyama/s3sync/internal/endpoint"
	"github.com/yuya-takeyama/s3sync/internal/objmodel"
)

// Lister lists one endpoint's current object set.
type Lister struct {
	ep endpoint.Endpoint
}

// New builds a Lister over ep. ep is typically a source or target
// endpoint.Endpoint, but anything satisfying the interface works.
func New(ep endpoint.Endpoint) *Lister {
	return &Lister{ep: ep}
}

// Stream returns the endpoint's listing channel unmodified: one
// ListedEntry per object (or version, in version mode), newest-first
// within a key, closed when listing completes or ctx is cancelled.
func (l *Lister) Stream(ctx context.Context) (<-chan endpoint.ListedEntry, error) {
	return l.ep.List(ctx)
}

// Collect drains Stream into a slice, stopping at the first listing error.
// Use this for passes that need the full object set up front (the
// --delete pass's target-only comparison); prefer Stream for the main
// pass, since it lets filtering/diffing start before listing finishes.
func (l *Lister) Collect(ctx context.Context) ([]objmodel.ObjectEntry, error) {
	ch, err := l.ep.List(ctx)
	if err != nil {
		return nil, err
	}
	var entries []objmodel.ObjectEntry
	for listed := range ch {
		if listed.Err != nil {
			return nil, listed.Err
		}
		entries = append(entries, listed.Entry)
	}
	return entries, nil
}
