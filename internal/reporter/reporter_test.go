package reporter

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yuya-takeyama/s3sync/internal/differ"
	"github.com/yuya-takeyama/s3sync/internal/errs"
	"github.com/yuya-takeyama/s3sync/internal/objmodel"
)

func TestRecordOutcomeCountsTransfersAndBytes(t *testing.T) {
	r := New()
	r.RecordOutcome(objmodel.SyncOutcome{Action: objmodel.ActionTransferSingle, Bytes: 100})
	r.RecordOutcome(objmodel.SyncOutcome{Action: objmodel.ActionTransferMultipart, Bytes: 200})
	r.RecordOutcome(objmodel.SyncOutcome{Action: objmodel.ActionDeleteTarget})
	r.RecordOutcome(objmodel.SyncOutcome{Error: errs.New(errs.Transport, "k", "boom")})

	s := r.Summary()
	if s.Transferred != 2 || s.BytesTransferred != 300 {
		t.Fatalf("unexpected transfer totals: %+v", s)
	}
	if s.Deleted != 1 {
		t.Fatalf("unexpected delete total: %+v", s)
	}
	if s.Errored != 1 {
		t.Fatalf("unexpected error total: %+v", s)
	}
}

func TestRecordDecisionPopulatesStatsReport(t *testing.T) {
	r := New()
	r.RecordDecision(differ.Decision{Category: objmodel.CategoryEtagMatches})
	r.RecordDecision(differ.Decision{Category: objmodel.CategoryNotFound})
	r.RecordDecision(differ.Decision{Category: objmodel.CategoryEtagMatches, MetadataCategory: objmodel.CategoryMetadataMismatch})

	stats := r.StatsReport()
	if stats.EtagMatches != 2 {
		t.Fatalf("expected 2 etag matches, got %d", stats.EtagMatches)
	}
	if stats.NotFound != 1 {
		t.Fatalf("expected 1 not_found, got %d", stats.NotFound)
	}
	if stats.MetadataMismatch != 1 {
		t.Fatalf("expected 1 metadata_mismatch, got %d", stats.MetadataMismatch)
	}
	if stats.NumberOfObjects != 3 {
		t.Fatalf("metadata rows must not double count NumberOfObjects, got %d", stats.NumberOfObjects)
	}
}

func TestConcurrentRecordOutcomeIsSafe(t *testing.T) {
	r := New()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.RecordOutcome(objmodel.SyncOutcome{Action: objmodel.ActionTransferSingle, Bytes: 1})
		}()
	}
	wg.Wait()
	require.Equal(t, int64(100), r.Summary().Transferred)
}
