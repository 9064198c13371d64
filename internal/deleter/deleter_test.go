package deleter

import (
	"context"
	"testing"

	"github.com/yuya-takeyama/s3sync/internal/objmodel"
)

type onlyDeleteEndpoint struct {
	deleted []string
	err     error
}

func (f *onlyDeleteEndpoint) DeleteObject(ctx context.Context, key, versionID string) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, key)
	return nil
}

func TestPlanFindsTargetOnlyKeys(t *testing.T) {
	target := []objmodel.ObjectEntry{{Key: "a"}, {Key: "b"}, {Key: "c"}}
	source := map[string]struct{}{"a": {}, "c": {}}
	got := Plan(target, source)
	if len(got) != 1 || got[0].Key != "b" {
		t.Fatalf("expected only %q, got %v", "b", got)
	}
}

func TestDryRunNeverCallsDelete(t *testing.T) {
	ep := &onlyDeleteEndpoint{}
	d := New(ep, true)
	outcome := d.Delete(context.Background(), objmodel.ObjectEntry{Key: "x"})
	if outcome.Error != nil {
		t.Fatal(outcome.Error)
	}
	if len(ep.deleted) != 0 {
		t.Fatal("dry-run must not call DeleteObject")
	}
}

func TestDeletePropagatesError(t *testing.T) {
	ep := &onlyDeleteEndpoint{err: errBoom{}}
	d := New(ep, false)
	outcome := d.Delete(context.Background(), objmodel.ObjectEntry{Key: "x"})
	if outcome.Error == nil {
		t.Fatal("expected delete error to propagate")
	}
}

type errBoom struct{}

func (errBoom) Error() string { return "boom" }
