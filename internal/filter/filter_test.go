package filter

import (
	"testing"
	"time"

	"github.com/yuya-takeyama/s3sync/internal/objmodel"
)

func entry(key string, size uint64, mtime time.Time) objmodel.ObjectEntry {
	return objmodel.ObjectEntry{Key: key, Size: size, LastModified: mtime}
}

func TestPrefixGlobExclusion(t *testing.T) {
	f, err := New(Config{PrefixExcludes: []string{"tmp/**"}})
	if err != nil {
		t.Fatal(err)
	}
	ok, err := f.Accept(entry("tmp/data1", 10, time.Now()))
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected tmp/data1 to be excluded")
	}

	ok, err = f.Accept(entry("dir1/data1", 10, time.Now()))
	if err != nil || !ok {
		t.Fatalf("expected dir1/data1 to be accepted, ok=%v err=%v", ok, err)
	}
}

func TestRegexIncludeRestrictsToMatches(t *testing.T) {
	f, err := New(Config{RegexIncludes: []string{`\.log$`}})
	if err != nil {
		t.Fatal(err)
	}
	ok, _ := f.Accept(entry("app.log", 1, time.Now()))
	if !ok {
		t.Fatal("expected app.log to be included")
	}
	ok, _ = f.Accept(entry("app.txt", 1, time.Now()))
	if ok {
		t.Fatal("expected app.txt to be excluded by include filter")
	}
}

func TestSizeWindow(t *testing.T) {
	min := uint64(10)
	max := uint64(100)
	f, err := New(Config{MinSize: &min, MaxSize: &max})
	if err != nil {
		t.Fatal(err)
	}
	cases := []struct {
		size uint64
		want bool
	}{{5, false}, {10, true}, {50, true}, {100, true}, {101, false}}
	for _, c := range cases {
		ok, _ := f.Accept(entry("k", c.size, time.Now()))
		if ok != c.want {
			t.Errorf("size=%d: want %v, got %v", c.size, c.want, ok)
		}
	}
}

func TestMtimeWindow(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	windowStart := base.Add(-time.Hour)
	windowEnd := base.Add(time.Hour)
	f, err := New(Config{ModifiedAfter: &windowStart, ModifiedBefore: &windowEnd})
	if err != nil {
		t.Fatal(err)
	}

	ok, _ := f.Accept(entry("k", 1, base))
	if !ok {
		t.Fatal("expected mtime inside window to be accepted")
	}

	ok, _ = f.Accept(entry("k", 1, base.Add(-2*time.Hour)))
	if ok {
		t.Fatal("expected mtime before window to be rejected")
	}

	ok, _ = f.Accept(entry("k", 1, base.Add(2*time.Hour)))
	if ok {
		t.Fatal("expected mtime after window to be rejected")
	}
}

func TestInvalidRegexIsConfigError(t *testing.T) {
	if _, err := New(Config{RegexExcludes: []string{"("}}); err == nil {
		t.Fatal("expected config error for invalid regex")
	}
}

type rejectAllHook struct{}

func (rejectAllHook) Accept(objmodel.ObjectEntry) (bool, error) { return false, nil }

func TestScriptHookCanReject(t *testing.T) {
	f, err := New(Config{Script: rejectAllHook{}})
	if err != nil {
		t.Fatal(err)
	}
	ok, _ := f.Accept(entry("any", 1, time.Now()))
	if ok {
		t.Fatal("expected script hook to reject")
	}
}
