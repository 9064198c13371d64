// Package filter implements the Filter stage of spec.md §4.3: prefix
// exclusion, regex include/exclude, size/mtime windows, and an optional
// user-script predicate.
//
// Prefix/glob matching follows the teacher's pkg/planner.IsExcluded /
// internal/walker.isExcluded, both built on github.com/bmatcuk/doublestar/v4.
// Regex include/exclude is a distinct predicate stage, per spec.md §4.3's
// "prefix exclusion, regex include/exclude" ordering — doublestar and
// regexp serve different pattern languages and neither subsumes the other,
// so both are wired rather than picking one.
package filter

import (
	"regexp"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/yuya-takeyama/s3sync/internal/errs"
	"github.com/yuya-takeyama/s3sync/internal/objmodel"
)

// ScriptHook is the capability-sandboxed predicate spec.md §4.3 and §9
// describe: it receives an immutable projection of the entry and returns
// accept/reject. The scripting engine itself (memory ceiling, capability
// sandboxing) is out of core scope per spec.md §1; this interface is the
// boundary the core programs against.
type ScriptHook interface {
	Accept(entry objmodel.ObjectEntry) (bool, error)
}

// NoopScriptHook accepts every entry; it is the default when no script hook
// is configured.
type NoopScriptHook struct{}

func (NoopScriptHook) Accept(objmodel.ObjectEntry) (bool, error) { return true, nil }

// Config holds the filter chain's configuration.
type Config struct {
	// PrefixExcludes are doublestar glob patterns, matching the teacher's
	// --exclude semantics.
	PrefixExcludes []string

	// RegexIncludes/RegexExcludes are compiled regular expressions applied
	// to the key, per spec.md §4.3.
	RegexIncludes []string
	RegexExcludes []string

	MinSize        *uint64
	MaxSize        *uint64
	ModifiedAfter  *time.Time
	ModifiedBefore *time.Time

	Script ScriptHook
}

// Filter applies the configured predicate chain to one entry, returning
// whether it should proceed downstream.
type Filter struct {
	cfg            Config
	compiledInclude []*regexp.Regexp
	compiledExclude []*regexp.Regexp
}

// New builds a Filter; a nil Script defaults to NoopScriptHook. Invalid
// regex patterns are reported immediately rather than silently ignored,
// since a misconfigured filter is a Config error (spec.md §7).
func New(cfg Config) (*Filter, error) {
	if cfg.Script == nil {
		cfg.Script = NoopScriptHook{}
	}
	f := &Filter{cfg: cfg}
	for _, p := range cfg.RegexIncludes {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, errs.New(errs.Config, "", "invalid --include regex %q: %v", p, err)
		}
		f.compiledInclude = append(f.compiledInclude, re)
	}
	for _, p := range cfg.RegexExcludes {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, errs.New(errs.Config, "", "invalid --exclude regex %q: %v", p, err)
		}
		f.compiledExclude = append(f.compiledExclude, re)
	}
	return f, nil
}

// Accept runs the full predicate chain in spec order: prefix exclusion,
// regex include/exclude, size window, mtime window, then the script hook.
func (f *Filter) Accept(entry objmodel.ObjectEntry) (bool, error) {
	if matchesGlob(entry.Key, f.cfg.PrefixExcludes) {
		return false, nil
	}
	if len(f.compiledInclude) > 0 && !matchesRegex(entry.Key, f.compiledInclude) {
		return false, nil
	}
	if matchesRegex(entry.Key, f.compiledExclude) {
		return false, nil
	}
	if f.cfg.MinSize != nil && entry.Size < *f.cfg.MinSize {
		return false, nil
	}
	if f.cfg.MaxSize != nil && entry.Size > *f.cfg.MaxSize {
		return false, nil
	}
	if f.cfg.ModifiedAfter != nil && entry.LastModified.Before(*f.cfg.ModifiedAfter) {
		return false, nil
	}
	if f.cfg.ModifiedBefore != nil && entry.LastModified.After(*f.cfg.ModifiedBefore) {
		return false, nil
	}

	accepted, err := f.cfg.Script.Accept(entry)
	if err != nil {
		return false, errs.Wrap(errs.Script, entry.Key, err)
	}
	return accepted, nil
}

func matchesGlob(key string, patterns []string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, key); ok {
			return true
		}
	}
	return false
}

func matchesRegex(key string, patterns []*regexp.Regexp) bool {
	for _, re := range patterns {
		if re.MatchString(key) {
			return true
		}
	}
	return false
}
