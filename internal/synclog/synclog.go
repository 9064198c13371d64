// Package synclog unifies the teacher's two loggers (pkg/logger.SyncLogger
// and internal/logging.Logger) into one quiet/dry-run-aware Logger used
// across the engine, and adds the per-object warning line spec.md §7
// requires: one line per erroring object, shaped {key, version?, kind,
// message}.
package synclog

import (
	"fmt"
	"os"
	"time"

	"github.com/yuya-takeyama/s3sync/internal/errs"
)

// Logger is the logging surface the engine programs against.
type Logger struct {
	quiet  bool
	dryRun bool
}

// New builds a Logger. quiet suppresses Info/Debug; dryRun prefixes
// transfer/delete lines with "(dry-run)".
func New(quiet, dryRun bool) *Logger {
	return &Logger{quiet: quiet, dryRun: dryRun}
}

func (l *Logger) Info(format string, args ...interface{}) {
	if !l.quiet {
		fmt.Printf(format+"\n", args...)
	}
}

func (l *Logger) Debug(format string, args ...interface{}) {
	if !l.quiet {
		fmt.Printf("DEBUG: "+format+"\n", args...)
	}
}

func (l *Logger) Error(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "ERROR: "+format+"\n", args...)
}

// Transfer logs one sync action; reason explains why the Differ chose it.
func (l *Logger) Transfer(action, key, reason string) {
	prefix := ""
	if l.dryRun {
		prefix = "(dry-run) "
	}
	l.Info("%s%s: %s (%s)", prefix, action, key, reason)
}

// Warning emits the single warning line spec.md §7 requires for an
// erroring object: {key, version?, kind, message}.
func (l *Logger) Warning(key, version string, err error) {
	kind := errs.Kind("unknown")
	if e, ok := err.(*errs.Error); ok {
		kind = e.Kind
	}
	if version != "" {
		fmt.Fprintf(os.Stderr, "WARN: key=%s version=%s kind=%s message=%s\n", key, version, kind, err)
		return
	}
	fmt.Fprintf(os.Stderr, "WARN: key=%s kind=%s message=%s\n", key, kind, err)
}

// Summary prints the end-of-run totals (transferred, deleted, skipped,
// errors, duration), matching the teacher's PrintSummary shape; it prints
// no SyncStatsReport counters.
func (l *Logger) Summary(transferred, deleted, skipped, errored int64, bytesTransferred int64, duration time.Duration) {
	if l.quiet && errored == 0 {
		return
	}
	fmt.Println()
	fmt.Println("=== Summary ===")
	fmt.Printf("Transferred: %d objects (%s)\n", transferred, formatBytes(bytesTransferred))
	fmt.Printf("Deleted: %d objects\n", deleted)
	fmt.Printf("Skipped: %d objects\n", skipped)
	if errored > 0 {
		fmt.Printf("Errors: %d\n", errored)
	}
	fmt.Printf("Duration: %s\n", duration.Round(time.Millisecond))
}

func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}
