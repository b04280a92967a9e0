package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// PruneLogs deletes daily log files in dir older than retentionDays and
// returns how many it removed. The day comes from the file name, or the
// modification time when the name carries no date. keep is never removed and
// retentionDays <= 0 disables pruning.
func PruneLogs(logger *slog.Logger, dir string, retentionDays int, keep string, now time.Time) int {
	if retentionDays <= 0 || dir == "" {
		return 0
	}
	matches, err := filepath.Glob(filepath.Join(dir, LogFilePattern))
	if err != nil {
		return 0
	}
	cutoff := now.AddDate(0, 0, -retentionDays)
	removed := 0
	for _, path := range matches {
		if keep != "" && filepath.Clean(path) == filepath.Clean(keep) {
			continue
		}
		day, ok := logFileDay(path)
		if !ok || !day.Before(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			WarnWithContext(logger, "log retention remove failed; file remains", "log_retention_failed",
				String("path", path),
				Error(err),
				String(FieldErrorHint, "check file permissions and log_dir ownership"),
				String(FieldImpact, "old log file remains on disk"),
			)
			continue
		}
		removed++
		if logger != nil {
			logger.Debug("log pruned", String("path", path), String(FieldEventType, "log_pruned"))
		}
	}
	return removed
}

func logFileDay(path string) (time.Time, bool) {
	stamp := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(path), logFilePrefix), ".log")
	if day, err := time.ParseInLocation("20060102", stamp, time.Local); err == nil {
		return day, true
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return time.Time{}, false
	}
	return info.ModTime(), true
}
