package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/config"
)

const logFilePrefix = "donghuasub-"

// LogFilePattern matches the daily log files written by NewFromConfig.
const LogFilePattern = logFilePrefix + "*.log"

// Options configures New.
type Options struct {
	Level  string
	Format string // "console" (default) or "json"
	// Outputs lists "stdout", "stderr" or file paths. Defaults to stderr.
	Outputs []string
	// FilePath, when set, receives a JSON copy of every record regardless of
	// Format so log files stay machine-readable.
	FilePath  string
	SessionID string
	Stream    *StreamHub
	AddSource bool
}

// New builds the logger: the formatted handler for Outputs, teed into the
// JSON file, published to Stream and stamped with context fields.
func New(opts Options) (*slog.Logger, error) {
	level := new(slog.LevelVar)
	level.Set(parseLevel(opts.Level))
	addSource := opts.AddSource || level.Level() <= slog.LevelDebug

	out, err := openOutputs(opts.Outputs)
	if err != nil {
		return nil, err
	}

	var handler slog.Handler
	switch format := strings.ToLower(strings.TrimSpace(opts.Format)); format {
	case "", "console":
		handler = newConsoleHandler(out, level, addSource)
	case "json":
		handler = newJSONHandler(out, level, addSource)
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}

	if path := strings.TrimSpace(opts.FilePath); path != "" {
		file, err := openLogFile(path)
		if err != nil {
			return nil, err
		}
		handler = newTeeHandler(handler, newJSONHandler(file, level, addSource))
	}
	handler = newStreamHandler(handler, opts.Stream)
	return slog.New(newContextHandler(handler, strings.TrimSpace(opts.SessionID))), nil
}

// NewFromConfig builds the process logger. Console output goes to stderr so
// command results on stdout stay pipeable; a JSON copy lands in a dated file
// under paths.log_dir.
func NewFromConfig(cfg *config.Config, sessionID string, hub *StreamHub) (*slog.Logger, error) {
	opts := Options{SessionID: sessionID, Stream: hub}
	if cfg != nil {
		opts.Level = cfg.Logging.Level
		opts.Format = cfg.Logging.Format
		if dir := strings.TrimSpace(cfg.Paths.LogDir); dir != "" {
			opts.FilePath = DailyLogPath(dir, time.Now())
		}
	}
	return New(opts)
}

// DailyLogPath returns the log file used for the day containing now.
func DailyLogPath(dir string, now time.Time) string {
	return filepath.Join(dir, logFilePrefix+now.Format("20060102")+".log")
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// openOutputs resolves output names to one writer, skipping duplicates.
func openOutputs(names []string) (io.Writer, error) {
	seen := make(map[string]bool, len(names))
	var writers []io.Writer
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		switch name {
		case "stdout":
			writers = append(writers, os.Stdout)
		case "stderr":
			writers = append(writers, os.Stderr)
		default:
			file, err := openLogFile(name)
			if err != nil {
				return nil, err
			}
			writers = append(writers, file)
		}
	}
	switch len(writers) {
	case 0:
		return os.Stderr, nil
	case 1:
		return writers[0], nil
	}
	return io.MultiWriter(writers...), nil
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure log directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o664)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	return file, nil
}

// newJSONHandler writes one object per line with "ts" in RFC3339 UTC and a
// lowercase level.
func newJSONHandler(w io.Writer, level slog.Leveler, addSource bool) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: addSource,
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			switch attr.Key {
			case slog.TimeKey:
				attr.Key = "ts"
				if attr.Value.Kind() == slog.KindTime {
					attr.Value = slog.StringValue(attr.Value.Time().UTC().Format(time.RFC3339))
				}
			case slog.LevelKey:
				attr.Value = slog.StringValue(strings.ToLower(attr.Value.String()))
			case slog.SourceKey:
				if src, ok := attr.Value.Any().(*slog.Source); ok && src != nil {
					attr.Value = slog.StringValue(fmt.Sprintf("%s:%d", filepath.Base(src.File), src.Line))
				}
			}
			return attr
		},
	})
}
