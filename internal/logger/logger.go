package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

// Default rotation parameters (lumberjack semantics).
const (
	DefaultMaxSizeMB  = 10 // MB
	DefaultMaxBackups = 3  // number of backup files
	DefaultMaxAgeDays = 7  // days
)

// FileConfig is a rotating sink for the supervisor's own log output.
type FileConfig struct {
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// Config is the unified logging configuration: slog settings for the
// supervisor itself plus stdio destinations for the supervised child.
//
// Child stdio is redirected to plain append-mode files, not through the
// rotating writer: the child outlives the supervisor invocation, so its
// output must go to file descriptors it owns, never through a pipe into
// this process.
type Config struct {
	Level string     `mapstructure:"level"` // debug, info, warn, error
	Color bool       `mapstructure:"color"` // colorize level names on stderr
	File  FileConfig `mapstructure:"file"`

	ChildDir    string `mapstructure:"child_dir"`    // directory for child stdio logs
	ChildStdout string `mapstructure:"child_stdout"` // explicit stdout path, overrides ChildDir
	ChildStderr string `mapstructure:"child_stderr"` // explicit stderr path, overrides ChildDir
}

// NewLogger builds the supervisor's own *slog.Logger. Output goes to
// stderr, duplicated into a lumberjack-rotated file when File.Path is set.
func (c Config) NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.slogLevel()}
	if c.File.Path != "" {
		rot := &lj.Logger{
			Filename:   c.File.Path,
			MaxSize:    valOr(c.File.MaxSizeMB, DefaultMaxSizeMB),
			MaxBackups: valOr(c.File.MaxBackups, DefaultMaxBackups),
			MaxAge:     valOr(c.File.MaxAgeDays, DefaultMaxAgeDays),
			Compress:   c.File.Compress,
		}
		// no ANSI colors when a file sink is involved
		return slog.New(slog.NewTextHandler(io.MultiWriter(os.Stderr, rot), opts))
	}
	if c.Color {
		return slog.New(NewColorTextHandler(os.Stderr, opts, true))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func (c Config) slogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.Level)) {
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

// ChildStdio opens append-mode stdout/stderr files for the named service.
// If ChildStdout/ChildStderr are empty and ChildDir is set, files will be
// ChildDir/<name>.stdout.log and ChildDir/<name>.stderr.log. Both returned
// files are nil when nothing is configured; the caller falls back to the
// null device.
func (c Config) ChildStdio(name string) (*os.File, *os.File, error) {
	stdout := c.ChildStdout
	stderr := c.ChildStderr
	if stdout == "" && c.ChildDir != "" {
		stdout = filepath.Join(c.ChildDir, fmt.Sprintf("%s.stdout.log", name))
	}
	if stderr == "" && c.ChildDir != "" {
		stderr = filepath.Join(c.ChildDir, fmt.Sprintf("%s.stderr.log", name))
	}
	if stdout == "" && stderr == "" {
		return nil, nil, nil
	}
	var outF, errF *os.File
	var err error
	if stdout != "" {
		if err = os.MkdirAll(filepath.Dir(stdout), 0o750); err != nil {
			return nil, nil, err
		}
		outF, err = os.OpenFile(stdout, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, err
		}
	}
	if stderr != "" {
		if err = os.MkdirAll(filepath.Dir(stderr), 0o750); err != nil {
			closeIfOpen(outF)
			return nil, nil, err
		}
		errF, err = os.OpenFile(stderr, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			closeIfOpen(outF)
			return nil, nil, err
		}
	}
	return outF, errF, nil
}

func closeIfOpen(f *os.File) {
	if f != nil {
		_ = f.Close()
	}
}

func valOr(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
