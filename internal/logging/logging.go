// Package logging builds the process zap logger: a console or JSON encoder
// on stderr, optionally teed to a size-rotated log file.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures New.
type Options struct {
	Level string
	JSON  bool
	// File, when set, receives JSON logs rotated by size.
	File       string
	NoTerminal bool
	Rotation   Rotation
	// Output replaces stderr as the terminal sink. Used by tests.
	Output io.Writer
}

// Rotation bounds the log file.
type Rotation struct {
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// DefaultRotation keeps five 128 MB files for sixteen days.
func DefaultRotation() Rotation {
	return Rotation{MaxSizeMB: 128, MaxBackups: 5, MaxAgeDays: 16}
}

// New builds a logger and returns the AtomicLevel controlling it, so the
// level can be changed while the process runs.
func New(opts Options) (*zap.Logger, zap.AtomicLevel, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, zap.AtomicLevel{}, err
	}
	atom := zap.NewAtomicLevelAt(level)

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var cores []zapcore.Core
	if !opts.NoTerminal || opts.File == "" {
		out := opts.Output
		if out == nil {
			out = os.Stderr
		}
		var enc zapcore.Encoder
		if opts.JSON {
			enc = zapcore.NewJSONEncoder(encCfg)
		} else {
			consoleCfg := encCfg
			consoleCfg.EncodeLevel = zapcore.CapitalLevelEncoder
			enc = zapcore.NewConsoleEncoder(consoleCfg)
		}
		cores = append(cores, zapcore.NewCore(enc, zapcore.AddSync(out), atom))
	}
	if opts.File != "" {
		rot := opts.Rotation
		if rot.MaxSizeMB == 0 {
			rot = DefaultRotation()
		}
		file := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    rot.MaxSizeMB,
			MaxBackups: rot.MaxBackups,
			MaxAge:     rot.MaxAgeDays,
			Compress:   rot.Compress,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(file), atom))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller()), atom, nil
}

// ParseLevel parses a level name. An empty name is info.
func ParseLevel(s string) (zapcore.Level, error) {
	if strings.TrimSpace(s) == "" {
		return zapcore.InfoLevel, nil
	}
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(s)))); err != nil {
		return level, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}
