// Package logging builds the process logger.
//
// Logs go to a writer chosen by the caller (stderr in the CLI) so that
// stdout carries nothing but the account report.
package logging

import (
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Format selects the encoder.
type Format string

const (
	FormatJSON    Format = "json"
	FormatConsole Format = "console"
)

// Config contains the logger inputs.
type Config struct {
	Level  string // debug, info, warn, error; empty means info
	Format Format // empty means json
}

func (c Config) validate() error {
	switch c.Format {
	case "", FormatJSON, FormatConsole:
		return nil
	default:
		return fmt.Errorf("invalid log format %q", c.Format)
	}
}

// New creates a structured logger writing to w.
func New(cfg Config, w io.Writer) (*zap.Logger, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid logging config: %w", err)
	}

	level, err := resolveLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	core := zapcore.NewCore(buildEncoder(cfg.Format), zapcore.Lock(zapcore.AddSync(w)), level)
	return zap.New(core, zap.AddCaller()), nil
}

func resolveLevel(raw string) (zap.AtomicLevel, error) {
	if strings.TrimSpace(raw) == "" {
		return zap.NewAtomicLevelAt(zapcore.InfoLevel), nil
	}

	var parsed zapcore.Level
	if err := parsed.Set(strings.TrimSpace(raw)); err != nil {
		return zap.AtomicLevel{}, fmt.Errorf("invalid log level %q: %w", raw, err)
	}
	return zap.NewAtomicLevelAt(parsed), nil
}

func buildEncoder(format Format) zapcore.Encoder {
	if format == FormatConsole {
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return zapcore.NewConsoleEncoder(cfg)
	}

	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewJSONEncoder(cfg)
}
