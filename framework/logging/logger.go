// Package logging builds the application's zap logger. The text format is
// rendered through an Appender; json uses zap's own encoder.
package logging

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/km-arc/go-container/framework/config"
)

// New returns a logger for cfg writing to w (stderr when nil).
func New(cfg config.LogConfig, w io.Writer) (*zap.Logger, error) {
	if w == nil {
		w = os.Stderr
	}
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		l, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("logging: %w", err)
		}
		level = l
	}

	var core zapcore.Core
	switch cfg.Format {
	case "", "text":
		core = NewCore(NewOutput(w), level)
	case "json":
		core = zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), zapcore.AddSync(w), level)
	default:
		return nil, fmt.Errorf("logging: unknown format %q", cfg.Format)
	}
	return zap.New(core), nil
}
