package logging

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/eugenenazirov/container-scaffold/internal/network"
)

// NoRemoteAddr is logged when there is no request in scope.
const NoRemoteAddr = "-"

// New creates a production-ready structured logger configured for JSON output.
func New() (*zap.Logger, error) {
	return NewAtLevel("info")
}

// NewAtLevel is New with a minimum level such as "debug" or "warn".
func NewAtLevel(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.StacktraceKey = "stacktrace"
	cfg.DisableStacktrace = false

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}

// RemoteAddr returns the client address of r, or NoRemoteAddr when r is nil.
func RemoteAddr(r *http.Request) string {
	if r == nil {
		return NoRemoteAddr
	}
	return network.RemoteAddr(r)
}

// RemoteAddrField returns the remote_addr field for r. A non-empty preset
// address is used as-is.
func RemoteAddrField(r *http.Request, preset string) zap.Field {
	if preset != "" {
		return zap.String("remote_addr", preset)
	}
	return zap.String("remote_addr", RemoteAddr(r))
}
