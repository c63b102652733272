// Package logging builds the process logger and reports failed side effects.
package logging

import (
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a JSON logger in production and a console logger otherwise.
func New(environment string) (*zap.Logger, error) {
	if environment == "production" {
		cfg := zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		return cfg.Build()
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return cfg.Build()
}

// InitSentry enables error capture when dsn is set. The returned flush
// function is safe to call either way.
func InitSentry(dsn, environment, release string) (func(), error) {
	if dsn == "" {
		return func() {}, nil
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: environment,
		Release:     release,
	}); err != nil {
		return func() {}, err
	}
	return func() { sentry.Flush(2 * time.Second) }, nil
}

// ReportSideEffect records a failure that must not fail the calling
// operation: notification writes, broadcasts and event publishes.
func ReportSideEffect(logger *zap.Logger, action string, err error, fields ...zap.Field) {
	if err == nil {
		return
	}
	logger.Warn(action+" failed", append(fields, zap.Error(err))...)

	hub := sentry.CurrentHub()
	if hub.Client() == nil {
		return
	}
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("side_effect", action)
		for _, f := range fields {
			if f.Type == zapcore.StringType {
				scope.SetTag(f.Key, f.String)
			}
		}
		hub.CaptureException(err)
	})
}
