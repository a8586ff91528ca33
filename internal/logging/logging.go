// Package logging builds the gateway's structured logger. Every
// request-scoped and saga-scoped logger is a child of the base logger
// built here, carrying extra fields via zap.With rather than ad-hoc
// string formatting.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a production-profile zap logger: JSON encoding, ISO8601
// timestamps, level-appropriate stack traces. Pass debug=true for a
// human-readable console encoder during local development.
func New(debug bool) (*zap.Logger, error) {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	return cfg.Build()
}

// ForRequest returns a child logger tagged with a request's correlation
// ID, for threading through a single HTTP request's handler chain.
func ForRequest(base *zap.Logger, requestID string) *zap.Logger {
	return base.With(zap.String("request_id", requestID))
}

// ForSaga returns a child logger tagged with the saga operation name
// and the reservation/book UID it operates on, for threading through
// ReserveBook/ReturnBook and their compensations.
func ForSaga(base *zap.Logger, operation, uid string) *zap.Logger {
	return base.With(zap.String("saga", operation), zap.String("uid", uid))
}
