// Package logging provides the structured logger the storage core writes
// operational events through: lock retries and aborts, page eviction,
// transaction commit/abort, and table statistics computation. It is a thin wrapper
// around zap's sugared logger so callers write printf-style calls without
// pulling zap's field-builder API into every package that wants to log.
package logging

import "go.uber.org/zap"

// Logger is the sugared zap logger every storage-core component accepts.
// Using the concrete sugared type (rather than an interface of our own)
// keeps call sites able to use Infow/Errorw's structured key-value pairs
// directly.
type Logger = *zap.SugaredLogger

// New builds a Logger appropriate for the given environment: development
// loggers are human-readable and include caller info, production loggers
// emit structured JSON suited to log aggregation.
func New(development bool) (Logger, error) {
	var base *zap.Logger
	var err error
	if development {
		base, err = zap.NewDevelopment()
	} else {
		base, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	return base.Sugar(), nil
}

// Nop returns a Logger that discards everything it's given. Used as the
// default so components never need to nil-check their logger field.
func Nop() Logger {
	return zap.NewNop().Sugar()
}
