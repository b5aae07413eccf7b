package logger

import (
	"go.uber.org/zap"
)

// Audit receives free-text payment diagnostics (debug traces, rejected
// notifications). Calls never fail and never panic into the caller.
type Audit struct {
	log *zap.Logger
}

// NewAudit returns an Audit writing to l, or to the global logger when l is nil.
func NewAudit(l *zap.Logger) *Audit {
	return &Audit{log: l}
}

func (a *Audit) Warn(message string) {
	defer func() {
		_ = recover()
	}()

	l := a.log
	if l == nil {
		l = L()
	}
	l.Named("payment.audit").Warn(message)
}
