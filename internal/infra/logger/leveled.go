package logger

import (
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

var _ retryablehttp.LeveledLogger = Leveled{}

// Leveled routes retryablehttp's key/value logging into zap.
type Leveled struct {
	s *zap.SugaredLogger
}

// NewLeveled wraps l; a nil l discards everything.
func NewLeveled(l *zap.Logger) Leveled {
	if l == nil {
		l = zap.NewNop()
	}
	return Leveled{s: l.Sugar()}
}

func (l Leveled) Error(msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, keysAndValues...)
}

func (l Leveled) Info(msg string, keysAndValues ...interface{}) {
	l.s.Infow(msg, keysAndValues...)
}

// Debug covers the per-request lines retryablehttp emits.
func (l Leveled) Debug(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l Leveled) Warn(msg string, keysAndValues ...interface{}) {
	l.s.Warnw(msg, keysAndValues...)
}
