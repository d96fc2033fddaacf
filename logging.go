package reckon

import (
	"sync/atomic"

	"go.uber.org/zap"
)

var baseLogger atomic.Pointer[zap.Logger]

func init() {
	baseLogger.Store(zap.NewNop())
}

// SetLogger sets the logger used by the package. Passing nil silences logging,
// which is also the default.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	baseLogger.Store(l)
}

func logger(name string) *zap.Logger {
	return baseLogger.Load().Named(name)
}
