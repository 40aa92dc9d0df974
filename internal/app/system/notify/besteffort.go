package notify

import (
	"github.com/dalemusser/teamhub/internal/app/system/metrics"
	"go.uber.org/zap"
)

// BestEffort is the policy for side effects that must never fail the primary
// operation they accompany: a non-nil err is logged, counted and discarded.
// It reports whether the side effect succeeded.
func BestEffort(log *zap.Logger, op string, err error, fields ...zap.Field) bool {
	if err == nil {
		return true
	}
	metrics.SideEffectFailures.WithLabelValues(op).Inc()
	if log != nil {
		log.Warn("best-effort side effect failed",
			append([]zap.Field{zap.String("op", op), zap.Error(err)}, fields...)...)
	}
	return false
}
