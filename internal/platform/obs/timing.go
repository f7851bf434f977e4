package obs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type ctxKey string

const RequestIDKey ctxKey = "req_id"

// Time the operation until the returned func runs. Pass a pointer to the
// caller's named error so failures are logged with it.
func Time(ctx context.Context, logger *zap.Logger, name string) func(errp *error) {
	start := time.Now()
	if logger == nil {
		logger = zap.NewNop()
	}

	reqID, _ := ctx.Value(RequestIDKey).(string)

	return func(errp *error) {
		fields := []zap.Field{
			zap.String("req_id", reqID),
			zap.String("op", name),
			zap.Int64("dur_ms", time.Since(start).Milliseconds()),
		}

		if errp != nil && *errp != nil {
			logger.Error("operation failed", append(fields, zap.Error(*errp))...)
			return
		}
		logger.Info("operation complete", fields...)
	}
}
