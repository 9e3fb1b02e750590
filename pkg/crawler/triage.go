package crawler

import (
	"errors"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/loltools/riftcrawl/pkg/riotapi"
)

// triage classifies a worker error and logs it at the matching level.
// It always returns; the worker continues and the popped item is
// dropped. There is no per-item retry queue.
func triage(logger *zap.Logger, op string, err error, fields ...zap.Field) {
	if err == nil {
		return
	}

	switch {
	case riotapi.IsClientError(err):
		logger.Warn("api client error", append(fields, zap.String("op", op), zap.Error(err))...)
	case riotapi.IsServerError(err):
		logger.Warn("api server error", append(fields, zap.String("op", op), zap.Error(err))...)
	case isAPIError(err):
		logger.Error("api error", append(fields, zap.String("op", op), zap.Error(err))...)
	case riotapi.IsTransportError(err):
		logger.Error("transport error", append(fields, zap.String("op", op), zap.Error(err))...)
	default:
		logger.WithOptions(zap.AddStacktrace(zapcore.ErrorLevel)).
			Error("unclassified error", append(fields, zap.String("op", op), zap.Error(err))...)
	}
}

func isAPIError(err error) bool {
	var ae *riotapi.APIError
	return errors.As(err, &ae)
}
