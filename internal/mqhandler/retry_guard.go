package mqhandler

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"pmsboard/pkg/util"
)

// RetryGuard caps how often a failing event is requeued. Returning the error
// nacks the message back onto the queue; once the cap is hit the event is
// dropped so a poisoned message cannot loop forever.
type RetryGuard struct {
	counter *util.RetryCounter
	max     int64
	logger  *zap.Logger
}

func NewRetryGuard(counter *util.RetryCounter, max int64, logger *zap.Logger) *RetryGuard {
	return &RetryGuard{counter: counter, max: max, logger: logger}
}

func (g *RetryGuard) check(ctx context.Context, handler, eventKey string, cause error) error {
	if g == nil || g.counter == nil {
		return cause
	}

	key := fmt.Sprintf("retry:%s:%s", handler, eventKey)
	count, err := g.counter.IncrementAndGet(ctx, key)
	if err != nil {
		g.logger.Warn("Retry counter unavailable, requeueing",
			zap.String("handler", handler),
			zap.Error(err),
		)
		return cause
	}

	if count > g.max {
		g.logger.Error("Dropping event after max retries",
			zap.String("handler", handler),
			zap.String("event_key", eventKey),
			zap.Int64("attempts", count),
			zap.Error(cause),
		)
		return nil
	}
	return cause
}
