package mqhandler

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	mqcontracts "pmsboard/contracts/mq"
	"pmsboard/internal/service"
	"pmsboard/pkg/util"
)

type TaskAssignedHandler struct {
	notifier *service.Notifier
	deduper  *util.Deduper
	retries  *RetryGuard
	logger   *zap.Logger
}

func NewTaskAssignedHandler(notifier *service.Notifier, deduper *util.Deduper, retries *RetryGuard, logger *zap.Logger) *TaskAssignedHandler {
	return &TaskAssignedHandler{
		notifier: notifier,
		deduper:  deduper,
		retries:  retries,
		logger:   logger,
	}
}

func (h *TaskAssignedHandler) Handle(ctx context.Context, raw json.RawMessage) error {
	var p mqcontracts.TaskAssignedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.logger.Error("Failed to unmarshal TaskAssignedPayload", zap.Error(err))
		return nil
	}

	eventKey := fmt.Sprintf("%d:%d", p.TaskID, p.UserID)
	if !h.deduper.AcquireOnce(ctx, "task_assigned", eventKey) {
		return nil
	}

	h.logger.Info("Handling task.assigned event",
		zap.Int64("task_id", p.TaskID),
		zap.Int64("user_id", p.UserID),
	)

	_, err := h.notifier.Notify(ctx, p.UserID,
		fmt.Sprintf("New task assigned: %s", p.Title),
		fmt.Sprintf("/tasks/%d/", p.TaskID),
	)
	if err != nil {
		return h.retries.check(ctx, "task_assigned", eventKey, err)
	}
	return nil
}
