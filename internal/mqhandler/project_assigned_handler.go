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

type ProjectAssignedHandler struct {
	notifier *service.Notifier
	deduper  *util.Deduper
	retries  *RetryGuard
	logger   *zap.Logger
}

func NewProjectAssignedHandler(notifier *service.Notifier, deduper *util.Deduper, retries *RetryGuard, logger *zap.Logger) *ProjectAssignedHandler {
	return &ProjectAssignedHandler{
		notifier: notifier,
		deduper:  deduper,
		retries:  retries,
		logger:   logger,
	}
}

func (h *ProjectAssignedHandler) Handle(ctx context.Context, raw json.RawMessage) error {
	var p mqcontracts.ProjectAssignedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.logger.Error("Failed to unmarshal ProjectAssignedPayload", zap.Error(err))
		// Malformed payloads never become valid on retry.
		return nil
	}

	eventKey := fmt.Sprintf("%d:%d", p.ProjectID, p.UserID)
	if !h.deduper.AcquireOnce(ctx, "project_assigned", eventKey) {
		return nil
	}

	h.logger.Info("Handling project.assigned event",
		zap.Int64("project_id", p.ProjectID),
		zap.Int64("user_id", p.UserID),
	)

	_, err := h.notifier.Notify(ctx, p.UserID,
		fmt.Sprintf("You have been assigned to project: %s", p.ProjectName),
		fmt.Sprintf("/projects/%d/", p.ProjectID),
	)
	if err != nil {
		return h.retries.check(ctx, "project_assigned", eventKey, err)
	}
	return nil
}
