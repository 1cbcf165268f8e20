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

type DesignUploadedHandler struct {
	notifier *service.Notifier
	deduper  *util.Deduper
	retries  *RetryGuard
	logger   *zap.Logger
}

func NewDesignUploadedHandler(notifier *service.Notifier, deduper *util.Deduper, retries *RetryGuard, logger *zap.Logger) *DesignUploadedHandler {
	return &DesignUploadedHandler{
		notifier: notifier,
		deduper:  deduper,
		retries:  retries,
		logger:   logger,
	}
}

func (h *DesignUploadedHandler) Handle(ctx context.Context, raw json.RawMessage) error {
	var p mqcontracts.DesignUploadedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.logger.Error("Failed to unmarshal DesignUploadedPayload", zap.Error(err))
		return nil
	}

	eventKey := fmt.Sprintf("%d:%d", p.ProjectID, p.Version)
	if !h.deduper.AcquireOnce(ctx, "design_uploaded", eventKey) {
		return nil
	}

	h.logger.Info("Handling design.uploaded event",
		zap.Int64("project_id", p.ProjectID),
		zap.Int("version", p.Version),
		zap.Int64("user_id", p.UserID),
	)

	_, err := h.notifier.Notify(ctx, p.UserID,
		fmt.Sprintf("New design uploaded - %s (v%d)", p.ProjectName, p.Version),
		fmt.Sprintf("/design/%d/detail/", p.ProjectID),
	)
	if err != nil {
		return h.retries.check(ctx, "design_uploaded", eventKey, err)
	}
	return nil
}
