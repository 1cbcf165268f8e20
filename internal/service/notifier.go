package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"pmsboard/internal/model"
	"pmsboard/internal/repository"
	"pmsboard/pkg/metrics"
)

// Publisher pushes an envelope to the current subscribers of a topic.
// Delivery is best-effort; failures stay inside the publisher.
type Publisher interface {
	Publish(ctx context.Context, topic string, env model.Envelope)
}

// Notifier is the write side of the notification core: append the event to
// the store, then push it to whoever is listening. The append always
// happens before the publish, so a live push never references an event that
// a poll of the store could miss.
type Notifier struct {
	store  repository.EventStore
	broker Publisher
	logger *zap.Logger
}

func NewNotifier(store repository.EventStore, broker Publisher, logger *zap.Logger) *Notifier {
	return &Notifier{
		store:  store,
		broker: broker,
		logger: logger,
	}
}

// Notify records a notification for recipientID and pushes it on the user's
// private topic. A storage failure aborts the push and propagates; a push
// failure is invisible here and the event is still durably stored.
func (n *Notifier) Notify(ctx context.Context, recipientID int64, message, link string) (*model.Event, error) {
	evt := &model.Event{
		Kind:        model.KindNotification,
		RecipientID: &recipientID,
		Topic:       model.UserTopic(recipientID),
		Message:     message,
		Link:        link,
	}

	if err := n.store.Insert(ctx, evt); err != nil {
		n.logger.Error("Failed to store notification",
			zap.Int64("recipient_id", recipientID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("notify: %w", err)
	}
	metrics.RecordEventStored(string(model.KindNotification))

	n.broker.Publish(ctx, evt.Topic, evt.Envelope())

	n.logger.Info("Notification stored and published",
		zap.Int64("event_id", evt.ID),
		zap.Int64("recipient_id", recipientID),
	)
	return evt, nil
}

// Announce records an HR announcement and pushes it on the shared topic.
// Role enforcement happens in the calling layer; the core only records who
// sent it.
func (n *Notifier) Announce(ctx context.Context, senderID int64, content string) (*model.Event, error) {
	evt := &model.Event{
		Kind:     model.KindAnnouncement,
		SenderID: &senderID,
		Topic:    model.TopicAnnouncements,
		Message:  content,
	}

	if err := n.store.Insert(ctx, evt); err != nil {
		n.logger.Error("Failed to store announcement",
			zap.Int64("sender_id", senderID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("announce: %w", err)
	}
	metrics.RecordEventStored(string(model.KindAnnouncement))

	n.broker.Publish(ctx, evt.Topic, evt.Envelope())

	n.logger.Info("Announcement stored and published",
		zap.Int64("event_id", evt.ID),
		zap.Int64("sender_id", senderID),
	)
	return evt, nil
}
