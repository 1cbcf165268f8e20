package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"pmsboard/internal/model"
	"pmsboard/pkg/metrics"
)

// PostgresEventStore persists events in the events table. Ids come from the
// bigserial column, so they are monotonic across all writers sharing the pool.
type PostgresEventStore struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewPostgresEventStore(db *pgxpool.Pool, logger *zap.Logger) *PostgresEventStore {
	return &PostgresEventStore{db: db, logger: logger}
}

func (s *PostgresEventStore) Insert(ctx context.Context, evt *model.Event) error {
	s.logger.Debug("Inserting event",
		zap.String("kind", string(evt.Kind)),
		zap.String("topic", evt.Topic),
	)
	start := time.Now()

	query := `
        INSERT INTO events (kind, recipient_id, sender_id, topic, message, link)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at
    `
	err := s.db.QueryRow(ctx, query,
		evt.Kind,
		evt.RecipientID,
		evt.SenderID,
		evt.Topic,
		evt.Message,
		evt.Link,
	).Scan(&evt.ID, &evt.CreatedAt)
	if err != nil {
		s.logger.Error("Failed to insert event",
			zap.String("topic", evt.Topic),
			zap.Error(err),
		)
		return &StorageError{Op: "insert", Err: err}
	}

	metrics.RecordDBQueryDuration("insert_event", time.Since(start))
	s.logger.Info("Event inserted successfully",
		zap.Int64("event_id", evt.ID),
		zap.String("topic", evt.Topic),
	)
	return nil
}

func (s *PostgresEventStore) UnreadForUser(ctx context.Context, userID int64) ([]model.Event, error) {
	s.logger.Debug("Listing unread events", zap.Int64("user_id", userID))
	start := time.Now()

	query := `
        SELECT id, kind, recipient_id, sender_id, topic, message, link, is_read, created_at
        FROM events
        WHERE recipient_id = $1 AND is_read = FALSE
        ORDER BY created_at DESC, id DESC
    `
	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		s.logger.Error("Failed to query unread events",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
		return nil, &StorageError{Op: "unread_for_user", Err: err}
	}
	defer rows.Close()

	events := []model.Event{}
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(
			&e.ID,
			&e.Kind,
			&e.RecipientID,
			&e.SenderID,
			&e.Topic,
			&e.Message,
			&e.Link,
			&e.IsRead,
			&e.CreatedAt,
		); err != nil {
			s.logger.Error("Failed to scan event row",
				zap.Int64("user_id", userID),
				zap.Error(err),
			)
			return nil, &StorageError{Op: "unread_for_user", Err: err}
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: "unread_for_user", Err: err}
	}

	metrics.RecordDBQueryDuration("unread_for_user", time.Since(start))
	return events, nil
}

func (s *PostgresEventStore) MarkRead(ctx context.Context, eventID, userID int64) error {
	s.logger.Debug("Marking event as read",
		zap.Int64("event_id", eventID),
		zap.Int64("user_id", userID),
	)
	start := time.Now()

	// Ownership check lives in the WHERE clause. Zero rows affected means
	// already read, missing, or foreign-owned and all of those are no-ops.
	query := `
        UPDATE events
        SET is_read = TRUE
        WHERE id = $1 AND recipient_id = $2
    `
	result, err := s.db.Exec(ctx, query, eventID, userID)
	if err != nil {
		s.logger.Error("Failed to mark event as read",
			zap.Int64("event_id", eventID),
			zap.Error(err),
		)
		return &StorageError{Op: "mark_read", Err: err}
	}

	metrics.RecordDBQueryDuration("mark_read", time.Since(start))
	s.logger.Info("Event marked as read",
		zap.Int64("event_id", eventID),
		zap.Int64("user_id", userID),
		zap.Int64("rows_affected", result.RowsAffected()),
	)
	return nil
}

func (s *PostgresEventStore) LatestAnnouncement(ctx context.Context) (*model.Event, error) {
	start := time.Now()

	query := `
        SELECT id, kind, recipient_id, sender_id, topic, message, link, is_read, created_at
        FROM events
        WHERE topic = $1
        ORDER BY created_at DESC, id DESC
        LIMIT 1
    `
	var e model.Event
	err := s.db.QueryRow(ctx, query, model.TopicAnnouncements).Scan(
		&e.ID,
		&e.Kind,
		&e.RecipientID,
		&e.SenderID,
		&e.Topic,
		&e.Message,
		&e.Link,
		&e.IsRead,
		&e.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		s.logger.Error("Failed to query latest announcement", zap.Error(err))
		return nil, &StorageError{Op: "latest_announcement", Err: err}
	}

	metrics.RecordDBQueryDuration("latest_announcement", time.Since(start))
	return &e, nil
}

func (s *PostgresEventStore) RecentAnnouncements(ctx context.Context, limit int) ([]model.Event, error) {
	start := time.Now()

	query := `
        SELECT id, kind, recipient_id, sender_id, topic, message, link, is_read, created_at
        FROM events
        WHERE topic = $1
        ORDER BY created_at DESC, id DESC
        LIMIT $2
    `
	rows, err := s.db.Query(ctx, query, model.TopicAnnouncements, limit)
	if err != nil {
		s.logger.Error("Failed to query recent announcements", zap.Error(err))
		return nil, &StorageError{Op: "recent_announcements", Err: err}
	}
	defer rows.Close()

	events := []model.Event{}
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(
			&e.ID,
			&e.Kind,
			&e.RecipientID,
			&e.SenderID,
			&e.Topic,
			&e.Message,
			&e.Link,
			&e.IsRead,
			&e.CreatedAt,
		); err != nil {
			return nil, &StorageError{Op: "recent_announcements", Err: err}
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: "recent_announcements", Err: err}
	}

	metrics.RecordDBQueryDuration("recent_announcements", time.Since(start))
	return events, nil
}

func (s *PostgresEventStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}
