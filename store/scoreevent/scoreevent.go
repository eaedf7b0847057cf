package scoreevent

import (
	"context"
	"time"

	"ltiprovider/core"
	"ltiprovider/pkg/id"
	lstore "ltiprovider/store"

	"github.com/fox-one/pkg/logger"
	"github.com/fox-one/pkg/store/db"
)

type scoreEventStore struct {
	db *db.DB
}

// New new score event store
func New(db *db.DB) core.ScoreEventStore {
	return &scoreEventStore{
		db: db,
	}
}

func init() {
	db.RegisterMigrate(func(db *db.DB) error {
		tx := db.Update().Model(core.ScoreEvent{})

		if err := tx.AutoMigrate(core.ScoreEvent{}).Error; err != nil {
			return err
		}

		if err := tx.AddUniqueIndex("idx_lti_score_events_trace", "trace_id").Error; err != nil {
			return err
		}

		if err := tx.AddIndex("idx_lti_score_events_due", "next_attempt_at").Error; err != nil {
			return err
		}

		return nil
	})
}

// Publish enqueues the event. Publishing a trace id twice keeps the first event.
func (s *scoreEventStore) Publish(ctx context.Context, event *core.ScoreEvent) error {
	if event.TraceID == "" {
		event.TraceID = id.GenTraceID()
	}

	if event.NextAttemptAt.IsZero() {
		event.NextAttemptAt = time.Now()
	}
	event.NextAttemptAt = event.NextAttemptAt.UTC()

	if err := s.db.Update().Create(event).Error; err != nil {
		if !lstore.IsErrUniqueViolation(err) {
			return err
		}

		logger.FromContext(ctx).WithField("trace_id", event.TraceID).Debugln("score event already published")
	}

	return nil
}

func (s *scoreEventStore) ListDue(ctx context.Context, now time.Time, limit int) ([]*core.ScoreEvent, error) {
	var events []*core.ScoreEvent
	if err := s.db.View().
		Where("next_attempt_at <= ?", now.UTC()).
		Order("id").
		Limit(limit).
		Find(&events).Error; err != nil {
		return nil, err
	}

	return events, nil
}

// Reschedule persists the attempt bookkeeping set by the caller
func (s *scoreEventStore) Reschedule(ctx context.Context, event *core.ScoreEvent) error {
	event.NextAttemptAt = event.NextAttemptAt.UTC()
	return s.db.Update().Model(event).Updates(map[string]interface{}{
		"attempts":        event.Attempts,
		"next_attempt_at": event.NextAttemptAt,
		"last_error":      event.LastError,
	}).Error
}

func (s *scoreEventStore) Delete(ctx context.Context, event *core.ScoreEvent) error {
	return s.db.Update().Where("id = ?", event.ID).Delete(core.ScoreEvent{}).Error
}
