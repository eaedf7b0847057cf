package core

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx/types"
	"github.com/shopspring/decimal"
)

type (
	// ScoreEvent a score changed message waiting to be dispatched
	ScoreEvent struct {
		ID             int64               `sql:"PRIMARY_KEY;AUTO_INCREMENT" json:"id,omitempty"`
		CreatedAt      time.Time           `json:"created_at,omitempty"`
		TraceID        string              `sql:"size:36" json:"trace_id,omitempty"`
		PointsPossible decimal.NullDecimal `sql:"type:varchar(32)" json:"points_possible"`
		PointsEarned   decimal.NullDecimal `sql:"type:varchar(32)" json:"points_earned"`
		UserID         *int64              `json:"user_id"`
		CourseID       string              `sql:"size:255" json:"course_id"`
		UsageID        string              `sql:"size:255" json:"usage_id"`
		Raw            types.JSONText      `sql:"type:TEXT" json:"-"`
		Attempts       int                 `json:"attempts,omitempty"`
		NextAttemptAt  time.Time           `json:"next_attempt_at,omitempty"`
		LastError      string              `sql:"size:255" json:"last_error,omitempty"`
	}

	// ScoreEventStore durable queue of score changed events
	ScoreEventStore interface {
		Publish(ctx context.Context, event *ScoreEvent) error
		ListDue(ctx context.Context, now time.Time, limit int) ([]*ScoreEvent, error)
		Reschedule(ctx context.Context, event *ScoreEvent) error
		Delete(ctx context.Context, event *ScoreEvent) error
	}

	// ScoreDispatcher delivers one score changed event to the consumers
	ScoreDispatcher interface {
		Dispatch(ctx context.Context, event *ScoreEvent) error
	}
)

// TableName gorm table name
func (ScoreEvent) TableName() string {
	return "lti_score_events"
}

// MissingFields returns the names of the required fields that are absent
func (e *ScoreEvent) MissingFields() []string {
	var missing []string
	if !e.PointsPossible.Valid {
		missing = append(missing, "points_possible")
	}
	if !e.PointsEarned.Valid {
		missing = append(missing, "points_earned")
	}
	if e.UserID == nil {
		missing = append(missing, "user_id")
	}
	if e.CourseID == "" {
		missing = append(missing, "course_id")
	}
	if e.UsageID == "" {
		missing = append(missing, "usage_id")
	}

	return missing
}
