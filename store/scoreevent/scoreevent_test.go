package scoreevent

import (
	"context"
	"testing"
	"time"

	"ltiprovider/core"

	"github.com/fox-one/pkg/store/db"
	"github.com/jmoiron/sqlx/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDB(t *testing.T) *db.DB {
	dbs, err := db.Open(db.SqliteInMemory())
	require.Nil(t, err)
	t.Cleanup(func() { _ = dbs.Close() })

	dbs.Update().DB().SetMaxOpenConns(1)

	require.Nil(t, db.Migrate(dbs))
	return dbs
}

func newEvent(traceID string) *core.ScoreEvent {
	userID := int64(42)
	return &core.ScoreEvent{
		TraceID:        traceID,
		PointsPossible: decimal.NewNullDecimal(decimal.NewFromInt(10)),
		PointsEarned:   decimal.NewNullDecimal(decimal.NewFromInt(3)),
		UserID:         &userID,
		CourseID:       "course-v1:org+course+run",
		UsageID:        "block-v1:org+course+run+type@problem+block@3",
		Raw:            types.JSONText(`{"points_earned":3}`),
	}
}

func TestScoreEventStore(t *testing.T) {
	ctx := context.Background()
	s := New(newDB(t))

	require.Nil(t, s.Publish(ctx, newEvent("trace-1")))
	// publisher retry
	require.Nil(t, s.Publish(ctx, newEvent("trace-1")))
	require.Nil(t, s.Publish(ctx, newEvent("")))

	now := time.Now().Add(time.Second)
	events, err := s.ListDue(ctx, now, 10)
	require.Nil(t, err)
	require.Len(t, events, 2)

	first := events[0]
	assert.Equal(t, "trace-1", first.TraceID)
	assert.NotEmpty(t, events[1].TraceID)
	assert.True(t, first.PointsEarned.Valid)
	assert.Equal(t, "3", first.PointsEarned.Decimal.String())
	assert.Equal(t, "10", first.PointsPossible.Decimal.String())
	require.NotNil(t, first.UserID)
	assert.Equal(t, int64(42), *first.UserID)
	assert.JSONEq(t, `{"points_earned":3}`, first.Raw.String())

	t.Run("limit", func(t *testing.T) {
		events, err := s.ListDue(ctx, now, 1)
		require.Nil(t, err)
		assert.Len(t, events, 1)
	})

	t.Run("reschedule", func(t *testing.T) {
		first.Attempts++
		first.NextAttemptAt = now.Add(time.Hour)
		first.LastError = "timeout"
		require.Nil(t, s.Reschedule(ctx, first))

		events, err := s.ListDue(ctx, now, 10)
		require.Nil(t, err)
		require.Len(t, events, 1)
		assert.NotEqual(t, first.ID, events[0].ID)

		events, err = s.ListDue(ctx, now.Add(2*time.Hour), 10)
		require.Nil(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, 1, events[0].Attempts)
		assert.Equal(t, "timeout", events[0].LastError)
	})

	t.Run("delete", func(t *testing.T) {
		require.Nil(t, s.Delete(ctx, first))

		events, err := s.ListDue(ctx, now.Add(2*time.Hour), 10)
		require.Nil(t, err)
		require.Len(t, events, 1)
		assert.NotEqual(t, first.ID, events[0].ID)
	})
}
