package events

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ltiprovider/core"
	"ltiprovider/pkg/id"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type eventStore struct {
	published []*core.ScoreEvent
}

func (s *eventStore) Publish(ctx context.Context, event *core.ScoreEvent) error {
	if event.TraceID == "" {
		event.TraceID = id.GenTraceID()
	}
	s.published = append(s.published, event)
	return nil
}

func (s *eventStore) ListDue(ctx context.Context, now time.Time, limit int) ([]*core.ScoreEvent, error) {
	return nil, nil
}

func (s *eventStore) Reschedule(ctx context.Context, event *core.ScoreEvent) error { return nil }

func (s *eventStore) Delete(ctx context.Context, event *core.ScoreEvent) error { return nil }

func publish(events core.ScoreEventStore, body string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/score-events", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}

	w := httptest.NewRecorder()
	HandlePublish(events).ServeHTTP(w, req)
	return w
}

func TestHandlePublish(t *testing.T) {
	t.Run("accepted", func(t *testing.T) {
		store := &eventStore{}
		body := `{"points_possible":10,"points_earned":"3","user_id":42,"course_id":"course-v1:org+course+run","usage_id":"block-v1:org+course+run+type@problem+block@3"}`
		w := publish(store, body, nil)
		require.Equal(t, http.StatusAccepted, w.Code)
		require.Len(t, store.published, 1)

		event := store.published[0]
		assert.Equal(t, "10", event.PointsPossible.Decimal.String())
		assert.Equal(t, "3", event.PointsEarned.Decimal.String())
		require.NotNil(t, event.UserID)
		assert.EqualValues(t, 42, *event.UserID)
		assert.Equal(t, "course-v1:org+course+run", event.CourseID)
		assert.JSONEq(t, body, event.Raw.String())

		var resp map[string]string
		require.Nil(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, event.TraceID, resp["trace_id"])
	})

	t.Run("string user id", func(t *testing.T) {
		store := &eventStore{}
		w := publish(store, `{"points_possible":1,"points_earned":1,"user_id":"7","course_id":"a/b/c","usage_id":"i4x://a/b/problem/c"}`, nil)
		require.Equal(t, http.StatusAccepted, w.Code)
		require.Len(t, store.published, 1)
		assert.EqualValues(t, 7, *store.published[0].UserID)
	})

	t.Run("idempotency key", func(t *testing.T) {
		store := &eventStore{}
		body := `{"points_possible":1,"points_earned":0,"user_id":1,"course_id":"a/b/c","usage_id":"i4x://a/b/problem/c"}`
		header := http.Header{"Idempotency-Key": {"score-1"}}

		publish(store, body, header)
		publish(store, body, header)
		require.Len(t, store.published, 2)
		assert.Equal(t, id.TraceIDFrom("score-1"), store.published[0].TraceID)
		assert.Equal(t, store.published[0].TraceID, store.published[1].TraceID)
	})

	for name, body := range map[string]string{
		"points_possible": `{"points_earned":1,"user_id":1,"course_id":"a/b/c","usage_id":"i4x://a/b/problem/c"}`,
		"points_earned":   `{"points_possible":1,"user_id":1,"course_id":"a/b/c","usage_id":"i4x://a/b/problem/c"}`,
		"user_id":         `{"points_possible":1,"points_earned":1,"user_id":"nobody","course_id":"a/b/c","usage_id":"i4x://a/b/problem/c"}`,
		"course_id":       `{"points_possible":1,"points_earned":1,"user_id":1,"usage_id":"i4x://a/b/problem/c"}`,
		"usage_id":        `{"points_possible":1,"points_earned":1,"user_id":1,"course_id":"a/b/c"}`,
	} {
		body := body
		t.Run("missing "+name, func(t *testing.T) {
			store := &eventStore{}
			w := publish(store, body, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Empty(t, store.published)

			var resp map[string]interface{}
			require.Nil(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.EqualValues(t, core.ErrInvalidScoreEvent, resp["code"])
		})
	}

	t.Run("body too large", func(t *testing.T) {
		store := &eventStore{}
		body := `{"points_possible":1,"points_earned":1,"user_id":1,"course_id":"a/b/c","usage_id":"i4x://a/b/problem/c","extra":"` +
			strings.Repeat("x", maxBodySize) + `"}`
		w := publish(store, body, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Empty(t, store.published)
	})

	t.Run("malformed", func(t *testing.T) {
		store := &eventStore{}
		w := publish(store, `{"points_possible":`, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Empty(t, store.published)
	})
}
