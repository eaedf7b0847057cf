package events

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"ltiprovider/core"
	"ltiprovider/handler/codes"
	"ltiprovider/handler/param"
	"ltiprovider/handler/render"
	"ltiprovider/pkg/id"

	"github.com/fox-one/pkg/logger"
	"github.com/jmoiron/sqlx/types"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"
	"github.com/twitchtv/twirp"
)

const (
	idempotencyKeyHeader = "Idempotency-Key"
	maxBodySize          = 1 << 16
)

type scoreChanged struct {
	PointsPossible decimal.NullDecimal `json:"points_possible"`
	PointsEarned   decimal.NullDecimal `json:"points_earned"`
	UserID         interface{}         `json:"user_id"`
	CourseID       string              `json:"course_id"`
	UsageID        string              `json:"usage_id"`
}

// HandlePublish enqueues a score changed event. Retried requests carrying the
// same Idempotency-Key are enqueued once.
func HandlePublish(events core.ScoreEventStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		log := logger.FromContext(ctx)

		raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
		if err != nil {
			render.Error(w, codes.With(twirp.NewError(twirp.Malformed, err.Error()), core.ErrInvalidScoreEvent))
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(raw))

		var body scoreChanged
		if err := param.Binding(r, &body); err != nil {
			log.WithError(err).Errorln("Outcome Service: malformed score changed event")
			render.Error(w, codes.With(err, core.ErrInvalidScoreEvent))
			return
		}

		event := &core.ScoreEvent{
			PointsPossible: body.PointsPossible,
			PointsEarned:   body.PointsEarned,
			CourseID:       body.CourseID,
			UsageID:        body.UsageID,
		}

		if v := body.UserID; v != nil {
			if n, ok := v.(json.Number); ok {
				v = n.String()
			}

			if userID, err := cast.ToInt64E(v); err == nil {
				event.UserID = &userID
			}
		}

		if missing := event.MissingFields(); len(missing) > 0 {
			log.WithFields(logrus.Fields{
				"points_possible": body.PointsPossible,
				"points_earned":   body.PointsEarned,
				"user_id":         body.UserID,
				"course_id":       body.CourseID,
				"usage_id":        body.UsageID,
			}).Errorln("Outcome Service: Invalid score changed event, missing", strings.Join(missing, ", "))

			err := twirp.InvalidArgumentError(missing[0], "is required")
			render.Error(w, codes.With(err, core.ErrInvalidScoreEvent))
			return
		}

		if key := strings.TrimSpace(r.Header.Get(idempotencyKeyHeader)); key != "" {
			event.TraceID = id.TraceIDFrom(key)
		}

		event.Raw = types.JSONText(raw)

		if err := events.Publish(ctx, event); err != nil {
			log.WithError(err).Errorln("events.Publish")
			render.Error(w, err)
			return
		}

		render.Status(w, http.StatusAccepted, render.H{
			"trace_id": event.TraceID,
		})
	}
}
