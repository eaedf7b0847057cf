package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ltiprovider/core"
	"ltiprovider/internal/locator"
	"ltiprovider/worker"

	"github.com/fox-one/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/yiplee/structs"
)

// Dispatcher delivers score changed events to the outcome services of the
// consumers that launched the graded content
type Dispatcher struct {
	worker.TickWorker
	events    core.ScoreEventStore
	outcomes  core.OutcomeStore
	consumers core.ConsumerStore
	codec     core.OutcomeCodec
	transport core.OutcomeTransport
	cfg       core.Dispatcher
}

// New new score dispatcher
func New(
	events core.ScoreEventStore,
	outcomes core.OutcomeStore,
	consumers core.ConsumerStore,
	codec core.OutcomeCodec,
	transport core.OutcomeTransport,
	cfg core.Dispatcher,
) *Dispatcher {
	return &Dispatcher{
		TickWorker: worker.TickWorker{
			Delay:    time.Duration(cfg.Interval),
			ErrDelay: time.Duration(cfg.Interval),
		},
		events:    events,
		outcomes:  outcomes,
		consumers: consumers,
		codec:     codec,
		transport: transport,
		cfg:       cfg,
	}
}

// failure log record, enough to replay the update by hand
type failure struct {
	UserID            int64   `json:"user_id"`
	CourseID          string  `json:"course_id"`
	UsageID           string  `json:"usage_id"`
	Score             float64 `json:"score"`
	PointsEarned      string  `json:"points_earned"`
	PointsPossible    string  `json:"points_possible"`
	OutcomeServiceURL string  `json:"outcome_service_url"`
	ResultSourcedID   string  `json:"result_sourcedid"`
	Status            int     `json:"status"`
	Body              string  `json:"body"`
	Reason            string  `json:"reason"`
}

func (f *failure) fields() logrus.Fields {
	s := structs.New(f)
	s.TagName = "json"
	return s.Map()
}

// Dispatch sends the score of event to every outcome service holding a graded
// assignment for its (user, course, usage). Invalid events and rejected
// updates are logged and dropped; the returned error is set only when a retry
// could succeed.
func (w *Dispatcher) Dispatch(ctx context.Context, event *core.ScoreEvent) error {
	log := logger.FromContext(ctx)

	if missing := event.MissingFields(); len(missing) > 0 {
		log.WithField("missing", missing).Errorf(
			"Outcome Service: Invalid points earned (%s) or points possible (%s)",
			nullString(event.PointsEarned), nullString(event.PointsPossible),
		)
		return nil
	}

	earned, possible := event.PointsEarned.Decimal, event.PointsPossible.Decimal
	if earned.IsNegative() || !possible.IsPositive() {
		log.Errorf("Outcome Service: Invalid points earned (%s) or points possible (%s)", earned, possible)
		return nil
	}

	if earned.GreaterThan(possible) {
		log.Errorf("Outcome Service: Points earned (%s) can't be more than points possible (%s)", earned, possible)
		return nil
	}

	courseKey, usageKey, err := locator.Parse(event.CourseID, event.UsageID)
	if err != nil {
		log.WithError(err).Errorf("Outcome Service: Invalid course ID (%s) or usage ID (%s)", event.CourseID, event.UsageID)
		return nil
	}

	assignments, err := w.outcomes.FindAssignments(ctx, *event.UserID, courseKey.String(), usageKey.String())
	if err != nil {
		log.WithError(err).Errorln("outcomes.FindAssignments")
		return err
	}

	// content embedded without a graded launch
	if len(assignments) == 0 {
		return nil
	}

	score := Score(earned, possible)

	var errs []error
	for _, assignment := range assignments {
		record := &failure{
			UserID:          *event.UserID,
			CourseID:        courseKey.String(),
			UsageID:         usageKey.String(),
			Score:           score,
			PointsEarned:    earned.String(),
			PointsPossible:  possible.String(),
			ResultSourcedID: assignment.ResultSourcedID,
		}

		if err := w.send(ctx, assignment, score, record); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (w *Dispatcher) send(ctx context.Context, assignment *core.GradedAssignment, score float64, record *failure) error {
	log := logger.FromContext(ctx)

	service, err := w.outcomes.FindOutcomeService(ctx, assignment.OutcomeServiceID)
	if err != nil {
		log.WithError(err).Errorln("outcomes.FindOutcomeService")
		return err
	}
	record.OutcomeServiceURL = service.ServiceURL

	secret, err := w.consumers.SecretFor(ctx, service.ConsumerKey)
	if err != nil {
		if errors.Is(err, core.ErrConsumerNotFound) {
			record.Reason = "consumer_not_found"
			log.WithFields(record.fields()).Errorf("Outcome Service: Can't retrieve consumer secret for key %s.", service.ConsumerKey)
			return nil
		}

		log.WithError(err).Errorln("consumers.SecretFor")
		return err
	}

	xml, err := w.codec.BuildReplaceResultRequest(assignment.ResultSourcedID, score)
	if err != nil {
		record.Reason = "build_error"
		log.WithError(err).WithFields(record.fields()).Errorln("Outcome Service: Failed to build replace result request")
		return nil
	}

	resp, err := w.transport.Send(ctx, service, secret, xml)
	if err != nil {
		record.Reason = "transport_error"
		log.WithError(err).WithFields(record.fields()).Errorln("Outcome Service: Failed to update score on LTI consumer")

		var transportErr *core.TransportError
		if errors.As(err, &transportErr) {
			return fmt.Errorf("send replace result: %w", err)
		}

		return nil
	}

	if result := w.codec.ParseReplaceResultResponse(resp.StatusCode, resp.Body); !result.Accepted {
		record.Status = resp.StatusCode
		record.Body = string(resp.Body)
		record.Reason = result.Reason
		log.WithFields(record.fields()).WithField("detail", result.Detail).
			Errorln("Outcome Service: Failed to update score on LTI consumer")
	}

	return nil
}

// Score the share of points earned, 0 when nothing was possible
func Score(earned, possible decimal.Decimal) float64 {
	if possible.IsZero() {
		return 0
	}

	return earned.InexactFloat64() / possible.InexactFloat64()
}

func nullString(d decimal.NullDecimal) string {
	if !d.Valid {
		return "null"
	}

	return d.Decimal.String()
}
