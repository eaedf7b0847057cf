package dispatcher

import (
	"context"
	"errors"
	"time"

	"ltiprovider/core"

	"github.com/asaskevich/govalidator"
	"github.com/fox-one/pkg/logger"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

const (
	backoffBase = 10 * time.Second
	backoffMax  = time.Hour

	maxLastError = 255
)

// Run consumes due score events until ctx is done
func (w *Dispatcher) Run(ctx context.Context) error {
	if _, err := govalidator.ValidateStruct(w.cfg); err != nil {
		return err
	}

	f := w.sync
	if w.cfg.Capacity > 1 {
		f = w.parallel(w.cfg.Capacity)
	}

	return w.StartTick(ctx, func(ctx context.Context) error {
		return w.onWork(ctx, f)
	})
}

func (w *Dispatcher) onWork(ctx context.Context, f func(context.Context, []*core.ScoreEvent) error) error {
	log := logger.FromContext(ctx).WithField("worker", "dispatcher")

	events, err := w.events.ListDue(ctx, time.Now(), w.cfg.Batch)
	if err != nil {
		log.WithError(err).Errorln("list due score events")
		return err
	}

	if len(events) == 0 {
		return errors.New("EOF")
	}

	return f(ctx, events)
}

func (w *Dispatcher) sync(ctx context.Context, events []*core.ScoreEvent) error {
	for _, event := range events {
		if err := w.handleEvent(ctx, event); err != nil {
			return err
		}
	}

	return nil
}

func (w *Dispatcher) parallel(capacity int64) func(ctx context.Context, events []*core.ScoreEvent) error {
	sem := semaphore.NewWeighted(capacity)

	return func(ctx context.Context, events []*core.ScoreEvent) error {
		g := errgroup.Group{}

		for idx := range events {
			event := events[idx]

			if err := sem.Acquire(ctx, 1); err != nil {
				return g.Wait()
			}

			g.Go(func() error {
				defer sem.Release(1)
				return w.handleEvent(ctx, event)
			})
		}

		return g.Wait()
	}
}

// handleEvent dispatches one event, then deletes it or schedules a retry
func (w *Dispatcher) handleEvent(ctx context.Context, event *core.ScoreEvent) error {
	log := logger.FromContext(ctx).WithField("trace_id", event.TraceID)
	ctx = logger.WithContext(ctx, log)

	err := w.Dispatch(ctx, event)
	if err == nil {
		if err := w.events.Delete(ctx, event); err != nil {
			log.WithError(err).Errorln("events.Delete")
			return err
		}

		return nil
	}

	event.Attempts++
	if event.Attempts >= w.cfg.MaxAttempts {
		log.WithError(err).WithField("attempts", event.Attempts).
			Errorln("Outcome Service: giving up on score event, manual reconciliation required")

		if err := w.events.Delete(ctx, event); err != nil {
			log.WithError(err).Errorln("events.Delete")
			return err
		}

		return nil
	}

	event.NextAttemptAt = time.Now().Add(Backoff(event.Attempts))
	event.LastError = err.Error()
	if len(event.LastError) > maxLastError {
		event.LastError = event.LastError[:maxLastError]
	}

	log.WithError(err).WithField("attempts", event.Attempts).Infoln("reschedule score event at", event.NextAttemptAt)
	if err := w.events.Reschedule(ctx, event); err != nil {
		log.WithError(err).Errorln("events.Reschedule")
		return err
	}

	return nil
}

// Backoff delay before the next attempt, doubling from 10s up to an hour
func Backoff(attempts int) time.Duration {
	d := backoffBase
	for i := 1; i < attempts && d < backoffMax; i++ {
		d *= 2
	}

	if d > backoffMax {
		d = backoffMax
	}

	return d
}
