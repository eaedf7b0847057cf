package worker

import (
	"context"
	"time"
)

const (
	defaultDelay    = time.Second
	defaultErrDelay = 5 * time.Second
)

// Worker long running job
type Worker interface {
	Run(ctx context.Context) error
}

// TickWorker runs onTick in a loop until ctx is done. After a failed tick
// (an EOF included) it waits ErrDelay instead of Delay.
type TickWorker struct {
	Delay    time.Duration
	ErrDelay time.Duration
}

// StartTick blocks until ctx is done
func (w *TickWorker) StartTick(ctx context.Context, onTick func(ctx context.Context) error) error {
	delay, errDelay := w.Delay, w.ErrDelay
	if delay <= 0 {
		delay = defaultDelay
	}
	if errDelay <= 0 {
		errDelay = defaultErrDelay
	}

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			if err := ctx.Err(); err != nil {
				return err
			}

			d := delay
			if err := onTick(ctx); err != nil {
				d = errDelay
			}

			timer.Reset(d)
		}
	}
}
