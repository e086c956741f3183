package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// ExpirySweeper is the subset of the attempt service the sweeper drives.
type ExpirySweeper interface {
	SweepExpired(ctx context.Context) (int, error)
}

// SweepWorker periodically force-submits attempts whose deadline passed while
// nobody was looking at them. Reads finalize lazily as well; the sweep keeps
// abandoned attempts from staying open in the database.
type SweepWorker struct {
	sweeper  ExpirySweeper
	interval time.Duration
	log      zerolog.Logger
}

// NewSweepWorker creates a new SweepWorker. A non-positive interval disables it.
func NewSweepWorker(sweeper ExpirySweeper, interval time.Duration, log zerolog.Logger) *SweepWorker {
	return &SweepWorker{
		sweeper:  sweeper,
		interval: interval,
		log:      log.With().Str("component", "sweep_worker").Logger(),
	}
}

// Start blocks until ctx is cancelled. Call in a goroutine.
func (w *SweepWorker) Start(ctx context.Context) {
	if w.interval <= 0 {
		w.log.Info().Msg("Sweeper disabled")
		return
	}
	w.log.Info().Dur("interval", w.interval).Msg("Worker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *SweepWorker) sweep(ctx context.Context) {
	closed, err := w.sweeper.SweepExpired(ctx)
	if err != nil {
		if ctx.Err() == nil {
			w.log.Error().Err(err).Msg("Sweep failed")
		}
		return
	}
	if closed > 0 {
		w.log.Info().Int("closed", closed).Msg("Force-submitted expired attempts")
	}
}
