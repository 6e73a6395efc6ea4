// Package refresh schedules background dashboard renders after vault activity.
package refresh

import (
	"context"
	"log/slog"
	"time"

	"github.com/starford/rpgify/internal/progression"
)

// DefaultDelay is the quiet period between the last poke and the render.
const DefaultDelay = 5 * time.Second

// RenderFunc runs one render pass.
type RenderFunc func(ctx context.Context) (*progression.Dashboard, error)

// Scheduler debounces pokes into render passes. Every Poke re-arms the
// timer; when it fires a render starts in the background and its dashboard
// is handed to the callback. Renders already running are never cancelled.
type Scheduler struct {
	delay    time.Duration
	render   RenderFunc
	onRender func(*progression.Dashboard)
	logger   *slog.Logger

	pokeCh chan struct{}
}

// NewScheduler creates a scheduler. onRender may be nil.
func NewScheduler(delay time.Duration, render RenderFunc, onRender func(*progression.Dashboard), logger *slog.Logger) *Scheduler {
	if delay <= 0 {
		delay = DefaultDelay
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		delay:    delay,
		render:   render,
		onRender: onRender,
		logger:   logger,
		pokeCh:   make(chan struct{}, 1),
	}
}

// Poke requests a render after the quiet period. It never blocks.
func (s *Scheduler) Poke() {
	select {
	case s.pokeCh <- struct{}{}:
	default:
	}
}

// Run owns the timer until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	timer := time.NewTimer(s.delay)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.pokeCh:
			timer.Reset(s.delay)
		case <-timer.C:
			go s.fire(ctx)
		}
	}
}

func (s *Scheduler) fire(ctx context.Context) {
	d, err := s.render(context.WithoutCancel(ctx))
	if err != nil {
		s.logger.Error("refresh: render failed", slog.String("error", err.Error()))
		return
	}
	s.logger.Debug("refresh: rendered", slog.String("render_id", d.RenderID))
	if s.onRender != nil {
		s.onRender(d)
	}
}
