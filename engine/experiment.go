package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ErrAborted is returned when the participant or operator stops the run.
var ErrAborted = errors.New("experiment aborted")

// Screen is the presentation surface. Each Show call draws a full frame and
// flips it; Wait blocks for d while keeping the window responsive. Preload
// decodes images ahead of the first trial so ShowImage only has to draw.
type Screen interface {
	Preload(paths []string) error
	ShowText(msg string) error
	ShowFixation(color Color) error
	ShowImage(path string, fixation Color) error
	WaitKey(ctx context.Context) error
	Wait(ctx context.Context, d time.Duration) error
	Close() error
}

type Presenter struct {
	Screen  Screen
	Trigger Trigger
	Config  *Config
	Log     *EventLog
	Logger  *zap.Logger
	Now     func() time.Time
}

// Present runs the instruction screen, the lead-in fixation and every trial
// in plan order. It returns on the first error.
func (p *Presenter) Present(ctx context.Context, plan *Plan) error {
	cfg := p.Config
	now := p.Now
	if now == nil {
		now = time.Now
	}
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := p.Screen.ShowText(cfg.StartMessage); err != nil {
		return fmt.Errorf("start message: %w", err)
	}
	if err := p.Screen.WaitKey(ctx); err != nil {
		return err
	}

	if err := p.Screen.ShowFixation(cfg.FixationColor); err != nil {
		return fmt.Errorf("lead-in fixation: %w", err)
	}
	if err := p.Screen.Wait(ctx, cfg.LeadIn); err != nil {
		return err
	}

	start := now()
	var intended time.Duration
	for i, t := range plan.Trials {
		if err := ctx.Err(); err != nil {
			return err
		}

		fix := cfg.FixationColor
		if plan.FixChange(i) {
			fix = cfg.FixationChangeColor
		}

		if err := p.Screen.ShowImage(t.Path, fix); err != nil {
			return fmt.Errorf("trial %d (%s): %w", i, t.Filename, err)
		}
		onset := now().Sub(start)

		code := 0
		if p.Trigger != nil {
			c := cfg.TriggerCode(t.Condition)
			if err := p.Trigger.Pulse(c); err != nil {
				return fmt.Errorf("trial %d: %w", i, err)
			}
			code = int(c)
		}

		isi := plan.ISIs[i]
		if p.Log != nil {
			p.Log.Log(EventLogEntry{
				Trial:      i,
				Filename:   t.Filename,
				Condition:  t.Condition.String(),
				FixChange:  plan.FixChange(i),
				Trigger:    code,
				ISIMS:      isi.Milliseconds(),
				IntendedMS: intended.Milliseconds(),
				OnsetMS:    onset.Milliseconds(),
			})
		}
		logger.Info("Trial",
			zap.Int("trial", i+1),
			zap.Int("total", len(plan.Trials)),
			zap.String("file", t.Filename),
			zap.Stringer("condition", t.Condition),
			zap.Bool("fix_change", plan.FixChange(i)),
			zap.Duration("isi", isi),
		)

		if err := p.Screen.Wait(ctx, cfg.StimDuration); err != nil {
			return err
		}
		if err := p.Screen.ShowFixation(fix); err != nil {
			return fmt.Errorf("trial %d isi: %w", i, err)
		}
		if err := p.Screen.Wait(ctx, isi); err != nil {
			return err
		}
		intended += cfg.StimDuration + isi
	}
	return nil
}
