package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

type Runner struct {
	Config *Config
	Logger *zap.Logger
	Rand   *rand.Rand

	// Subject skips AskSubject when set.
	Subject *Subject
	// Plan, when set, replaces the generated trial order.
	Plan *Plan

	AskSubject  func(cfg *Config) (Subject, error)
	OpenScreen  func(cfg *Config) (Screen, error)
	OpenTrigger func(cfg *Config) (Trigger, error)
	Now         func() time.Time
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// Run executes one session. Stimulus directories and subject information are
// resolved before any device is opened. Once opened, the display and trigger
// port are released on every exit path, after a best-effort closing message.
func (r *Runner) Run(ctx context.Context) (err error) {
	cfg := r.Config
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	log := logger.With(zap.String("session", NewSessionID()))

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	for _, dir := range []string{cfg.FaceDir, cfg.HouseDir} {
		if err := CheckStimulusDir(dir); err != nil {
			return err
		}
	}

	var subject Subject
	switch {
	case r.Subject != nil:
		subject = *r.Subject
	case r.AskSubject != nil:
		subject, err = r.AskSubject(cfg)
		if err != nil {
			return err
		}
	default:
		return errors.New("no subject information")
	}
	if subject.Experiment == "" {
		subject.Experiment = cfg.Experiment
	}
	outPath := OutputPath(cfg.DataDir, subject, r.now())
	log = log.With(zap.Int("subject", subject.ID), zap.String("experiment", subject.Experiment))

	plan := r.Plan
	if plan == nil {
		rng := r.Rand
		if rng == nil {
			rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
		}
		plan, err = NewPlan(cfg, rng)
		if err != nil {
			return fmt.Errorf("build trials: %w", err)
		}
	}
	log.Info("Trial list ready",
		zap.Int("trials", len(plan.Trials)),
		zap.Int("faces", plan.Count(Face)),
		zap.Int("houses", plan.Count(House)),
		zap.Ints("fix_changes", plan.FixChanges),
		zap.String("output", outPath),
	)

	var (
		trigger Trigger
		screen  Screen
		events  *EventLog
	)
	defer func() {
		if err != nil {
			log.Error("An error occurred", zap.Error(err))
		}
		if events != nil {
			path := r.eventLogPath(outPath)
			if serr := events.Save(path); serr != nil {
				err = errors.Join(err, fmt.Errorf("save event log: %w", serr))
			} else {
				log.Info("Event log saved", zap.String("path", path), zap.Int("onsets", len(events.Entries)))
			}
		}
		if screen != nil {
			if cerr := screen.ShowText(cfg.EndMessage); cerr == nil {
				_ = screen.Wait(context.Background(), cfg.ClosingDuration)
			} else {
				log.Warn("Closing message failed", zap.Error(cerr))
			}
			if cerr := screen.Close(); cerr != nil {
				err = errors.Join(err, fmt.Errorf("close display: %w", cerr))
			}
		}
		if trigger != nil {
			if cerr := trigger.Close(); cerr != nil {
				err = errors.Join(err, fmt.Errorf("close trigger: %w", cerr))
			}
		}
	}()

	if cfg.EEG {
		trigger, err = r.OpenTrigger(cfg)
		if err != nil {
			trigger = nil
			return err
		}
		log.Info("Trigger port open", zap.String("port", cfg.TriggerPort), zap.Int("baud", cfg.BaudRate))
	}

	screen, err = r.OpenScreen(cfg)
	if err != nil {
		screen = nil
		return fmt.Errorf("open display: %w", err)
	}
	if err = screen.Preload(plan.Paths()); err != nil {
		return fmt.Errorf("preload images: %w", err)
	}

	if cfg.EventLog != "" {
		events = &EventLog{}
	}
	p := &Presenter{
		Screen:  screen,
		Trigger: trigger,
		Config:  cfg,
		Log:     events,
		Logger:  log,
		Now:     r.Now,
	}
	if err = p.Present(ctx, plan); err != nil {
		return err
	}
	log.Info("All trials presented")
	return nil
}

// eventLogPath resolves the configured event log name. "auto" uses the
// session output path; bare file names go to the data directory.
func (r *Runner) eventLogPath(outPath string) string {
	path := r.Config.EventLog
	if path == "auto" {
		return outPath + ".csv"
	}
	if !filepath.IsAbs(path) && filepath.Dir(path) == "." {
		return filepath.Join(r.Config.DataDir, path)
	}
	return path
}
