package main

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"n170/engine"
	"n170/engine/display"
)

const defaultConfigFile = "n170.yaml"

type options struct {
	configFile string
	subject    int
	eeg        bool
	port       string
	small      bool
	reps       int
	fixChanges int
	seed       uint64
	trialsFile string
	eventLog   string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "n170",
		Short: "Face/house visual ERP presentation",
		Long: `n170 presents a randomized sequence of face and house images over a
fixation cross, optionally sending a serial trigger at every stimulus onset.

Images are read from the Faces and Houses directories of the working
directory. Settings can be overridden with a YAML file (n170.yaml by default).`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExperiment(cmd, opts)
		},
	}
	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "YAML settings file (default n170.yaml when present)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Development logging")
	addPlanFlags(cmd, opts)
	addRunFlags(cmd, opts)

	cmd.AddCommand(newRunCmd(opts))
	cmd.AddCommand(newTrialsCmd(opts))
	cmd.AddCommand(newPortsCmd())
	return cmd
}

func addPlanFlags(cmd *cobra.Command, opts *options) {
	cmd.Flags().IntVar(&opts.reps, "reps", 0, "Repetitions of the full image set")
	cmd.Flags().IntVar(&opts.fixChanges, "fix-changes", 0, "Trials with a fixation color change")
	cmd.Flags().Uint64Var(&opts.seed, "seed", 0, "Random seed (0 picks one)")
}

func addRunFlags(cmd *cobra.Command, opts *options) {
	cmd.Flags().IntVar(&opts.subject, "subject", 0, "Subject ID (skips the dialog)")
	cmd.Flags().BoolVar(&opts.eeg, "eeg", false, "Send EEG triggers over serial")
	cmd.Flags().StringVar(&opts.port, "port", "", "Trigger serial port")
	cmd.Flags().BoolVar(&opts.small, "small", false, "Windowed mode for debugging")
	cmd.Flags().StringVar(&opts.trialsFile, "trials", "", "Trial table CSV to replay instead of a new random order")
	cmd.Flags().StringVar(&opts.eventLog, "event-log", "", `Write stimulus onsets (.csv or .parquet, "auto" for the session path)`)
}

func newRunCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExperiment(cmd, opts)
		},
	}
	addPlanFlags(cmd, opts)
	addRunFlags(cmd, opts)
	return cmd
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// loadConfig layers defaults, the settings file, the environment and flags.
func loadConfig(cmd *cobra.Command, opts *options) (*engine.Config, error) {
	cfg := engine.DefaultConfig()

	path := opts.configFile
	if path == "" {
		if _, err := os.Stat(defaultConfigFile); err == nil {
			path = defaultConfigFile
		}
	}
	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}

	if port := os.Getenv("N170_TRIGGER_PORT"); port != "" {
		cfg.TriggerPort = port
	}

	flags := cmd.Flags()
	if flags.Changed("reps") {
		cfg.Reps = opts.reps
	}
	if flags.Changed("fix-changes") {
		cfg.FixChanges = opts.fixChanges
	}
	if flags.Changed("eeg") {
		cfg.EEG = opts.eeg
	}
	if flags.Changed("port") {
		cfg.TriggerPort = opts.port
	}
	if flags.Changed("small") {
		cfg.SmallMonitor = opts.small
	}
	if flags.Changed("event-log") {
		cfg.EventLog = opts.eventLog
	}
	return cfg, cfg.Validate()
}

func newRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return rand.New(rand.NewPCG(seed, seed))
}

func runExperiment(cmd *cobra.Command, opts *options) error {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}
	logger, err := newLogger(opts.verbose)
	if err != nil {
		return err
	}
	defer logger.Sync()

	runner := &engine.Runner{
		Config: cfg,
		Logger: logger,
		Rand:   newRand(opts.seed),
		AskSubject: func(cfg *engine.Config) (engine.Subject, error) {
			cached, err := engine.LoadCache(engine.CacheFile)
			if err != nil {
				logger.Warn("Ignoring unreadable cache", zap.String("path", engine.CacheFile), zap.Error(err))
			}
			subject, err := display.AskSubject(cfg, cached)
			if err != nil {
				return subject, err
			}
			cache := engine.Cache{SubjectID: subject.ID, Experiment: subject.Experiment}
			if err := cache.Save(engine.CacheFile); err != nil {
				logger.Warn("Failed to save cache", zap.Error(err))
			}
			return subject, nil
		},
		OpenScreen: func(cfg *engine.Config) (engine.Screen, error) {
			s, err := display.Open(cfg, logger)
			if err != nil {
				return nil, err
			}
			return s, nil
		},
		OpenTrigger: func(cfg *engine.Config) (engine.Trigger, error) {
			t, err := engine.OpenSerialTrigger(cfg.TriggerPort, cfg.BaudRate)
			if err != nil {
				return nil, err
			}
			return t, nil
		},
	}

	if cmd.Flags().Changed("subject") {
		if opts.subject < 0 {
			return fmt.Errorf("subject ID must not be negative, got %d", opts.subject)
		}
		runner.Subject = &engine.Subject{ID: opts.subject, Experiment: cfg.Experiment}
	}

	if opts.trialsFile != "" {
		f, err := os.Open(opts.trialsFile)
		if err != nil {
			return err
		}
		plan, err := engine.ReadTrialTable(f, cfg)
		f.Close()
		if err != nil {
			return fmt.Errorf("%s: %w", opts.trialsFile, err)
		}
		runner.Plan = plan
	}

	err = runner.Run(cmd.Context())
	if errors.Is(err, engine.ErrAborted) {
		logger.Warn("Session aborted")
	}
	return err
}
