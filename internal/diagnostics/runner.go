package diagnostics

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"reframe/internal/encoding"
	"reframe/internal/engine"
	"reframe/internal/logging"
	"reframe/internal/services"
)

// TrialStatus labels how one trial terminated.
type TrialStatus string

const (
	TrialPending   TrialStatus = "pending"
	TrialSucceeded TrialStatus = "succeeded"
	TrialFailed    TrialStatus = "failed"
	TrialTimedOut  TrialStatus = "timed_out"
)

// Trial is the record of one configuration's run.
type Trial struct {
	Configuration Configuration
	Status        TrialStatus
	Logs          []string
	Elapsed       time.Duration
	Reason        error
}

// Options configures a batch run.
type Options struct {
	// TrialTimeout is the flat per-trial ceiling. Diagnostics skip the
	// adaptive estimator because the clip length and settings are fixed.
	TrialTimeout time.Duration
	// ClipSeconds caps the length of the clip cut from the input.
	ClipSeconds int
	// OnTrial, when set, observes each trial as it completes.
	OnTrial func(Trial)
}

// Runner drives the job supervisor across a configuration ladder.
type Runner struct {
	engine     *engine.Manager
	supervisor *encoding.Supervisor
	logger     *slog.Logger
}

// NewRunner constructs a Runner sharing the process-wide engine manager with
// the supervisor it drives.
func NewRunner(mgr *engine.Manager, supervisor *encoding.Supervisor, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Runner{
		engine:     mgr,
		supervisor: supervisor,
		logger:     logging.NewComponentLogger(logger, "diagnostics"),
	}
}

// Run cuts a short audio-free clip from input, then runs one trial per
// configuration strictly in order. A trial's failure never short-circuits the
// batch; every configuration gets its own independent record. The returned
// error covers only clip preparation; once trials begin, problems are
// reported inside the trials themselves.
func (r *Runner) Run(ctx context.Context, input encoding.InputDescriptor, configs []Configuration, opts Options) ([]Trial, error) {
	if opts.TrialTimeout <= 0 {
		opts.TrialTimeout = 45 * time.Second
	}
	if opts.ClipSeconds <= 0 {
		opts.ClipSeconds = 3
	}

	clip, err := r.prepareClip(ctx, input, opts)
	if err != nil {
		return nil, err
	}

	trials := make([]Trial, 0, len(configs))
	for _, config := range configs {
		trial := r.runTrial(ctx, clip, config, opts)
		trials = append(trials, trial)
		if opts.OnTrial != nil {
			opts.OnTrial(trial)
		}
	}
	return trials, nil
}

func (r *Runner) runTrial(ctx context.Context, clip encoding.InputDescriptor, config Configuration, opts Options) Trial {
	trial := Trial{Configuration: config, Status: TrialPending}
	r.logger.Info("trial starting", logging.String(logging.FieldTrial, config.Label))

	outcome, err := r.supervisor.Start(ctx, encoding.JobRequest{
		Input: clip,
		Settings: encoding.OutputSettings{
			TargetWidth:      config.Width,
			TargetHeight:     config.Height,
			FrameRate:        config.FrameRate,
			VideoBitrateKbps: config.BitrateKbps,
		},
		Events: engine.Events{
			Log: func(line string) {
				trial.Logs = append(trial.Logs, line)
			},
		},
		BudgetOverride: opts.TrialTimeout,
	})
	if err != nil {
		// Rejected submission: trials are strictly sequential, so this
		// means something outside the batch holds the supervisor.
		trial.Status = TrialFailed
		trial.Reason = err
		return trial
	}

	trial.Elapsed = outcome.Elapsed
	trial.Reason = outcome.Reason
	switch outcome.Kind {
	case encoding.OutcomeSucceeded:
		trial.Status = TrialSucceeded
	case encoding.OutcomeTimedOut:
		trial.Status = TrialTimedOut
	default:
		trial.Status = TrialFailed
	}
	r.logger.Info("trial finished",
		logging.String(logging.FieldTrial, config.Label),
		logging.String("status", string(trial.Status)),
		logging.Duration(logging.FieldElapsed, trial.Elapsed))
	return trial
}

// prepareClip cuts the duration-capped, audio-free clip every trial shares.
// Stream copy keeps preparation cheap even for large inputs.
func (r *Runner) prepareClip(ctx context.Context, input encoding.InputDescriptor, opts Options) (encoding.InputDescriptor, error) {
	clipID := uuid.NewString()
	inputName := "diag-in-" + clipID + input.ExtensionHint()
	clipName := "diag-clip-" + clipID + ".mp4"

	if err := r.engine.WriteInput(inputName, input.Data); err != nil {
		return encoding.InputDescriptor{}, services.Wrap(services.ErrEngine, "diagnostics", "prepare clip", "", err)
	}
	defer func() {
		_ = r.engine.Remove(inputName)
		_ = r.engine.Remove(clipName)
	}()

	command := encoding.BuildClipCommand(inputName, clipName, opts.ClipSeconds)
	clipCtx, cancel := context.WithTimeout(ctx, opts.TrialTimeout)
	defer cancel()
	if err := r.engine.Invoke(clipCtx, command.Argv, engine.Events{}); err != nil {
		return encoding.InputDescriptor{}, services.Wrap(services.ErrEngine, "diagnostics", "prepare clip", "", err)
	}

	data, err := r.engine.ReadOutput(clipName)
	if err != nil {
		return encoding.InputDescriptor{}, services.Wrap(services.ErrEngine, "diagnostics", "prepare clip", "", err)
	}
	if len(data) == 0 {
		return encoding.InputDescriptor{}, services.Wrap(services.ErrEngine, "diagnostics", "prepare clip", "clip extraction produced no bytes", nil)
	}

	return encoding.InputDescriptor{Name: clipName, Data: data}, nil
}
