package encoding

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"reframe/internal/engine"
	"reframe/internal/logging"
	"reframe/internal/media/probe"
	"reframe/internal/services"
)

// JobState identifies where a job is in its lifecycle.
type JobState string

const (
	JobIdle      JobState = "idle"
	JobProbing   JobState = "probing"
	JobReady     JobState = "ready"
	JobRunning   JobState = "running"
	JobSucceeded JobState = "succeeded"
	JobFailed    JobState = "failed"
	JobTimedOut  JobState = "timed_out"
)

// Prober characterizes input bytes without invoking the engine.
type Prober interface {
	InspectBytes(ctx context.Context, data []byte) (probe.Result, error)
}

// JobRequest describes one job submission.
type JobRequest struct {
	Input    InputDescriptor
	Settings OutputSettings
	// Events receives progress fractions and log lines while the job is
	// running. Either callback may be nil.
	Events engine.Events
	// BudgetOverride skips the adaptive estimate when positive. Diagnostic
	// trials use this to apply a flat per-trial ceiling.
	BudgetOverride time.Duration
}

// Supervisor runs one job at a time: probe, build, invoke with a watchdog,
// classify. A second Start while a job is in flight is rejected, never
// interleaved.
type Supervisor struct {
	engine    *engine.Manager
	prober    Prober
	estimator Estimator
	mode      Mode
	logger    *slog.Logger

	mu    sync.Mutex
	state JobState
	logs  []string
}

// NewSupervisor constructs a Supervisor over a loaded engine manager.
func NewSupervisor(mgr *engine.Manager, prober Prober, estimator Estimator, mode Mode, logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Supervisor{
		engine:    mgr,
		prober:    prober,
		estimator: estimator,
		mode:      mode,
		logger:    logging.NewComponentLogger(logger, "supervisor"),
		state:     JobIdle,
	}
}

// State reports the current job lifecycle state.
func (s *Supervisor) State() JobState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Logs returns the ordered engine log lines captured for the current or most
// recent job. The slice is reset when a new job starts.
func (s *Supervisor) Logs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.logs...)
}

// Start runs one job to a terminal outcome. Job-level failures come back as
// a classified JobOutcome with a nil error; the error return is reserved for
// rejected submissions (another job already in flight).
func (s *Supervisor) Start(ctx context.Context, req JobRequest) (JobOutcome, error) {
	if err := s.begin(); err != nil {
		return JobOutcome{}, err
	}
	started := time.Now()

	if err := req.Settings.Validate(); err != nil {
		return s.finish(failedOutcome(err, time.Since(started))), nil
	}

	result, err := s.prober.InspectBytes(ctx, req.Input.Data)
	if err != nil {
		return s.finish(failedOutcome(err, time.Since(started))), nil
	}

	jobID := uuid.NewString()
	inputName := "in-" + jobID + req.Input.ExtensionHint()
	outputName := "out-" + jobID + ".mp4"
	command := BuildCommand(inputName, outputName, req.Settings)

	budget := req.BudgetOverride
	if budget <= 0 {
		budget = s.estimator.Budget(result, req.Settings, s.mode)
	}
	s.setState(JobReady)
	s.logger.Info("job prepared",
		logging.String(logging.FieldJobID, jobID),
		logging.String("settings", req.Settings.Label()),
		logging.String("command", command.Display),
		logging.Duration("budget", budget))

	if err := s.engine.WriteInput(inputName, req.Input.Data); err != nil {
		return s.finish(failedOutcome(err, time.Since(started))), nil
	}
	defer func() {
		_ = s.engine.Remove(inputName)
		_ = s.engine.Remove(outputName)
	}()

	s.setState(JobRunning)
	if timedOut, invokeErr := s.superviseInvoke(ctx, command.Argv, req.Events, budget); timedOut {
		reason := services.Wrap(services.ErrTimeout, "supervise", "watchdog",
			fmt.Sprintf("no forward progress within %s", budget), nil)
		return s.finish(timedOutOutcome(reason, time.Since(started))), nil
	} else if invokeErr != nil {
		return s.finish(failedOutcome(invokeErr, time.Since(started))), nil
	}

	output, err := s.engine.ReadOutput(outputName)
	if err != nil {
		return s.finish(failedOutcome(err, time.Since(started))), nil
	}
	if len(output) == 0 {
		reason := services.Wrap(services.ErrEngine, "supervise", "collect output", "engine produced empty output", nil)
		return s.finish(failedOutcome(reason, time.Since(started))), nil
	}

	return s.finish(succeededOutcome(output, time.Since(started))), nil
}

// superviseInvoke races the engine invocation against the watchdog. In
// threaded mode every strictly positive progress event re-arms the timer, so
// a slow but working job never trips it; in single mode progress is
// unreliable and the budget is a hard ceiling. The returned bool reports a
// watchdog timeout; once it fires, the invocation's eventual settlement is
// discarded unseen.
func (s *Supervisor) superviseInvoke(ctx context.Context, argv []string, events engine.Events, budget time.Duration) (bool, error) {
	invokeCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Once this returns, the invocation is no longer ours: any event the
	// abandoned settlement still emits must not reach the caller or the
	// captured job logs, which by then belong to a terminal (or later) job.
	var abandoned atomic.Bool
	defer abandoned.Store(true)

	progressCh := make(chan float64, 256)
	forwarded := engine.Events{
		Progress: func(fraction float64) {
			if abandoned.Load() {
				return
			}
			select {
			case progressCh <- fraction:
			default:
			}
			if events.Progress != nil {
				events.Progress(fraction)
			}
		},
		Log: func(line string) {
			if abandoned.Load() {
				return
			}
			s.appendLog(line)
			if events.Log != nil {
				events.Log(line)
			}
		},
	}

	resultCh := make(chan error, 1)
	go func() {
		resultCh <- s.engine.Invoke(invokeCtx, argv, forwarded)
	}()

	watchdog := time.NewTimer(budget)
	defer watchdog.Stop()

	for {
		select {
		case err := <-resultCh:
			return false, err
		case fraction := <-progressCh:
			if s.mode == ModeThreaded && fraction > 0 {
				if !watchdog.Stop() {
					select {
					case <-watchdog.C:
					default:
					}
				}
				watchdog.Reset(budget)
			}
		case <-watchdog.C:
			abandoned.Store(true)
			cancel()
			return true, nil
		}
	}
}

func (s *Supervisor) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case JobProbing, JobReady, JobRunning:
		return services.Wrap(services.ErrBusy, "supervise", "start", "a job is already in flight", nil)
	}
	s.state = JobProbing
	s.logs = s.logs[:0]
	return nil
}

func (s *Supervisor) setState(state JobState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *Supervisor) appendLog(line string) {
	s.mu.Lock()
	s.logs = append(s.logs, line)
	s.mu.Unlock()
}

func (s *Supervisor) finish(outcome JobOutcome) JobOutcome {
	switch outcome.Kind {
	case OutcomeSucceeded:
		s.setState(JobSucceeded)
		s.logger.Info("job succeeded",
			logging.Duration(logging.FieldElapsed, outcome.Elapsed),
			logging.Int("output_bytes", len(outcome.OutputBytes)))
	case OutcomeTimedOut:
		s.setState(JobTimedOut)
		s.logger.Warn("job timed out", logging.Duration(logging.FieldElapsed, outcome.Elapsed))
	default:
		s.setState(JobFailed)
		s.logger.Error("job failed",
			logging.Duration(logging.FieldElapsed, outcome.Elapsed),
			logging.Error(outcome.Reason))
	}
	return outcome
}
