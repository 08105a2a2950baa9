package encoding

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"reframe/internal/engine"
	"reframe/internal/media/probe"
	"reframe/internal/services"
)

type scriptedEngine struct {
	mu      sync.Mutex
	storage map[string][]byte
	invokes int
	// script runs in place of the real engine command. It receives the
	// output name parsed from argv so it can plant output bytes.
	script func(ctx context.Context, outputName string, events engine.Events) error
}

func newScriptedEngine(script func(ctx context.Context, outputName string, events engine.Events) error) *scriptedEngine {
	return &scriptedEngine{storage: make(map[string][]byte), script: script}
}

func (e *scriptedEngine) Load(context.Context) error { return nil }

func (e *scriptedEngine) WriteInput(name string, data []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.storage[name] = append([]byte(nil), data...)
	return nil
}

func (e *scriptedEngine) ReadOutput(name string) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	data, ok := e.storage[name]
	if !ok {
		return nil, errors.New("no such artifact")
	}
	return data, nil
}

func (e *scriptedEngine) Remove(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.storage, name)
	return nil
}

func (e *scriptedEngine) Run(ctx context.Context, argv []string, events engine.Events) error {
	e.mu.Lock()
	e.invokes++
	script := e.script
	e.mu.Unlock()
	outputName := argv[len(argv)-1]
	if script == nil {
		return e.WriteInput(outputName, []byte("encoded"))
	}
	return script(ctx, outputName, events)
}

func (e *scriptedEngine) invokeCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.invokes
}

type fakeProber struct {
	result probe.Result
	err    error
}

func (p fakeProber) InspectBytes(context.Context, []byte) (probe.Result, error) {
	return p.result, p.err
}

func defaultProbe() probe.Result {
	return probe.Result{Width: 1280, Height: 720, DurationSeconds: 60, FrameRate: 30}
}

func validRequest() JobRequest {
	return JobRequest{
		Input:    InputDescriptor{Name: "clip.mp4", Data: []byte("input bytes")},
		Settings: OutputSettings{TargetWidth: 640, TargetHeight: 360, FrameRate: 24, VideoBitrateKbps: 800},
	}
}

func newTestSupervisor(t *testing.T, fake *scriptedEngine, mode Mode) *Supervisor {
	t.Helper()
	mgr := engine.NewManager(fake, nil)
	if err := mgr.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	estimator := Estimator{Floor: 50 * time.Millisecond, Ceiling: time.Second}
	return NewSupervisor(mgr, fakeProber{result: defaultProbe()}, estimator, mode, nil)
}

func TestStartSucceeds(t *testing.T) {
	var eng *scriptedEngine
	eng = newScriptedEngine(func(ctx context.Context, outputName string, events engine.Events) error {
		events.Log("configuring encoder")
		events.Progress(0.5)
		events.Progress(1.0)
		return eng.WriteInput(outputName, []byte("encoded output"))
	})

	sup := newTestSupervisor(t, eng, ModeThreaded)
	outcome, err := sup.Start(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if outcome.Kind != OutcomeSucceeded {
		t.Fatalf("kind = %v (reason %v), want succeeded", outcome.Kind, outcome.Reason)
	}
	if string(outcome.OutputBytes) != "encoded output" {
		t.Fatalf("output = %q", outcome.OutputBytes)
	}
	if sup.State() != JobSucceeded {
		t.Fatalf("state = %v", sup.State())
	}
	logs := sup.Logs()
	if len(logs) != 1 || logs[0] != "configuring encoder" {
		t.Fatalf("logs = %v", logs)
	}
}

func TestStartRejectsOversizedSettingsWithoutEngineWork(t *testing.T) {
	eng := newScriptedEngine(nil)
	sup := newTestSupervisor(t, eng, ModeThreaded)

	req := validRequest()
	req.Settings.TargetWidth = 2560
	outcome, err := sup.Start(context.Background(), req)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if outcome.Kind != OutcomeFailed {
		t.Fatalf("kind = %v, want failed", outcome.Kind)
	}
	if !errors.Is(outcome.Reason, services.ErrValidation) {
		t.Fatalf("reason = %v, want validation error", outcome.Reason)
	}
	if eng.invokeCount() != 0 {
		t.Fatal("engine was invoked for invalid settings")
	}
	eng.mu.Lock()
	stored := len(eng.storage)
	eng.mu.Unlock()
	if stored != 0 {
		t.Fatal("engine storage was written for invalid settings")
	}
}

func TestStartProbeFailure(t *testing.T) {
	eng := newScriptedEngine(nil)
	mgr := engine.NewManager(eng, nil)
	if err := mgr.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	probeErr := services.Wrap(services.ErrProbe, "probe", "inspect", "corrupt container", nil)
	sup := NewSupervisor(mgr, fakeProber{err: probeErr}, Estimator{Floor: time.Second, Ceiling: time.Minute}, ModeThreaded, nil)

	outcome, err := sup.Start(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if outcome.Kind != OutcomeFailed || !errors.Is(outcome.Reason, services.ErrProbe) {
		t.Fatalf("outcome = %+v", outcome)
	}
	if eng.invokeCount() != 0 {
		t.Fatal("engine invoked despite probe failure")
	}
}

func TestSlowButProgressingJobSucceeds(t *testing.T) {
	// Total runtime exceeds the budget, but each progress gap is smaller
	// than the watchdog interval, so the timer keeps re-arming.
	var eng *scriptedEngine
	eng = newScriptedEngine(func(ctx context.Context, outputName string, events engine.Events) error {
		for _, fraction := range []float64{0.1, 0.3, 0.6, 1.0} {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(30 * time.Millisecond):
			}
			events.Progress(fraction)
		}
		return eng.WriteInput(outputName, []byte("slow output"))
	})

	sup := newTestSupervisor(t, eng, ModeThreaded)
	req := validRequest()
	req.BudgetOverride = 60 * time.Millisecond

	outcome, err := sup.Start(context.Background(), req)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if outcome.Kind != OutcomeSucceeded {
		t.Fatalf("kind = %v (reason %v), want succeeded", outcome.Kind, outcome.Reason)
	}
	if outcome.Elapsed < 100*time.Millisecond {
		t.Fatalf("elapsed %v suspiciously short for four 30ms steps", outcome.Elapsed)
	}
}

func TestSilentJobTimesOut(t *testing.T) {
	settled := make(chan struct{})
	var eng *scriptedEngine
	eng = newScriptedEngine(func(ctx context.Context, outputName string, events engine.Events) error {
		defer close(settled)
		<-ctx.Done()
		// Late settlement after abandonment: plant output anyway to prove
		// it stays invisible.
		_ = eng.WriteInput(outputName, []byte("late output"))
		return ctx.Err()
	})

	sup := newTestSupervisor(t, eng, ModeThreaded)
	req := validRequest()
	req.BudgetOverride = 50 * time.Millisecond

	outcome, err := sup.Start(context.Background(), req)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if outcome.Kind != OutcomeTimedOut {
		t.Fatalf("kind = %v, want timed out", outcome.Kind)
	}
	if !errors.Is(outcome.Reason, services.ErrTimeout) {
		t.Fatalf("reason = %v", outcome.Reason)
	}
	if len(outcome.OutputBytes) != 0 {
		t.Fatal("timed-out job leaked output bytes")
	}
	if sup.State() != JobTimedOut {
		t.Fatalf("state = %v", sup.State())
	}

	select {
	case <-settled:
	case <-time.After(time.Second):
		t.Fatal("abandoned invocation never settled")
	}
	// The late settlement changed nothing visible.
	if sup.State() != JobTimedOut {
		t.Fatalf("state after late settlement = %v", sup.State())
	}
}

func TestAbandonedInvocationEventsStayInvisible(t *testing.T) {
	settled := make(chan struct{})
	var eng *scriptedEngine
	eng = newScriptedEngine(func(ctx context.Context, outputName string, events engine.Events) error {
		defer close(settled)
		<-ctx.Done()
		// The abandoned invocation keeps talking before it settles. None of
		// this may reach the supervisor's log capture or the caller.
		events.Log("line from abandoned invocation")
		events.Progress(0.9)
		_ = eng.WriteInput(outputName, []byte("late output"))
		return ctx.Err()
	})

	mgr := engine.NewManager(eng, nil)
	if err := mgr.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	estimator := Estimator{Floor: 50 * time.Millisecond, Ceiling: time.Second}
	sup := NewSupervisor(mgr, fakeProber{result: defaultProbe()}, estimator, ModeThreaded, nil)
	req := validRequest()
	req.BudgetOverride = 50 * time.Millisecond

	var callerLogs []string
	var callerMu sync.Mutex
	req.Events = engine.Events{
		Log: func(line string) {
			callerMu.Lock()
			callerLogs = append(callerLogs, line)
			callerMu.Unlock()
		},
	}

	outcome, err := sup.Start(context.Background(), req)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if outcome.Kind != OutcomeTimedOut {
		t.Fatalf("kind = %v, want timed out", outcome.Kind)
	}

	select {
	case <-settled:
	case <-time.After(time.Second):
		t.Fatal("abandoned invocation never settled")
	}

	if logs := sup.Logs(); len(logs) != 0 {
		t.Fatalf("abandoned invocation changed visible state: logs = %v", logs)
	}
	callerMu.Lock()
	leaked := append([]string(nil), callerLogs...)
	callerMu.Unlock()
	if len(leaked) != 0 {
		t.Fatalf("caller saw events from abandoned invocation: %v", leaked)
	}

	// The next job's log capture stays clean too. Wait for the abandoned
	// invocation's deferred release before submitting it.
	deadline := time.Now().Add(time.Second)
	for mgr.State() != engine.StateReady {
		if time.Now().After(deadline) {
			t.Fatalf("engine never returned to ready, state = %v", mgr.State())
		}
		time.Sleep(time.Millisecond)
	}
	eng.mu.Lock()
	eng.script = nil
	eng.mu.Unlock()
	outcome, err = sup.Start(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("second start: %v", err)
	}
	if outcome.Kind != OutcomeSucceeded {
		t.Fatalf("second job kind = %v (reason %v)", outcome.Kind, outcome.Reason)
	}
	if logs := sup.Logs(); len(logs) != 0 {
		t.Fatalf("late line crossed a job boundary: %v", logs)
	}
}

func TestSingleModeIgnoresProgressForWatchdog(t *testing.T) {
	var eng *scriptedEngine
	eng = newScriptedEngine(func(ctx context.Context, outputName string, events engine.Events) error {
		ticker := time.NewTicker(20 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				events.Progress(0.5)
			}
		}
	})

	sup := newTestSupervisor(t, eng, ModeSingle)
	req := validRequest()
	req.BudgetOverride = 80 * time.Millisecond

	outcome, err := sup.Start(context.Background(), req)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if outcome.Kind != OutcomeTimedOut {
		t.Fatalf("kind = %v, want timed out: single mode must treat the budget as a hard ceiling", outcome.Kind)
	}
}

func TestSecondStartRejectedWhileRunning(t *testing.T) {
	release := make(chan struct{})
	running := make(chan struct{})
	var announce sync.Once
	var eng *scriptedEngine
	eng = newScriptedEngine(func(ctx context.Context, outputName string, events engine.Events) error {
		announce.Do(func() { close(running) })
		select {
		case <-release:
		case <-ctx.Done():
			return ctx.Err()
		}
		return eng.WriteInput(outputName, []byte("first output"))
	})

	sup := newTestSupervisor(t, eng, ModeThreaded)
	req := validRequest()
	req.BudgetOverride = time.Second

	done := make(chan JobOutcome, 1)
	go func() {
		outcome, _ := sup.Start(context.Background(), req)
		done <- outcome
	}()
	<-running

	if _, err := sup.Start(context.Background(), validRequest()); !errors.Is(err, services.ErrBusy) {
		t.Fatalf("second start = %v, want busy rejection", err)
	}

	close(release)
	outcome := <-done
	if outcome.Kind != OutcomeSucceeded {
		t.Fatalf("first job kind = %v (reason %v)", outcome.Kind, outcome.Reason)
	}

	// A new job may start once the previous one is terminal.
	outcome, err := sup.Start(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("third start: %v", err)
	}
	if outcome.Kind != OutcomeSucceeded {
		t.Fatalf("third job kind = %v (reason %v)", outcome.Kind, outcome.Reason)
	}
}

func TestEngineFailureClassifiedDistinctFromTimeout(t *testing.T) {
	eng := newScriptedEngine(func(ctx context.Context, outputName string, events engine.Events) error {
		return errors.New("exit status 187")
	})

	sup := newTestSupervisor(t, eng, ModeThreaded)
	outcome, err := sup.Start(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if outcome.Kind != OutcomeFailed {
		t.Fatalf("kind = %v, want failed", outcome.Kind)
	}
	if !errors.Is(outcome.Reason, services.ErrEngine) || errors.Is(outcome.Reason, services.ErrTimeout) {
		t.Fatalf("reason = %v", outcome.Reason)
	}
}

func TestLogsResetBetweenJobs(t *testing.T) {
	var eng *scriptedEngine
	calls := 0
	eng = newScriptedEngine(func(ctx context.Context, outputName string, events engine.Events) error {
		calls++
		if calls == 1 {
			events.Log("first job line")
		} else {
			events.Log("second job line")
		}
		return eng.WriteInput(outputName, []byte("out"))
	})

	sup := newTestSupervisor(t, eng, ModeThreaded)
	if _, err := sup.Start(context.Background(), validRequest()); err != nil {
		t.Fatal(err)
	}
	if _, err := sup.Start(context.Background(), validRequest()); err != nil {
		t.Fatal(err)
	}

	logs := sup.Logs()
	if len(logs) != 1 || logs[0] != "second job line" {
		t.Fatalf("logs leaked across jobs: %v", logs)
	}
}

func TestEmptyOutputIsFailure(t *testing.T) {
	var eng *scriptedEngine
	eng = newScriptedEngine(func(ctx context.Context, outputName string, events engine.Events) error {
		return eng.WriteInput(outputName, nil)
	})

	sup := newTestSupervisor(t, eng, ModeThreaded)
	outcome, err := sup.Start(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if outcome.Kind != OutcomeFailed || !errors.Is(outcome.Reason, services.ErrEngine) {
		t.Fatalf("outcome = %+v", outcome)
	}
}
