package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"reframe/internal/logging"
	"reframe/internal/services"
)

// State identifies the engine lifecycle phase.
type State string

const (
	StateUnloaded   State = "unloaded"
	StateLoading    State = "loading"
	StateReady      State = "ready"
	StateBusy       State = "busy"
	StateLoadFailed State = "load_failed"
)

// Manager enforces the engine lifecycle over an Engine implementation: load
// exactly once, one invocation at a time, always back to ready when an
// invocation finishes regardless of how it ended.
type Manager struct {
	engine Engine
	logger *slog.Logger

	mu      sync.Mutex
	state   State
	loadErr error
}

// NewManager wraps engine with lifecycle enforcement.
func NewManager(engine Engine, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{
		engine: engine,
		logger: logging.NewComponentLogger(logger, "engine"),
		state:  StateUnloaded,
	}
}

// State reports the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Load initializes the engine. A successful load is remembered; calling Load
// again is a no-op. A failed load is terminal for the process lifetime and
// every later call reports the original failure.
func (m *Manager) Load(ctx context.Context) error {
	m.mu.Lock()
	switch m.state {
	case StateReady, StateBusy:
		m.mu.Unlock()
		return nil
	case StateLoading:
		m.mu.Unlock()
		return services.Wrap(services.ErrBusy, "engine", "load", "load already in progress", nil)
	case StateLoadFailed:
		err := m.loadErr
		m.mu.Unlock()
		return err
	}
	m.state = StateLoading
	m.mu.Unlock()

	started := time.Now()
	err := m.engine.Load(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.loadErr = services.Wrap(services.ErrEngineLoad, "engine", "load", "", err)
		m.state = StateLoadFailed
		m.logger.Error("engine load failed", logging.Error(m.loadErr))
		return m.loadErr
	}
	m.state = StateReady
	m.logger.Info("engine loaded", logging.Duration("elapsed", time.Since(started)))
	return nil
}

// Invoke runs one command. It rejects callers while another invocation is in
// flight and filters progress values outside [0, 1] before they reach events.
// The engine returns to ready whether the command succeeds, fails, or is
// cancelled.
func (m *Manager) Invoke(ctx context.Context, argv []string, events Events) error {
	if err := m.acquire(); err != nil {
		return err
	}
	defer m.release()

	filtered := Events{
		Log: events.log,
		Progress: func(fraction float64) {
			if fraction < 0 || fraction > 1 {
				m.logger.Debug("dropping out-of-range progress", logging.Float64("fraction", fraction))
				return
			}
			events.progress(fraction)
		},
	}

	if err := m.engine.Run(ctx, argv, filtered); err != nil {
		if ctx.Err() != nil {
			return services.Wrap(services.ErrTimeout, "engine", "invoke", "invocation cancelled", ctx.Err())
		}
		return services.Wrap(services.ErrEngine, "engine", "invoke", "", err)
	}
	return nil
}

// WriteInput stores data in engine storage. The engine must be loaded.
func (m *Manager) WriteInput(name string, data []byte) error {
	if err := m.requireLoaded("write input"); err != nil {
		return err
	}
	if err := m.engine.WriteInput(name, data); err != nil {
		return services.Wrap(services.ErrEngine, "engine", "write input", "", err)
	}
	return nil
}

// ReadOutput retrieves a named artifact from engine storage.
func (m *Manager) ReadOutput(name string) ([]byte, error) {
	if err := m.requireLoaded("read output"); err != nil {
		return nil, err
	}
	data, err := m.engine.ReadOutput(name)
	if err != nil {
		return nil, services.Wrap(services.ErrEngine, "engine", "read output", "", err)
	}
	return data, nil
}

// Remove deletes a named artifact from engine storage.
func (m *Manager) Remove(name string) error {
	if err := m.requireLoaded("remove"); err != nil {
		return err
	}
	if err := m.engine.Remove(name); err != nil {
		return services.Wrap(services.ErrEngine, "engine", "remove", "", err)
	}
	return nil
}

func (m *Manager) acquire() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch m.state {
	case StateBusy:
		return services.Wrap(services.ErrBusy, "engine", "invoke", "another invocation is in flight", nil)
	case StateReady:
		m.state = StateBusy
		return nil
	case StateLoadFailed:
		return m.loadErr
	default:
		return services.Wrap(services.ErrEngine, "engine", "invoke", "engine not loaded", nil)
	}
}

func (m *Manager) release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateBusy {
		m.state = StateReady
	}
}

func (m *Manager) requireLoaded(operation string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch m.state {
	case StateReady, StateBusy:
		return nil
	case StateLoadFailed:
		return m.loadErr
	default:
		return services.Wrap(services.ErrEngine, "engine", operation, "engine not loaded", nil)
	}
}
