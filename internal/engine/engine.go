package engine

import "context"

// Events carries the callbacks an invocation streams while running. Either
// callback may be nil when the caller does not care.
type Events struct {
	// Progress receives completion fractions in [0, 1]. Values outside that
	// range never reach the caller; Manager drops them.
	Progress func(fraction float64)
	// Log receives raw engine output lines as they appear.
	Log func(line string)
}

func (e Events) progress(fraction float64) {
	if e.Progress != nil {
		e.Progress(fraction)
	}
}

func (e Events) log(line string) {
	if e.Log != nil {
		e.Log(line)
	}
}

// Engine is the opaque transcoding engine contract. Implementations own a
// private storage namespace addressed by bare names; callers never see real
// paths.
type Engine interface {
	// Load initializes the engine. Called once per process.
	Load(ctx context.Context) error
	// WriteInput stores data under name in engine storage.
	WriteInput(name string, data []byte) error
	// ReadOutput retrieves a named artifact from engine storage.
	ReadOutput(name string) ([]byte, error)
	// Remove deletes a named artifact. Removing a missing name is not an
	// error.
	Remove(name string) error
	// Run executes one command. Names in argv resolve against engine
	// storage. Cancelling ctx terminates the command.
	Run(ctx context.Context, argv []string, events Events) error
}
