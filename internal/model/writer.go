package model

// Writer defines a generic interface for persisting the result of an experiment run.
type Writer interface {
	// Write takes a run result and persists it.
	Write(result *RunResult) error

	// Name returns the registered writer type.
	Name() string
}
