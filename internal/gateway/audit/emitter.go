package audit

import "errors"

// Emitter defines the interface for audit logging backends.
// Implementations should be fire-and-forget, non-blocking.
type Emitter interface {
	// Emit records an event. Errors are logged internally, never returned.
	Emit(event *FetchEvent)

	// Close gracefully shuts down the emitter.
	Close() error
}

// NoopEmitter is a no-op implementation for testing and disabled auditing.
type NoopEmitter struct{}

func (n *NoopEmitter) Emit(event *FetchEvent) {}

func (n *NoopEmitter) Close() error { return nil }

// MultiEmitter dispatches events to multiple backends.
type MultiEmitter struct {
	emitters []Emitter
}

func NewMultiEmitter(emitters ...Emitter) *MultiEmitter {
	return &MultiEmitter{emitters: emitters}
}

func (m *MultiEmitter) Emit(event *FetchEvent) {
	for _, e := range m.emitters {
		e.Emit(event)
	}
}

func (m *MultiEmitter) Close() error {
	var errs []error
	for _, e := range m.emitters {
		if err := e.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
