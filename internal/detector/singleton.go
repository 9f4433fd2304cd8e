package detector

import "sync"

// Status describes the lifecycle of a shared detector.
type Status int

const (
	// StatusLoading means initialization has not completed yet.
	StatusLoading Status = iota
	// StatusReady means the detector initialized successfully.
	StatusReady
	// StatusError means initialization failed; the error is terminal.
	StatusError
)

// String returns a human-readable status name.
func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusError:
		return "error"
	}
	return "unknown"
}

// Holder initializes a Detector exactly once and shares the outcome.
// Detection loops poll TryGet until the detector is ready; concurrent
// consumers share a single initialization run instead of racing their own.
type Holder struct {
	factory func() (Detector, error)

	mu      sync.Mutex
	started bool
	status  Status
	det     Detector
	err     error
	done    chan struct{}
}

// NewHolder creates a Holder around the given detector factory.
// Initialization does not begin until Start, TryGet, or Wait is called.
func NewHolder(factory func() (Detector, error)) *Holder {
	return &Holder{
		factory: factory,
		status:  StatusLoading,
		done:    make(chan struct{}),
	}
}

// Start launches initialization in the background if it has not run yet.
// Safe to call any number of times.
func (h *Holder) Start() {
	h.mu.Lock()
	if h.started {
		h.mu.Unlock()
		return
	}
	h.started = true
	h.mu.Unlock()

	go func() {
		det, err := h.factory()

		h.mu.Lock()
		h.det = det
		h.err = err
		if err != nil {
			h.status = StatusError
		} else {
			h.status = StatusReady
		}
		h.mu.Unlock()

		close(h.done)
	}()
}

// Status returns the current initialization status.
func (h *Holder) Status() Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

// TryGet returns the shared detector if initialization has completed
// successfully. It kicks off initialization on first call and never blocks.
func (h *Holder) TryGet() (Detector, bool) {
	h.Start()

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.status != StatusReady {
		return nil, false
	}
	return h.det, true
}

// Wait blocks until initialization finishes and returns the shared
// detector or the initialization error.
func (h *Holder) Wait() (Detector, error) {
	h.Start()
	<-h.done

	h.mu.Lock()
	defer h.mu.Unlock()
	return h.det, h.err
}

// Close releases the shared detector if it was created.
func (h *Holder) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.status == StatusReady && h.det != nil {
		return h.det.Close()
	}
	return nil
}
