package deck

import "sync"

// MockDeck is a test implementation that records issued commands.
type MockDeck struct {
	mu        sync.Mutex
	ready     bool
	NextCalls int
	PrevCalls int
	ExitCalls int
	err       error
}

// NewMockDeck creates a MockDeck that reports ready.
func NewMockDeck() *MockDeck {
	return &MockDeck{ready: true}
}

// SetReady controls the readiness predicate.
func (d *MockDeck) SetReady(ready bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ready = ready
}

// SetError sets the error returned by all commands.
func (d *MockDeck) SetError(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.err = err
}

func (d *MockDeck) Ready() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ready
}

func (d *MockDeck) NextSlide() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.NextCalls++
	return d.err
}

func (d *MockDeck) PrevSlide() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.PrevCalls++
	return d.err
}

func (d *MockDeck) ExitPreview() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ExitCalls++
	return d.err
}

// Calls returns the recorded command counts as (next, prev, exit).
func (d *MockDeck) Calls() (int, int, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.NextCalls, d.PrevCalls, d.ExitCalls
}
