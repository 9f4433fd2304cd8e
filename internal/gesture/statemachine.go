package gesture

import (
	"log"
	"sync"
	"time"
)

// Default gating parameters.
const (
	// DefaultConfidenceThreshold is the minimum confidence for an event
	// to be acted upon.
	DefaultConfidenceThreshold = 0.9
	// DefaultLockDuration is the minimum time between accepted actions.
	DefaultLockDuration = 1750 * time.Millisecond
)

// Dialog gestures. Exactly two gestures are meaningful while the exit
// confirmation dialog is open.
const (
	// ConfirmGesture confirms the exit dialog and leaves the deck.
	ConfirmGesture = "like"
	// DialogGesture is the gesture that opened the dialog; seeing it again
	// closes the dialog without exiting.
	DialogGesture = "stop"
)

// Deck is the external presentation collaborator driven by the state
// machine. Implementations render slides and report readiness; none of
// that happens here.
type Deck interface {
	// Ready reports whether the deck can accept navigation commands.
	Ready() bool
	NextSlide() error
	PrevSlide() error
	// ExitPreview leaves the current deck/preview.
	ExitPreview() error
}

// StateMachineConfig holds tunables for the state machine.
type StateMachineConfig struct {
	// ConfidenceThreshold below which events are discarded.
	ConfidenceThreshold float64
	// LockDuration is the debounce window between processed events.
	LockDuration time.Duration
	// Bindings maps gestures to navigation actions.
	Bindings Bindings
}

// StateMachine turns a stream of PredictionEvents into deck commands.
//
// Two layers of gating apply to every event, in order: a global navigation
// lock that absorbs bursts from a held gesture, then a confidence floor.
// The lock timestamp is updated before the confidence check, so any event
// arriving outside the lock window restarts it, including low-confidence
// noise. That ordering is deliberate: while a gesture is being held, the
// stream of repeats keeps the lock warm regardless of per-frame confidence
// wobble.
//
// A small sub-machine handles exit confirmation: an open dialog reacts to
// exactly two gestures and ignores everything else.
type StateMachine struct {
	cfg  StateMachineConfig
	deck Deck

	mu           sync.Mutex
	lastActionAt time.Time
	dialogOpen   bool

	onDialog func(open bool)

	// now is swapped out in tests
	now func() time.Time
}

// NewStateMachine creates a StateMachine driving the given deck.
// Zero-valued config fields fall back to the package defaults.
func NewStateMachine(deck Deck, cfg StateMachineConfig) *StateMachine {
	if cfg.ConfidenceThreshold <= 0 {
		cfg.ConfidenceThreshold = DefaultConfidenceThreshold
	}
	if cfg.LockDuration <= 0 {
		cfg.LockDuration = DefaultLockDuration
	}
	if cfg.Bindings == nil {
		cfg.Bindings = DefaultBindings()
	}

	return &StateMachine{
		cfg:  cfg,
		deck: deck,
		now:  time.Now,
	}
}

// OnDialog sets a callback invoked whenever the exit dialog opens or
// closes, so a collaborator can render it.
func (m *StateMachine) OnDialog(fn func(open bool)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onDialog = fn
}

// DialogOpen reports whether the exit confirmation dialog is open.
func (m *StateMachine) DialogOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dialogOpen
}

// Handle processes one PredictionEvent. Discarded events leave no trace:
// there is no queue and no retry.
func (m *StateMachine) Handle(ev PredictionEvent) {
	m.mu.Lock()

	now := m.now()
	if now.Sub(m.lastActionAt) < m.cfg.LockDuration {
		m.mu.Unlock()
		return
	}
	m.lastActionAt = now

	if ev.Confidence < m.cfg.ConfidenceThreshold {
		m.mu.Unlock()
		return
	}

	if m.dialogOpen {
		m.handleDialogLocked(ev)
		return
	}

	if !m.deck.Ready() {
		m.mu.Unlock()
		return
	}

	action, ok := m.cfg.Bindings.Resolve(ev.Class, ev.Direction)
	if !ok {
		m.mu.Unlock()
		return
	}

	switch action {
	case ActionNextSlide:
		m.mu.Unlock()
		if err := m.deck.NextSlide(); err != nil {
			log.Printf("gesture: next slide: %v", err)
		}
	case ActionPrevSlide:
		m.mu.Unlock()
		if err := m.deck.PrevSlide(); err != nil {
			log.Printf("gesture: prev slide: %v", err)
		}
	case ActionOpenExitDialog:
		m.dialogOpen = true
		notify := m.onDialog
		m.mu.Unlock()
		if notify != nil {
			notify(true)
		}
	default:
		m.mu.Unlock()
	}
}

// handleDialogLocked processes an event while the exit dialog is open.
// Called with m.mu held; releases it. Returning immediately after the
// dialog branch means the gesture that opened the dialog can never
// re-trigger opening while it is already open.
func (m *StateMachine) handleDialogLocked(ev PredictionEvent) {
	switch ev.Class {
	case ConfirmGesture:
		m.dialogOpen = false
		notify := m.onDialog
		m.mu.Unlock()
		if notify != nil {
			notify(false)
		}
		if err := m.deck.ExitPreview(); err != nil {
			log.Printf("gesture: exit preview: %v", err)
		}
	case DialogGesture:
		m.dialogOpen = false
		notify := m.onDialog
		m.mu.Unlock()
		if notify != nil {
			notify(false)
		}
	default:
		// Any other gesture leaves the dialog untouched.
		m.mu.Unlock()
	}
}
