package gesture

// Action identifies a deck command triggered by a gesture.
type Action string

const (
	// ActionNextSlide advances the deck by one slide.
	ActionNextSlide Action = "next_slide"
	// ActionPrevSlide moves the deck back by one slide.
	ActionPrevSlide Action = "prev_slide"
	// ActionOpenExitDialog opens the exit confirmation dialog.
	ActionOpenExitDialog Action = "open_exit_dialog"
)

// Binding maps a gesture (plus an optional direction) to an action.
// An empty Direction matches events with any direction.
type Binding struct {
	Gesture   string `json:"gesture"`
	Direction string `json:"direction,omitempty"`
	Action    Action `json:"action"`
}

// Bindings is an ordered mapping table evaluated first-match. New gestures
// are added as data, not as branching code.
type Bindings []Binding

// Resolve returns the action bound to the given gesture and direction.
// The second return value is false when no binding matches.
func (b Bindings) Resolve(gesture, direction string) (Action, bool) {
	for _, binding := range b {
		if binding.Gesture != gesture {
			continue
		}
		if binding.Direction != "" && binding.Direction != direction {
			continue
		}
		return binding.Action, true
	}
	return "", false
}

// DefaultBindings returns the stock gesture mapping: a two-finger point
// tilted left/right navigates, an open palm asks to exit.
func DefaultBindings() Bindings {
	return Bindings{
		{Gesture: "two_up_inverted", Direction: "Left", Action: ActionNextSlide},
		{Gesture: "two_up_inverted", Direction: "Right", Action: ActionPrevSlide},
		{Gesture: "stop", Action: ActionOpenExitDialog},
	}
}
