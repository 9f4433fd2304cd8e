// Package gesture converts classified gesture events into deck navigation commands.
package gesture

// EmptyClass is the classifier's sentinel for "no gesture present".
// Events carrying it are filtered out before they reach the state machine.
const EmptyClass = "empty"

// PredictionEvent is one classified gesture received from the backend.
// Events are ephemeral: they are acted on or dropped, never queued.
type PredictionEvent struct {
	// Class is the predicted gesture label, e.g. "like", "stop",
	// "two_up_inverted".
	Class string

	// Confidence is the classifier's confidence in [0,1].
	Confidence float64

	// Direction optionally refines the gesture, e.g. "Left" or "Right"
	// for a tilted two-finger point.
	Direction string
}
