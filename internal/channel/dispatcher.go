package channel

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ayusman/mudra/internal/gesture"
)

// Prediction is the classifier result carried in an inbound payload.
type Prediction struct {
	PredictedClass string  `json:"predicted_class"`
	Confidence     float64 `json:"confidence"`
	Direction      string  `json:"direction,omitempty"`
}

// inboundMessage is the envelope the backend sends over the channel.
// Either field may be absent; unknown shapes are treated as protocol
// errors.
type inboundMessage struct {
	Type       string      `json:"type,omitempty"`
	Frame      string      `json:"frame,omitempty"`
	Prediction *Prediction `json:"prediction,omitempty"`
}

// Dispatcher parses inbound channel payloads defensively and forwards
// classified gestures as PredictionEvents. Malformed payloads trigger the
// channel's error hook and are dropped; they never close the channel.
//
// The "empty" class sentinel (no gesture present) and pong heartbeats are
// absorbed here. Frames echoed by the backend are ignored: nothing in
// this pipeline renders received video.
type Dispatcher struct {
	ch          *Channel
	unsubscribe func()

	mu       sync.Mutex
	handlers []func(gesture.PredictionEvent)
}

// NewDispatcher creates a Dispatcher subscribed to the given channel.
func NewDispatcher(ch *Channel) *Dispatcher {
	d := &Dispatcher{ch: ch}
	d.unsubscribe = ch.OnMessage(d.handle)
	return d
}

// OnPrediction registers a consumer for PredictionEvents. The returned
// function removes the registration.
func (d *Dispatcher) OnPrediction(fn func(gesture.PredictionEvent)) func() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.handlers = append(d.handlers, fn)
	idx := len(d.handlers) - 1

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.handlers[idx] = nil
	}
}

// Close detaches the dispatcher from the channel.
func (d *Dispatcher) Close() {
	if d.unsubscribe != nil {
		d.unsubscribe()
		d.unsubscribe = nil
	}
}

func (d *Dispatcher) handle(data []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		d.ch.emitError(fmt.Errorf("malformed inbound payload: %w", err))
		return
	}

	// Heartbeat reply; nothing to do.
	if msg.Type == "pong" {
		return
	}

	if msg.Prediction == nil {
		return
	}

	// "empty" means no gesture was present; it never becomes an event.
	if msg.Prediction.PredictedClass == gesture.EmptyClass {
		return
	}

	ev := gesture.PredictionEvent{
		Class:      msg.Prediction.PredictedClass,
		Confidence: msg.Prediction.Confidence,
		Direction:  msg.Prediction.Direction,
	}

	d.mu.Lock()
	handlers := make([]func(gesture.PredictionEvent), len(d.handlers))
	copy(handlers, d.handlers)
	d.mu.Unlock()

	for _, fn := range handlers {
		if fn == nil {
			continue
		}
		fn := fn
		safeCall(func() { fn(ev) })
	}
}
