package channel

import (
	"sync"
	"testing"
	"time"

	"github.com/ayusman/mudra/internal/gesture"
)

// collectEvents wires a dispatcher to a plain channel (no connection) and
// feeds payloads straight through the message fan-out.
func collectEvents(t *testing.T, payloads ...string) []gesture.PredictionEvent {
	t.Helper()

	ch := New(Config{URL: "ws://unused"})
	d := NewDispatcher(ch)
	defer d.Close()

	var mu sync.Mutex
	var events []gesture.PredictionEvent
	d.OnPrediction(func(ev gesture.PredictionEvent) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	})

	for _, p := range payloads {
		ch.emitMessage([]byte(p))
	}

	mu.Lock()
	defer mu.Unlock()
	out := make([]gesture.PredictionEvent, len(events))
	copy(out, events)
	return out
}

func TestDispatcher_ForwardsPrediction(t *testing.T) {
	events := collectEvents(t,
		`{"prediction":{"predicted_class":"two_up_inverted","confidence":0.95,"direction":"Left"}}`,
	)

	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}

	ev := events[0]
	if ev.Class != "two_up_inverted" || ev.Confidence != 0.95 || ev.Direction != "Left" {
		t.Errorf("event = %+v, want two_up_inverted/0.95/Left", ev)
	}
}

func TestDispatcher_DropsEmptySentinel(t *testing.T) {
	events := collectEvents(t,
		`{"prediction":{"predicted_class":"empty","confidence":0.99}}`,
	)

	if len(events) != 0 {
		t.Errorf("got %d events, want 0 for empty sentinel", len(events))
	}
}

func TestDispatcher_DropsPong(t *testing.T) {
	events := collectEvents(t, `{"type":"pong"}`)

	if len(events) != 0 {
		t.Errorf("got %d events, want 0 for pong", len(events))
	}
}

func TestDispatcher_IgnoresFrameEcho(t *testing.T) {
	events := collectEvents(t, `{"frame":"base64data"}`)

	if len(events) != 0 {
		t.Errorf("got %d events, want 0 for frame-only payload", len(events))
	}
}

func TestDispatcher_MalformedPayloadReportsError(t *testing.T) {
	ch := New(Config{URL: "ws://unused"})
	d := NewDispatcher(ch)
	defer d.Close()

	errCh := make(chan error, 1)
	ch.OnError(func(err error) {
		select {
		case errCh <- err:
		default:
		}
	})

	var called bool
	d.OnPrediction(func(ev gesture.PredictionEvent) { called = true })

	ch.emitMessage([]byte("][ garbage"))

	select {
	case <-errCh:
	case <-time.After(time.Second):
		t.Fatal("error hook not invoked for malformed payload")
	}

	if called {
		t.Error("prediction handler invoked for malformed payload")
	}
}

func TestDispatcher_UnsubscribeStopsDelivery(t *testing.T) {
	ch := New(Config{URL: "ws://unused"})
	d := NewDispatcher(ch)
	defer d.Close()

	var mu sync.Mutex
	count := 0
	unsub := d.OnPrediction(func(ev gesture.PredictionEvent) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	payload := `{"prediction":{"predicted_class":"stop","confidence":0.95}}`
	ch.emitMessage([]byte(payload))
	unsub()
	ch.emitMessage([]byte(payload))

	mu.Lock()
	defer mu.Unlock()
	if count != 1 {
		t.Errorf("handler called %d times, want 1", count)
	}
}
