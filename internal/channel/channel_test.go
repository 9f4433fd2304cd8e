package channel

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsServer is a minimal websocket backend for channel tests.
type wsServer struct {
	*httptest.Server
	mu    sync.Mutex
	conns []*websocket.Conn
	dials int
}

func newWSServer(t *testing.T) *wsServer {
	t.Helper()

	s := &wsServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}

		s.mu.Lock()
		s.conns = append(s.conns, conn)
		s.dials++
		s.mu.Unlock()

		// Drain inbound frames so close handshakes are processed.
		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	}))
	t.Cleanup(s.Server.Close)

	return s
}

func (s *wsServer) wsURL() string {
	return "ws" + strings.TrimPrefix(s.Server.URL, "http")
}

func (s *wsServer) dialCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dials
}

// send pushes a text frame to the most recent connection.
func (s *wsServer) send(t *testing.T, payload string) {
	t.Helper()

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.conns) == 0 {
		t.Fatal("no server-side connection")
	}
	conn := s.conns[len(s.conns)-1]
	if err := conn.WriteMessage(websocket.TextMessage, []byte(payload)); err != nil {
		t.Fatalf("server write: %v", err)
	}
}

// dropLast closes the most recent connection server-side.
func (s *wsServer) dropLast(t *testing.T) {
	t.Helper()

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.conns) == 0 {
		t.Fatal("no server-side connection")
	}
	s.conns[len(s.conns)-1].Close()
}

// waitFor polls until the condition holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestChannel_ConnectOpens(t *testing.T) {
	srv := newWSServer(t)

	ch := New(Config{URL: srv.wsURL(), AutoReconnect: true})
	defer ch.Disconnect()

	ch.Connect()
	waitFor(t, "open state", func() bool { return ch.State() == StateOpen })

	if got := ch.ReconnectAttempts(); got != 0 {
		t.Errorf("ReconnectAttempts() = %d, want 0", got)
	}
}

func TestChannel_ConnectIsNoopWhileOpen(t *testing.T) {
	srv := newWSServer(t)

	ch := New(Config{URL: srv.wsURL(), AutoReconnect: true})
	defer ch.Disconnect()

	ch.Connect()
	waitFor(t, "open state", func() bool { return ch.State() == StateOpen })

	ch.Connect()
	time.Sleep(50 * time.Millisecond)

	if got := srv.dialCount(); got != 1 {
		t.Errorf("dial count = %d, want 1 (Connect must be a no-op while open)", got)
	}
}

func TestChannel_SendRequiresOpen(t *testing.T) {
	ch := New(Config{URL: "ws://127.0.0.1:1/ws"})

	if ch.Send(map[string]string{"type": "frame"}) {
		t.Error("Send() = true on a closed channel")
	}
}

func TestChannel_SendWhileConnecting(t *testing.T) {
	// A dial that never completes keeps the channel in CONNECTING.
	release := make(chan struct{})
	ch := New(Config{URL: "ws://unused"})
	ch.dial = func(url string) (*websocket.Conn, error) {
		<-release
		return nil, errors.New("canceled")
	}
	defer close(release)

	ch.Connect()
	waitFor(t, "connecting state", func() bool { return ch.State() == StateConnecting })

	if ch.Send(map[string]string{"type": "frame"}) {
		t.Error("Send() = true while connecting")
	}
}

func TestChannel_SendDelivers(t *testing.T) {
	received := make(chan []byte, 1)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		_, data, err := conn.ReadMessage()
		if err == nil {
			received <- data
		}
	}))
	defer ts.Close()

	ch := New(Config{URL: "ws" + strings.TrimPrefix(ts.URL, "http")})
	defer ch.Disconnect()

	ch.Connect()
	waitFor(t, "open state", func() bool { return ch.State() == StateOpen })

	if !ch.Send(map[string]any{"type": "frame", "timestamp": 123}) {
		t.Fatal("Send() = false on open channel")
	}

	select {
	case data := <-received:
		if !strings.Contains(string(data), `"type":"frame"`) {
			t.Errorf("server received %q, want frame message", data)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server never received the message")
	}
}

func TestChannel_ReconnectsAfterDrop(t *testing.T) {
	srv := newWSServer(t)

	ch := New(Config{
		URL:                  srv.wsURL(),
		AutoReconnect:        true,
		ReconnectDelay:       20 * time.Millisecond,
		MaxReconnectAttempts: 3,
	})
	defer ch.Disconnect()

	ch.Connect()
	waitFor(t, "open state", func() bool { return ch.State() == StateOpen })

	srv.dropLast(t)
	waitFor(t, "reopen after drop", func() bool {
		return srv.dialCount() == 2 && ch.State() == StateOpen
	})

	// A successful open resets the attempt counter.
	if got := ch.ReconnectAttempts(); got != 0 {
		t.Errorf("ReconnectAttempts() after reopen = %d, want 0", got)
	}
}

func TestChannel_FailsAfterAttemptCap(t *testing.T) {
	var mu sync.Mutex
	dials := 0

	ch := New(Config{
		URL:                  "ws://unused",
		AutoReconnect:        true,
		ReconnectDelay:       15 * time.Millisecond,
		MaxReconnectAttempts: 3,
	})
	ch.dial = func(url string) (*websocket.Conn, error) {
		mu.Lock()
		dials++
		mu.Unlock()
		return nil, errors.New("connection refused")
	}

	start := time.Now()
	ch.Connect()
	waitFor(t, "failed state", func() bool { return ch.State() == StateFailed })

	// Initial dial plus exactly three reconnect attempts.
	mu.Lock()
	got := dials
	mu.Unlock()
	if got != 4 {
		t.Errorf("dial count = %d, want 4 (1 initial + 3 reconnects)", got)
	}

	// Three delays must have elapsed.
	if elapsed := time.Since(start); elapsed < 45*time.Millisecond {
		t.Errorf("failed after %v, want at least 3 reconnect delays", elapsed)
	}

	// FAILED is terminal: no further attempts without an explicit Connect.
	time.Sleep(60 * time.Millisecond)
	mu.Lock()
	if dials != got {
		t.Errorf("dial count grew to %d after FAILED", dials)
	}
	mu.Unlock()

	// Explicit Connect resets the counter and tries again.
	ch.Connect()
	waitFor(t, "dial after explicit connect", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return dials > got
	})
	ch.Disconnect()
}

func TestChannel_ConnectRestoresFullAttemptBudget(t *testing.T) {
	var mu sync.Mutex
	dials := 0

	// The wide delay keeps the reconnect timer from firing between the
	// attempt observation and the Disconnect below.
	ch := New(Config{
		URL:                  "ws://unused",
		AutoReconnect:        true,
		ReconnectDelay:       60 * time.Millisecond,
		MaxReconnectAttempts: 3,
	})
	ch.dial = func(url string) (*websocket.Conn, error) {
		mu.Lock()
		dials++
		mu.Unlock()
		return nil, errors.New("connection refused")
	}

	// Burn part of the budget, then abort the session mid-wait.
	ch.Connect()
	waitFor(t, "second reconnect attempt", func() bool { return ch.ReconnectAttempts() >= 2 })
	ch.Disconnect()

	mu.Lock()
	dials = 0
	mu.Unlock()

	// A fresh explicit Connect must not inherit the spent attempts: the
	// new session gets the initial dial plus the full reconnect cap.
	ch.Connect()
	waitFor(t, "failed state", func() bool { return ch.State() == StateFailed })

	mu.Lock()
	got := dials
	mu.Unlock()
	if got != 4 {
		t.Errorf("dial count = %d, want 4 (1 initial + 3 reconnects)", got)
	}
}

func TestChannel_DisconnectCancelsReconnect(t *testing.T) {
	var mu sync.Mutex
	dials := 0

	ch := New(Config{
		URL:                  "ws://unused",
		AutoReconnect:        true,
		ReconnectDelay:       50 * time.Millisecond,
		MaxReconnectAttempts: 5,
	})
	ch.dial = func(url string) (*websocket.Conn, error) {
		mu.Lock()
		dials++
		mu.Unlock()
		return nil, errors.New("connection refused")
	}

	ch.Connect()
	waitFor(t, "reconnect wait", func() bool { return ch.State() == StateReconnectWait })

	ch.Disconnect()
	if ch.State() != StateClosed {
		t.Errorf("state after Disconnect = %v, want %v", ch.State(), StateClosed)
	}

	mu.Lock()
	before := dials
	mu.Unlock()

	time.Sleep(120 * time.Millisecond)

	mu.Lock()
	after := dials
	mu.Unlock()
	if after != before {
		t.Errorf("dials continued after Disconnect: %d -> %d", before, after)
	}
}

func TestChannel_NoReconnectWhenDisabled(t *testing.T) {
	srv := newWSServer(t)

	ch := New(Config{URL: srv.wsURL(), AutoReconnect: false})
	ch.Connect()
	waitFor(t, "open state", func() bool { return ch.State() == StateOpen })

	srv.dropLast(t)
	waitFor(t, "closed state", func() bool { return ch.State() == StateClosed })

	time.Sleep(50 * time.Millisecond)
	if got := srv.dialCount(); got != 1 {
		t.Errorf("dial count = %d, want 1 with auto-reconnect disabled", got)
	}
}

func TestChannel_MalformedPayloadKeepsChannelOpen(t *testing.T) {
	srv := newWSServer(t)

	ch := New(Config{URL: srv.wsURL()})
	defer ch.Disconnect()

	var mu sync.Mutex
	var errs []error
	ch.OnError(func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	})

	d := NewDispatcher(ch)
	defer d.Close()

	ch.Connect()
	waitFor(t, "open state", func() bool { return ch.State() == StateOpen })

	srv.send(t, "{not json")
	waitFor(t, "error hook", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(errs) == 1
	})

	if ch.State() != StateOpen {
		t.Errorf("state after malformed payload = %v, want %v", ch.State(), StateOpen)
	}
}

func TestChannel_HandlerPanicIsolation(t *testing.T) {
	srv := newWSServer(t)

	ch := New(Config{URL: srv.wsURL()})
	defer ch.Disconnect()

	secondCalled := make(chan struct{}, 1)
	ch.OnMessage(func(data []byte) {
		panic("misbehaving subscriber")
	})
	ch.OnMessage(func(data []byte) {
		select {
		case secondCalled <- struct{}{}:
		default:
		}
	})

	ch.Connect()
	waitFor(t, "open state", func() bool { return ch.State() == StateOpen })

	srv.send(t, `{"prediction":{"predicted_class":"stop","confidence":0.95}}`)

	select {
	case <-secondCalled:
	case <-time.After(2 * time.Second):
		t.Fatal("second handler not invoked after first panicked")
	}

	if ch.State() != StateOpen {
		t.Errorf("state after handler panic = %v, want %v", ch.State(), StateOpen)
	}
}

func TestChannel_Unsubscribe(t *testing.T) {
	srv := newWSServer(t)

	ch := New(Config{URL: srv.wsURL()})
	defer ch.Disconnect()

	var mu sync.Mutex
	first, second := 0, 0
	unsub := ch.OnMessage(func(data []byte) {
		mu.Lock()
		first++
		mu.Unlock()
	})
	ch.OnMessage(func(data []byte) {
		mu.Lock()
		second++
		mu.Unlock()
	})

	ch.Connect()
	waitFor(t, "open state", func() bool { return ch.State() == StateOpen })

	srv.send(t, `{}`)
	waitFor(t, "both handlers", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return first == 1 && second == 1
	})

	unsub()
	srv.send(t, `{}`)
	waitFor(t, "second handler again", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return second == 2
	})

	mu.Lock()
	defer mu.Unlock()
	if first != 1 {
		t.Errorf("unsubscribed handler called %d times, want 1", first)
	}
}

func TestChannel_NextRequestID(t *testing.T) {
	ch := New(Config{URL: "ws://unused"})

	seen := make(map[uint64]bool)
	var last uint64
	for i := 0; i < 100; i++ {
		id := ch.NextRequestID()
		if seen[id] {
			t.Fatalf("request id %d repeated", id)
		}
		if id <= last {
			t.Fatalf("request id %d not increasing after %d", id, last)
		}
		seen[id] = true
		last = id
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateClosed, "closed"},
		{StateConnecting, "connecting"},
		{StateOpen, "open"},
		{StateReconnectWait, "reconnect_wait"},
		{StateFailed, "failed"},
		{State(42), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
