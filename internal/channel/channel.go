// Package channel maintains the duplex connection to the gesture inference backend.
package channel

import (
	"encoding/json"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// State represents the lifecycle state of a Channel.
type State int

const (
	// StateClosed means no connection exists and none is being attempted.
	StateClosed State = iota
	// StateConnecting means a dial is in progress.
	StateConnecting
	// StateOpen means the connection is established and Send will write.
	StateOpen
	// StateReconnectWait means a reconnect is scheduled after a drop.
	StateReconnectWait
	// StateFailed means the reconnect attempt cap was exhausted; only an
	// explicit Connect leaves this state.
	StateFailed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateReconnectWait:
		return "reconnect_wait"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Default reconnect policy.
const (
	DefaultMaxReconnectAttempts = 5
	DefaultReconnectDelay       = 2 * time.Second
)

// Config holds configuration options for a Channel.
type Config struct {
	// URL is the websocket endpoint of the inference backend.
	URL string

	// MaxReconnectAttempts caps automatic reconnects after a drop.
	MaxReconnectAttempts int

	// ReconnectDelay is the fixed wait between a drop and the next attempt.
	ReconnectDelay time.Duration

	// AutoReconnect enables automatic reconnection on unexpected closes.
	AutoReconnect bool
}

// Channel is a resilient duplex websocket connection. It reconnects with a
// fixed delay after unexpected drops, up to a configured attempt cap, and
// fans inbound messages and lifecycle events out to subscribers.
//
// Send never queues: when the channel is not open the message is dropped
// and Send reports false.
type Channel struct {
	cfg Config

	mu                sync.Mutex
	conn              *websocket.Conn
	state             State
	reconnectAttempts int
	shouldReconnect   bool
	reconnectTimer    *time.Timer
	gen               uint64

	requestID atomic.Uint64

	handlersMu      sync.RWMutex
	nextHandlerID   int
	messageHandlers map[int]func([]byte)
	stateHandlers   map[int]func(State)
	errorHandlers   map[int]func(error)
	closeHandlers   map[int]func()

	// dial is swapped out in tests
	dial func(url string) (*websocket.Conn, error)
}

// New creates a Channel with the given configuration. Zero-valued policy
// fields fall back to the package defaults.
func New(cfg Config) *Channel {
	if cfg.MaxReconnectAttempts <= 0 {
		cfg.MaxReconnectAttempts = DefaultMaxReconnectAttempts
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}

	return &Channel{
		cfg:             cfg,
		state:           StateClosed,
		messageHandlers: make(map[int]func([]byte)),
		stateHandlers:   make(map[int]func(State)),
		errorHandlers:   make(map[int]func(error)),
		closeHandlers:   make(map[int]func()),
		dial: func(url string) (*websocket.Conn, error) {
			conn, _, err := websocket.DefaultDialer.Dial(url, nil)
			return conn, err
		},
	}
}

// State returns the current channel state.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ReconnectAttempts returns the number of reconnects performed since the
// last successful open.
func (c *Channel) ReconnectAttempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reconnectAttempts
}

// NextRequestID returns a monotonically increasing counter value, unique
// for the lifetime of this Channel. It is never reset, not even across
// reconnects.
func (c *Channel) NextRequestID() uint64 {
	return c.requestID.Add(1)
}

// Connect starts establishing the connection. It is a no-op if the channel
// is already open or connecting. Any other state starts a fresh session
// with the attempt counter reset.
func (c *Channel) Connect() {
	c.mu.Lock()

	if c.state == StateOpen || c.state == StateConnecting {
		c.mu.Unlock()
		return
	}

	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}

	// An explicit connect always starts with a full reconnect budget,
	// whatever state the previous session ended in.
	c.shouldReconnect = c.cfg.AutoReconnect
	c.reconnectAttempts = 0

	c.state = StateConnecting
	gen := c.gen
	c.mu.Unlock()

	c.emitConnectionChange(StateConnecting)
	go c.dialAndRun(gen)
}

// Disconnect closes the connection and disables automatic reconnection.
// Any pending reconnect timer is canceled.
func (c *Channel) Disconnect() {
	c.mu.Lock()

	c.shouldReconnect = false
	c.gen++

	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}

	changed := c.state != StateClosed
	c.state = StateClosed
	c.mu.Unlock()

	if changed {
		c.emitConnectionChange(StateClosed)
	}
}

// Send serializes the message as JSON and writes it if the channel is
// open. It returns false, performing no I/O, in any other state. Messages
// are never queued or retried.
func (c *Channel) Send(msg any) bool {
	data, err := json.Marshal(msg)
	if err != nil {
		c.emitError(err)
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateOpen || c.conn == nil {
		return false
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		go c.emitError(err)
		return false
	}

	return true
}

// dialAndRun performs one connection attempt for the given generation.
// A stale generation (the channel was disconnected meanwhile) discards
// the result.
func (c *Channel) dialAndRun(gen uint64) {
	conn, err := c.dial(c.cfg.URL)

	c.mu.Lock()
	if c.gen != gen || c.state != StateConnecting {
		c.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		return
	}

	if err != nil {
		c.mu.Unlock()
		c.emitError(err)

		c.mu.Lock()
		c.afterDropLocked(gen)
		return
	}

	c.conn = conn
	c.reconnectAttempts = 0
	c.state = StateOpen
	c.mu.Unlock()

	c.emitConnectionChange(StateOpen)
	go c.readLoop(conn, gen)
}

// readLoop reads inbound frames until the connection drops.
func (c *Channel) readLoop(conn *websocket.Conn, gen uint64) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		c.emitMessage(data)
	}

	c.mu.Lock()
	if c.gen != gen {
		// Disconnect already tore this connection down.
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.mu.Unlock()

	c.emitClose()

	c.mu.Lock()
	c.afterDropLocked(gen)
}

// afterDropLocked decides what happens after a failed attempt or an
// unexpected close. Called with c.mu held for the given generation;
// releases the lock before emitting events.
func (c *Channel) afterDropLocked(gen uint64) {
	if c.gen != gen {
		c.mu.Unlock()
		return
	}

	if !c.shouldReconnect {
		changed := c.state != StateClosed
		c.state = StateClosed
		c.mu.Unlock()
		if changed {
			c.emitConnectionChange(StateClosed)
		}
		return
	}

	if c.reconnectAttempts >= c.cfg.MaxReconnectAttempts {
		c.state = StateFailed
		c.mu.Unlock()
		c.emitConnectionChange(StateFailed)
		return
	}

	c.reconnectAttempts++
	c.state = StateReconnectWait
	c.reconnectTimer = time.AfterFunc(c.cfg.ReconnectDelay, func() {
		c.mu.Lock()
		if c.gen != gen || c.state != StateReconnectWait {
			c.mu.Unlock()
			return
		}
		c.reconnectTimer = nil
		c.state = StateConnecting
		c.mu.Unlock()

		c.emitConnectionChange(StateConnecting)
		c.dialAndRun(gen)
	})
	c.mu.Unlock()

	c.emitConnectionChange(StateReconnectWait)
}

// OnMessage subscribes to inbound payloads. The returned function removes
// the subscription.
func (c *Channel) OnMessage(fn func([]byte)) func() {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()

	id := c.nextHandlerID
	c.nextHandlerID++
	c.messageHandlers[id] = fn

	return func() {
		c.handlersMu.Lock()
		defer c.handlersMu.Unlock()
		delete(c.messageHandlers, id)
	}
}

// OnConnectionChange subscribes to state transitions.
func (c *Channel) OnConnectionChange(fn func(State)) func() {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()

	id := c.nextHandlerID
	c.nextHandlerID++
	c.stateHandlers[id] = fn

	return func() {
		c.handlersMu.Lock()
		defer c.handlersMu.Unlock()
		delete(c.stateHandlers, id)
	}
}

// OnError subscribes to transport and protocol errors.
func (c *Channel) OnError(fn func(error)) func() {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()

	id := c.nextHandlerID
	c.nextHandlerID++
	c.errorHandlers[id] = fn

	return func() {
		c.handlersMu.Lock()
		defer c.handlersMu.Unlock()
		delete(c.errorHandlers, id)
	}
}

// OnClose subscribes to connection drops.
func (c *Channel) OnClose(fn func()) func() {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()

	id := c.nextHandlerID
	c.nextHandlerID++
	c.closeHandlers[id] = fn

	return func() {
		c.handlersMu.Lock()
		defer c.handlersMu.Unlock()
		delete(c.closeHandlers, id)
	}
}

// safeCall invokes a handler and absorbs any panic so one misbehaving
// subscriber cannot suppress the others or crash the channel.
func safeCall(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("channel: subscriber panic: %v", r)
		}
	}()
	fn()
}

func (c *Channel) emitMessage(data []byte) {
	c.handlersMu.RLock()
	handlers := make([]func([]byte), 0, len(c.messageHandlers))
	for _, fn := range c.messageHandlers {
		handlers = append(handlers, fn)
	}
	c.handlersMu.RUnlock()

	for _, fn := range handlers {
		fn := fn
		safeCall(func() { fn(data) })
	}
}

func (c *Channel) emitConnectionChange(s State) {
	c.handlersMu.RLock()
	handlers := make([]func(State), 0, len(c.stateHandlers))
	for _, fn := range c.stateHandlers {
		handlers = append(handlers, fn)
	}
	c.handlersMu.RUnlock()

	for _, fn := range handlers {
		fn := fn
		safeCall(func() { fn(s) })
	}
}

func (c *Channel) emitError(err error) {
	c.handlersMu.RLock()
	handlers := make([]func(error), 0, len(c.errorHandlers))
	for _, fn := range c.errorHandlers {
		handlers = append(handlers, fn)
	}
	c.handlersMu.RUnlock()

	for _, fn := range handlers {
		fn := fn
		safeCall(func() { fn(err) })
	}
}

func (c *Channel) emitClose() {
	c.handlersMu.RLock()
	handlers := make([]func(), 0, len(c.closeHandlers))
	for _, fn := range c.closeHandlers {
		handlers = append(handlers, fn)
	}
	c.handlersMu.RUnlock()

	for _, fn := range handlers {
		safeCall(fn)
	}
}
