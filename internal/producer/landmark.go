package producer

import (
	"log"
	"sync"
	"time"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/detector"
)

// DefaultDetectInterval approximates a display-refresh driven loop.
const DefaultDetectInterval = 33 * time.Millisecond

// LandmarkProducer runs a continuous on-device hand detection loop and
// emits one message per detected hand per distinct video frame.
//
// Three invariants hold regardless of scheduling jitter:
//   - timestamps handed to the detector are strictly increasing; when the
//     wall clock has not advanced past the previous value, last+1 is
//     synthesized instead
//   - a frame is only processed when the source's playback position moved
//     since the previous iteration, so a stalled source is never detected
//     twice
//   - a not-yet-initialized detector just reschedules the loop; it never
//     terminates it
//
// Empty detections are silently absorbed: no message, no notification.
type LandmarkProducer struct {
	holder   *detector.Holder
	sender   Sender
	interval time.Duration

	mu            sync.Mutex
	camera        capture.Camera
	stopCh        chan struct{}
	subscriber    func(LandmarkMessage)
	lastPosition  int64
	lastTimestamp int64

	// nowMillis is swapped out in tests
	nowMillis func() int64
}

// NewLandmarkProducer creates a LandmarkProducer reading from the given
// camera. The detection loop does not run until a subscriber attaches.
func NewLandmarkProducer(camera capture.Camera, holder *detector.Holder, sender Sender, interval time.Duration) *LandmarkProducer {
	if interval <= 0 {
		interval = DefaultDetectInterval
	}

	return &LandmarkProducer{
		holder:    holder,
		sender:    sender,
		interval:  interval,
		camera:    camera,
		nowMillis: func() int64 { return time.Now().UnixMilli() },
	}
}

// Subscribe attaches the single active subscriber and starts the
// detection loop. The returned function detaches the subscriber and stops
// the loop. A second Subscribe replaces the previous subscriber.
func (p *LandmarkProducer) Subscribe(fn func(LandmarkMessage)) func() {
	p.mu.Lock()
	p.subscriber = fn
	p.startLocked()
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.subscriber = nil
		p.stopLocked()
	}
}

// SetSource swaps the video source. The loop is torn down, the
// timestamp and dedup state reset, and the loop restarted if a
// subscriber is active.
func (p *LandmarkProducer) SetSource(camera capture.Camera) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()
	p.camera = camera
	p.lastPosition = 0
	p.lastTimestamp = 0

	if p.subscriber != nil {
		p.startLocked()
	}
}

// Stop halts the detection loop without detaching the subscriber.
func (p *LandmarkProducer) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

func (p *LandmarkProducer) startLocked() {
	if p.stopCh != nil {
		return
	}
	p.stopCh = make(chan struct{})
	go p.run(p.stopCh)
}

func (p *LandmarkProducer) stopLocked() {
	if p.stopCh != nil {
		close(p.stopCh)
		p.stopCh = nil
	}
}

func (p *LandmarkProducer) run(stopCh chan struct{}) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			p.step()
		}
	}
}

// step performs one detection iteration. Every early return reschedules
// the loop; nothing here can terminate it.
func (p *LandmarkProducer) step() {
	p.mu.Lock()
	cam := p.camera
	p.mu.Unlock()

	if cam == nil || !cam.IsOpen() {
		return
	}

	frame, err := cam.ReadFrame()
	if err != nil {
		return
	}
	defer frame.Close()

	// Skip frames the source already served: a stalled or not-yet-ready
	// source keeps its playback position.
	pos := cam.Position()

	p.mu.Lock()
	if pos == p.lastPosition {
		p.mu.Unlock()
		return
	}
	p.lastPosition = pos
	p.mu.Unlock()

	// Detector still loading: poll again next tick.
	det, ok := p.holder.TryGet()
	if !ok {
		return
	}

	p.mu.Lock()
	ts := p.nowMillis()
	if ts <= p.lastTimestamp {
		ts = p.lastTimestamp + 1
	}
	p.lastTimestamp = ts
	p.mu.Unlock()

	hands, err := det.Detect(frame, ts)
	if err != nil {
		log.Printf("landmark producer: detect: %v", err)
		return
	}

	// No hands means no message; clearing any indicator is the
	// collaborator's business, not ours.
	if len(hands) == 0 {
		return
	}

	p.mu.Lock()
	subscriber := p.subscriber
	p.mu.Unlock()

	for i := range hands {
		hand := hands[i]
		msg := LandmarkMessage{
			RequestID:  p.sender.NextRequestID(),
			Landmarks:  hand.Points[:],
			Handedness: detector.FlipHandedness(hand.Handedness),
		}

		p.sender.Send(msg)
		if subscriber != nil {
			subscriber(msg)
		}
	}
}
