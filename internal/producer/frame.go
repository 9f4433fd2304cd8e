package producer

import (
	"encoding/base64"
	"image"
	"log"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/capture"
)

// Default frame producer settings.
const (
	DefaultFrameFPS     = 10
	DefaultFrameQuality = 70
	DefaultMaxWidth     = 640
	DefaultMaxHeight    = 480
)

// FrameProducerConfig holds tunables for the thin-client producer.
type FrameProducerConfig struct {
	// FPS is the target sampling rate.
	FPS int
	// Quality is the JPEG quality (1-100).
	Quality int
	// MaxWidth and MaxHeight bound the encoded frame size; larger frames
	// are scaled down preserving aspect ratio.
	MaxWidth  int
	MaxHeight int
}

// FrameProducer samples a camera on a fixed interval, encodes each frame
// as JPEG and hands it to the Sender. Frames are never queued: when the
// channel is not open or a tick fails, that tick is simply skipped.
type FrameProducer struct {
	cfg    FrameProducerConfig
	camera capture.Camera
	sender Sender

	mu     sync.Mutex
	stopCh chan struct{}

	// nowMillis is swapped out in tests
	nowMillis func() int64
}

// NewFrameProducer creates a FrameProducer. Zero-valued config fields
// fall back to the package defaults.
func NewFrameProducer(camera capture.Camera, sender Sender, cfg FrameProducerConfig) *FrameProducer {
	if cfg.FPS <= 0 {
		cfg.FPS = DefaultFrameFPS
	}
	if cfg.Quality <= 0 || cfg.Quality > 100 {
		cfg.Quality = DefaultFrameQuality
	}
	if cfg.MaxWidth <= 0 {
		cfg.MaxWidth = DefaultMaxWidth
	}
	if cfg.MaxHeight <= 0 {
		cfg.MaxHeight = DefaultMaxHeight
	}

	return &FrameProducer{
		cfg:       cfg,
		camera:    camera,
		sender:    sender,
		nowMillis: func() int64 { return time.Now().UnixMilli() },
	}
}

// Start opens the camera if needed and begins the sampling loop.
// It is a no-op if the producer is already running.
func (p *FrameProducer) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopCh != nil {
		return nil
	}

	if !p.camera.IsOpen() {
		if err := p.camera.Open(); err != nil {
			return err
		}
	}

	p.stopCh = make(chan struct{})
	go p.run(p.stopCh)

	return nil
}

// Stop halts the sampling loop. The camera is left open; the caller that
// opened it owns its lifetime.
func (p *FrameProducer) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopCh != nil {
		close(p.stopCh)
		p.stopCh = nil
	}
}

func (p *FrameProducer) run(stopCh chan struct{}) {
	interval := time.Second / time.Duration(p.cfg.FPS)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			if err := p.tick(); err != nil {
				log.Printf("frame producer: %v", err)
			}
		}
	}
}

// tick samples, encodes and sends one frame. Any failure aborts only
// this tick; the loop keeps running.
func (p *FrameProducer) tick() error {
	frame, err := p.camera.ReadFrame()
	if err != nil {
		return err
	}
	defer frame.Close()

	encoded, err := p.encode(frame)
	if err != nil {
		return err
	}

	msg := FrameMessage{
		Type:      "frame",
		Frame:     encoded,
		Timestamp: p.nowMillis(),
	}

	// A closed channel means the frame is dropped, not retried.
	p.sender.Send(msg)
	return nil
}

// encode scales the frame under the configured bounds and compresses it
// as base64 JPEG.
func (p *FrameProducer) encode(frame *gocv.Mat) (string, error) {
	src := frame

	cols, rows := frame.Cols(), frame.Rows()
	if cols > p.cfg.MaxWidth || rows > p.cfg.MaxHeight {
		scaleW := float64(p.cfg.MaxWidth) / float64(cols)
		scaleH := float64(p.cfg.MaxHeight) / float64(rows)
		scale := scaleW
		if scaleH < scale {
			scale = scaleH
		}

		resized := gocv.NewMat()
		defer resized.Close()
		gocv.Resize(*frame, &resized, image.Pt(int(float64(cols)*scale), int(float64(rows)*scale)), 0, 0, gocv.InterpolationLinear)
		src = &resized
	}

	buf, err := gocv.IMEncodeWithParams(".jpg", *src, []int{gocv.IMWriteJpegQuality, p.cfg.Quality})
	if err != nil {
		return "", err
	}
	defer buf.Close()

	return base64.StdEncoding.EncodeToString(buf.GetBytes()), nil
}
