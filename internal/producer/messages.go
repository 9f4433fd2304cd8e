// Package producer turns camera frames into outbound messages for the
// inference backend, in either thin-client (compressed frames) or
// on-device (hand landmarks) mode.
package producer

import "github.com/ayusman/mudra/internal/detector"

// FrameMessage is the thin-client wire format: one compressed frame per
// sampling tick.
type FrameMessage struct {
	Type      string `json:"type"`
	Frame     string `json:"frame"` // base64 JPEG
	Timestamp int64  `json:"timestamp"`
}

// LandmarkMessage is the on-device wire format: one message per detected
// hand. Landmarks is always exactly 21 points; partial detections are
// never emitted.
type LandmarkMessage struct {
	RequestID  uint64             `json:"request_id"`
	Landmarks  []detector.Point3D `json:"landmarks"`
	Handedness string             `json:"handedness"`
}

// Sender delivers outbound messages. *channel.Channel satisfies it.
// Send reports false when the message was dropped (channel not open);
// producers treat that as a skipped tick, never as an error.
type Sender interface {
	Send(msg any) bool
	NextRequestID() uint64
}
