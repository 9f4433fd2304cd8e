// Package detector provides hand landmark detection for the Mudra control pipeline.
package detector

import "math"

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// Point3D represents a normalized 3D point with x, y, z coordinates.
// X and Y are in [0,1] image coordinates, Y growing downward.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// HandLandmarks represents the 21 hand landmarks for one detected hand.
type HandLandmarks struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness string                `json:"handedness"` // "Left" or "Right"
	Score      float64               `json:"score"`
}

// FlipHandedness mirrors a handedness label. A front-facing camera presents
// a mirrored view to the user, so the detector's raw label names the
// opposite physical hand. Unknown labels pass through unchanged.
func FlipHandedness(h string) string {
	switch h {
	case "Left":
		return "Right"
	case "Right":
		return "Left"
	}
	return h
}

// distance3D calculates the Euclidean distance between two 3D points.
func distance3D(a, b Point3D) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	dz := a.Z - b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Normalize normalizes the hand landmarks relative to wrist position and
// hand size: the wrist moves to the origin and all points are scaled so
// that the wrist to middle-finger-MCP distance is 1.0.
// Returns a new HandLandmarks instance with normalized points.
func (h *HandLandmarks) Normalize() *HandLandmarks {
	if h == nil {
		return nil
	}

	normalized := &HandLandmarks{
		Handedness: h.Handedness,
		Score:      h.Score,
	}

	wrist := h.Points[Wrist]

	for i := 0; i < NumLandmarks; i++ {
		normalized.Points[i] = Point3D{
			X: h.Points[i].X - wrist.X,
			Y: h.Points[i].Y - wrist.Y,
			Z: h.Points[i].Z - wrist.Z,
		}
	}

	middleMCP := normalized.Points[MiddleMCP]
	scale := distance3D(Point3D{0, 0, 0}, middleMCP)

	// Avoid division by zero
	if scale < 1e-10 {
		return normalized
	}

	for i := 0; i < NumLandmarks; i++ {
		normalized.Points[i].X /= scale
		normalized.Points[i].Y /= scale
		normalized.Points[i].Z /= scale
	}

	return normalized
}
