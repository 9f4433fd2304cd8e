package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results and records the
// timestamps it was called with.
type MockDetector struct {
	mu         sync.Mutex
	hands      []HandLandmarks
	err        error
	timestamps []int64
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by Detect.
func (m *MockDetector) SetHands(hands []HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = hands
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Detect returns the pre-configured hands or error and records the timestamp.
func (m *MockDetector) Detect(frame *gocv.Mat, timestampMs int64) ([]HandLandmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.timestamps = append(m.timestamps, timestampMs)

	if m.err != nil {
		return nil, m.err
	}
	return m.hands, nil
}

// Timestamps returns the timestamps passed to Detect, in call order.
func (m *MockDetector) Timestamps() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]int64, len(m.timestamps))
	copy(out, m.timestamps)
	return out
}

// Calls returns how many times Detect has been invoked.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timestamps)
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// LikeLandmarks returns a preset HandLandmarks for the "like" gesture:
// thumb extended upward, all other fingers curled.
func LikeLandmarks() HandLandmarks {
	landmarks := HandLandmarks{
		Handedness: "Right",
		Score:      0.95,
	}

	// Wrist at origin
	landmarks.Points[Wrist] = Point3D{X: 0.5, Y: 0.8, Z: 0.0}

	// Thumb extended upward (Y decreases going up)
	landmarks.Points[ThumbCMC] = Point3D{X: 0.55, Y: 0.75, Z: 0.0}
	landmarks.Points[ThumbMCP] = Point3D{X: 0.58, Y: 0.65, Z: 0.0}
	landmarks.Points[ThumbIP] = Point3D{X: 0.58, Y: 0.50, Z: 0.0}
	landmarks.Points[ThumbTip] = Point3D{X: 0.58, Y: 0.35, Z: 0.0}

	// Index finger curled (tip near palm)
	landmarks.Points[IndexMCP] = Point3D{X: 0.55, Y: 0.70, Z: -0.02}
	landmarks.Points[IndexPIP] = Point3D{X: 0.55, Y: 0.68, Z: -0.05}
	landmarks.Points[IndexDIP] = Point3D{X: 0.52, Y: 0.70, Z: -0.04}
	landmarks.Points[IndexTip] = Point3D{X: 0.50, Y: 0.72, Z: -0.02}

	// Middle finger curled
	landmarks.Points[MiddleMCP] = Point3D{X: 0.50, Y: 0.68, Z: -0.02}
	landmarks.Points[MiddlePIP] = Point3D{X: 0.50, Y: 0.66, Z: -0.05}
	landmarks.Points[MiddleDIP] = Point3D{X: 0.47, Y: 0.68, Z: -0.04}
	landmarks.Points[MiddleTip] = Point3D{X: 0.45, Y: 0.70, Z: -0.02}

	// Ring finger curled
	landmarks.Points[RingMCP] = Point3D{X: 0.45, Y: 0.70, Z: -0.02}
	landmarks.Points[RingPIP] = Point3D{X: 0.45, Y: 0.68, Z: -0.05}
	landmarks.Points[RingDIP] = Point3D{X: 0.42, Y: 0.70, Z: -0.04}
	landmarks.Points[RingTip] = Point3D{X: 0.40, Y: 0.72, Z: -0.02}

	// Pinky finger curled
	landmarks.Points[PinkyMCP] = Point3D{X: 0.40, Y: 0.72, Z: -0.02}
	landmarks.Points[PinkyPIP] = Point3D{X: 0.40, Y: 0.70, Z: -0.05}
	landmarks.Points[PinkyDIP] = Point3D{X: 0.37, Y: 0.72, Z: -0.04}
	landmarks.Points[PinkyTip] = Point3D{X: 0.35, Y: 0.74, Z: -0.02}

	return landmarks
}

// StopLandmarks returns a preset HandLandmarks for the "stop" gesture:
// an open palm with all fingers extended.
func StopLandmarks() HandLandmarks {
	landmarks := HandLandmarks{
		Handedness: "Right",
		Score:      0.95,
	}

	// Wrist at base
	landmarks.Points[Wrist] = Point3D{X: 0.5, Y: 0.8, Z: 0.0}

	// Thumb extended to the side
	landmarks.Points[ThumbCMC] = Point3D{X: 0.55, Y: 0.75, Z: 0.02}
	landmarks.Points[ThumbMCP] = Point3D{X: 0.62, Y: 0.70, Z: 0.03}
	landmarks.Points[ThumbIP] = Point3D{X: 0.68, Y: 0.65, Z: 0.03}
	landmarks.Points[ThumbTip] = Point3D{X: 0.73, Y: 0.60, Z: 0.03}

	// Index finger extended upward
	landmarks.Points[IndexMCP] = Point3D{X: 0.55, Y: 0.68, Z: 0.0}
	landmarks.Points[IndexPIP] = Point3D{X: 0.57, Y: 0.55, Z: 0.0}
	landmarks.Points[IndexDIP] = Point3D{X: 0.58, Y: 0.45, Z: 0.0}
	landmarks.Points[IndexTip] = Point3D{X: 0.58, Y: 0.35, Z: 0.0}

	// Middle finger extended upward
	landmarks.Points[MiddleMCP] = Point3D{X: 0.50, Y: 0.66, Z: 0.0}
	landmarks.Points[MiddlePIP] = Point3D{X: 0.50, Y: 0.52, Z: 0.0}
	landmarks.Points[MiddleDIP] = Point3D{X: 0.50, Y: 0.40, Z: 0.0}
	landmarks.Points[MiddleTip] = Point3D{X: 0.50, Y: 0.28, Z: 0.0}

	// Ring finger extended upward
	landmarks.Points[RingMCP] = Point3D{X: 0.45, Y: 0.68, Z: 0.0}
	landmarks.Points[RingPIP] = Point3D{X: 0.43, Y: 0.55, Z: 0.0}
	landmarks.Points[RingDIP] = Point3D{X: 0.42, Y: 0.45, Z: 0.0}
	landmarks.Points[RingTip] = Point3D{X: 0.42, Y: 0.35, Z: 0.0}

	// Pinky finger extended upward
	landmarks.Points[PinkyMCP] = Point3D{X: 0.40, Y: 0.70, Z: 0.0}
	landmarks.Points[PinkyPIP] = Point3D{X: 0.37, Y: 0.60, Z: 0.0}
	landmarks.Points[PinkyDIP] = Point3D{X: 0.35, Y: 0.50, Z: 0.0}
	landmarks.Points[PinkyTip] = Point3D{X: 0.34, Y: 0.42, Z: 0.0}

	return landmarks
}

// TwoUpInvertedLandmarks returns a preset HandLandmarks for the
// "two_up_inverted" gesture: index and middle fingers extended downward,
// ring and pinky curled, thumb tucked. The fingers tilt toward the given
// direction ("Left" or "Right").
func TwoUpInvertedLandmarks(direction string) HandLandmarks {
	landmarks := HandLandmarks{
		Handedness: "Right",
		Score:      0.95,
	}

	// Wrist at the top, fingers hanging down (Y grows downward)
	landmarks.Points[Wrist] = Point3D{X: 0.5, Y: 0.3, Z: 0.0}

	// Thumb tucked against the palm
	landmarks.Points[ThumbCMC] = Point3D{X: 0.47, Y: 0.33, Z: 0.0}
	landmarks.Points[ThumbMCP] = Point3D{X: 0.45, Y: 0.36, Z: -0.01}
	landmarks.Points[ThumbIP] = Point3D{X: 0.44, Y: 0.40, Z: -0.02}
	landmarks.Points[ThumbTip] = Point3D{X: 0.45, Y: 0.38, Z: -0.03}

	// Index finger extended downward, tilted left
	landmarks.Points[IndexMCP] = Point3D{X: 0.48, Y: 0.42, Z: 0.0}
	landmarks.Points[IndexPIP] = Point3D{X: 0.47, Y: 0.52, Z: 0.0}
	landmarks.Points[IndexDIP] = Point3D{X: 0.46, Y: 0.60, Z: 0.0}
	landmarks.Points[IndexTip] = Point3D{X: 0.45, Y: 0.67, Z: 0.0}

	// Middle finger extended downward
	landmarks.Points[MiddleMCP] = Point3D{X: 0.52, Y: 0.42, Z: 0.0}
	landmarks.Points[MiddlePIP] = Point3D{X: 0.52, Y: 0.53, Z: 0.0}
	landmarks.Points[MiddleDIP] = Point3D{X: 0.52, Y: 0.62, Z: 0.0}
	landmarks.Points[MiddleTip] = Point3D{X: 0.51, Y: 0.70, Z: 0.0}

	// Ring finger curled
	landmarks.Points[RingMCP] = Point3D{X: 0.56, Y: 0.41, Z: 0.0}
	landmarks.Points[RingPIP] = Point3D{X: 0.56, Y: 0.46, Z: -0.03}
	landmarks.Points[RingDIP] = Point3D{X: 0.55, Y: 0.44, Z: -0.04}
	landmarks.Points[RingTip] = Point3D{X: 0.54, Y: 0.41, Z: -0.03}

	// Pinky finger curled
	landmarks.Points[PinkyMCP] = Point3D{X: 0.59, Y: 0.40, Z: 0.0}
	landmarks.Points[PinkyPIP] = Point3D{X: 0.59, Y: 0.44, Z: -0.03}
	landmarks.Points[PinkyDIP] = Point3D{X: 0.58, Y: 0.42, Z: -0.04}
	landmarks.Points[PinkyTip] = Point3D{X: 0.57, Y: 0.40, Z: -0.03}

	if direction == "Right" {
		// Mirror around the wrist so the fingers tilt the other way
		for i := 0; i < NumLandmarks; i++ {
			landmarks.Points[i].X = 1.0 - landmarks.Points[i].X
		}
	}

	return landmarks
}
