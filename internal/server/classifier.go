package server

import (
	"math"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
)

// Prediction is the classification result sent back to clients.
type Prediction struct {
	PredictedClass string  `json:"predicted_class"`
	Confidence     float64 `json:"confidence"`
	Direction      string  `json:"direction,omitempty"`
}

// Classifier maps hand landmarks to a gesture class.
type Classifier interface {
	Classify(points []detector.Point3D, handedness string) Prediction
}

// StaticClassifier recognizes the built-in control gestures from finger
// extension geometry. Each finger counts as extended when its tip sits
// farther from the wrist than its PIP joint, and the thumb when its tip
// sits farther than its IP joint. Wrist distances are mirror invariant,
// so the rules apply to either hand unchanged.
type StaticClassifier struct {
	// MinScore is the confidence reported for a recognized class.
	MinScore float64
}

// NewStaticClassifier returns a StaticClassifier with stock settings.
func NewStaticClassifier() *StaticClassifier {
	return &StaticClassifier{MinScore: 0.97}
}

func dist(a, b detector.Point3D) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	dz := a.Z - b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Classify returns the gesture class for one hand. Landmarks are
// normalized to wrist origin and unit hand size first, so hand distance
// from the camera does not affect the result. Unrecognized poses
// classify as the empty class with zero confidence.
func (c *StaticClassifier) Classify(rawPoints []detector.Point3D, handedness string) Prediction {
	if len(rawPoints) < detector.NumLandmarks {
		return Prediction{PredictedClass: gesture.EmptyClass}
	}

	hand := detector.HandLandmarks{Handedness: handedness}
	copy(hand.Points[:], rawPoints)
	points := hand.Normalize().Points

	wrist := points[detector.Wrist]
	extended := func(tip, pip int) bool {
		return dist(wrist, points[tip]) > dist(wrist, points[pip])
	}

	index := extended(detector.IndexTip, detector.IndexPIP)
	middle := extended(detector.MiddleTip, detector.MiddlePIP)
	ring := extended(detector.RingTip, detector.RingPIP)
	pinky := extended(detector.PinkyTip, detector.PinkyPIP)
	thumb := dist(wrist, points[detector.ThumbTip]) > dist(wrist, points[detector.ThumbIP])

	switch {
	case thumb && !index && !middle && !ring && !pinky:
		return Prediction{PredictedClass: "like", Confidence: c.MinScore}

	case index && middle && ring && pinky:
		return Prediction{PredictedClass: "stop", Confidence: c.MinScore}

	case index && middle && !ring && !pinky && !thumb:
		// The navigation gesture hangs downward; its tilt relative to
		// the wrist carries the direction.
		direction := "Right"
		if points[detector.IndexTip].X < wrist.X {
			direction = "Left"
		}
		return Prediction{
			PredictedClass: "two_up_inverted",
			Confidence:     c.MinScore,
			Direction:      direction,
		}
	}

	return Prediction{PredictedClass: gesture.EmptyClass}
}
