package server

import (
	"testing"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
)

func TestStaticClassifier_Classify(t *testing.T) {
	c := NewStaticClassifier()

	tests := []struct {
		name          string
		hand          detector.HandLandmarks
		wantClass     string
		wantDirection string
	}{
		{
			name:      "thumbs up",
			hand:      detector.LikeLandmarks(),
			wantClass: "like",
		},
		{
			name:      "open palm",
			hand:      detector.StopLandmarks(),
			wantClass: "stop",
		},
		{
			name:          "two fingers tilted left",
			hand:          detector.TwoUpInvertedLandmarks("Left"),
			wantClass:     "two_up_inverted",
			wantDirection: "Left",
		},
		{
			name:          "two fingers tilted right",
			hand:          detector.TwoUpInvertedLandmarks("Right"),
			wantClass:     "two_up_inverted",
			wantDirection: "Right",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := c.Classify(tt.hand.Points[:], tt.hand.Handedness)

			if p.PredictedClass != tt.wantClass {
				t.Errorf("class = %q, want %q", p.PredictedClass, tt.wantClass)
			}
			if p.Direction != tt.wantDirection {
				t.Errorf("direction = %q, want %q", p.Direction, tt.wantDirection)
			}
			if p.Confidence <= 0 {
				t.Errorf("confidence = %v, want > 0", p.Confidence)
			}
		})
	}
}

func TestStaticClassifier_UnrecognizedPose(t *testing.T) {
	c := NewStaticClassifier()

	// A degenerate hand with every point at the origin matches no rule.
	points := make([]detector.Point3D, detector.NumLandmarks)
	p := c.Classify(points, "Right")

	if p.PredictedClass != gesture.EmptyClass {
		t.Errorf("class = %q, want %q", p.PredictedClass, gesture.EmptyClass)
	}
	if p.Confidence != 0 {
		t.Errorf("confidence = %v, want 0", p.Confidence)
	}
}

func TestStaticClassifier_TooFewPoints(t *testing.T) {
	c := NewStaticClassifier()

	p := c.Classify([]detector.Point3D{{X: 0.5, Y: 0.5}}, "Right")
	if p.PredictedClass != gesture.EmptyClass {
		t.Errorf("class = %q, want %q", p.PredictedClass, gesture.EmptyClass)
	}
}

func TestStaticClassifier_HandednessInvariant(t *testing.T) {
	c := NewStaticClassifier()

	hand := detector.LikeLandmarks()
	left := c.Classify(hand.Points[:], "Left")
	right := c.Classify(hand.Points[:], "Right")

	if left.PredictedClass != right.PredictedClass {
		t.Errorf("classes differ by handedness: %q vs %q", left.PredictedClass, right.PredictedClass)
	}
}
