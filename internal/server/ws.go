package server

import (
	"encoding/base64"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// inferenceRequest is the union of all inbound client messages: pings,
// raw frames from thin clients and pre-extracted landmarks.
type inferenceRequest struct {
	Type      string             `json:"type,omitempty"`
	Frame     string             `json:"frame,omitempty"`
	Timestamp int64              `json:"timestamp,omitempty"`
	RequestID uint64             `json:"request_id,omitempty"`
	Landmarks []detector.Point3D `json:"landmarks,omitempty"`

	Handedness string `json:"handedness,omitempty"`
}

// inferenceResponse is the reply sent for each processed message.
type inferenceResponse struct {
	Type       string      `json:"type,omitempty"`
	Frame      string      `json:"frame,omitempty"`
	Prediction *Prediction `json:"prediction,omitempty"`
}

// InferenceHandler serves the /ws endpoint: it classifies incoming
// landmark and frame messages and replies with predictions.
//
// Frame messages carry the full detection cost, so they are processed
// one at a time per connection: a frame arriving while the previous one
// is still being detected is dropped. Landmark messages are cheap and
// always processed inline.
type InferenceHandler struct {
	classifier Classifier
	holder     *detector.Holder

	// lastTS backs the server-derived detector timestamps. The wire
	// timestamp is client-controlled and may regress, and the detector
	// is shared across connections, so it cannot be trusted here.
	lastTS atomic.Int64
}

// NewInferenceHandler creates an InferenceHandler. The holder may be nil;
// frame messages are then answered with an empty prediction.
func NewInferenceHandler(c Classifier, holder *detector.Holder) *InferenceHandler {
	return &InferenceHandler{classifier: c, holder: holder}
}

// ServeHTTP upgrades the connection and runs the per-connection read loop.
func (h *InferenceHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	var writeMu sync.Mutex
	reply := func(resp inferenceResponse) {
		writeMu.Lock()
		defer writeMu.Unlock()
		if err := conn.WriteJSON(resp); err != nil {
			log.Printf("websocket write error: %v", err)
		}
	}

	var busy atomic.Bool

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var req inferenceRequest
		if err := json.Unmarshal(data, &req); err != nil {
			log.Printf("malformed inference request: %v", err)
			continue
		}

		switch {
		case req.Type == "ping":
			reply(inferenceResponse{Type: "pong"})

		case req.Type == "frame":
			if !busy.CompareAndSwap(false, true) {
				continue // previous frame still in flight
			}
			go func(frame string) {
				defer busy.Store(false)
				reply(h.classifyFrame(frame))
			}(req.Frame)

		case len(req.Landmarks) > 0:
			p := h.classifier.Classify(req.Landmarks, req.Handedness)
			reply(inferenceResponse{Prediction: &p})
		}
	}
}

// nextTimestamp returns a strictly increasing detector timestamp,
// synthesizing last+1 when the wall clock has not advanced.
func (h *InferenceHandler) nextTimestamp() int64 {
	now := time.Now().UnixMilli()
	for {
		last := h.lastTS.Load()
		if now <= last {
			now = last + 1
		}
		if h.lastTS.CompareAndSwap(last, now) {
			return now
		}
	}
}

// classifyFrame decodes a base64 JPEG, runs hand detection and
// classifies the first detected hand. The input frame is echoed back so
// thin clients can display what was scored.
func (h *InferenceHandler) classifyFrame(frame string) inferenceResponse {
	empty := Prediction{PredictedClass: gesture.EmptyClass}
	resp := inferenceResponse{Frame: frame, Prediction: &empty}

	if h.holder == nil {
		return resp
	}
	det, ok := h.holder.TryGet()
	if !ok {
		return resp
	}

	data, err := base64.StdEncoding.DecodeString(frame)
	if err != nil {
		log.Printf("frame decode error: %v", err)
		return resp
	}

	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil || mat.Empty() {
		log.Printf("frame is not a decodable image")
		return resp
	}
	defer mat.Close()

	hands, err := det.Detect(&mat, h.nextTimestamp())
	if err != nil {
		log.Printf("frame detection error: %v", err)
		return resp
	}
	if len(hands) == 0 {
		return resp
	}

	p := h.classifier.Classify(hands[0].Points[:], hands[0].Handedness)
	resp.Prediction = &p
	return resp
}
