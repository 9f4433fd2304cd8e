// Package signal implements the one-shot HTTP offer/answer exchange used
// to set up a streaming session with the inference backend.
package signal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/pion/webrtc/v3"
)

// DefaultGatherTimeout bounds how long candidate gathering may delay the
// offer. Candidates that arrive later are dropped; trickle is not used.
const DefaultGatherTimeout = 500 * time.Millisecond

// ErrNoAnswer indicates the backend responded without a usable session
// description.
var ErrNoAnswer = errors.New("signal: no answer in response")

// offerPayload is the request body posted to the signaling endpoint.
type offerPayload struct {
	SDP        string                    `json:"sdp"`
	Type       string                    `json:"type"`
	Candidates []webrtc.ICECandidateInit `json:"candidates"`
}

// answerPayload mirrors offerPayload for the backend's reply.
type answerPayload struct {
	SDP        string                    `json:"sdp"`
	Type       string                    `json:"type"`
	Candidates []webrtc.ICECandidateInit `json:"candidates"`
}

// Exchanger performs offer/answer exchanges against a signaling endpoint.
type Exchanger struct {
	// Client is the HTTP client used for the exchange. Defaults to
	// http.DefaultClient.
	Client *http.Client
	// GatherTimeout bounds local candidate gathering. Defaults to
	// DefaultGatherTimeout.
	GatherTimeout time.Duration
}

// Exchange creates an offer on pc, gathers local candidates for at most
// GatherTimeout, posts the bundle to endpoint and applies the returned
// answer and remote candidates. The exchange is one-shot: any failure is
// returned to the caller and nothing is retried.
func (e *Exchanger) Exchange(ctx context.Context, endpoint string, pc *webrtc.PeerConnection) error {
	client := e.Client
	if client == nil {
		client = http.DefaultClient
	}
	timeout := e.GatherTimeout
	if timeout <= 0 {
		timeout = DefaultGatherTimeout
	}

	var mu sync.Mutex
	var candidates []webrtc.ICECandidateInit
	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return
		}
		mu.Lock()
		candidates = append(candidates, c.ToJSON())
		mu.Unlock()
	})

	gathered := webrtc.GatheringCompletePromise(pc)

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		return fmt.Errorf("create offer: %w", err)
	}
	if err := pc.SetLocalDescription(offer); err != nil {
		return fmt.Errorf("set local description: %w", err)
	}

	select {
	case <-gathered:
	case <-time.After(timeout):
	case <-ctx.Done():
		return ctx.Err()
	}

	mu.Lock()
	payload := offerPayload{
		SDP:        pc.LocalDescription().SDP,
		Type:       pc.LocalDescription().Type.String(),
		Candidates: append([]webrtc.ICECandidateInit(nil), candidates...),
	}
	mu.Unlock()

	answer, err := e.post(ctx, client, endpoint, payload)
	if err != nil {
		return err
	}

	if answer.SDP == "" {
		return ErrNoAnswer
	}

	desc := webrtc.SessionDescription{
		Type: webrtc.NewSDPType(answer.Type),
		SDP:  answer.SDP,
	}
	if err := pc.SetRemoteDescription(desc); err != nil {
		return fmt.Errorf("set remote description: %w", err)
	}

	for _, c := range answer.Candidates {
		if err := pc.AddICECandidate(c); err != nil {
			return fmt.Errorf("add remote candidate: %w", err)
		}
	}

	return nil
}

func (e *Exchanger) post(ctx context.Context, client *http.Client, endpoint string, payload offerPayload) (*answerPayload, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode offer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post offer: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("signaling endpoint returned %d: %s", resp.StatusCode, data)
	}

	var answer answerPayload
	if err := json.NewDecoder(resp.Body).Decode(&answer); err != nil {
		return nil, fmt.Errorf("decode answer: %w", err)
	}
	return &answer, nil
}
