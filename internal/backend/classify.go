package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// ClassifyResult holds a classification response from an external
// audio-classification sidecar.
type ClassifyResult struct {
	Label      string             `json:"label"`
	Confidence float64            `json:"confidence"`
	Scores     map[string]float64 `json:"scores"`
}

// classifyClient posts raw PCM16 to an external classification sidecar.
// Adapted from the teacher's ClassifyClient: same octet-stream POST
// shape, narrowed to the one endpoint this backend needs.
type classifyClient struct {
	url    string
	client *http.Client
}

func newClassifyClient(url string) *classifyClient {
	return &classifyClient{url: url, client: &http.Client{Timeout: 5 * time.Second}}
}

func (c *classifyClient) classify(ctx context.Context, pcm []byte) (*ClassifyResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(pcm))
	if err != nil {
		return nil, fmt.Errorf("classify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("classify http: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("classify status %d", resp.StatusCode)
	}

	var result ClassifyResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("classify decode: %w", err)
	}
	return &result, nil
}

// classifyAsync fires the optional audio-classification span for the
// committed utterance (§ SUPPLEMENTED FEATURES). It never blocks or
// affects the turn: the result, if any, is only attached to the
// transcript record once the turn finishes.
func (s *Session) classifyAsync(pcm []byte) <-chan *ClassifyResult {
	out := make(chan *ClassifyResult, 1)
	if s.cfg.ClassifyURL == "" || len(pcm) == 0 {
		close(out)
		return out
	}
	snap := make([]byte, len(pcm))
	copy(snap, pcm)
	go func() {
		defer close(out)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		start := time.Now()
		result, err := s.classifier().classify(ctx, snap)
		if err != nil {
			s.logger.Warn("audio classification failed", "error", err, "traceId", s.traceID)
			return
		}
		s.tracer.Mark("classify_done", "label", result.Label, "ms", time.Since(start).Milliseconds())
		out <- result
	}()
	return out
}

func (s *Session) classifier() *classifyClient {
	if s.classifyClient == nil {
		s.classifyClient = newClassifyClient(s.cfg.ClassifyURL)
	}
	return s.classifyClient
}
