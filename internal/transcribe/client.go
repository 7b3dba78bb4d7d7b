// Package transcribe calls an external speech-to-text service for voice
// attachments. The call is best-effort: callers substitute FallbackTranscript
// on any error and carry on.
package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// FallbackTranscript is stored when transcription fails or is not configured.
const FallbackTranscript = "Voice note recorded (transcription failed)"

// Transcriber converts a base64-encoded voice note into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioBase64 string) (string, error)
}

type transcriptionRequest struct {
	Model string `json:"model"`
	Audio string `json:"audio"`
}

type transcriptionResponse struct {
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

// Client is an HTTP client for a hosted transcription endpoint.
type Client struct {
	url    string
	apiKey string
	model  string
	http   *http.Client
}

func NewClient(url, apiKey, model string) *Client {
	return &Client{
		url:    url,
		apiKey: apiKey,
		model:  model,
		http:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) Transcribe(ctx context.Context, audioBase64 string) (string, error) {
	body, err := json.Marshal(transcriptionRequest{Model: c.model, Audio: audioBase64})
	if err != nil {
		return "", fmt.Errorf("marshal transcription request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build transcription request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("call transcription service: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read transcription response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("transcription service returned %d", resp.StatusCode)
	}

	var parsed transcriptionResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decode transcription response: %w", err)
	}
	if parsed.Error != "" {
		return "", fmt.Errorf("transcription service error: %s", parsed.Error)
	}
	if parsed.Text == "" {
		return "", fmt.Errorf("transcription service returned empty text")
	}
	return parsed.Text, nil
}
