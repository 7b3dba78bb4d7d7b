package transcribe

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestTranscribeReturnsText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected authorization header %q", got)
		}
		var req transcriptionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "whisper-1" {
			t.Errorf("expected model whisper-1, got %q", req.Model)
		}
		_ = json.NewEncoder(w).Encode(transcriptionResponse{Text: "pothole on main street"})
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", "whisper-1")
	text, err := client.Transcribe(context.Background(), "ZmFrZS1hdWRpbw==")
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if text != "pothole on main street" {
		t.Errorf("unexpected transcript %q", text)
	}
}

func TestTranscribeServerErrorFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", "whisper-1")
	if _, err := client.Transcribe(context.Background(), "ZmFrZQ=="); err == nil {
		t.Fatal("expected error on 500 response")
	}
}

func TestTranscribeEmptyTextFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(transcriptionResponse{})
	}))
	defer server.Close()

	client := NewClient(server.URL, "", "whisper-1")
	if _, err := client.Transcribe(context.Background(), "ZmFrZQ=="); err == nil {
		t.Fatal("expected error on empty transcript")
	}
}

func TestTranscribeUnreachableServiceFails(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", "", "whisper-1")
	if _, err := client.Transcribe(context.Background(), "ZmFrZQ=="); err == nil {
		t.Fatal("expected error when service unreachable")
	}
}
