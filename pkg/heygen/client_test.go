package heygen

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/iconidentify/scriptcast/internal/config"
	"github.com/iconidentify/scriptcast/internal/domain"
)

func newTestClient(serverURL string) *HTTPClient {
	return NewClient(config.HeyGenConfig{
		APIKey:     "test-key",
		BaseURL:    serverURL,
		TemplateID: "tmpl-1",
		Timeout:    5 * time.Second,
	})
}

func TestSubmit_Success(t *testing.T) {
	var gotKey string
	var gotReq generateRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/template/tmpl-1/generate" {
			t.Errorf("path = %q", r.URL.Path)
		}
		gotKey = r.Header.Get("X-Api-Key")
		json.NewDecoder(r.Body).Decode(&gotReq)

		w.Write([]byte(`{"data": {"video_id": "vid-42"}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	videoID, err := client.Submit(context.Background(), domain.Script{Script1: "Hello", Script2: "World"})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	if videoID != "vid-42" {
		t.Errorf("videoID = %q", videoID)
	}
	if gotKey != "test-key" {
		t.Errorf("X-Api-Key = %q", gotKey)
	}
	if gotReq.Caption {
		t.Error("caption should be disabled")
	}
	if gotReq.Dimension["width"] != 1280 || gotReq.Dimension["height"] != 720 {
		t.Errorf("dimension = %v", gotReq.Dimension)
	}
	if gotReq.Variables["text1"].Properties.Content != "Hello" {
		t.Errorf("text1 = %+v", gotReq.Variables["text1"])
	}
	if gotReq.Variables["text2"].Properties.Content != "World" {
		t.Errorf("text2 = %+v", gotReq.Variables["text2"])
	}
}

func TestSubmit_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error": {"message": "template not found", "code": "404"}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Submit(context.Background(), domain.Script{Script1: "a", Script2: "b"})
	if err == nil || !strings.Contains(err.Error(), "template not found") {
		t.Fatalf("error = %v, want API error message", err)
	}
}

func TestSubmit_MissingVideoID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": {}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	if _, err := client.Submit(context.Background(), domain.Script{Script1: "a", Script2: "b"}); err == nil {
		t.Fatal("expected error on missing video_id")
	}
}

func TestSubmit_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	if _, err := client.Submit(context.Background(), domain.Script{Script1: "a", Script2: "b"}); err == nil {
		t.Fatal("expected error on 401")
	}
}

func TestCheck_Completed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/video_status.get" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("video_id"); got != "vid-42" {
			t.Errorf("video_id = %q", got)
		}

		w.Write([]byte(`{"code": 100, "data": {"status": "completed", "video_url": "https://cdn.example.com/v.mp4"}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	res, err := client.Check(context.Background(), "vid-42")
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}

	if res.Status != StatusCompleted {
		t.Errorf("status = %q", res.Status)
	}
	if res.VideoURL != "https://cdn.example.com/v.mp4" {
		t.Errorf("videoURL = %q", res.VideoURL)
	}
}

func TestCheck_Pending(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code": 100, "data": {"status": "processing"}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	res, err := client.Check(context.Background(), "vid-42")
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if !res.Status.Pending() {
		t.Errorf("Pending() = false for %q", res.Status)
	}
}

func TestCheck_EnvelopeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code": 40001, "message": "invalid video id"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Check(context.Background(), "bad")
	if err == nil || !strings.Contains(err.Error(), "invalid video id") {
		t.Fatalf("error = %v, want envelope message", err)
	}
}

func TestStatusPending(t *testing.T) {
	tests := []struct {
		status Status
		want   bool
	}{
		{StatusWaiting, true},
		{StatusProcessing, true},
		{StatusCompleted, false},
		{StatusFailed, false},
		{Status("unknown"), false},
	}
	for _, tt := range tests {
		if got := tt.status.Pending(); got != tt.want {
			t.Errorf("Pending(%q) = %v, want %v", tt.status, got, tt.want)
		}
	}
}
