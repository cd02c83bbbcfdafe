package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestGenerateContent(t *testing.T) {
	var gotPath, gotKey, gotType string
	var gotReq GenerateRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("X-goog-api-key")
		gotType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"hello"}]},"finishReason":"STOP"}]}`)
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL+"/"))
	text, err := c.GenerateContent(context.Background(), "say hello")
	if err != nil {
		t.Fatalf("GenerateContent: %v", err)
	}
	if text != "hello" {
		t.Errorf("text = %q, want hello", text)
	}
	if gotPath != "/models/gemini-2.0-flash:generateContent" {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != "test-key" {
		t.Errorf("api key header = %q", gotKey)
	}
	if gotType != "application/json" {
		t.Errorf("content type = %q", gotType)
	}
	if len(gotReq.Contents) != 1 || len(gotReq.Contents[0].Parts) != 1 || gotReq.Contents[0].Parts[0].Text != "say hello" {
		t.Errorf("request body = %+v", gotReq)
	}
}

func TestGenerateContent_Model(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		fmt.Fprint(w, `{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`)
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL), WithModel("gemini-1.5-pro"))
	if _, err := c.GenerateContent(context.Background(), "p"); err != nil {
		t.Fatalf("GenerateContent: %v", err)
	}
	if gotPath != "/models/gemini-1.5-pro:generateContent" {
		t.Errorf("path = %q", gotPath)
	}
	if c.Model() != "gemini-1.5-pro" {
		t.Errorf("Model() = %q", c.Model())
	}
}

func TestGenerateContent_StatusError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":{"message":"boom"}}`)
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL))
	_, err := c.GenerateContent(context.Background(), "p")
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("error = %v, want *StatusError", err)
	}
	if se.Status != http.StatusInternalServerError {
		t.Errorf("Status = %d", se.Status)
	}
	if !strings.Contains(se.Body, "boom") {
		t.Errorf("Body = %q", se.Body)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("server called %d times, want exactly 1", n)
	}
}

func TestGenerateContent_RateLimitNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL))
	if _, err := c.GenerateContent(context.Background(), "p"); err == nil {
		t.Fatal("expected error")
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("server called %d times, want exactly 1", n)
	}
}

func TestGenerateContent_NoContent(t *testing.T) {
	for name, body := range map[string]string{
		"no candidates": `{"candidates":[]}`,
		"no parts":      `{"candidates":[{"content":{"parts":[]}}]}`,
		"empty object":  `{}`,
		"empty text":    `{"candidates":[{"content":{"parts":[{"text":""}]}}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, body)
			}))
			defer srv.Close()

			_, err := NewClient("k", WithBaseURL(srv.URL)).GenerateContent(context.Background(), "p")
			if !errors.Is(err, ErrNoContent) {
				t.Errorf("error = %v, want ErrNoContent", err)
			}
		})
	}
}

func TestGenerateContent_MalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"candidates":`)
	}))
	defer srv.Close()

	_, err := NewClient("k", WithBaseURL(srv.URL)).GenerateContent(context.Background(), "p")
	if err == nil || !strings.Contains(err.Error(), "decoding response") {
		t.Errorf("error = %v, want decoding error", err)
	}
}

func TestGenerateContent_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient("k", WithBaseURL(srv.URL), WithTimeout(50*time.Millisecond))
	start := time.Now()
	_, err := c.GenerateContent(context.Background(), "p")
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want deadline exceeded", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("timeout took %v", elapsed)
	}
}

func TestGenerateContent_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewClient("k", WithBaseURL(srv.URL)).GenerateContent(ctx, "p")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}
