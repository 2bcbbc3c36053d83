package models

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestAgentAPIRequiresConfig(t *testing.T) {
	if _, err := NewAgentAPI("", "summarizer"); err == nil {
		t.Error("expected error for missing base url")
	}
	if _, err := NewAgentAPI("http://localhost", ""); err == nil {
		t.Error("expected error for missing agent id")
	}
}

func TestAgentAPIGenerateDecodesObject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/agents/summarizer/invoke" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
			t.Errorf("messages = %+v", req.Messages)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"title":"T","summary":"S"}`)
	}))
	defer srv.Close()

	api, err := NewAgentAPI(srv.URL, "summarizer")
	if err != nil {
		t.Fatalf("NewAgentAPI: %v", err)
	}
	resp, err := api.Generate(context.Background(), "summarize this")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	obj, ok := resp.(map[string]any)
	if !ok {
		t.Fatalf("response is %T, want decoded object", resp)
	}
	if obj["title"] != "T" {
		t.Errorf("title = %v", obj["title"])
	}
}

func TestAgentAPIGenerateFallsBackToText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "plain prose summary")
	}))
	defer srv.Close()

	api, _ := NewAgentAPI(srv.URL, "summarizer")
	resp, err := api.Generate(context.Background(), "p")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got, ok := resp.(string); !ok || got != "plain prose summary" {
		t.Fatalf("response = %v (%T)", resp, resp)
	}
}

func TestAgentAPIGenerateSurfacesHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "backend down", http.StatusBadGateway)
	}))
	defer srv.Close()

	api, _ := NewAgentAPI(srv.URL, "summarizer")
	if _, err := api.Generate(context.Background(), "p"); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestAgentAPIStreamReturnsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/agents/summarizer/stream" {
			t.Errorf("path = %q", r.URL.Path)
		}
		io.WriteString(w, "chunked text payload")
	}))
	defer srv.Close()

	api, _ := NewAgentAPI(srv.URL, "summarizer")
	resp, err := api.GenerateStream(context.Background(), "p")
	if err != nil {
		t.Fatalf("GenerateStream: %v", err)
	}
	body, ok := resp.(io.ReadCloser)
	if !ok {
		t.Fatalf("stream response is %T, want io.ReadCloser", resp)
	}
	defer body.Close()
	data, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), "chunked text payload") {
		t.Errorf("body = %q", data)
	}
}
