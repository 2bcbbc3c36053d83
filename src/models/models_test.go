package models

import (
	"context"
	"strings"
	"testing"
)

func TestDummyLLMDefaultPrefix(t *testing.T) {
	llm := NewDummyLLM("")
	resp, err := llm.Generate(context.Background(), "line1\nline2")
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if got := resp.(string); got != "Dummy summary: line2" {
		t.Fatalf("unexpected response: %q", got)
	}
}

func TestDummyLLMUsesLastNonEmptyLine(t *testing.T) {
	llm := NewDummyLLM("Prefix:")
	resp, err := llm.Generate(context.Background(), "first\n\nsecond\n  \nthird")
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if got := resp.(string); got != "Prefix: third" {
		t.Fatalf("unexpected response: %q", got)
	}
}

func TestDummyLLMHandlesEmptyPrompt(t *testing.T) {
	llm := NewDummyLLM("Prefix")
	resp, err := llm.Generate(context.Background(), "\n\n\n")
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if got := resp.(string); got != "Prefix <empty prompt>" {
		t.Fatalf("unexpected response: %q", got)
	}
}

func TestDummyLLMStreamReassembles(t *testing.T) {
	llm := NewDummyLLM("PFX")
	resp, err := llm.GenerateStream(context.Background(), "hello world")
	if err != nil {
		t.Fatalf("GenerateStream returned error: %v", err)
	}
	ch, ok := resp.(<-chan StreamChunk)
	if !ok {
		t.Fatalf("stream response is %T, want chunk channel", resp)
	}
	var sb strings.Builder
	var full string
	for chunk := range ch {
		sb.WriteString(chunk.Delta)
		if chunk.Done {
			full = chunk.FullText
		}
	}
	if sb.String() != full {
		t.Errorf("deltas %q != full text %q", sb.String(), full)
	}
	if !strings.Contains(full, "hello world") {
		t.Errorf("full text %q missing prompt echo", full)
	}
}

func TestNewProviderErrorsOnUnknownProvider(t *testing.T) {
	if _, err := NewProvider(context.Background(), ProviderConfig{Provider: "unknown"}); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestNewProviderDummy(t *testing.T) {
	agent, err := NewProvider(context.Background(), ProviderConfig{Provider: "dummy"})
	if err != nil {
		t.Fatalf("NewProvider(dummy): %v", err)
	}
	if _, ok := agent.(*DummyLLM); !ok {
		t.Fatalf("provider is %T, want *DummyLLM", agent)
	}
}
