package models

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Message is one turn of the conversation sent to the summarizer agent.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the wire request understood by the remote agent.
type ChatRequest struct {
	Messages    []Message `json:"messages"`
	Temperature *float64  `json:"temperature,omitempty"`
	MaxTokens   int       `json:"maxTokens,omitempty"`
}

// AgentAPI talks to a remote summarizer agent over plain HTTP. The agent's
// response shape is not fixed; Generate hands back whatever it decodes and
// leaves repair to the normalizer.
type AgentAPI struct {
	BaseURL     string
	AgentID     string
	Temperature *float64
	MaxTokens   int
	httpClient  *http.Client
}

func NewAgentAPI(baseURL, agentID string) (*AgentAPI, error) {
	if baseURL == "" {
		return nil, errors.New("agent api: base url is required")
	}
	if agentID == "" {
		return nil, errors.New("agent api: agent id is required")
	}
	return &AgentAPI{
		BaseURL: strings.TrimRight(baseURL, "/"),
		AgentID: agentID,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}, nil
}

func (a *AgentAPI) chatRequest(prompt string) ChatRequest {
	return ChatRequest{
		Messages:    []Message{{Role: "user", Content: prompt}},
		Temperature: a.Temperature,
		MaxTokens:   a.MaxTokens,
	}
}

func (a *AgentAPI) post(ctx context.Context, path string, body ChatRequest) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("agent api: marshal request: %w", err)
	}
	url := fmt.Sprintf("%s/agents/%s/%s", a.BaseURL, a.AgentID, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("agent api: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("agent api: request failed with status %d: %s", resp.StatusCode, string(bodyBytes))
	}
	return resp, nil
}

// Generate invokes the agent and returns the decoded JSON object when the
// body parses, otherwise the raw body text.
func (a *AgentAPI) Generate(ctx context.Context, prompt string) (any, error) {
	resp, err := a.post(ctx, "invoke", a.chatRequest(prompt))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("agent api: read response: %w", err)
	}
	var obj map[string]any
	if err := json.Unmarshal(body, &obj); err == nil {
		return obj, nil
	}
	return string(body), nil
}

// GenerateStream invokes the agent's streaming endpoint and returns the raw
// body, which the accumulator drains as a byte stream.
func (a *AgentAPI) GenerateStream(ctx context.Context, prompt string) (any, error) {
	resp, err := a.post(ctx, "stream", a.chatRequest(prompt))
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

var _ Agent = (*AgentAPI)(nil)
