package models

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	ollama "github.com/ollama/ollama/api"

	"github.com/pagelens/pagelens/src/stream"
)

type OllamaLLM struct {
	Client       *ollama.Client
	Model        string
	PromptPrefix string
}

func NewOllamaLLM(model string, promptPrefix string) (*OllamaLLM, error) {
	host := os.Getenv("OLLAMA_HOST")
	if host == "" {
		host = "http://localhost:11434"
	}
	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid OLLAMA_HOST %q: %w", host, err)
	}
	httpClient := &http.Client{
		Timeout: 60 * time.Second,
	}
	return &OllamaLLM{
		Client:       ollama.NewClient(u, httpClient),
		Model:        model,
		PromptPrefix: promptPrefix,
	}, nil
}

func (o *OllamaLLM) request(prompt string) *ollama.GenerateRequest {
	fullPrompt := prompt
	if o.PromptPrefix != "" {
		fullPrompt = fmt.Sprintf("%s\n\n%s", o.PromptPrefix, prompt)
	}
	return &ollama.GenerateRequest{
		Model:  o.Model,
		Prompt: fullPrompt,
	}
}

func (o *OllamaLLM) Generate(ctx context.Context, prompt string) (any, error) {
	var text strings.Builder
	if err := o.Client.Generate(ctx, o.request(prompt), func(gr ollama.GenerateResponse) error {
		if gr.Response != "" {
			text.WriteString(gr.Response)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return text.String(), nil
}

// GenerateStream surfaces Ollama's native callback streaming as a
// stream.CallbackStreamer.
func (o *OllamaLLM) GenerateStream(ctx context.Context, prompt string) (any, error) {
	return &ollamaStream{client: o.Client, req: o.request(prompt)}, nil
}

type ollamaStream struct {
	client *ollama.Client
	req    *ollama.GenerateRequest
}

func (s *ollamaStream) Stream(ctx context.Context, cb stream.Callbacks) error {
	err := s.client.Generate(ctx, s.req, func(gr ollama.GenerateResponse) error {
		if gr.Response != "" && cb.OnText != nil {
			cb.OnText(gr.Response)
		}
		return nil
	})
	if err != nil {
		if cb.OnError != nil {
			cb.OnError(err)
		}
		return err
	}
	if cb.OnDone != nil {
		cb.OnDone()
	}
	return nil
}

var _ Agent = (*OllamaLLM)(nil)
var _ stream.CallbackStreamer = (*ollamaStream)(nil)
