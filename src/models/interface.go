// Package models hosts the language-model providers behind summarization.
// Every provider answers the same two calls; the streaming result is an
// arbitrary shape resolved later by the stream package's protocol probe.
package models

import (
	"context"

	"github.com/pagelens/pagelens/src/stream"
)

// StreamChunk is the channel-borne streaming unit shared with the stream
// package.
type StreamChunk = stream.Chunk

// Agent is a summarization-capable language model.
type Agent interface {
	// Generate performs one completion. The result is either a string or
	// a decoded JSON object; the normalizer accepts both.
	Generate(ctx context.Context, prompt string) (any, error)
	// GenerateStream starts a streaming completion. The result satisfies
	// one of the stream protocols (callback streamer, chunk channel,
	// byte reader) or is a static value.
	GenerateStream(ctx context.Context, prompt string) (any, error)
}
