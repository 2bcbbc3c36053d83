// Package pagelens orchestrates page summarization: it resolves the input
// (URL or raw text) into a prompt, drives the model through the streaming
// accumulator, normalizes whatever the model returns into a summary record,
// and keeps cache and history up to date.
package pagelens

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pagelens/pagelens/src/cache"
	"github.com/pagelens/pagelens/src/extract"
	"github.com/pagelens/pagelens/src/history"
	"github.com/pagelens/pagelens/src/models"
	"github.com/pagelens/pagelens/src/stream"
	"github.com/pagelens/pagelens/src/summary"
)

const defaultSystemPrompt = `You are a precise summarization assistant. Read the provided content and respond with a JSON object of the shape:
{"title": string, "summary": string, "keyPoints": [string], "keywords": [string], "highlights": [{"text": string, "importance": "high"|"medium"|"low", "category": string}], "readingTime": string}
Respond with JSON only, no surrounding prose.`

// Mode selects how much the model is asked to produce.
type Mode string

const (
	ModeSummarize Mode = "summarize"
	ModeAnalyze   Mode = "analyze"
)

// Request is one analysis to run. Input is a URL or raw text; ContentType
// forces the interpretation when set ("url" or "text").
type Request struct {
	Input       string
	Mode        Mode
	ContentType string
}

// Options configure a new Session.
type Options struct {
	Model     models.Agent
	History   history.Store
	Cache     *cache.Cache
	Extractor *extract.Extractor
	Logger    *logrus.Logger

	// SystemPrompt overrides the built-in summarization instructions.
	SystemPrompt string
	// PartialInterval spaces streaming partial-text updates.
	PartialInterval time.Duration
	// CacheFile persists cache snapshots across restarts when set.
	CacheFile string
}

// Session runs analyses one at a time. Starting a new request cancels the
// previous in-flight one; the latest result wins.
type Session struct {
	model        models.Agent
	history      history.Store
	cache        *cache.Cache
	extractor    *extract.Extractor
	logger       *logrus.Logger
	systemPrompt string
	interval     time.Duration
	cacheFile    string

	mu         sync.Mutex
	cancelPrev context.CancelFunc
	generation uint64
	current    *summary.Record
}

// New creates a Session with the provided options.
func New(opts Options) (*Session, error) {
	if opts.Model == nil {
		return nil, errors.New("session requires a language model")
	}

	logger := opts.Logger
	if logger == nil {
		logger = logrus.New()
	}

	systemPrompt := opts.SystemPrompt
	if strings.TrimSpace(systemPrompt) == "" {
		systemPrompt = defaultSystemPrompt
	}

	s := &Session{
		model:        opts.Model,
		history:      opts.History,
		cache:        opts.Cache,
		extractor:    opts.Extractor,
		logger:       logger,
		systemPrompt: systemPrompt,
		interval:     opts.PartialInterval,
		cacheFile:    opts.CacheFile,
	}
	if s.cache != nil && s.cacheFile != "" {
		s.restoreCache()
	}
	return s, nil
}

// Analyze runs one analysis and waits for the full result.
func (s *Session) Analyze(ctx context.Context, req Request) (*summary.Record, error) {
	ctx, done, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	if rec, ok := s.cachedRecord(req.Input); ok {
		s.setCurrent(rec)
		return rec, nil
	}

	prompt, sourceURL, err := s.buildPrompt(ctx, req)
	if err != nil {
		return nil, err
	}

	raw, err := s.model.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return s.complete(ctx, req.Input, sourceURL, raw)
}

// AnalyzeStream runs one analysis, delivering the growing accumulated text
// through onPartial while the model streams. When no streaming protocol
// yields any text, the request is re-issued once through the non-streaming
// path.
func (s *Session) AnalyzeStream(ctx context.Context, req Request, onPartial func(string)) (*summary.Record, error) {
	ctx, done, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	if rec, ok := s.cachedRecord(req.Input); ok {
		if onPartial != nil {
			if text, err := json.Marshal(rec); err == nil {
				onPartial(string(text))
			}
		}
		s.setCurrent(rec)
		return rec, nil
	}

	prompt, sourceURL, err := s.buildPrompt(ctx, req)
	if err != nil {
		return nil, err
	}

	text, streamErr := s.streamText(ctx, prompt, onPartial)
	if streamErr != nil {
		s.logger.WithError(streamErr).Debug("streaming failed, falling back to non-streaming request")
		raw, err := s.model.Generate(ctx, prompt)
		if err != nil {
			return nil, err
		}
		return s.complete(ctx, req.Input, sourceURL, raw)
	}
	return s.complete(ctx, req.Input, sourceURL, text)
}

// Current returns the most recently produced record, if any.
func (s *Session) Current() *summary.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// History exposes the configured history store. Nil when none is configured.
func (s *Session) History() history.Store {
	return s.history
}

func (s *Session) streamText(ctx context.Context, prompt string, onPartial func(string)) (string, error) {
	resp, err := s.model.GenerateStream(ctx, prompt)
	if err != nil {
		return "", err
	}

	acc := &stream.Accumulator{
		OnPartial: onPartial,
		Interval:  s.interval,
	}
	text, err := acc.Run(ctx, resp)
	stats := acc.Stats()
	s.logger.WithFields(logrus.Fields{
		"protocol": stats.Protocol.String(),
		"chunks":   stats.Chunks,
		"minGap":   stats.MinGap,
		"genuine":  stats.Genuine,
	}).Debug("stream drained")
	if err != nil {
		return "", err
	}
	return text, nil
}

// complete normalizes the raw model output and records the result.
func (s *Session) complete(ctx context.Context, input, sourceURL string, raw any) (*summary.Record, error) {
	rec, err := summary.Normalize(raw, sourceURL)
	if err != nil {
		return nil, err
	}

	s.setCurrent(rec)
	if s.cache != nil {
		s.cache.Set(cache.Key(input), rec)
		s.persistCache()
	}
	if s.history != nil {
		if err := s.history.Save(ctx, history.NewEnvelope(rec)); err != nil {
			s.logger.WithError(err).Warn("failed to save summary to history")
		}
	}
	return rec, nil
}

// begin supersedes any in-flight request: the previous request's context is
// canceled so its connection gets closed rather than leaked.
func (s *Session) begin(parent context.Context) (context.Context, context.CancelFunc, error) {
	if err := parent.Err(); err != nil {
		return nil, nil, err
	}
	ctx, cancel := context.WithCancel(parent)

	s.mu.Lock()
	if s.cancelPrev != nil {
		s.cancelPrev()
	}
	s.cancelPrev = cancel
	s.generation++
	gen := s.generation
	s.mu.Unlock()

	done := func() {
		s.mu.Lock()
		// A superseding request may already own the slot.
		if s.generation == gen {
			s.cancelPrev = nil
		}
		s.mu.Unlock()
		cancel()
	}
	return ctx, done, nil
}

func (s *Session) setCurrent(rec *summary.Record) {
	s.mu.Lock()
	s.current = rec
	s.mu.Unlock()
}

func (s *Session) cachedRecord(input string) (*summary.Record, bool) {
	if s.cache == nil {
		return nil, false
	}
	return s.cache.Get(cache.Key(input))
}

// buildPrompt resolves the input into page content and renders the model
// prompt. The returned sourceURL is empty for raw-text input.
func (s *Session) buildPrompt(ctx context.Context, req Request) (prompt, sourceURL string, err error) {
	input := strings.TrimSpace(req.Input)
	if input == "" {
		return "", "", errors.New("input is empty")
	}

	mode := req.Mode
	if mode == "" {
		mode = ModeSummarize
	}

	content := input
	title := ""
	isURL := req.ContentType == "url" || (req.ContentType == "" && extract.IsURL(input))
	if isURL {
		sourceURL = input
		if s.extractor != nil {
			extracted, err := s.extractor.FromURL(ctx, input)
			if err != nil {
				return "", "", err
			}
			content = extracted.Text
			title = extracted.Title
		}
	}

	var sb strings.Builder
	sb.Grow(len(content) + len(s.systemPrompt) + 256)
	sb.WriteString(s.systemPrompt)
	if mode == ModeAnalyze {
		sb.WriteString("\nInclude highlights with importance and category for the most significant passages.")
	}
	if title != "" {
		sb.WriteString(fmt.Sprintf("\n\nPage title: %s", title))
	}
	if sourceURL != "" {
		sb.WriteString(fmt.Sprintf("\nSource URL: %s", sourceURL))
	}
	sb.WriteString("\n\nContent to analyze:\n")
	sb.WriteString(content)
	return sb.String(), sourceURL, nil
}

func (s *Session) restoreCache() {
	f, err := os.Open(s.cacheFile)
	if err != nil {
		return
	}
	defer f.Close()

	var dump map[string]cache.Entry
	if err := json.NewDecoder(f).Decode(&dump); err == nil {
		s.cache.Restore(dump)
	}
}

// persistCache snapshots the cache with a temp-file-and-rename write.
func (s *Session) persistCache() {
	if s.cacheFile == "" {
		return
	}
	dump := s.cache.Dump()

	tmp := s.cacheFile + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return
	}
	if err := json.NewEncoder(f).Encode(dump); err != nil {
		f.Close()
		os.Remove(tmp)
		return
	}
	f.Close()
	os.Rename(tmp, s.cacheFile)
}
