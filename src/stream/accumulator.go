// Package stream drains streaming agent responses of unknown shape into
// accumulated text. The shape is resolved by an ordered capability probe
// over explicit protocol interfaces rather than runtime duck typing.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"
)

// Chunk is one incremental unit of streamed text. Providers deliver deltas
// and close with a Done chunk that may carry the assembled full text.
type Chunk struct {
	Delta    string
	FullText string
	Done     bool
	Err      error
}

// Callbacks receives events from a callback-driven stream source.
type Callbacks struct {
	OnText  func(string)
	OnError func(error)
	OnDone  func()
}

// CallbackStreamer is a response that pushes text parts through callbacks.
type CallbackStreamer interface {
	Stream(ctx context.Context, cb Callbacks) error
}

// Protocol identifies which streaming capability a response satisfies.
type Protocol int

const (
	ProtocolCallback Protocol = iota
	ProtocolSequence
	ProtocolBytes
	ProtocolStatic
)

func (p Protocol) String() string {
	switch p {
	case ProtocolCallback:
		return "callback"
	case ProtocolSequence:
		return "sequence"
	case ProtocolBytes:
		return "bytes"
	default:
		return "static"
	}
}

// ProtocolError reports that every strategy was exhausted without any text.
type ProtocolError struct {
	Cause error
}

func (e *ProtocolError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("stream: no protocol produced text: %v", e.Cause)
	}
	return "stream: no protocol produced text"
}

func (e *ProtocolError) Unwrap() error { return e.Cause }

// Probe returns the highest-priority protocol the response satisfies.
func Probe(resp any) Protocol {
	switch resp.(type) {
	case CallbackStreamer:
		return ProtocolCallback
	case <-chan Chunk, chan Chunk, <-chan string, chan string:
		return ProtocolSequence
	case io.Reader:
		return ProtocolBytes
	default:
		return ProtocolStatic
	}
}

// genuineGap is the inter-chunk delay below which a source is considered a
// real incremental stream. Informational only.
const genuineGap = time.Second

// Stats describes how a stream was actually delivered.
type Stats struct {
	Protocol   Protocol
	Chunks     int
	MultiChunk bool
	MinGap     time.Duration
	Genuine    bool
}

const (
	staticChunkRunes  = 50
	staticChunkDelay  = 30 * time.Millisecond
	defaultByteBuffer = 512
)

// Accumulator drains one streaming response. It is single-use: the buffer
// grows monotonically for the lifetime of one request.
type Accumulator struct {
	// OnChunk receives every chunk exactly once, in order.
	OnChunk func(string)
	// OnPartial receives the growing accumulated text, rate-capped by
	// Interval. The final text is always delivered.
	OnPartial func(string)
	// Interval spaces OnPartial updates. Zero means DefaultInterval.
	Interval time.Duration
	// Delay spaces synthetic chunks on the static fallback path.
	Delay time.Duration

	buf       strings.Builder
	chunks    int
	lastChunk time.Time
	minGap    time.Duration
	protocol  Protocol
	throttle  *Throttler
}

// Accumulate drains resp with default settings.
func Accumulate(ctx context.Context, resp any, onChunk func(string)) (string, Stats, error) {
	a := &Accumulator{OnChunk: onChunk}
	text, err := a.Run(ctx, resp)
	return text, a.Stats(), err
}

// Run consumes the response and returns the accumulated text. If a protocol
// fails after producing at least one chunk, the partial text is returned as
// the final result; if it fails before any chunk, the next protocol in
// priority order is attempted.
func (a *Accumulator) Run(ctx context.Context, resp any) (string, error) {
	if a.OnPartial != nil {
		interval := a.Interval
		if interval <= 0 {
			interval = DefaultInterval
		}
		a.throttle = NewThrottler(interval, a.OnPartial)
		defer func() {
			a.throttle.Flush()
			a.throttle.Stop()
		}()
	}

	start := Probe(resp)
	var lastErr error
	for p := start; p <= ProtocolStatic; p++ {
		if p != start && !satisfies(resp, p) {
			continue
		}
		err := a.drain(ctx, resp, p)
		if err == nil {
			if a.chunks == 0 {
				return "", &ProtocolError{}
			}
			a.protocol = p
			return a.buf.String(), nil
		}
		if a.chunks > 0 {
			// Keep everything already accumulated.
			a.protocol = p
			return a.buf.String(), nil
		}
		lastErr = err
	}
	return "", &ProtocolError{Cause: lastErr}
}

// Stats reports the delivery diagnostics for the finished run.
func (a *Accumulator) Stats() Stats {
	return Stats{
		Protocol:   a.protocol,
		Chunks:     a.chunks,
		MultiChunk: a.chunks > 1,
		MinGap:     a.minGap,
		Genuine:    a.chunks > 1 && a.minGap < genuineGap,
	}
}

func satisfies(resp any, p Protocol) bool {
	switch p {
	case ProtocolCallback:
		_, ok := resp.(CallbackStreamer)
		return ok
	case ProtocolSequence:
		switch resp.(type) {
		case <-chan Chunk, chan Chunk, <-chan string, chan string:
			return true
		}
		return false
	case ProtocolBytes:
		_, ok := resp.(io.Reader)
		return ok
	default:
		return true
	}
}

func (a *Accumulator) drain(ctx context.Context, resp any, p Protocol) error {
	switch p {
	case ProtocolCallback:
		return a.drainCallback(ctx, resp.(CallbackStreamer))
	case ProtocolSequence:
		return a.drainSequence(ctx, resp)
	case ProtocolBytes:
		return a.drainBytes(ctx, resp.(io.Reader))
	default:
		return a.drainStatic(ctx, resp)
	}
}

func (a *Accumulator) emit(chunk string) {
	if chunk == "" {
		return
	}
	now := time.Now()
	if a.chunks > 0 {
		gap := now.Sub(a.lastChunk)
		if a.minGap == 0 || gap < a.minGap {
			a.minGap = gap
		}
	}
	a.lastChunk = now
	a.chunks++
	a.buf.WriteString(chunk)
	if a.OnChunk != nil {
		a.OnChunk(chunk)
	}
	if a.throttle != nil {
		a.throttle.Update(a.buf.String())
	}
}

func (a *Accumulator) drainCallback(ctx context.Context, cs CallbackStreamer) error {
	var streamErr error
	err := cs.Stream(ctx, Callbacks{
		OnText: a.emit,
		OnError: func(e error) {
			if streamErr == nil {
				streamErr = e
			}
		},
	})
	if err != nil {
		return err
	}
	return streamErr
}

func (a *Accumulator) drainSequence(ctx context.Context, resp any) error {
	switch ch := resp.(type) {
	case <-chan Chunk:
		return a.drainChunkChan(ctx, ch)
	case chan Chunk:
		return a.drainChunkChan(ctx, ch)
	case <-chan string:
		return a.drainStringChan(ctx, ch)
	case chan string:
		return a.drainStringChan(ctx, ch)
	}
	return fmt.Errorf("stream: not a chunk sequence: %T", resp)
}

func (a *Accumulator) drainChunkChan(ctx context.Context, ch <-chan Chunk) error {
	sawDelta := false
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case chunk, ok := <-ch:
			if !ok {
				return nil
			}
			if chunk.Err != nil {
				return chunk.Err
			}
			if chunk.Delta != "" {
				sawDelta = true
				a.emit(chunk.Delta)
			}
			if chunk.Done {
				// Single-shot streams deliver only a final FullText.
				if !sawDelta && chunk.FullText != "" {
					a.emit(chunk.FullText)
				}
				return nil
			}
		}
	}
}

func (a *Accumulator) drainStringChan(ctx context.Context, ch <-chan string) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case s, ok := <-ch:
			if !ok {
				return nil
			}
			a.emit(s)
		}
	}
}

// drainBytes decodes a byte stream as UTF-8, holding back incomplete
// multi-byte sequences across reads.
func (a *Accumulator) drainBytes(ctx context.Context, r io.Reader) error {
	defer func() {
		if c, ok := r.(io.Closer); ok {
			c.Close()
		}
	}()

	var carry []byte
	buf := make([]byte, defaultByteBuffer)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := r.Read(buf)
		if n > 0 {
			carry = append(carry, buf[:n]...)
			cut := completeRuneBoundary(carry)
			if cut > 0 {
				a.emit(string(carry[:cut]))
				carry = append(carry[:0], carry[cut:]...)
			}
		}
		if err == io.EOF {
			if len(carry) > 0 {
				a.emit(string(carry))
			}
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// completeRuneBoundary returns the length of the longest prefix that ends on
// a complete UTF-8 rune.
func completeRuneBoundary(data []byte) int {
	n := len(data)
	for i := n - 1; i >= 0 && n-i <= utf8.UTFMax; i-- {
		if utf8.RuneStart(data[i]) {
			if !utf8.FullRune(data[i:]) {
				return i
			}
			break
		}
	}
	return n
}

// drainStatic treats the response as one already-complete value and replays
// it in fixed-size chunks so the consumer still sees incremental updates.
func (a *Accumulator) drainStatic(ctx context.Context, resp any) error {
	text := stringify(resp)
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("stream: static response is empty")
	}

	delay := a.Delay
	if delay <= 0 {
		delay = staticChunkDelay
	}
	runes := []rune(text)
	for start := 0; start < len(runes); start += staticChunkRunes {
		if start > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
		end := start + staticChunkRunes
		if end > len(runes) {
			end = len(runes)
		}
		a.emit(string(runes[start:end]))
	}
	return nil
}

func stringify(resp any) string {
	switch v := resp.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case nil:
		return ""
	case error:
		return ""
	default:
		if b, err := json.Marshal(v); err == nil {
			s := string(b)
			if s != "null" && s != `""` {
				return s
			}
		}
		return fmt.Sprint(v)
	}
}
