package summary

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// Importance levels for highlights.
const (
	ImportanceHigh   = "high"
	ImportanceMedium = "medium"
	ImportanceLow    = "low"
)

// Placeholders applied when the agent response omits a required field.
const (
	DefaultTitle   = "Untitled summary"
	DefaultSummary = "No summary available."
)

// Highlight is a single notable passage extracted by the agent.
type Highlight struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	Importance string `json:"importance"`
	Category   string `json:"category,omitempty"`
}

// Record is the canonical summary produced by normalization. Scalar fields
// are never empty and slice fields are never nil.
type Record struct {
	Title       string      `json:"title"`
	Summary     string      `json:"summary"`
	KeyPoints   []string    `json:"keyPoints"`
	Keywords    []string    `json:"keywords"`
	Highlights  []Highlight `json:"highlights"`
	ReadingTime string      `json:"readingTime"`
	SourceURL   string      `json:"sourceUrl"`
	CreatedAt   string      `json:"createdAt"`

	// Extra carries unrecognized fields from the agent response. They are
	// flattened into the JSON encoding without overriding resolved fields.
	Extra map[string]any `json:"-"`
}

var recordKeys = map[string]bool{
	"title": true, "summary": true, "content": true,
	"keyPoints": true, "key_points": true,
	"keywords": true, "tags": true,
	"highlights": true,
	"readingTime": true, "reading_time": true,
	"sourceUrl": true, "createdAt": true,
}

// MarshalJSON flattens Extra alongside the resolved fields.
func (r *Record) MarshalJSON() ([]byte, error) {
	type alias Record
	base, err := json.Marshal((*alias)(r))
	if err != nil {
		return nil, err
	}
	if len(r.Extra) == 0 {
		return base, nil
	}
	var merged map[string]any
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for k, v := range r.Extra {
		if _, taken := merged[k]; taken {
			continue
		}
		merged[k] = v
	}
	return json.Marshal(merged)
}

// ReadingTimeFor estimates reading time at 200 words per minute, rounded up.
func ReadingTimeFor(text string) string {
	words := len(strings.Fields(text))
	minutes := int(math.Ceil(float64(words) / 200.0))
	if minutes < 1 {
		minutes = 1
	}
	return fmt.Sprintf("%d minutes", minutes)
}

func nowTimestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
