// Package summary turns loosely shaped agent responses into canonical
// summary records. Normalization is total: messy input is repaired with
// defaults, only fundamentally untyped input fails.
package summary

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// FormatError reports an agent response that is neither a string nor an
// object and therefore cannot be normalized.
type FormatError struct {
	Value any
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("summary: agent response has unsupported type %T", e.Value)
}

var (
	fencedBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")
	sentenceRe    = regexp.MustCompile(`[.。!！?？]+`)
	keywordRe     = regexp.MustCompile(`\p{Han}{2,}|[A-Za-z]{3,}`)
)

const (
	maxKeyPoints   = 5
	maxKeywords    = 8
	minSentenceLen = 10
)

// Normalize maps an arbitrary agent response onto a Record satisfying every
// field invariant. A JSON-parseable string (bare or fenced) is always treated
// as structured data, never as literal summary text.
func Normalize(raw any, requestURL string) (*Record, error) {
	switch v := raw.(type) {
	case string:
		return normalizeString(v, requestURL)
	case map[string]any:
		return fromObject(v, requestURL), nil
	case *Record:
		return fromObject(recordToMap(v), requestURL), nil
	case Record:
		return fromObject(recordToMap(&v), requestURL), nil
	case nil:
		return nil, &FormatError{Value: raw}
	default:
		// Structs that encode to JSON objects pass; scalars do not.
		b, err := json.Marshal(v)
		if err != nil || len(b) == 0 || b[0] != '{' {
			return nil, &FormatError{Value: raw}
		}
		var m map[string]any
		if err := json.Unmarshal(b, &m); err != nil {
			return nil, &FormatError{Value: raw}
		}
		return fromObject(m, requestURL), nil
	}
}

func normalizeString(s, requestURL string) (*Record, error) {
	trimmed := strings.TrimSpace(s)

	candidate := trimmed
	if m := fencedBlockRe.FindStringSubmatch(trimmed); m != nil {
		candidate = strings.TrimSpace(m[1])
	}

	var parsed any
	if err := json.Unmarshal([]byte(candidate), &parsed); err == nil {
		if obj, ok := parsed.(map[string]any); ok {
			return fromObject(obj, requestURL), nil
		}
		// Parseable but not an object: structured data with no
		// recognized fields, so every default applies.
		return fromObject(map[string]any{}, requestURL), nil
	}

	return synthesizeFromText(trimmed, requestURL), nil
}

// synthesizeFromText builds a record for plain prose the agent returned
// instead of JSON.
func synthesizeFromText(text, requestURL string) *Record {
	rec := &Record{
		Title:       DefaultTitle,
		Summary:     text,
		KeyPoints:   extractKeyPoints(text),
		Keywords:    extractKeywords(text),
		Highlights:  []Highlight{},
		ReadingTime: ReadingTimeFor(text),
		SourceURL:   requestURL,
		CreatedAt:   nowTimestamp(),
	}
	finalize(rec, requestURL)
	return rec
}

func extractKeyPoints(text string) []string {
	points := []string{}
	for _, sentence := range sentenceRe.Split(text, -1) {
		sentence = strings.TrimSpace(sentence)
		if len([]rune(sentence)) <= minSentenceLen {
			continue
		}
		points = append(points, sentence)
		if len(points) == maxKeyPoints {
			break
		}
	}
	return points
}

// extractKeywords ranks tokens of 2+ CJK ideographs or 3+ Latin letters by
// descending frequency, first-seen order breaking ties. Case-sensitive.
func extractKeywords(text string) []string {
	tokens := keywordRe.FindAllString(text, -1)
	counts := make(map[string]int, len(tokens))
	firstSeen := make(map[string]int, len(tokens))
	order := []string{}
	for i, tok := range tokens {
		if _, ok := counts[tok]; !ok {
			firstSeen[tok] = i
			order = append(order, tok)
		}
		counts[tok]++
	}
	sort.SliceStable(order, func(a, b int) bool {
		if counts[order[a]] != counts[order[b]] {
			return counts[order[a]] > counts[order[b]]
		}
		return firstSeen[order[a]] < firstSeen[order[b]]
	})
	if len(order) > maxKeywords {
		order = order[:maxKeywords]
	}
	return order
}

func fromObject(src map[string]any, requestURL string) *Record {
	rec := &Record{
		Title:       stringAt(src, "title"),
		Summary:     stringAt(src, "summary", "content"),
		KeyPoints:   stringSliceAt(src, "keyPoints", "key_points"),
		Keywords:    stringSliceAt(src, "keywords", "tags"),
		Highlights:  highlightsAt(src, "highlights"),
		ReadingTime: stringAt(src, "readingTime", "reading_time"),
		SourceURL:   stringAt(src, "sourceUrl"),
		CreatedAt:   stringAt(src, "createdAt"),
	}
	for k, v := range src {
		if recordKeys[k] {
			continue
		}
		if rec.Extra == nil {
			rec.Extra = map[string]any{}
		}
		rec.Extra[k] = v
	}
	finalize(rec, requestURL)
	return rec
}

// finalize re-applies every non-empty default, covering fields that were
// present but blank.
func finalize(rec *Record, requestURL string) {
	if strings.TrimSpace(rec.Title) == "" {
		rec.Title = DefaultTitle
	}
	if strings.TrimSpace(rec.Summary) == "" {
		rec.Summary = DefaultSummary
	}
	if rec.KeyPoints == nil {
		rec.KeyPoints = []string{}
	}
	if rec.Keywords == nil {
		rec.Keywords = []string{}
	}
	if rec.Highlights == nil {
		rec.Highlights = []Highlight{}
	}
	if strings.TrimSpace(rec.ReadingTime) == "" {
		rec.ReadingTime = ReadingTimeFor(rec.Summary)
	}
	if strings.TrimSpace(rec.SourceURL) == "" {
		rec.SourceURL = requestURL
	}
	if strings.TrimSpace(rec.CreatedAt) == "" {
		rec.CreatedAt = nowTimestamp()
	}

	seen := make(map[string]bool, len(rec.Highlights))
	for i := range rec.Highlights {
		h := &rec.Highlights[i]
		if strings.TrimSpace(h.ID) == "" || seen[h.ID] {
			h.ID = positionalID(i, seen)
		}
		seen[h.ID] = true
		switch h.Importance {
		case ImportanceHigh, ImportanceMedium, ImportanceLow:
		default:
			h.Importance = ImportanceMedium
		}
	}
}

func positionalID(i int, seen map[string]bool) string {
	id := fmt.Sprintf("highlight-%d", i)
	for n := i; seen[id]; n++ {
		id = fmt.Sprintf("highlight-%d", n+1)
	}
	return id
}

func stringAt(src map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := src[key]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
	}
	return ""
}

// stringSliceAt reads the first present key as a string sequence; scalar
// truthy values are wrapped in a single-element slice.
func stringSliceAt(src map[string]any, keys ...string) []string {
	for _, key := range keys {
		v, ok := src[key]
		if !ok {
			continue
		}
		switch t := v.(type) {
		case []any:
			out := []string{}
			for _, item := range t {
				if s := anyToString(item); s != "" {
					out = append(out, s)
				}
			}
			return out
		case []string:
			return append([]string{}, t...)
		default:
			if truthy(v) {
				return []string{anyToString(v)}
			}
			return []string{}
		}
	}
	return nil
}

func highlightsAt(src map[string]any, key string) []Highlight {
	v, ok := src[key]
	if !ok {
		return nil
	}
	switch seq := v.(type) {
	case []Highlight:
		return append([]Highlight{}, seq...)
	case []any:
		out := []Highlight{}
		for _, item := range seq {
			switch t := item.(type) {
			case map[string]any:
				out = append(out, Highlight{
					ID:         stringAt(t, "id"),
					Text:       stringAt(t, "text"),
					Importance: stringAt(t, "importance"),
					Category:   stringAt(t, "category"),
				})
			case string:
				out = append(out, Highlight{Text: t})
			}
		}
		return out
	default:
		return nil
	}
}

func recordToMap(rec *Record) map[string]any {
	b, err := json.Marshal(rec)
	if err != nil {
		return map[string]any{}
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return map[string]any{}
	}
	return m
}

func anyToString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

func truthy(v any) bool {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t) != ""
	case bool:
		return t
	case float64:
		return t != 0
	case int:
		return t != 0
	case nil:
		return false
	default:
		return true
	}
}
