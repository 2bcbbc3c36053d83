package summary

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func TestNormalizeFencedJSON(t *testing.T) {
	raw := "```json\n{\"title\":\"A\",\"summary\":\"B\"}\n```"
	rec, err := Normalize(raw, "http://example.com")
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if rec.Title != "A" {
		t.Errorf("title = %q, want %q", rec.Title, "A")
	}
	if rec.Summary != "B" {
		t.Errorf("summary = %q, want %q", rec.Summary, "B")
	}
	if len(rec.KeyPoints) != 0 || len(rec.Keywords) != 0 {
		t.Errorf("expected empty keyPoints/keywords, got %v / %v", rec.KeyPoints, rec.Keywords)
	}
	if rec.ReadingTime != "1 minutes" {
		t.Errorf("readingTime = %q, want derived %q", rec.ReadingTime, "1 minutes")
	}
}

func TestNormalizeBareJSONNeverLiteralText(t *testing.T) {
	rec, err := Normalize(`{"summary":"structured"}`, "http://u")
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if rec.Summary != "structured" {
		t.Errorf("summary = %q, want field from parsed JSON", rec.Summary)
	}
}

func TestNormalizeJSONScalarStringGetsDefaults(t *testing.T) {
	// "42" parses as JSON, so it is structured data with no recognized
	// fields; every default applies.
	rec, err := Normalize("42", "http://u")
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if rec.Title != DefaultTitle || rec.Summary != DefaultSummary {
		t.Errorf("expected defaults, got title=%q summary=%q", rec.Title, rec.Summary)
	}
}

func TestNormalizeObjectAliases(t *testing.T) {
	rec, err := Normalize(map[string]any{
		"content": "hello world",
		"tags":    []any{"x", "y"},
	}, "http://u")
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if rec.Summary != "hello world" {
		t.Errorf("summary = %q, want %q", rec.Summary, "hello world")
	}
	if !reflect.DeepEqual(rec.Keywords, []string{"x", "y"}) {
		t.Errorf("keywords = %v, want [x y]", rec.Keywords)
	}
	if rec.SourceURL != "http://u" {
		t.Errorf("sourceUrl = %q, want request URL", rec.SourceURL)
	}
}

func TestNormalizeNumberFails(t *testing.T) {
	if _, err := Normalize(42, "http://u"); err == nil {
		t.Fatal("expected FormatError for numeric input")
	} else if _, ok := err.(*FormatError); !ok {
		t.Fatalf("expected *FormatError, got %T", err)
	}
}

func TestNormalizeNilAndBoolFail(t *testing.T) {
	for _, raw := range []any{nil, true, 3.14} {
		if _, err := Normalize(raw, "http://u"); err == nil {
			t.Errorf("expected FormatError for %v", raw)
		}
	}
}

func TestNormalizeEmptyObjectSatisfiesInvariants(t *testing.T) {
	rec, err := Normalize(map[string]any{}, "http://u")
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if rec.Title == "" || rec.Summary == "" || rec.ReadingTime == "" || rec.SourceURL == "" || rec.CreatedAt == "" {
		t.Errorf("missing required scalar in %+v", rec)
	}
	if rec.KeyPoints == nil || rec.Keywords == nil || rec.Highlights == nil {
		t.Error("slice fields must be non-nil")
	}
}

func TestNormalizeBlankFieldsRedefaulted(t *testing.T) {
	rec, err := Normalize(map[string]any{"title": "   ", "summary": ""}, "http://u")
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if rec.Title != DefaultTitle || rec.Summary != DefaultSummary {
		t.Errorf("blank fields not redefaulted: title=%q summary=%q", rec.Title, rec.Summary)
	}
}

func TestNormalizeScalarWrapping(t *testing.T) {
	rec, err := Normalize(map[string]any{"keyPoints": "only point", "keywords": ""}, "http://u")
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if !reflect.DeepEqual(rec.KeyPoints, []string{"only point"}) {
		t.Errorf("keyPoints = %v, want wrapped scalar", rec.KeyPoints)
	}
	if len(rec.Keywords) != 0 {
		t.Errorf("falsy scalar should yield empty keywords, got %v", rec.Keywords)
	}
}

func TestNormalizeHighlightIDsUnique(t *testing.T) {
	rec, err := Normalize(map[string]any{
		"highlights": []any{
			map[string]any{"text": "a"},
			map[string]any{"id": "h", "text": "b", "importance": "high"},
			map[string]any{"id": "h", "text": "c", "importance": "bogus"},
			map[string]any{"text": "d", "importance": "low"},
		},
	}, "http://u")
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if len(rec.Highlights) != 4 {
		t.Fatalf("expected 4 highlights, got %d", len(rec.Highlights))
	}
	seen := map[string]bool{}
	for _, h := range rec.Highlights {
		if h.ID == "" {
			t.Error("highlight missing ID")
		}
		if seen[h.ID] {
			t.Errorf("duplicate highlight ID %q", h.ID)
		}
		seen[h.ID] = true
	}
	if rec.Highlights[1].Importance != ImportanceHigh {
		t.Errorf("importance = %q, want high", rec.Highlights[1].Importance)
	}
	if rec.Highlights[2].Importance != ImportanceMedium {
		t.Errorf("unknown importance should default to medium, got %q", rec.Highlights[2].Importance)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	first, err := Normalize(map[string]any{
		"title":    "T",
		"summary":  "S body text",
		"keywords": []any{"k1"},
		"highlights": []any{
			map[string]any{"text": "hl"},
		},
		"custom": "kept",
	}, "http://u")
	if err != nil {
		t.Fatalf("first Normalize: %v", err)
	}
	second, err := Normalize(first, "http://u")
	if err != nil {
		t.Fatalf("second Normalize: %v", err)
	}
	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if string(a) != string(b) {
		t.Errorf("record drifted:\nfirst  %s\nsecond %s", a, b)
	}
}

func TestNormalizeExtraFieldsPreserved(t *testing.T) {
	rec, err := Normalize(map[string]any{"summary": "s", "model": "m-1"}, "http://u")
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if rec.Extra["model"] != "m-1" {
		t.Errorf("extra field lost: %v", rec.Extra)
	}
	b, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out["model"] != "m-1" {
		t.Error("extra field not flattened into JSON encoding")
	}
	if out["summary"] != "s" {
		t.Error("resolved field overridden by extras")
	}
}

func TestSynthesizeFromPlainText(t *testing.T) {
	text := "Go routines make concurrency simple. Channels carry typed values between them! Short. The scheduler multiplexes goroutines onto threads? Go Go Go tooling is excellent. A fifth long sentence about the Go runtime. A sixth sentence that should be dropped entirely."
	rec, err := Normalize(text, "http://u")
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if rec.Title != DefaultTitle {
		t.Errorf("title = %q, want placeholder", rec.Title)
	}
	if rec.Summary != text {
		t.Error("summary should carry the raw text")
	}
	if len(rec.KeyPoints) != 5 {
		t.Fatalf("expected 5 key points, got %d: %v", len(rec.KeyPoints), rec.KeyPoints)
	}
	for _, p := range rec.KeyPoints {
		if p == "Short" {
			t.Error("sentences of 10 or fewer characters must be dropped")
		}
	}
	if len(rec.Keywords) == 0 || len(rec.Keywords) > 8 {
		t.Fatalf("keywords count out of range: %v", rec.Keywords)
	}
	for _, kw := range rec.Keywords {
		if !strings.Contains(text, kw) {
			t.Errorf("keyword %q not from source text", kw)
		}
		if kw == "Go" {
			t.Error("two-letter Latin tokens must not qualify as keywords")
		}
	}
	if len(rec.Highlights) != 0 {
		t.Errorf("synthesized record must have no highlights, got %v", rec.Highlights)
	}
}

func TestExtractKeywordsCJKAndRanking(t *testing.T) {
	got := extractKeywords("数据 摘要 摘要 alpha beta alpha alpha 摘要 数据")
	if len(got) < 4 {
		t.Fatalf("keywords = %v", got)
	}
	if got[0] != "摘要" && got[0] != "alpha" {
		t.Errorf("top keyword = %q, want a 3-count token", got[0])
	}
	// Both 摘要 and alpha occur 3 times; 摘要 was seen first.
	if got[0] != "摘要" || got[1] != "alpha" {
		t.Errorf("tie must break by first-seen order, got %v", got)
	}
}

func TestReadingTimeFor(t *testing.T) {
	if got := ReadingTimeFor(strings.Repeat("word ", 201)); got != "2 minutes" {
		t.Errorf("201 words = %q, want 2 minutes", got)
	}
	if got := ReadingTimeFor("a few words"); got != "1 minutes" {
		t.Errorf("short text = %q, want 1 minutes", got)
	}
}
