package cache

import (
	"testing"
	"time"

	"github.com/pagelens/pagelens/src/summary"
)

func rec(title string) *summary.Record {
	return &summary.Record{Title: title, Summary: "s"}
}

func TestCacheBasicLRU(t *testing.T) {
	c := New(3, time.Hour)
	c.Set("a", rec("a"))
	c.Set("b", rec("b"))
	c.Set("c", rec("c"))

	if got, ok := c.Get("a"); !ok || got.Title != "a" {
		t.Fatalf("Get(a) = %v, %v", got, ok)
	}

	// "b" is now least recently used.
	c.Set("d", rec("d"))
	if _, ok := c.Get("b"); ok {
		t.Error("expected b to be evicted")
	}
	if c.Len() != 3 {
		t.Errorf("Len = %d, want 3", c.Len())
	}
}

func TestCacheTTLExpiry(t *testing.T) {
	c := New(10, 10*time.Millisecond)
	c.Set("k", rec("k"))
	time.Sleep(20 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Error("expired entry returned")
	}
	if c.Len() != 0 {
		t.Errorf("Len = %d after expiry read", c.Len())
	}
}

func TestCacheDumpRestore(t *testing.T) {
	c := New(10, time.Hour)
	c.Set("k1", rec("one"))
	c.Set("k2", rec("two"))

	restored := New(10, time.Hour)
	restored.Restore(c.Dump())
	if got, ok := restored.Get("k1"); !ok || got.Title != "one" {
		t.Fatalf("restored Get(k1) = %v, %v", got, ok)
	}
	if restored.Len() != 2 {
		t.Errorf("restored Len = %d, want 2", restored.Len())
	}
}

func TestCacheDeleteAndClear(t *testing.T) {
	c := New(10, time.Hour)
	c.Set("k", rec("k"))
	c.Delete("k")
	if _, ok := c.Get("k"); ok {
		t.Error("deleted entry returned")
	}
	c.Set("k2", rec("k2"))
	c.Clear()
	if c.Len() != 0 {
		t.Error("clear left entries behind")
	}
}

func TestKeyStable(t *testing.T) {
	if Key("https://example.com") != Key("https://example.com") {
		t.Error("Key must be deterministic")
	}
	if Key("a") == Key("b") {
		t.Error("distinct sources must not collide")
	}
}

func BenchmarkCacheSet(b *testing.B) {
	c := New(1000, 5*time.Minute)
	r := rec("bench")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Set(Key(string(rune(i))), r)
	}
}
