package history

import (
	"context"
	"fmt"
	"testing"

	"github.com/pagelens/pagelens/src/summary"
)

func envFor(url, title string) Envelope {
	return NewEnvelope(&summary.Record{Title: title, Summary: "s", SourceURL: url})
}

func TestMemoryStoreMostRecentFirst(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	if err := s.Save(ctx, envFor("http://a", "A")); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Save(ctx, envFor("http://b", "B")); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.Get(ctx)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Record.Title != "B" || got[1].Record.Title != "A" {
		t.Errorf("order = %s, %s; want most recent first", got[0].Record.Title, got[1].Record.Title)
	}
}

func TestMemoryStoreDedupBySourceURL(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	s.Save(ctx, envFor("http://a", "old"))
	s.Save(ctx, envFor("http://b", "other"))
	s.Save(ctx, envFor("http://a", "new"))

	got, _ := s.Get(ctx)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2 after dedup", len(got))
	}
	if got[0].Record.Title != "new" {
		t.Errorf("last write must win and move to front, got %q", got[0].Record.Title)
	}
	for _, e := range got[1:] {
		if e.Record.SourceURL == "http://a" {
			t.Error("stale entry for deduped URL survived")
		}
	}
}

func TestMemoryStoreCapacity(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	for i := 0; i < Capacity+10; i++ {
		s.Save(ctx, envFor(fmt.Sprintf("http://u/%d", i), fmt.Sprintf("t%d", i)))
	}
	got, _ := s.Get(ctx)
	if len(got) != Capacity {
		t.Fatalf("len = %d, want capacity %d", len(got), Capacity)
	}
	if got[0].Record.Title != fmt.Sprintf("t%d", Capacity+9) {
		t.Errorf("newest entry missing, front = %q", got[0].Record.Title)
	}
}

func TestMemoryStoreDeleteAndClear(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	env := envFor("http://a", "A")
	s.Save(ctx, env)
	s.Save(ctx, envFor("http://b", "B"))

	if err := s.Delete(ctx, env.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, _ := s.Get(ctx)
	if len(got) != 1 || got[0].Record.Title != "B" {
		t.Fatalf("after delete: %v", got)
	}

	if err := s.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if got, _ := s.Get(ctx); len(got) != 0 {
		t.Errorf("after clear: %v", got)
	}
}

func TestNewEnvelopeAssignsIdentity(t *testing.T) {
	a := NewEnvelope(&summary.Record{SourceURL: "http://a"})
	b := NewEnvelope(&summary.Record{SourceURL: "http://a"})
	if a.ID == "" || a.ID == b.ID {
		t.Errorf("envelope IDs must be unique, got %q and %q", a.ID, b.ID)
	}
	if a.SavedAt.IsZero() {
		t.Error("SavedAt not set")
	}
}

func TestBackendConstructorsValidateInput(t *testing.T) {
	ctx := context.Background()
	if _, err := NewPostgresStore(ctx, ""); err == nil {
		t.Error("postgres store must require a connection string")
	}
	if _, err := NewMongoStore(ctx, "", "", ""); err == nil {
		t.Error("mongo store must require a uri")
	}
	if _, err := NewRedisStore(ctx, "", "", 0); err == nil {
		t.Error("redis store must require an address")
	}
	if _, err := NewSQLiteStore(ctx, ""); err == nil {
		t.Error("sqlite store must require a path")
	}
}
