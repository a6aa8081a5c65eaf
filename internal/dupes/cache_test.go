package dupes

import (
	"testing"
	"time"
)

func TestMemoryCacheHit(t *testing.T) {
	c := NewMemoryCache()
	mod := time.Now()

	c.Put("/a", 100, mod, "h1")

	if hash, ok := c.Get("/a", 100, mod); !ok || hash != "h1" {
		t.Errorf("expected hit, got %q %v", hash, ok)
	}
	if c.Len() != 1 {
		t.Errorf("expected 1 entry, got %d", c.Len())
	}
}

func TestMemoryCacheInvalidation(t *testing.T) {
	c := NewMemoryCache()
	mod := time.Now()
	c.Put("/a", 100, mod, "h1")

	if _, ok := c.Get("/a", 200, mod); ok {
		t.Error("size change must miss")
	}
	if _, ok := c.Get("/a", 100, mod.Add(time.Nanosecond)); ok {
		t.Error("mtime change must miss")
	}
	if _, ok := c.Get("/b", 100, mod); ok {
		t.Error("unknown path must miss")
	}
}

func TestMemoryCacheOverwrite(t *testing.T) {
	c := NewMemoryCache()
	mod := time.Now()

	c.Put("/a", 100, mod, "old")
	c.Put("/a", 100, mod, "new")

	if hash, _ := c.Get("/a", 100, mod); hash != "new" {
		t.Errorf("expected overwritten value, got %q", hash)
	}
	if c.Len() != 1 {
		t.Errorf("expected 1 entry after overwrite, got %d", c.Len())
	}
}
