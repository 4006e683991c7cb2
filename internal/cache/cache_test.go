package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := New(filepath.Join(t.TempDir(), "cache"), 24, true)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return c
}

func TestNew(t *testing.T) {
	c := newTestCache(t)
	if !c.Enabled() {
		t.Error("cache should be enabled")
	}
	if _, err := os.Stat(c.Dir()); err != nil {
		t.Errorf("New() should create cache directory: %v", err)
	}

	c, err := New("", 0, false)
	if err != nil {
		t.Fatalf("New() error for disabled cache: %v", err)
	}
	if c.Enabled() {
		t.Error("cache should be disabled")
	}
	if c.Dir() != "" {
		t.Errorf("disabled cache Dir() = %q, want empty", c.Dir())
	}
}

func TestDefaultDir(t *testing.T) {
	got := DefaultDir("/repo")
	want := filepath.Join("/repo", ".dormant", "cache")
	if got != want {
		t.Errorf("DefaultDir() = %q, want %q", got, want)
	}
}

func TestSetAndGet(t *testing.T) {
	c := newTestCache(t)

	if err := c.Set("facts:A.cs", []byte("payload")); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	got, ok := c.Get("facts:A.cs")
	if !ok {
		t.Fatal("Get() returned false for existing key")
	}
	if string(got) != "payload" {
		t.Errorf("Get() = %q, want %q", got, "payload")
	}

	if _, ok := c.Get("facts:B.cs"); ok {
		t.Error("Get() should return false for non-existent key")
	}
}

func TestGetWithHash(t *testing.T) {
	c := newTestCache(t)
	hash := HashBytes([]byte("class A { }"))

	if err := c.SetWithHash("A.cs", hash, []byte("facts")); err != nil {
		t.Fatalf("SetWithHash() error: %v", err)
	}

	got, ok := c.GetWithHash("A.cs", hash)
	if !ok {
		t.Fatal("GetWithHash() returned false for matching hash")
	}
	if string(got) != "facts" {
		t.Errorf("GetWithHash() = %q, want %q", got, "facts")
	}

	if _, ok := c.GetWithHash("A.cs", HashBytes([]byte("class A { int x; }"))); ok {
		t.Error("GetWithHash() should miss when content changed")
	}

	// Overwriting replaces the stored hash.
	newHash := HashBytes([]byte("v2"))
	if err := c.SetWithHash("A.cs", newHash, []byte("facts v2")); err != nil {
		t.Fatalf("SetWithHash() error: %v", err)
	}
	if _, ok := c.GetWithHash("A.cs", hash); ok {
		t.Error("old hash should no longer match")
	}
	if got, _ := c.GetWithHash("A.cs", newHash); string(got) != "facts v2" {
		t.Errorf("GetWithHash() = %q, want %q", got, "facts v2")
	}
}

func TestCorruptEntryIsMiss(t *testing.T) {
	c := newTestCache(t)
	path := c.keyPath("broken")
	if err := os.WriteFile(path, []byte{0xc1, 0xff, 0x00}, 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}

	if _, ok := c.Get("broken"); ok {
		t.Error("Get() should miss on a corrupt entry")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("corrupt entry should be removed")
	}
}

func TestInvalidate(t *testing.T) {
	c := newTestCache(t)
	if err := c.Set("key", []byte("data")); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	if err := c.Invalidate("key"); err != nil {
		t.Fatalf("Invalidate() error: %v", err)
	}
	if _, ok := c.Get("key"); ok {
		t.Error("key should not exist after invalidation")
	}
	if err := c.Invalidate("key"); err != nil {
		t.Errorf("Invalidate() of a missing key should not error: %v", err)
	}
}

func TestClear(t *testing.T) {
	c := newTestCache(t)
	for _, key := range []string{"a", "b", "c"} {
		if err := c.Set(key, []byte("data")); err != nil {
			t.Fatalf("Set() error: %v", err)
		}
	}

	if err := c.Clear(); err != nil {
		t.Fatalf("Clear() error: %v", err)
	}
	if _, err := os.Stat(c.Dir()); !os.IsNotExist(err) {
		t.Error("Clear() should remove cache directory")
	}

	stats, err := c.GetStats()
	if err != nil {
		t.Fatalf("GetStats() after Clear() error: %v", err)
	}
	if stats.Entries != 0 {
		t.Errorf("Entries = %d, want 0", stats.Entries)
	}
}

func TestDisabledCache(t *testing.T) {
	c, err := New("", 0, false)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	if err := c.SetWithHash("key", "hash", []byte("data")); err != nil {
		t.Errorf("SetWithHash() on disabled cache should not error: %v", err)
	}
	if _, ok := c.GetWithHash("key", "hash"); ok {
		t.Error("GetWithHash() on disabled cache should return false")
	}
	if err := c.Invalidate("key"); err != nil {
		t.Errorf("Invalidate() on disabled cache should not error: %v", err)
	}
	if err := c.Clear(); err != nil {
		t.Errorf("Clear() on disabled cache should not error: %v", err)
	}
	stats, err := c.GetStats()
	if err != nil || stats.Entries != 0 {
		t.Errorf("GetStats() on disabled cache = %+v, %v", stats, err)
	}
}

func TestHashFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "A.cs")
	if err := os.WriteFile(path, []byte("class A { }"), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}

	got, err := HashFile(path)
	if err != nil {
		t.Fatalf("HashFile() error: %v", err)
	}
	if want := HashBytes([]byte("class A { }")); got != want {
		t.Errorf("HashFile() = %q, want %q", got, want)
	}
	if len(got) != 64 {
		t.Errorf("hash length = %d, want 64", len(got))
	}

	if _, err := HashFile(filepath.Join(t.TempDir(), "missing.cs")); err == nil {
		t.Error("HashFile() should return error for non-existent file")
	}
}

func TestGetStats(t *testing.T) {
	c := newTestCache(t)
	for _, key := range []string{"a", "b", "c"} {
		if err := c.Set(key, []byte("data")); err != nil {
			t.Fatalf("Set() error: %v", err)
		}
	}
	// Stray files in the directory are not entries.
	if err := os.WriteFile(filepath.Join(c.Dir(), "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}

	stats, err := c.GetStats()
	if err != nil {
		t.Fatalf("GetStats() error: %v", err)
	}
	if stats.Entries != 3 {
		t.Errorf("Entries = %d, want 3", stats.Entries)
	}
	if stats.TotalSize <= 0 {
		t.Error("TotalSize should be positive")
	}
}

func TestTTLExpiration(t *testing.T) {
	c := newTestCache(t)
	c.ttl = time.Millisecond

	if err := c.Set("key", []byte("data")); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get("key"); ok {
		t.Error("Get() should return false after TTL expires")
	}
}

func TestKeyPath(t *testing.T) {
	c := newTestCache(t)

	path1 := c.keyPath("src/A.cs")
	path2 := c.keyPath("src/B.cs")
	if path1 == path2 {
		t.Error("different keys should produce different paths")
	}
	if path1 != c.keyPath("src/A.cs") {
		t.Error("same keys should produce same paths")
	}
	if filepath.Ext(path1) != entryExt {
		t.Errorf("key path should end with %s, got %s", entryExt, path1)
	}
	if filepath.Dir(path1) != c.Dir() {
		t.Error("key path should be in cache directory")
	}
}
