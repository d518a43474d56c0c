package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/OMGeeky/drive-syncer/id"
)

func newTestStore(t *testing.T, budget uint64) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := NewStore(filepath.Join(dir, "ephemeral"), filepath.Join(dir, "perma"), budget)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s
}

func TestPathRejectsPathSeparators(t *testing.T) {
	s := newTestStore(t, 1024)
	if _, err := s.Path(id.Id("../escape"), false); err == nil {
		t.Fatal("Path did not reject an id containing a path separator")
	}
	if _, err := s.Path(id.Id(""), false); err == nil {
		t.Fatal("Path did not reject an empty id")
	}
}

func TestPathSeparatesEphemeralAndPerma(t *testing.T) {
	s := newTestStore(t, 1024)
	eph, err := s.Path(id.Id("abc"), false)
	if err != nil {
		t.Fatalf("Path(ephemeral): %v", err)
	}
	perma, err := s.Path(id.Id("abc"), true)
	if err != nil {
		t.Fatalf("Path(perma): %v", err)
	}
	if eph == perma {
		t.Fatalf("ephemeral and perma paths collided: %s", eph)
	}
}

func TestReserveEvictsOverBudget(t *testing.T) {
	s := newTestStore(t, 10)

	for _, entry := range []struct {
		id   id.Id
		size uint64
	}{
		{"a", 4},
		{"b", 4},
		{"c", 4},
	} {
		p, err := s.Path(entry.id, false)
		if err != nil {
			t.Fatalf("Path: %v", err)
		}
		if err := os.WriteFile(p, make([]byte, entry.size), 0600); err != nil {
			t.Fatalf("seeding cache file: %v", err)
		}
		s.Reserve(entry.id, entry.size)
	}

	if s.lru.Contains("a") {
		t.Fatal("least-recently-used entry was not evicted over budget")
	}
	if !s.lru.Contains("b") || !s.lru.Contains("c") {
		t.Fatal("recently-added entries were evicted unexpectedly")
	}
	if s.usedBytes > 10 {
		t.Fatalf("usedBytes = %d, want <= 10", s.usedBytes)
	}
}

func TestForgetRemovesFile(t *testing.T) {
	s := newTestStore(t, 1024)
	p, err := s.Path(id.Id("x"), false)
	if err != nil {
		t.Fatalf("Path: %v", err)
	}
	if err := os.WriteFile(p, []byte("hello"), 0600); err != nil {
		t.Fatalf("seeding cache file: %v", err)
	}
	s.Reserve(id.Id("x"), 5)
	s.Forget(id.Id("x"))
	if _, err := os.Stat(p); !os.IsNotExist(err) {
		t.Fatalf("Forget did not remove cache file: err=%v", err)
	}
}

func TestPurgeClearsEphemeralDir(t *testing.T) {
	s := newTestStore(t, 1024)
	p, err := s.Path(id.Id("x"), false)
	if err != nil {
		t.Fatalf("Path: %v", err)
	}
	if err := os.WriteFile(p, []byte("hello"), 0600); err != nil {
		t.Fatalf("seeding cache file: %v", err)
	}
	if err := s.Purge(); err != nil {
		t.Fatalf("Purge: %v", err)
	}
	entries, err := os.ReadDir(s.ephemeralDir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("ephemeral dir not empty after Purge: %v", entries)
	}
}
