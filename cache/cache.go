// Package cache manages the two on-disk cache directories (spec.md §6
// Cache layout): an ephemeral, byte-budgeted directory evicted LRU-style
// and purged on exit, and a persistent directory for pinned ("perma")
// entries that survives restarts untouched.
package cache

import (
	"expvar"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/golang/glog"
	lru "github.com/hashicorp/golang-lru"

	"github.com/OMGeeky/drive-syncer/id"
)

var (
	ephemeralBytes = expvar.NewInt("cacheEphemeralBytes")
	ephemeralFiles = expvar.NewInt("cacheEphemeralFiles")
	evictions      = expvar.NewInt("cacheEvictions")
)

// Store manages one ephemeral, LRU-evicted directory and one perma
// directory with no eviction policy of its own. File names in both
// directories are the opaque entry id with no further encoding; Path
// rejects ids containing a path separator.
type Store struct {
	ephemeralDir string
	permaDir     string
	budget       uint64

	lru       *lru.Cache
	usedBytes uint64

	// wg/wgl serialize the blocking-evict-until-under-budget loop in
	// Reserve against the lru eviction callback, the same pattern the
	// teacher's in-memory chunk cache uses to make eviction synchronous.
	wg  sync.WaitGroup
	wgl sync.Mutex
}

// NewStore creates (if absent) ephemeralDir and permaDir and returns a
// Store whose ephemeral side is bounded to budgetBytes.
func NewStore(ephemeralDir, permaDir string, budgetBytes uint64) (*Store, error) {
	if err := os.MkdirAll(ephemeralDir, 0700); err != nil {
		return nil, fmt.Errorf("creating ephemeral cache dir %s: %w", ephemeralDir, err)
	}
	if err := os.MkdirAll(permaDir, 0700); err != nil {
		return nil, fmt.Errorf("creating perma cache dir %s: %w", permaDir, err)
	}
	s := &Store{ephemeralDir: ephemeralDir, permaDir: permaDir, budget: budgetBytes}
	var err error
	if s.lru, err = lru.NewWithEvict(math.MaxInt64, s.onEvict); err != nil {
		return nil, fmt.Errorf("initializing cache lru: %w", err)
	}
	return s, nil
}

// Path returns the on-disk path an entry's content lives at. perma
// selects which of the two directories.
func (s *Store) Path(objId id.Id, perma bool) (string, error) {
	name := string(objId)
	if filepath.Base(name) != name || name == "" {
		return "", fmt.Errorf("id %q is not safe as a cache file name", name)
	}
	if perma {
		return filepath.Join(s.permaDir, name), nil
	}
	return filepath.Join(s.ephemeralDir, name), nil
}

// Reserve registers size bytes of new ephemeral content for objId,
// evicting the least-recently-used ephemeral entries until the store
// fits within budget. It does not apply to perma entries, which are
// never evicted.
func (s *Store) Reserve(objId id.Id, size uint64) {
	key := string(objId)
	if !s.lru.Contains(key) {
		s.usedBytes += size
	}
	s.wgl.Lock()
	for s.usedBytes > s.budget && s.lru.Len() > 0 {
		s.wg.Add(1)
		s.lru.RemoveOldest()
		s.wg.Wait()
	}
	s.wgl.Unlock()
	s.lru.Add(key, size)
	ephemeralFiles.Set(int64(s.lru.Len()))
	ephemeralBytes.Set(int64(s.usedBytes))
}

// Touch marks objId as recently used without changing its accounted
// size, for a cache hit that does not re-download.
func (s *Store) Touch(objId id.Id) {
	s.lru.Get(string(objId))
}

// Forget removes objId's ephemeral accounting and deletes its cache
// file, for use when an entry is deleted or invalidated by a remote
// Removed change.
func (s *Store) Forget(objId id.Id) {
	key := string(objId)
	if s.lru.Contains(key) {
		// Remove runs onEvict, which calls wg.Done.
		s.wg.Add(1)
		s.lru.Remove(key)
	}
	p, err := s.Path(objId, false)
	if err != nil {
		return
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		glog.Warningf("cache: removing %s: %v", p, err)
	}
}

// Purge deletes every file in the ephemeral directory. Call at startup
// and shutdown; the ephemeral cache does not survive a restart.
func (s *Store) Purge() error {
	entries, err := os.ReadDir(s.ephemeralDir)
	if err != nil {
		return fmt.Errorf("reading ephemeral cache dir %s: %w", s.ephemeralDir, err)
	}
	for _, e := range entries {
		if err := os.Remove(filepath.Join(s.ephemeralDir, e.Name())); err != nil {
			glog.Warningf("cache: purge failed to remove %s: %v", e.Name(), err)
		}
	}
	return nil
}

func (s *Store) onEvict(key interface{}, value interface{}) {
	size := value.(uint64)
	s.usedBytes -= size
	evictions.Add(1)
	p := filepath.Join(s.ephemeralDir, key.(string))
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		glog.Warningf("cache: evicting %s: %v", p, err)
	}
	s.wg.Done()
}
