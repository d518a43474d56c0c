// Package config reads the single JSON configuration document that
// describes where drive-syncer keeps its caches, how it talks to
// Drive, and how aggressively it polls and debounces (spec.md §6
// CLI/environment).
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"runtime"
	"time"

	"github.com/OMGeeky/drive-syncer/id"
)

// Config is the on-disk configuration shape. Durations are encoded as
// JSON strings parseable by time.ParseDuration ("30s", "5m").
type Config struct {
	MountPoint string `json:"mount_point"`

	// CacheDir is the ephemeral, LRU-evicted, byte-budgeted cache
	// directory; purged on exit. PermaDir is the persistent directory
	// for pinned entries and is never evicted.
	CacheDir string `json:"cache_dir"`
	PermaDir string `json:"perma_dir"`
	// CacheBudgetBytes bounds CacheDir's total size.
	CacheBudgetBytes uint64 `json:"cache_budget_bytes"`

	// DebounceWindow is how long the upload scheduler waits after the
	// last write to a handle before starting an upload.
	DebounceWindow Duration `json:"debounce_window"`
	// ChangePollWindow is the interval between change-feed polls.
	ChangePollWindow Duration `json:"change_poll_window"`
	// MetadataTTL is handed to provider.Config. The provider does not
	// read it: entries are refreshed only by the change feed and by
	// upload completions, never by a TTL-driven GetMetadata call.
	MetadataTTL Duration `json:"metadata_ttl"`

	CredentialsPath string `json:"credentials_path"`
	OAuthClientID   string `json:"oauth_client_id"`
	OAuthClientSecret string `json:"oauth_client_secret"`

	// FileParentID is handed to provider.Config. The provider does not
	// read it: an object the remote reports with no parents is always
	// attached to the real Drive root.
	FileParentID id.Id `json:"file_parent_id"`
}

// Duration wraps time.Duration to accept the human-readable string
// form ("30s") in JSON, the way the rest of the config file reads.
type Duration time.Duration

func (d Duration) Duration() time.Duration { return time.Duration(d) }

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Default fills in the fields spec.md leaves as implementer's choice.
func Default() Config {
	return Config{
		CacheBudgetBytes: 5 * 1024 * 1024 * 1024,
		DebounceWindow:   Duration(3 * time.Second),
		ChangePollWindow: Duration(10 * time.Second),
		MetadataTTL:      Duration(5 * time.Minute),
	}
}

// Read loads and parses the configuration file at its default OS path.
func Read() (Config, error) {
	return ReadFile(configPath())
}

// ReadFile loads and parses the configuration file at filename.
func ReadFile(filename string) (Config, error) {
	contents, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, fmt.Errorf("reading %q: %w", filename, err)
	}
	c, err := parseConfig(contents)
	if err != nil {
		return Config{}, fmt.Errorf("parsing %q: %w", filename, err)
	}
	return c, nil
}

// parseConfig is broken out to let tests exercise unmarshaling directly
// against inline JSON, without touching the filesystem.
func parseConfig(contents []byte) (Config, error) {
	c := Default()
	if err := json.Unmarshal(contents, &c); err != nil {
		return Config{}, fmt.Errorf("json unmarshal error: %w", err)
	}
	if c.MountPoint == "" {
		return Config{}, fmt.Errorf("mount_point is required")
	}
	if c.CacheDir == "" {
		return Config{}, fmt.Errorf("cache_dir is required")
	}
	if c.PermaDir == "" {
		return Config{}, fmt.Errorf("perma_dir is required")
	}
	return c, nil
}

// configPath identifies the default config file location per OS.
func configPath() string {
	dir := "."
	switch runtime.GOOS {
	case "darwin":
		dir = path.Join(os.Getenv("HOME"), "Library", "Application Support", "drivesyncer")
	case "linux", "freebsd":
		dir = path.Join(os.Getenv("HOME"), ".drivesyncer")
	default:
		fmt.Printf("TODO: default config dir on GOOS %q\n", runtime.GOOS)
	}
	return path.Join(dir, "config.json")
}
