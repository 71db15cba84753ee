// Package manifest handles cheshire.toml interpreter configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents a cheshire.toml configuration file.
type Config struct {
	Repl  Repl  `toml:"repl"`
	VM    VM    `toml:"vm"`
	GC    GC    `toml:"gc"`
	Cache Cache `toml:"cache"`

	// Dir is the directory containing the cheshire.toml file (set at
	// load time).
	Dir string `toml:"-"`
}

// Repl configures the interactive driver.
type Repl struct {
	HistoryFile string `toml:"history-file"`
}

// VM configures the interpreter.
type VM struct {
	Trace     bool `toml:"trace"`
	MaxFrames int  `toml:"max-frames"`
}

// GC configures the collector.
type GC struct {
	MaxObjects int  `toml:"max-objects"`
	Log        bool `toml:"log"`
}

// Cache configures the compiled-chunk cache used by load.
type Cache struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Default returns the configuration used when no cheshire.toml exists.
func Default() *Config {
	return &Config{
		Repl:  Repl{HistoryFile: ".cheshire_history"},
		Cache: Cache{Path: filepath.Join(".cheshire", "cache.db")},
	}
}

// Load parses a cheshire.toml file from the given directory.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, "cheshire.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	c := Default()
	if err := toml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	c.Dir = dir
	return c, nil
}

// FindAndLoad walks up from startDir looking for a cheshire.toml file.
// When none is found the defaults apply.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}
	for {
		path := filepath.Join(dir, "cheshire.toml")
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return Default(), nil
		}
		dir = parent
	}
}

// CachePath resolves the cache database path relative to the manifest
// directory when one was loaded.
func (c *Config) CachePath() string {
	if c.Dir == "" || filepath.IsAbs(c.Cache.Path) {
		return c.Cache.Path
	}
	return filepath.Join(c.Dir, c.Cache.Path)
}
