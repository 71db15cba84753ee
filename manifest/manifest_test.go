package manifest

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	c := Default()
	if c.Repl.HistoryFile == "" {
		t.Fatal("default history file is empty")
	}
	if c.Cache.Enabled {
		t.Fatal("cache must default to disabled")
	}
	if c.VM.Trace {
		t.Fatal("trace must default to off")
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	content := `
[repl]
history-file = ".my_history"

[vm]
trace = true
max-frames = 5000

[gc]
max-objects = 100000
log = true

[cache]
enabled = true
path = "build/cache.db"
`
	if err := os.WriteFile(filepath.Join(dir, "cheshire.toml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if c.Repl.HistoryFile != ".my_history" {
		t.Errorf("history-file = %q", c.Repl.HistoryFile)
	}
	if !c.VM.Trace || c.VM.MaxFrames != 5000 {
		t.Errorf("vm section = %+v", c.VM)
	}
	if c.GC.MaxObjects != 100000 || !c.GC.Log {
		t.Errorf("gc section = %+v", c.GC)
	}
	if !c.Cache.Enabled {
		t.Error("cache not enabled")
	}
	if got := c.CachePath(); got != filepath.Join(dir, "build", "cache.db") {
		t.Errorf("CachePath = %q", got)
	}
}

func TestLoadPartial(t *testing.T) {
	// Unspecified sections keep their defaults.
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "cheshire.toml"),
		[]byte("[vm]\ntrace = true\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if !c.VM.Trace {
		t.Error("trace not picked up")
	}
	if c.Repl.HistoryFile != ".cheshire_history" {
		t.Errorf("history default lost: %q", c.Repl.HistoryFile)
	}
}

func TestLoadMalformed(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "cheshire.toml"),
		[]byte("not [valid toml"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir); err == nil {
		t.Fatal("malformed toml must fail to load")
	}
}

func TestFindAndLoadWalksUp(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "cheshire.toml"),
		[]byte("[vm]\ntrace = true\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	c, err := FindAndLoad(nested)
	if err != nil {
		t.Fatal(err)
	}
	if !c.VM.Trace {
		t.Fatal("manifest in ancestor directory not found")
	}
}

func TestFindAndLoadDefaults(t *testing.T) {
	c, err := FindAndLoad(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if c.Dir != "" {
		t.Fatal("defaults must not claim a manifest directory")
	}
}
