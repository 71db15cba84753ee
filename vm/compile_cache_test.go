package vm_test

import (
	"crypto/sha256"
	"path/filepath"
	"testing"

	"github.com/sadderchris/cheshire/vm"
)

func TestCompileCachePutGet(t *testing.T) {
	cache, err := vm.OpenCompileCache(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer cache.Close()

	key := sha256.Sum256([]byte("(+ 1 2)"))
	if _, ok := cache.Get(key); ok {
		t.Fatal("empty cache answered a lookup")
	}

	cache.Put(key, []byte{1, 2, 3})
	blob, ok := cache.Get(key)
	if !ok || len(blob) != 3 {
		t.Fatalf("Get after Put = %v, %v", blob, ok)
	}

	// Overwrite is allowed.
	cache.Put(key, []byte{9})
	blob, _ = cache.Get(key)
	if len(blob) != 1 || blob[0] != 9 {
		t.Fatal("Put did not replace the entry")
	}

	n, err := cache.Len()
	if err != nil || n != 1 {
		t.Fatalf("Len = %d, %v", n, err)
	}
}

func TestCompileCacheCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "cache.db")
	cache, err := vm.OpenCompileCache(path)
	if err != nil {
		t.Fatal(err)
	}
	cache.Close()
}

func TestLoadWithCache(t *testing.T) {
	interp := newInterp(t)
	cache, err := vm.OpenCompileCache(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer cache.Close()
	interp.Cache = cache

	dir := t.TempDir()
	script := filepath.Join(dir, "prog.scm")
	writeFile(t, script, "(define cached-result (+ 40 2))")

	if err := interp.LoadFile(script); err != nil {
		t.Fatal(err)
	}
	if got := interp.WriteString(evalAll(t, interp, "cached-result")); got != "42" {
		t.Fatalf("cached-result = %s", got)
	}
	n, _ := cache.Len()
	if n == 0 {
		t.Fatal("load did not populate the cache")
	}

	// A second interpreter sharing the cache gets the cached chunks.
	second := newInterp(t)
	second.Cache = cache
	if err := second.LoadFile(script); err != nil {
		t.Fatal(err)
	}
	if got := second.WriteString(evalAll(t, second, "cached-result")); got != "42" {
		t.Fatalf("second interpreter cached-result = %s", got)
	}
}
