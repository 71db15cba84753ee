// Cheshire CLI - a bytecode-compiled Scheme interpreter.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/tliron/commonlog"

	"github.com/sadderchris/cheshire/compiler"
	"github.com/sadderchris/cheshire/manifest"
	"github.com/sadderchris/cheshire/vm"

	_ "github.com/tliron/commonlog/simple"
)

func main() {
	trace := flag.Bool("trace", false, "Trace execution (opcode and stack per instruction)")
	verbose := flag.Bool("v", false, "Verbose logging (GC and VM diagnostics)")
	noCache := flag.Bool("no-cache", false, "Disable the compiled-chunk cache")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: cheshire [options] [file.scm ...]\n\n")
		fmt.Fprintf(os.Stderr, "With no files, starts the REPL. With files, loads each in order and exits.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  cheshire                 # Start the REPL\n")
		fmt.Fprintf(os.Stderr, "  cheshire prog.scm        # Run a program\n")
		fmt.Fprintf(os.Stderr, "  cheshire -trace prog.scm # Run with instruction tracing\n")
	}
	flag.Parse()

	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	cfg, err := manifest.FindAndLoad(cwd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cheshire: %v\n", err)
		os.Exit(1)
	}

	verbosity := 0
	if *verbose || cfg.GC.Log {
		verbosity = 2
	}
	commonlog.Configure(verbosity, nil)

	interp := vm.New()
	compiler.Install(interp)
	interp.Trace = *trace || cfg.VM.Trace
	interp.MaxFrames = cfg.VM.MaxFrames
	interp.Heap.MaxObjects = cfg.GC.MaxObjects

	if cfg.Cache.Enabled && !*noCache {
		cache, err := vm.OpenCompileCache(cfg.CachePath())
		if err != nil {
			fmt.Fprintf(os.Stderr, "cheshire: %v\n", err)
		} else {
			interp.Cache = cache
		}
	}
	closeCache := func() {
		if interp.Cache != nil {
			_ = interp.Cache.Close()
		}
	}

	if files := flag.Args(); len(files) > 0 {
		for _, f := range files {
			if err := interp.LoadFile(f); err != nil {
				fmt.Fprintf(os.Stderr, "cheshire: %v\n", err)
				closeCache()
				os.Exit(1)
			}
		}
		closeCache()
		return
	}

	code := runRepl(interp, cfg)
	closeCache()
	os.Exit(code)
}
