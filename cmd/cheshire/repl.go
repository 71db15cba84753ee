package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/peterh/liner"

	"github.com/sadderchris/cheshire/manifest"
	"github.com/sadderchris/cheshire/pkg/reader"
	"github.com/sadderchris/cheshire/vm"
)

const (
	promptMain = ">> "
	promptCont = ".. "
)

const banner = "Cheshire Scheme\nCtrl+C cancels input, Ctrl+D exits."

func red(s string) string { return "\x1b[31m" + s + "\x1b[0m" }

// runRepl reads a complete input at each prompt and, for every datum in
// it, compiles the datum as a zero-argument thunk, invokes it, and prints
// the result in write syntax. Errors unwind to the prompt and the loop
// continues.
func runRepl(interp *vm.VM, cfg *manifest.Config) int {
	fmt.Println(banner)

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, cfg.Repl.HistoryFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigc)
	go func() {
		<-sigc
		ln.Close()
		os.Exit(130)
	}()

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}

	for {
		src, ok := readForm(ln)
		if !ok {
			fmt.Println()
			return 0
		}
		if strings.TrimSpace(src) == "" {
			continue
		}

		forms, err := reader.NewString(src).ReadAll()
		if err != nil {
			fmt.Fprintln(os.Stderr, red(err.Error()))
			continue
		}

		for _, form := range forms {
			thunk, err := interp.Compile(interp, form)
			if err != nil {
				fmt.Fprintln(os.Stderr, red(err.Error()))
				break
			}
			result, err := interp.Call(thunk)
			if err != nil {
				fmt.Fprintln(os.Stderr, red(err.Error()))
				break
			}
			if !result.IsVoid() {
				fmt.Println(interp.WriteString(result))
			}
		}
		ln.AppendHistory(strings.ReplaceAll(src, "\n", " "))
	}
}

// readForm accumulates prompt lines until every datum in the input is
// complete, prompting for continuation lines while the reader reports
// incomplete input. Blank input and hard syntax errors are returned at once.
func readForm(ln *liner.State) (string, bool) {
	var b strings.Builder

	for {
		var line string
		var err error
		if b.Len() == 0 {
			line, err = ln.Prompt(promptMain)
		} else {
			line, err = ln.Prompt(promptCont)
		}
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if errors.Is(err, liner.ErrPromptAborted) {
			return "", true
		}
		if err != nil {
			return "", true
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		if strings.TrimSpace(src) == "" {
			return src, true
		}
		_, perr := reader.NewString(src).ReadAll()
		if perr == nil {
			return src, true
		}
		if reader.IsIncomplete(perr) {
			continue
		}
		// A hard syntax error: hand it back so the main loop reports it.
		return src, true
	}
}
