package ui

import (
	"io"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/term"
)

// PagerOptions controls how agenda-sized output is shown.
type PagerOptions struct {
	// NoPager writes straight to the destination.
	NoPager bool
	// Command overrides $PAGER, e.g. "less -S". Empty falls back to $PAGER
	// and then less.
	Command string
}

// pagerFor returns the argv of the pager to run for content written to w,
// or nil when content should be written directly. Paging needs w to be a
// terminal and content taller than it.
func pagerFor(w io.Writer, content string, opts PagerOptions) []string {
	if opts.NoPager {
		return nil
	}
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return nil
	}
	if _, height, err := term.GetSize(int(f.Fd())); err == nil && lineCount(content) < height {
		return nil
	}
	return strings.Fields(pagerCommand(opts))
}

func pagerCommand(opts PagerOptions) string {
	if opts.Command != "" {
		return opts.Command
	}
	if p := os.Getenv("PAGER"); p != "" {
		return p
	}
	return "less"
}

func lineCount(content string) int {
	if content == "" {
		return 0
	}
	return strings.Count(content, "\n") + 1
}

// ToPager shows content on w, through a pager when w is a terminal too
// small to hold it.
func ToPager(w io.Writer, content string, opts PagerOptions) error {
	argv := pagerFor(w, content, opts)
	if len(argv) == 0 {
		_, err := io.WriteString(w, content)
		return err
	}

	cmd := exec.Command(argv[0], argv[1:]...) // #nosec G204 - pager command comes from user config
	cmd.Stdin = strings.NewReader(content)
	cmd.Stdout = w
	cmd.Stderr = os.Stderr
	cmd.Env = os.Environ()
	// Keep colors, quit when it fits, leave the screen alone.
	if os.Getenv("LESS") == "" {
		cmd.Env = append(cmd.Env, "LESS=-RFX")
	}
	return cmd.Run()
}
