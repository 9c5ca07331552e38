// Package cliui provides reusable terminal UI helpers (spinners, step
// indicators, markdown rendering, the chat transcript) for recall CLI
// commands.
package cliui

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

var (
	SuccessMark  = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Render("✓")
	FailMark     = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render("✗")
	StepStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))

	KeyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	ValueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	NameStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	DimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
)

var spinnerFrames = []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

// Step runs fn and reports it as one line: a ✓ or ✗ mark, msg and the
// elapsed time. On a terminal a spinner animates in place until fn returns;
// other writers only get the final line.
func Step(w io.Writer, msg string, fn func() error) error {
	var stop func()
	if isTerminalWriter(w) {
		stop = spin(w, msg)
	}

	start := time.Now()
	err := fn()
	elapsed := time.Since(start)

	prefix := ""
	if stop != nil {
		stop()
		prefix = "\r"
	}

	fmt.Fprintf(w, "%s  %s %s %s\n",
		prefix,
		Mark(err),
		msg,
		StepStyle.Render(fmt.Sprintf("(%s)", FormatDuration(elapsed))),
	)
	return err
}

// spin animates the spinner until the returned func is called. The func
// returns once the animation goroutine has stopped writing.
func spin(w io.Writer, msg string) func() {
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		for frame := 0; ; frame++ {
			fmt.Fprintf(w, "\r  %s %s",
				spinnerStyle.Render(spinnerFrames[frame%len(spinnerFrames)]),
				msg,
			)

			select {
			case <-done:
				return
			case <-ticker.C:
			}
		}
	}()

	return func() {
		close(done)
		wg.Wait()
	}
}

func isTerminalWriter(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Mark returns a ✓ for nil errors or ✗ for non-nil errors.
func Mark(err error) string {
	if err != nil {
		return FailMark
	}
	return SuccessMark
}

// FormatDuration formats a duration for display (e.g. "12ms" or "3.2s").
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// RenderMarkdown renders markdown content for terminal display using glamour.
func RenderMarkdown(content string, width int) (string, error) {
	if width <= 0 {
		width = DefaultWidth
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return content, err
	}

	rendered, err := r.Render(content)
	if err != nil {
		return content, err
	}

	return rendered, nil
}
