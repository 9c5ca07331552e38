package cliui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/x/ansi"
	"golang.org/x/term"
)

// DefaultWidth is used when the output is not a terminal.
const DefaultWidth = 80

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	userStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	agentStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("82"))
	bannerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)
)

// Banner describes the chat session being opened.
type Banner struct {
	AppName   string
	UserID    string
	SessionID string
	Agent     string
	Model     string
	Mode      string
	Resumed   bool
}

// Render draws the banner box, clipping each line to width.
func (b Banner) Render(width int) string {
	if width <= 0 {
		width = DefaultWidth
	}
	inner := max(width-4, 20)

	session := b.SessionID
	if b.Resumed {
		session += " (resumed)"
	}

	rows := [][2]string{
		{"user", b.UserID},
		{"session", session},
		{"agent", b.Agent},
		{"model", b.Model},
		{"memory", b.Mode},
	}

	lines := []string{titleStyle.Render(b.AppName)}
	for _, r := range rows {
		if r[1] == "" {
			continue
		}
		lines = append(lines, ansi.Truncate(labelStyle.Render(fmt.Sprintf("%-8s", r[0]))+" "+r[1], inner, "…"))
	}
	lines = append(lines, labelStyle.Render("Type 'exit' or 'quit' to end the session."))

	return bannerStyle.Render(strings.Join(lines, "\n"))
}

// UserPrompt is printed before reading each line of input.
func UserPrompt() string {
	return userStyle.Render("💬 User:") + " "
}

// AgentLine renders one agent reply.
func AgentLine(agent, text string) string {
	return agentStyle.Render("🤖 "+agent+":") + " " + text
}

// ErrorLine renders a one-line failure note under a reply.
func ErrorLine(err error) string {
	return "   " + FailMark + " " + StepStyle.Render(err.Error())
}

// TerminalWidth reports the width of f when it is a terminal.
func TerminalWidth(f *os.File) int {
	if !term.IsTerminal(int(f.Fd())) {
		return DefaultWidth
	}
	w, _, err := term.GetSize(int(f.Fd()))
	if err != nil || w <= 0 {
		return DefaultWidth
	}
	return w
}

// IsTerminal reports whether r is an interactive terminal.
func IsTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// VisibleWidth is the printed width of s, ignoring escape sequences.
func VisibleWidth(s string) int {
	return ansi.StringWidth(s)
}
