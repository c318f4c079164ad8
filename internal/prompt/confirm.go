// Package prompt asks the user for confirmations and repository paths in the
// terminal.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ksteinfeldt/gitswitch/internal/style"
	"golang.org/x/term"
)

// ErrNotInteractive indicates an answer was needed but stdin is not a terminal.
var ErrNotInteractive = errors.New("confirmation needed but input is not a terminal (use --yes)")

// IsInteractive reports whether f is a terminal.
func IsInteractive(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// Confirmer asks yes/no questions. With AssumeYes set it answers yes
// without asking.
type Confirmer struct {
	AssumeYes   bool
	Interactive bool
	In          io.Reader
	Out         io.Writer
}

// NewConfirmer creates a Confirmer on the process's stdin and stdout.
func NewConfirmer(assumeYes bool) *Confirmer {
	return &Confirmer{
		AssumeYes:   assumeYes,
		Interactive: IsInteractive(os.Stdin),
		In:          os.Stdin,
		Out:         os.Stdout,
	}
}

// Confirm asks question and reports whether the user answered yes.
func (c *Confirmer) Confirm(ctx context.Context, question string) (bool, error) {
	if c.AssumeYes {
		return true, nil
	}
	if !c.Interactive {
		return false, ErrNotInteractive
	}

	p := tea.NewProgram(confirmModel{question: question},
		tea.WithContext(ctx),
		tea.WithInput(c.In),
		tea.WithOutput(c.Out),
	)
	final, err := p.Run()
	if err != nil {
		return false, fmt.Errorf("running prompt: %w", err)
	}
	return final.(confirmModel).answer, nil
}

// confirmModel is a single-keystroke y/N prompt. Anything but y declines.
type confirmModel struct {
	question string
	answer   bool
	done     bool
}

func (m confirmModel) Init() tea.Cmd {
	return nil
}

func (m confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch strings.ToLower(key.String()) {
	case "y":
		m.answer = true
		m.done = true
		return m, tea.Quit
	case "n", "enter", "esc", "q", "ctrl+c":
		m.answer = false
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

func (m confirmModel) View() string {
	if m.done {
		answer := "no"
		if m.answer {
			answer = "yes"
		}
		return fmt.Sprintf("%s %s\n", m.question, style.Dim.Render(answer))
	}
	return fmt.Sprintf("%s %s ", m.question, style.Dim.Render("[y/N]"))
}
