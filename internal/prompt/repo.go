package prompt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/ksteinfeldt/gitswitch/internal/style"
)

// ErrNotRepository indicates the selected path is not a git work tree.
var ErrNotRepository = errors.New("not a git repository")

// RepoSelector picks a repository path from a flag value or, when the flag
// is empty and the terminal is interactive, by asking. It implements
// identity.PathProvider.
type RepoSelector struct {
	// Flag is the path given on the command line, if any.
	Flag string

	// Default pre-fills the interactive prompt.
	Default string

	Interactive bool
	In          io.Reader
	Out         io.Writer

	// IsRepo rejects paths that are not repositories when set.
	IsRepo func(ctx context.Context, dir string) bool
}

// NewRepoSelector creates a selector on the process's stdin and stdout
// that defaults to the working directory.
func NewRepoSelector(flag string, isRepo func(ctx context.Context, dir string) bool) *RepoSelector {
	cwd, _ := os.Getwd()
	return &RepoSelector{
		Flag:        flag,
		Default:     cwd,
		Interactive: IsInteractive(os.Stdin),
		In:          os.Stdin,
		Out:         os.Stdout,
		IsRepo:      isRepo,
	}
}

// Select returns the chosen path. ok is false when nothing was chosen.
func (s *RepoSelector) Select(ctx context.Context) (string, bool, error) {
	path := strings.TrimSpace(s.Flag)
	if path == "" {
		if !s.Interactive {
			return "", false, nil
		}
		asked, ok, err := s.ask(ctx)
		if err != nil || !ok {
			return "", false, err
		}
		path = asked
	}

	path, err := normalize(path)
	if err != nil {
		return "", false, err
	}
	if s.IsRepo != nil && !s.IsRepo(ctx, path) {
		return "", false, fmt.Errorf("%s: %w", path, ErrNotRepository)
	}
	return path, true, nil
}

func (s *RepoSelector) ask(ctx context.Context) (string, bool, error) {
	p := tea.NewProgram(newPathModel("Repository path: ", s.Default),
		tea.WithContext(ctx),
		tea.WithInput(s.In),
		tea.WithOutput(s.Out),
	)
	final, err := p.Run()
	if err != nil {
		return "", false, fmt.Errorf("running prompt: %w", err)
	}
	m := final.(pathModel)
	if m.cancelled || m.value == "" {
		return "", false, nil
	}
	return m.value, true, nil
}

// normalize expands a leading ~ and makes path absolute.
func normalize(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("expanding %s: %w", path, err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", path, err)
	}
	return abs, nil
}

// pathModel is a one-line text prompt. Enter on an empty line accepts the
// placeholder; esc cancels.
type pathModel struct {
	input     textinput.Model
	value     string
	cancelled bool
	done      bool
}

func newPathModel(label, initial string) pathModel {
	ti := textinput.New()
	ti.Prompt = label
	ti.Placeholder = initial
	ti.CharLimit = 4096
	ti.Focus()
	return pathModel{input: ti}
}

func (m pathModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m pathModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyEnter:
			m.value = strings.TrimSpace(m.input.Value())
			if m.value == "" {
				m.value = m.input.Placeholder
			}
			m.done = true
			return m, tea.Quit
		case tea.KeyEsc, tea.KeyCtrlC:
			m.cancelled = true
			m.done = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m pathModel) View() string {
	if m.done {
		return ""
	}
	return m.input.View() + "\n" + style.Dim.Render("enter to confirm, esc to cancel") + "\n"
}
