// Package gitconfig reads and writes the git user identity by running
// `git config` at global or repository scope.
package gitconfig

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/ksteinfeldt/gitswitch/internal/identity"
)

// ErrGit indicates a git invocation failed.
var ErrGit = errors.New("git command failed")

// Exit codes documented in git-config(1).
const (
	exitNoMatch    = 1
	exitKeyMissing = 5
)

// Error reports a failed git invocation with git's own message.
type Error struct {
	Args     []string
	ExitCode int
	Stderr   string
}

func (e *Error) Error() string {
	msg := e.Stderr
	if msg == "" {
		msg = fmt.Sprintf("exit status %d", e.ExitCode)
	}
	return fmt.Sprintf("git %s: %s", strings.Join(e.Args, " "), msg)
}

// Unwrap lets errors.Is match ErrGit.
func (e *Error) Unwrap() error {
	return ErrGit
}

// Runner runs git with args in dir and returns its stdout.
type Runner func(ctx context.Context, dir string, args ...string) (string, error)

// Applier implements identity.Applier on top of the git CLI.
type Applier struct {
	run Runner
}

// New creates an Applier that runs the given git binary.
func New(binary string) *Applier {
	if binary == "" {
		binary = "git"
	}
	return &Applier{run: execRunner(binary)}
}

// NewWithRunner creates an Applier with a custom runner.
func NewWithRunner(run Runner) *Applier {
	return &Applier{run: run}
}

func execRunner(binary string) Runner {
	return func(ctx context.Context, dir string, args ...string) (string, error) {
		cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec // G204: binary from user config
		if dir != "" {
			cmd.Dir = dir
		}
		var stdout, stderr bytes.Buffer
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr

		if err := cmd.Run(); err != nil {
			gitErr := &Error{Args: args, ExitCode: -1, Stderr: strings.TrimSpace(stderr.String())}
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				gitErr.ExitCode = exitErr.ExitCode()
			} else if gitErr.Stderr == "" {
				gitErr.Stderr = err.Error()
			}
			return stdout.String(), gitErr
		}
		return stdout.String(), nil
	}
}

// scopeArgs returns the scope flag and working directory for a call.
func scopeArgs(scope identity.Scope, repoPath string) (string, string, error) {
	switch scope {
	case identity.ScopeGlobal:
		return "--global", "", nil
	case identity.ScopeLocal:
		if repoPath == "" {
			return "", "", fmt.Errorf("local scope needs a repository path")
		}
		return "--local", repoPath, nil
	}
	return "", "", fmt.Errorf("unknown scope %q", scope)
}

// Write sets user.name and user.email at scope.
func (a *Applier) Write(ctx context.Context, userName, userEmail string, scope identity.Scope, repoPath string) (string, error) {
	flag, dir, err := scopeArgs(scope, repoPath)
	if err != nil {
		return "", err
	}

	if _, err := a.run(ctx, dir, "config", flag, "user.name", userName); err != nil {
		return "", err
	}
	if _, err := a.run(ctx, dir, "config", flag, "user.email", userEmail); err != nil {
		return "", err
	}

	where := string(scope)
	if scope == identity.ScopeLocal {
		where = repoPath
	}
	return fmt.Sprintf("Git configured with %s <%s> (%s)", userName, userEmail, where), nil
}

// Read returns the user.* entries at scope, one "key value" pair per line.
// It returns an empty string when none are set.
func (a *Applier) Read(ctx context.Context, scope identity.Scope, repoPath string) (string, error) {
	flag, dir, err := scopeArgs(scope, repoPath)
	if err != nil {
		return "", err
	}

	out, err := a.run(ctx, dir, "config", flag, "--get-regexp", `^user\.`)
	if err != nil {
		if exitCode(err) == exitNoMatch {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Reset unsets user.name and user.email at scope. Keys that are already
// unset are not an error.
func (a *Applier) Reset(ctx context.Context, scope identity.Scope, repoPath string) (string, error) {
	flag, dir, err := scopeArgs(scope, repoPath)
	if err != nil {
		return "", err
	}

	for _, key := range []string{"user.name", "user.email"} {
		if _, err := a.run(ctx, dir, "config", flag, "--unset", key); err != nil && exitCode(err) != exitKeyMissing {
			return "", err
		}
	}

	where := string(scope)
	if scope == identity.ScopeLocal {
		where = repoPath
	}
	return fmt.Sprintf("Removed user.name and user.email (%s)", where), nil
}

// Effective returns the user.name and user.email git would use in dir,
// after all scopes are merged. Missing values come back empty.
func (a *Applier) Effective(ctx context.Context, dir string) (name, email string) {
	if out, err := a.run(ctx, dir, "config", "user.name"); err == nil {
		name = strings.TrimSpace(out)
	}
	if out, err := a.run(ctx, dir, "config", "user.email"); err == nil {
		email = strings.TrimSpace(out)
	}
	return name, email
}

// IsRepository reports whether dir is inside a git work tree.
func (a *Applier) IsRepository(ctx context.Context, dir string) bool {
	out, err := a.run(ctx, dir, "rev-parse", "--is-inside-work-tree")
	return err == nil && strings.TrimSpace(out) == "true"
}

func exitCode(err error) int {
	var gitErr *Error
	if errors.As(err, &gitErr) {
		return gitErr.ExitCode
	}
	return -1
}
