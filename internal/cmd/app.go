package cmd

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ksteinfeldt/gitswitch/internal/config"
	"github.com/ksteinfeldt/gitswitch/internal/gitconfig"
	"github.com/ksteinfeldt/gitswitch/internal/identity"
	"github.com/ksteinfeldt/gitswitch/internal/profile"
	"github.com/ksteinfeldt/gitswitch/internal/store"
	"github.com/ksteinfeldt/gitswitch/internal/style"
)

// app holds the collaborators one command invocation works with.
type app struct {
	cfg   *config.Config
	store *store.File
	git   *gitconfig.Applier
	reg   *identity.Registry
}

// loadConfig reads the config file and applies the command-line overrides.
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	return cfg, nil
}

// newApp wires the store, resolver and git applier into an initialized
// registry.
func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	st := store.New(cfg.DataDir)
	git := gitconfig.New(cfg.Git.Binary)
	gh := profile.NewGitHub(
		profile.WithBaseURL(cfg.GitHub.APIURL),
		profile.WithToken(cfg.GitHub.Token()),
		profile.WithTimeout(cfg.GitHub.Timeout),
	)

	reg := identity.NewRegistry(st, gh, git)
	if err := reg.Init(); err != nil {
		return nil, err
	}
	return &app{cfg: cfg, store: st, git: git, reg: reg}, nil
}

// finish retries a failed binding save once before err is reported.
func (a *app) finish(w io.Writer, err error) error {
	if err == nil || !errors.Is(err, identity.ErrPersistence) || !a.reg.Dirty() {
		return err
	}
	if ferr := a.reg.Flush(); ferr == nil {
		fmt.Fprintf(w, "%s Saved on retry; run the command again to apply the git configuration\n", style.WarningPrefix)
	}
	return err
}

// parseID parses an identity id argument.
func parseID(arg string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid identity id %q", arg)
	}
	return id, nil
}
