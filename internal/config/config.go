// Package config loads the gitswitch configuration file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Environment variables that override the file.
const (
	EnvConfigPath = "GITSWITCH_CONFIG"
	EnvDataDir    = "GITSWITCH_DATA_DIR"
	EnvGitHubURL  = "GITSWITCH_GITHUB_URL"
)

// Config holds all configuration for gitswitch.
type Config struct {
	// DataDir holds the identity and binding documents.
	DataDir string

	GitHub GitHubConfig
	Git    GitConfig

	// Path is the file the config was read from, empty if none existed.
	Path string
}

// GitHubConfig configures the profile lookup.
type GitHubConfig struct {
	APIURL   string
	TokenEnv string
	Timeout  time.Duration
}

// Token returns the GitHub token from the configured environment variable.
func (g GitHubConfig) Token() string {
	if g.TokenEnv == "" {
		return ""
	}
	return os.Getenv(g.TokenEnv)
}

// GitConfig configures the git CLI.
type GitConfig struct {
	Binary string
}

// fileConfig is the TOML file layout.
type fileConfig struct {
	DataDir string           `toml:"data_dir"`
	GitHub  fileGitHubConfig `toml:"github"`
	Git     fileGitConfig    `toml:"git"`
}

type fileGitHubConfig struct {
	APIURL   string `toml:"api_url"`
	TokenEnv string `toml:"token_env"`
	Timeout  string `toml:"timeout"`
}

type fileGitConfig struct {
	Binary string `toml:"binary"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DataDir: defaultDataDir(),
		GitHub: GitHubConfig{
			APIURL:   "https://api.github.com/",
			TokenEnv: "GITHUB_TOKEN",
			Timeout:  10 * time.Second,
		},
		Git: GitConfig{
			Binary: "git",
		},
	}
}

// DefaultPath returns $GITSWITCH_CONFIG, or config.toml in the user config dir.
func DefaultPath() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	return filepath.Join(userDir("XDG_CONFIG_HOME", ".config"), "gitswitch", "config.toml")
}

func defaultDataDir() string {
	return filepath.Join(userDir("XDG_DATA_HOME", filepath.Join(".local", "share")), "gitswitch")
}

// userDir returns $env, or fallback under the home directory.
func userDir(env, fallback string) string {
	if dir := os.Getenv(env); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return fallback
	}
	return filepath.Join(home, fallback)
}

// Load reads path on top of the defaults, then applies environment
// overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		var fc fileConfig
		_, err := toml.DecodeFile(path, &fc)
		switch {
		case err == nil:
			cfg.Path = path
			if err := fc.apply(cfg); err != nil {
				return nil, fmt.Errorf("config %s: %w", path, err)
			}
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if v := os.Getenv(EnvDataDir); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv(EnvGitHubURL); v != "" {
		cfg.GitHub.APIURL = v
	}

	cfg.DataDir = expandHome(cfg.DataDir)
	return cfg, nil
}

func (fc fileConfig) apply(cfg *Config) error {
	if fc.DataDir != "" {
		cfg.DataDir = fc.DataDir
	}
	if fc.GitHub.APIURL != "" {
		cfg.GitHub.APIURL = fc.GitHub.APIURL
	}
	if fc.GitHub.TokenEnv != "" {
		cfg.GitHub.TokenEnv = fc.GitHub.TokenEnv
	}
	if fc.GitHub.Timeout != "" {
		d, err := time.ParseDuration(fc.GitHub.Timeout)
		if err != nil {
			return fmt.Errorf("github.timeout: %w", err)
		}
		cfg.GitHub.Timeout = d
	}
	if fc.Git.Binary != "" {
		cfg.Git.Binary = fc.Git.Binary
	}
	return nil
}

// Encode writes cfg in the file layout.
func Encode(cfg *Config) (string, error) {
	fc := fileConfig{
		DataDir: cfg.DataDir,
		GitHub: fileGitHubConfig{
			APIURL:   cfg.GitHub.APIURL,
			TokenEnv: cfg.GitHub.TokenEnv,
			Timeout:  cfg.GitHub.Timeout.String(),
		},
		Git: fileGitConfig{Binary: cfg.Git.Binary},
	}

	var b strings.Builder
	if err := toml.NewEncoder(&b).Encode(fc); err != nil {
		return "", err
	}
	return b.String(), nil
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, p[1:])
		}
	}
	return p
}
