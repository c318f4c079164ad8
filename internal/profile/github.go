// Package profile resolves public GitHub profiles for new identities.
package profile

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v38/github"
	"github.com/ksteinfeldt/gitswitch/internal/identity"
	"golang.org/x/oauth2"
)

const (
	defaultBaseURL = "https://api.github.com/"
	defaultTimeout = 10 * time.Second
)

// ErrUserNotFound indicates GitHub has no account with that username.
var ErrUserNotFound = errors.New("github user not found")

// GitHub looks up users through the GitHub REST API.
type GitHub struct {
	baseURL    string
	token      string
	timeout    time.Duration
	httpClient *http.Client
}

// Option configures the GitHub resolver.
type Option func(*GitHub)

// WithBaseURL points the resolver at a GitHub Enterprise or test server.
func WithBaseURL(u string) Option {
	return func(g *GitHub) {
		g.baseURL = u
	}
}

// WithToken authenticates requests, raising the API rate limit.
func WithToken(token string) Option {
	return func(g *GitHub) {
		g.token = token
	}
}

// WithTimeout bounds each lookup.
func WithTimeout(d time.Duration) Option {
	return func(g *GitHub) {
		g.timeout = d
	}
}

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(g *GitHub) {
		g.httpClient = c
	}
}

// NewGitHub creates a resolver.
func NewGitHub(opts ...Option) *GitHub {
	g := &GitHub{
		baseURL: defaultBaseURL,
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// client builds a go-github client for one lookup.
func (g *GitHub) client(ctx context.Context) (*github.Client, error) {
	httpClient := g.httpClient
	if g.token != "" {
		base := httpClient
		if base == nil {
			base = &http.Client{}
		}
		ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
		httpClient = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: g.token}))
	}

	c := github.NewClient(httpClient)
	base := g.baseURL
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parsing github url %q: %w", g.baseURL, err)
	}
	c.BaseURL = u
	return c, nil
}

// Lookup returns the avatar for username. It fails with ErrUserNotFound
// when the account does not exist.
func (g *GitHub) Lookup(ctx context.Context, username string) (identity.Profile, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	c, err := g.client(ctx)
	if err != nil {
		return identity.Profile{}, err
	}

	user, _, err := c.Users.Get(ctx, username)
	if err != nil {
		var errResp *github.ErrorResponse
		if errors.As(err, &errResp) && errResp.Response != nil && errResp.Response.StatusCode == http.StatusNotFound {
			return identity.Profile{}, fmt.Errorf("%w: %s", ErrUserNotFound, username)
		}
		return identity.Profile{}, fmt.Errorf("looking up %s on github: %w", username, err)
	}

	return identity.Profile{
		Username:  user.GetLogin(),
		AvatarURL: user.GetAvatarURL(),
	}, nil
}
