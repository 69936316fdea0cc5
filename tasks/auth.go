package tasks

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	tasksapi "google.golang.org/api/tasks/v1"
)

// ErrCredentialsNotFound is returned when the OAuth client secrets file is missing.
var ErrCredentialsNotFound = errors.New("oauth credentials file not found")

// AuthOptions locates the OAuth files and the terminal used for the
// one-time authorization.
type AuthOptions struct {
	CredentialsFile string
	TokenFile       string
	In              io.Reader
	Out             io.Writer
}

// NewService returns an authenticated Tasks service.
func NewService(ctx context.Context, auth AuthOptions) (*tasksapi.Service, error) {
	client, err := NewHTTPClient(ctx, auth)
	if err != nil {
		return nil, err
	}

	svc, err := tasksapi.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("tasks: create service: %w", err)
	}

	return svc, nil
}

// NewHTTPClient builds an OAuth client for the Tasks scope. A cached token is
// reused (and refreshed tokens are written back); otherwise the user is asked
// to authorize in a browser and paste the code.
func NewHTTPClient(ctx context.Context, auth AuthOptions) (*http.Client, error) {
	secrets, err := os.ReadFile(auth.CredentialsFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: '%s'. Please download it from Google Cloud Console and place it in the current directory", ErrCredentialsNotFound, auth.CredentialsFile)
		}
		return nil, err
	}

	cfg, err := google.ConfigFromJSON(secrets, tasksapi.TasksScope)
	if err != nil {
		return nil, fmt.Errorf("tasks: parse credentials: %w", err)
	}

	tok, err := LoadToken(auth.TokenFile)
	if err != nil {
		tok, err = ConsoleAuth(ctx, cfg, auth.In, auth.Out)
		if err != nil {
			return nil, err
		}

		if err := SaveToken(auth.TokenFile, tok); err != nil {
			return nil, err
		}
	}

	ts := &persistingTokenSource{
		base: cfg.TokenSource(ctx, tok),
		path: auth.TokenFile,
		last: tok.AccessToken,
	}

	return oauth2.NewClient(ctx, oauth2.ReuseTokenSource(tok, ts)), nil
}

// ConsoleAuth prints the consent URL and exchanges the code the user pastes
// back. Either the bare code or the full redirect URL is accepted.
func ConsoleAuth(ctx context.Context, cfg *oauth2.Config, in io.Reader, out io.Writer) (*oauth2.Token, error) {
	if in == nil || out == nil {
		return nil, errors.New("tasks: no terminal for authorization")
	}

	authURL := cfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Fprintf(out, "Go to the following link in your browser, authorize access, then paste the code (or the full redirect URL):\n%s\n> ", authURL)

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("tasks: read authorization code: %w", err)
	}

	code := authCode(line)
	if code == "" {
		return nil, errors.New("tasks: empty authorization code")
	}

	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("tasks: exchange authorization code: %w", err)
	}

	return tok, nil
}

func authCode(input string) string {
	input = strings.TrimSpace(input)
	if u, err := url.Parse(input); err == nil && u.Scheme != "" {
		return u.Query().Get("code")
	}
	return input
}

// LoadToken reads a cached token.
func LoadToken(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("tasks: decode token %s: %w", path, err)
	}

	return tok, nil
}

// SaveToken writes a token with user-only permissions.
func SaveToken(path string, tok *oauth2.Token) error {
	data, err := json.Marshal(tok)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("tasks: save token %s: %w", path, err)
	}

	return nil
}

// persistingTokenSource writes refreshed tokens back to the cache file.
type persistingTokenSource struct {
	base oauth2.TokenSource
	path string

	mu   sync.Mutex
	last string
}

func (p *persistingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := p.base.Token()
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if tok.AccessToken != p.last {
		p.last = tok.AccessToken
		// best effort
		_ = SaveToken(p.path, tok)
	}

	return tok, nil
}
