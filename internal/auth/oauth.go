package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

// Identity is an externally-authenticated principal, resolved independently
// of the local password store. Email is the join key to local user rows;
// an identity without an email cannot be resolved to a user.
type Identity struct {
	Email string
	Name  string
}

// IdentityProvider extracts an external identity from an inbound request,
// if one is present. (nil, nil) means "no external identity on this
// request"; that is not an error, the resolver just falls back to the
// session cookie.
type IdentityProvider interface {
	Identify(ctx context.Context, r *http.Request) (*Identity, error)
}

// githubUser is the portion of the GitHub /user API response we care about.
type githubUser struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
	Name  string `json:"name"`
	Email string `json:"email"` // primary public email, empty if hidden
}

// GitHubProvider wraps golang.org/x/oauth2 for the GitHub authorization
// code flow, and doubles as an IdentityProvider for requests that carry a
// GitHub access token directly in the Authorization header.
type GitHubProvider struct {
	config *oauth2.Config
}

var _ IdentityProvider = (*GitHubProvider)(nil)

// NewGitHubProvider creates a GitHubProvider with the given OAuth app
// credentials. callbackURL must exactly match the authorization callback
// URL registered with GitHub.
func NewGitHubProvider(clientID, clientSecret, callbackURL string) *GitHubProvider {
	return &GitHubProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     github.Endpoint,
		},
	}
}

// AuthURL returns the GitHub authorization URL for the given CSRF state.
// The caller stores the state in a short-lived cookie and verifies it on
// callback.
func (p *GitHubProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange completes the OAuth flow: trades the authorization code for an
// access token, then fetches the user's profile from the GitHub API.
func (p *GitHubProvider) Exchange(ctx context.Context, code string) (*Identity, error) {
	oauthToken, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging OAuth code: %w", err)
	}

	// oauth2.Config.Client returns an *http.Client that adds the
	// Authorization header to every request.
	client := p.config.Client(ctx, oauthToken)
	return fetchGitHubIdentity(ctx, client)
}

// Identify implements IdentityProvider. A request that presents a GitHub
// access token as "Authorization: Bearer <token>" is resolved against the
// GitHub /user API; anything else yields (nil, nil).
func (p *GitHubProvider) Identify(ctx context.Context, r *http.Request) (*Identity, error) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return nil, nil
	}

	client := p.config.Client(ctx, &oauth2.Token{AccessToken: token})
	ident, err := fetchGitHubIdentity(ctx, client)
	if err != nil {
		return nil, fmt.Errorf("auth: identifying bearer token: %w", err)
	}
	return ident, nil
}

func fetchGitHubIdentity(ctx context.Context, client *http.Client) (*Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://api.github.com/user", nil)
	if err != nil {
		return nil, fmt.Errorf("auth: building GitHub /user request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth: calling GitHub /user API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth: GitHub /user API returned status %d", resp.StatusCode)
	}

	var gh githubUser
	if err := json.NewDecoder(resp.Body).Decode(&gh); err != nil {
		return nil, fmt.Errorf("auth: decoding GitHub /user response: %w", err)
	}
	if gh.ID == 0 {
		return nil, fmt.Errorf("auth: GitHub returned an invalid user (ID = 0)")
	}

	name := gh.Name
	if name == "" {
		name = gh.Login
	}
	return &Identity{Email: gh.Email, Name: name}, nil
}
