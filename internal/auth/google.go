package auth

import (
	"context"
	"fmt"

	"github.com/Veraticus/rupeeflow/internal/config"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

// GoogleProfile is the part of a Google account RupeeFlow uses.
type GoogleProfile struct {
	ID            string
	Email         string
	Name          string
	VerifiedEmail bool
}

// GoogleIdentity runs the Google sign-in code flow.
type GoogleIdentity interface {
	AuthURL(state string) string
	Profile(ctx context.Context, code string) (*GoogleProfile, error)
}

// GoogleSignIn exchanges authorization codes and reads the userinfo profile.
type GoogleSignIn struct {
	oauth *oauth2.Config
	// apiEndpoint overrides the userinfo service base URL in tests.
	apiEndpoint string
}

// NewGoogleSignIn creates a code-flow client for cfg.
func NewGoogleSignIn(cfg config.GoogleOAuthConfig) *GoogleSignIn {
	return &GoogleSignIn{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"openid", oauth2api.UserinfoEmailScope, oauth2api.UserinfoProfileScope},
			Endpoint:     google.Endpoint,
		},
	}
}

// AuthURL returns the consent page URL carrying state.
func (g *GoogleSignIn) AuthURL(state string) string {
	return g.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Profile exchanges code for a token and fetches the account profile.
func (g *GoogleSignIn) Profile(ctx context.Context, code string) (*GoogleProfile, error) {
	token, err := g.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}

	opts := []option.ClientOption{option.WithTokenSource(g.oauth.TokenSource(ctx, token))}
	if g.apiEndpoint != "" {
		opts = append(opts, option.WithEndpoint(g.apiEndpoint))
	}
	svc, err := oauth2api.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create userinfo client: %w", err)
	}

	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get user info: %w", err)
	}

	profile := &GoogleProfile{ID: info.Id, Email: info.Email, Name: info.Name}
	if info.VerifiedEmail != nil {
		profile.VerifiedEmail = *info.VerifiedEmail
	}
	return profile, nil
}
