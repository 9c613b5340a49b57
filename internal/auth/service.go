// Package auth implements the identity providers: a local one backed by the
// user store, and one backed by Firebase Authentication.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/Veraticus/rupeeflow/internal/common"
	"github.com/Veraticus/rupeeflow/internal/model"
	"github.com/Veraticus/rupeeflow/internal/service"
	"github.com/google/uuid"
)

// Options configures the local provider.
type Options struct {
	Google     GoogleIdentity
	Logger     *slog.Logger
	BaseURL    string
	JWTSecret  string
	SessionTTL time.Duration
}

// Service is the local identity provider: bcrypt passwords, JWT sessions and
// mailed single-use links.
type Service struct {
	users    service.UserStore
	mailer   service.Mailer
	google   GoogleIdentity
	jwt      *JWT
	watchers *watchers
	logger   *slog.Logger
	now      func() time.Time
	baseURL  string
}

// NewService creates the local provider.
func NewService(users service.UserStore, mailer service.Mailer, opts Options) *Service {
	return &Service{
		users:    users,
		mailer:   mailer,
		google:   opts.Google,
		jwt:      NewJWT(opts.JWTSecret, opts.SessionTTL),
		watchers: newWatchers(),
		logger:   common.LoggerOrDefault(opts.Logger),
		now:      time.Now,
		baseURL:  opts.BaseURL,
	}
}

// Register creates an unverified account and mails a verification link.
// It does not sign the user in.
func (s *Service) Register(ctx context.Context, email, password, displayName string) (*model.User, error) {
	email = model.NormalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		ID:           uuid.NewString(),
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: hash,
		Provider:     model.ProviderPassword,
		CreatedAt:    s.now(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	if err := s.sendVerification(ctx, user); err != nil {
		// The account exists; a later login reports it as unverified.
		common.LogError(ctx, s.logger, err, "failed to send verification mail", common.Fields{"user_id": user.ID})
	}
	return user, nil
}

func (s *Service) sendVerification(ctx context.Context, user *model.User) error {
	secret, err := s.issueToken(ctx, user.ID, model.TokenVerifyEmail, VerifyTokenTTL)
	if err != nil {
		return err
	}
	return s.mailer.SendVerification(ctx, user.Email, user.DisplayName, s.link("/verify", secret))
}

// ResendVerification mails a fresh verification link for an unverified
// account. Unknown or verified accounts are ignored.
func (s *Service) ResendVerification(ctx context.Context, email string) error {
	user, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, common.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if user.EmailVerified {
		return nil
	}
	return s.sendVerification(ctx, user)
}

// Login checks credentials. Unverified accounts get ErrEmailNotVerified.
func (s *Service) Login(ctx context.Context, email, password string) (*model.Session, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, common.ErrNotFound) {
		return nil, common.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if user.PasswordHash == "" {
		// Accounts created through Google have no password.
		return nil, common.ErrInvalidCredentials
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		return nil, err
	}
	if !user.EmailVerified {
		return nil, common.ErrEmailNotVerified
	}
	return s.startSession(user)
}

// VerifyEmail consumes a verification token and marks the account verified.
func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	user, err := s.consume(ctx, model.TokenVerifyEmail, token)
	if err != nil {
		return err
	}
	if user.EmailVerified {
		return nil
	}
	user.EmailVerified = true
	return s.users.UpdateUser(ctx, user)
}

// GoogleAuthURL returns the Google consent URL, or "" when Google sign-in is
// not configured.
func (s *Service) GoogleAuthURL(state string) string {
	if s.google == nil {
		return ""
	}
	return s.google.AuthURL(state)
}

// LoginWithGoogle signs in with a Google authorization code. Unknown emails
// get a verified account; existing password accounts are linked by email.
func (s *Service) LoginWithGoogle(ctx context.Context, code string) (*model.Session, error) {
	if s.google == nil {
		return nil, fmt.Errorf("%w: google sign-in is not configured", common.ErrMissingConfig)
	}
	profile, err := s.google.Profile(ctx, code)
	if err != nil {
		return nil, common.NewUserError("Google sign-in failed. Please try again.", err)
	}
	if profile.Email == "" || !profile.VerifiedEmail {
		return nil, common.NewUserError("Your Google account has no verified email.", common.ErrUnauthorized)
	}

	user, err := s.users.GetUserByEmail(ctx, profile.Email)
	switch {
	case errors.Is(err, common.ErrNotFound):
		user = &model.User{
			ID:            uuid.NewString(),
			Email:         model.NormalizeEmail(profile.Email),
			DisplayName:   profile.Name,
			Provider:      model.ProviderGoogle,
			EmailVerified: true,
			CreatedAt:     s.now(),
		}
		if err := s.users.CreateUser(ctx, user); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	case !user.EmailVerified:
		// Google vouches for the address.
		user.EmailVerified = true
		if err := s.users.UpdateUser(ctx, user); err != nil {
			return nil, err
		}
	}
	return s.startSession(user)
}

// SendPasswordReset mails a reset link. Unknown emails are not reported so
// the endpoint cannot be used to enumerate accounts.
func (s *Service) SendPasswordReset(ctx context.Context, email string) error {
	user, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, common.ErrNotFound) {
		s.logger.DebugContext(ctx, "password reset for unknown email")
		return nil
	}
	if err != nil {
		return err
	}

	secret, err := s.issueToken(ctx, user.ID, model.TokenResetPassword, ResetTokenTTL)
	if err != nil {
		return err
	}
	return s.mailer.SendPasswordReset(ctx, user.Email, s.link("/reset-password", secret))
}

// ResetPassword consumes a reset token and sets a new password. A completed
// reset also proves ownership of the email.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}
	user, err := s.consume(ctx, model.TokenResetPassword, token)
	if err != nil {
		return err
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.PasswordHash = hash
	user.EmailVerified = true
	return s.users.UpdateUser(ctx, user)
}

// Logout revokes the session token and signals watchers.
func (s *Service) Logout(ctx context.Context, token string) error {
	claims, err := s.jwt.Validate(token)
	if err != nil {
		// Already unusable.
		return nil
	}
	if err := s.users.RevokeSession(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return err
	}
	s.watchers.notify(nil)
	return nil
}

// Authenticate resolves a session token to its user.
func (s *Service) Authenticate(ctx context.Context, token string) (*model.User, error) {
	claims, err := s.jwt.Validate(token)
	if err != nil {
		return nil, err
	}
	revoked, err := s.users.IsSessionRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, fmt.Errorf("%w: signed out", common.ErrUnauthorized)
	}

	user, err := s.users.GetUserByID(ctx, claims.Subject)
	if errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("%w: unknown account", common.ErrUnauthorized)
	}
	return user, err
}

// Watch subscribes fn to sign-in and sign-out events in this process.
func (s *Service) Watch(fn func(*model.User)) service.CancelFunc {
	return s.watchers.add(fn)
}

func (s *Service) startSession(user *model.User) (*model.Session, error) {
	token, claims, err := s.jwt.Generate(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	s.watchers.notify(user)
	return &model.Session{Token: token, User: user, ExpiresAt: claims.ExpiresAt.Time}, nil
}

func (s *Service) issueToken(ctx context.Context, userID string, kind model.TokenKind, ttl time.Duration) (string, error) {
	secret, err := newSecret()
	if err != nil {
		return "", err
	}
	token := model.AuthToken{
		Hash:      hashSecret(secret),
		UserID:    userID,
		Kind:      kind,
		ExpiresAt: s.now().Add(ttl),
	}
	if err := s.users.SaveToken(ctx, token); err != nil {
		return "", err
	}
	return secret, nil
}

func (s *Service) consume(ctx context.Context, kind model.TokenKind, secret string) (*model.User, error) {
	if secret == "" {
		return nil, common.ErrInvalidToken
	}
	token, err := s.users.ConsumeToken(ctx, kind, hashSecret(secret))
	if errors.Is(err, common.ErrNotFound) {
		return nil, common.ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByID(ctx, token.UserID)
	if errors.Is(err, common.ErrNotFound) {
		return nil, common.ErrInvalidToken
	}
	return user, err
}

func (s *Service) link(path, secret string) string {
	return s.baseURL + path + "?token=" + url.QueryEscape(secret)
}

var _ service.IdentityProvider = (*Service)(nil)
