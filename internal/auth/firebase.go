package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"github.com/Veraticus/rupeeflow/internal/common"
	"github.com/Veraticus/rupeeflow/internal/model"
	"github.com/Veraticus/rupeeflow/internal/service"
)

// DefaultIdentityToolkitURL is the Firebase Auth REST endpoint.
const DefaultIdentityToolkitURL = "https://identitytoolkit.googleapis.com/v1"

// firebaseAdmin is the part of the Admin SDK auth client the provider uses.
type firebaseAdmin interface {
	CreateUser(ctx context.Context, user *fbauth.UserToCreate) (*fbauth.UserRecord, error)
	GetUser(ctx context.Context, uid string) (*fbauth.UserRecord, error)
	GetUserByEmail(ctx context.Context, email string) (*fbauth.UserRecord, error)
	EmailVerificationLink(ctx context.Context, email string) (string, error)
	PasswordResetLink(ctx context.Context, email string) (string, error)
	VerifyIDTokenAndCheckRevoked(ctx context.Context, idToken string) (*fbauth.Token, error)
	RevokeRefreshTokens(ctx context.Context, uid string) error
	CustomToken(ctx context.Context, uid string) (string, error)
}

// FirebaseOptions configures the Firebase provider.
type FirebaseOptions struct {
	Google     GoogleIdentity
	HTTPClient *http.Client
	Logger     *slog.Logger
	APIKey     string
	// BaseURL overrides DefaultIdentityToolkitURL.
	BaseURL string
}

// FirebaseProvider authenticates against Firebase Authentication. Accounts
// and sessions live in Firebase; sessions are Firebase ID tokens.
type FirebaseProvider struct {
	admin    firebaseAdmin
	mailer   service.Mailer
	google   GoogleIdentity
	http     *http.Client
	watchers *watchers
	logger   *slog.Logger
	apiKey   string
	baseURL  string
}

// NewFirebaseProvider creates a provider from an initialized Firebase app.
func NewFirebaseProvider(ctx context.Context, app *firebase.App, mailer service.Mailer, opts FirebaseOptions) (*FirebaseProvider, error) {
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create firebase auth client: %w", err)
	}
	return newFirebaseProvider(client, mailer, opts), nil
}

func newFirebaseProvider(admin firebaseAdmin, mailer service.Mailer, opts FirebaseOptions) *FirebaseProvider {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultIdentityToolkitURL
	}
	return &FirebaseProvider{
		admin:    admin,
		mailer:   mailer,
		google:   opts.Google,
		http:     httpClient,
		watchers: newWatchers(),
		logger:   common.LoggerOrDefault(opts.Logger),
		apiKey:   opts.APIKey,
		baseURL:  strings.TrimRight(baseURL, "/"),
	}
}

// Register creates an unverified Firebase account and mails its
// verification link.
func (p *FirebaseProvider) Register(ctx context.Context, email, password, displayName string) (*model.User, error) {
	email = model.NormalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}

	params := (&fbauth.UserToCreate{}).Email(email).Password(password).EmailVerified(false)
	if displayName != "" {
		params = params.DisplayName(displayName)
	}
	record, err := p.admin.CreateUser(ctx, params)
	if err != nil {
		if fbauth.IsEmailAlreadyExists(err) {
			return nil, common.ErrDuplicateEntry
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	user := userFromRecord(record)
	link, err := p.admin.EmailVerificationLink(ctx, email)
	if err == nil {
		err = p.mailer.SendVerification(ctx, email, displayName, link)
	}
	if err != nil {
		common.LogError(ctx, p.logger, err, "failed to send verification mail", common.Fields{"user_id": user.ID})
	}
	return user, nil
}

type signInResponse struct {
	IDToken   string `json:"idToken"`
	LocalID   string `json:"localId"`
	ExpiresIn string `json:"expiresIn"`
}

// Login signs in with the password REST endpoint.
func (p *FirebaseProvider) Login(ctx context.Context, email, password string) (*model.Session, error) {
	var resp signInResponse
	err := p.call(ctx, "accounts:signInWithPassword", map[string]any{
		"email":             model.NormalizeEmail(email),
		"password":          password,
		"returnSecureToken": true,
	}, &resp)
	if err != nil {
		return nil, err
	}

	record, err := p.admin.GetUser(ctx, resp.LocalID)
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	if !record.EmailVerified {
		return nil, common.ErrEmailNotVerified
	}
	return p.startSession(record, resp)
}

// VerifyEmail applies the out-of-band code from a verification link.
func (p *FirebaseProvider) VerifyEmail(ctx context.Context, token string) error {
	if token == "" {
		return common.ErrInvalidToken
	}
	return p.call(ctx, "accounts:update", map[string]any{"oobCode": token}, nil)
}

// GoogleAuthURL returns the Google consent URL, or "" when not configured.
func (p *FirebaseProvider) GoogleAuthURL(state string) string {
	if p.google == nil {
		return ""
	}
	return p.google.AuthURL(state)
}

// LoginWithGoogle signs in with a Google authorization code. The matching
// Firebase account is created when missing and the session is minted through
// a custom token.
func (p *FirebaseProvider) LoginWithGoogle(ctx context.Context, code string) (*model.Session, error) {
	if p.google == nil {
		return nil, fmt.Errorf("%w: google sign-in is not configured", common.ErrMissingConfig)
	}
	profile, err := p.google.Profile(ctx, code)
	if err != nil {
		return nil, common.NewUserError("Google sign-in failed. Please try again.", err)
	}
	if profile.Email == "" || !profile.VerifiedEmail {
		return nil, common.NewUserError("Your Google account has no verified email.", common.ErrUnauthorized)
	}

	email := model.NormalizeEmail(profile.Email)
	record, err := p.admin.GetUserByEmail(ctx, email)
	if fbauth.IsUserNotFound(err) {
		params := (&fbauth.UserToCreate{}).Email(email).EmailVerified(true)
		if profile.Name != "" {
			params = params.DisplayName(profile.Name)
		}
		record, err = p.admin.CreateUser(ctx, params)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve account: %w", err)
	}

	custom, err := p.admin.CustomToken(ctx, record.UID)
	if err != nil {
		return nil, fmt.Errorf("failed to mint token: %w", err)
	}
	var resp signInResponse
	if err := p.call(ctx, "accounts:signInWithCustomToken", map[string]any{
		"token":             custom,
		"returnSecureToken": true,
	}, &resp); err != nil {
		return nil, err
	}
	return p.startSession(record, resp)
}

// SendPasswordReset mails a reset link. Unknown emails are not reported.
func (p *FirebaseProvider) SendPasswordReset(ctx context.Context, email string) error {
	email = model.NormalizeEmail(email)
	link, err := p.admin.PasswordResetLink(ctx, email)
	if err != nil {
		if fbauth.IsUserNotFound(err) {
			return nil
		}
		return fmt.Errorf("failed to create reset link: %w", err)
	}
	return p.mailer.SendPasswordReset(ctx, email, link)
}

// ResetPassword applies the out-of-band code from a reset link.
func (p *FirebaseProvider) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}
	if token == "" {
		return common.ErrInvalidToken
	}
	return p.call(ctx, "accounts:resetPassword", map[string]any{
		"oobCode":     token,
		"newPassword": newPassword,
	}, nil)
}

// Logout revokes every refresh token of the session's user. Outstanding ID
// tokens then fail the revocation check in Authenticate.
func (p *FirebaseProvider) Logout(ctx context.Context, token string) error {
	verified, err := p.admin.VerifyIDTokenAndCheckRevoked(ctx, token)
	if err != nil {
		return nil
	}
	if err := p.admin.RevokeRefreshTokens(ctx, verified.UID); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	p.watchers.notify(nil)
	return nil
}

// Authenticate verifies a Firebase ID token and loads its account.
func (p *FirebaseProvider) Authenticate(ctx context.Context, token string) (*model.User, error) {
	verified, err := p.admin.VerifyIDTokenAndCheckRevoked(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrUnauthorized, err)
	}
	record, err := p.admin.GetUser(ctx, verified.UID)
	if err != nil {
		if fbauth.IsUserNotFound(err) {
			return nil, fmt.Errorf("%w: unknown account", common.ErrUnauthorized)
		}
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	return userFromRecord(record), nil
}

// Watch subscribes fn to sign-in and sign-out events in this process.
func (p *FirebaseProvider) Watch(fn func(*model.User)) service.CancelFunc {
	return p.watchers.add(fn)
}

func (p *FirebaseProvider) startSession(record *fbauth.UserRecord, resp signInResponse) (*model.Session, error) {
	if resp.IDToken == "" {
		return nil, errors.New("sign-in response carried no token")
	}
	seconds, err := strconv.Atoi(resp.ExpiresIn)
	if err != nil {
		seconds = 3600
	}
	user := userFromRecord(record)
	p.watchers.notify(user)
	return &model.Session{
		Token:     resp.IDToken,
		User:      user,
		ExpiresAt: time.Now().Add(time.Duration(seconds) * time.Second),
	}, nil
}

type restError struct {
	Error struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// call posts body to an Identity Toolkit method and decodes the reply into out.
func (p *FirebaseProvider) call(ctx context.Context, method string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	endpoint := p.baseURL + "/" + method + "?key=" + p.apiKey
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		return fmt.Errorf("identity toolkit request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		var apiErr restError
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr != nil {
			return fmt.Errorf("identity toolkit returned status %d", resp.StatusCode)
		}
		return mapRESTError(apiErr.Error.Message)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// mapRESTError turns Identity Toolkit error codes into the shared sentinels.
// Messages look like "WEAK_PASSWORD : Password should be at least 6 characters".
func mapRESTError(message string) error {
	code, _, _ := strings.Cut(message, " ")
	switch code {
	case "EMAIL_NOT_FOUND", "INVALID_PASSWORD", "INVALID_LOGIN_CREDENTIALS", "USER_DISABLED", "INVALID_EMAIL":
		return common.ErrInvalidCredentials
	case "INVALID_OOB_CODE", "EXPIRED_OOB_CODE":
		return common.ErrInvalidToken
	case "WEAK_PASSWORD":
		return common.ErrWeakPassword
	case "TOO_MANY_ATTEMPTS_TRY_LATER":
		return common.ErrRateLimit
	default:
		return fmt.Errorf("identity toolkit error: %s", message)
	}
}

func userFromRecord(record *fbauth.UserRecord) *model.User {
	user := &model.User{
		Provider:      model.ProviderFirebase,
		EmailVerified: record.EmailVerified,
	}
	if record.UserInfo != nil {
		user.ID = record.UID
		user.Email = record.Email
		user.DisplayName = record.DisplayName
	}
	if record.UserMetadata != nil && record.UserMetadata.CreationTimestamp > 0 {
		user.CreatedAt = time.UnixMilli(record.UserMetadata.CreationTimestamp)
	}
	return user
}

var _ service.IdentityProvider = (*FirebaseProvider)(nil)
