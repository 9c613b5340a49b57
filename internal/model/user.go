package model

import (
	"strings"
	"time"
)

// AuthProvider names how a user signs in.
type AuthProvider string

const (
	// ProviderPassword is email and password managed locally.
	ProviderPassword AuthProvider = "password"
	// ProviderGoogle is Google single sign-on.
	ProviderGoogle AuthProvider = "google"
	// ProviderFirebase is an account held by Firebase Authentication.
	ProviderFirebase AuthProvider = "firebase"
)

// User is an authenticated identity. PasswordHash never leaves the process.
type User struct {
	CreatedAt     time.Time    `json:"createdAt"`
	ID            string       `json:"id"`
	Email         string       `json:"email"`
	DisplayName   string       `json:"displayName"`
	PasswordHash  string       `json:"-"`
	Provider      AuthProvider `json:"provider"`
	EmailVerified bool         `json:"emailVerified"`
}

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Session is an authenticated sign-in. Token is presented as a bearer
// credential on later requests.
type Session struct {
	ExpiresAt time.Time `json:"expiresAt"`
	User      *User     `json:"user"`
	Token     string    `json:"token"`
}

// TokenKind separates single-use tokens by purpose.
type TokenKind string

const (
	// TokenVerifyEmail confirms ownership of an email address.
	TokenVerifyEmail TokenKind = "verify_email"
	// TokenResetPassword authorizes one password change.
	TokenResetPassword TokenKind = "reset_password"
)

// AuthToken is a stored single-use token. Only the hash of the secret is kept.
type AuthToken struct {
	ExpiresAt time.Time
	Hash      string
	UserID    string
	Kind      TokenKind
}
