package auth

import (
	"fmt"
	"time"

	"github.com/Veraticus/rupeeflow/internal/common"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

const issuer = "rupeeflow"

// Claims are the session token claims. ID (jti) keys revocation.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// JWT signs and validates HS256 session tokens.
type JWT struct {
	now    func() time.Time
	secret []byte
	ttl    time.Duration
}

// NewJWT creates a signer. ttl is the session lifetime.
func NewJWT(secret string, ttl time.Duration) *JWT {
	return &JWT{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Generate issues a token for userID.
func (j *JWT) Generate(userID, email string) (string, *Claims, error) {
	now := j.now()
	claims := &Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return token, claims, nil
}

// Validate parses token and checks its signature, issuer and expiry.
func (j *JWT) Validate(token string) (*Claims, error) {
	claims := &Claims{}
	// Time-based claims are checked below against j.now instead of the
	// package-level jwt.TimeFunc.
	parser := jwt.Parser{
		ValidMethods:         []string{jwt.SigningMethodHS256.Alg()},
		SkipClaimsValidation: true,
	}

	parsed, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return j.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrUnauthorized, err)
	}
	if !parsed.Valid || claims.Issuer != issuer || claims.Subject == "" || claims.ID == "" {
		return nil, fmt.Errorf("%w: malformed session", common.ErrUnauthorized)
	}
	if !claims.VerifyExpiresAt(j.now(), true) {
		return nil, fmt.Errorf("%w: session expired", common.ErrUnauthorized)
	}
	return claims, nil
}
