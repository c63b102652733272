// Package identity verifies bearer access tokens.
package identity

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"collab-service/internal/apperr"
)

// Identity is the authenticated caller.
type Identity struct {
	UserID string
	Email  string
}

// Claims is the access-token payload.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Verifier checks HMAC-signed access tokens.
type Verifier struct {
	secret []byte
	now    func() time.Time
}

// NewVerifier returns a Verifier keyed by secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret), now: time.Now}
}

// Verify parses token and returns the caller it identifies.
func (v *Verifier) Verify(token string) (Identity, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return v.secret, nil
	}, jwt.WithTimeFunc(v.now))
	if err != nil {
		return Identity{}, apperr.Wrap(apperr.InvalidToken, "invalid token", err)
	}
	if !parsed.Valid || claims.UserID == "" {
		return Identity{}, apperr.New(apperr.InvalidToken, "invalid token")
	}
	// User ids are uuids; anything else cannot name a stored user.
	if _, err := uuid.Parse(claims.UserID); err != nil {
		return Identity{}, apperr.Wrap(apperr.InvalidToken, "invalid token subject", err)
	}
	return Identity{UserID: claims.UserID, Email: claims.Email}, nil
}

// Issue signs an access token for id that expires after ttl.
func (v *Verifier) Issue(id Identity, ttl time.Duration) (string, error) {
	now := v.now()
	claims := Claims{
		UserID: id.UserID,
		Email:  id.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
