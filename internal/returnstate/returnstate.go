// Package returnstate signs the order id carried through the provider
// redirect so the return handler can trust which order it is completing.
package returnstate

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"bnpl-gateway/internal/model"
)

// DefaultTTL is how long a shopper has to complete the provider checkout.
const DefaultTTL = time.Hour

const issuer = "bnpl-gateway"

// Claims is the signed payload. Subject is the local order id.
type Claims struct {
	jwt.RegisteredClaims
}

// Signer issues and verifies HS256 return-state tokens.
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSigner returns a signer. An empty secret is a configuration error.
func NewSigner(secret string, ttl time.Duration) (*Signer, error) {
	if secret == "" {
		return nil, model.NewConfigurationError("return state secret is empty")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Signer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Sign binds orderID to a short-lived state token.
func (s *Signer) Sign(orderID string) (string, error) {
	now := s.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   orderID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signing return state: %w", err)
	}
	return signed, nil
}

// Verify checks signature and expiry and returns the order id.
func (s *Signer) Verify(state string) (string, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(state, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", model.NewValidationError("state", "expired")
		}
		return "", model.NewValidationError("state", "signature mismatch")
	}
	if claims.Subject == "" {
		return "", model.NewValidationError("state", "missing order")
	}
	return claims.Subject, nil
}
