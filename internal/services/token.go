package services

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionValidity is the lifetime of an issued session token. There is no
// server-side revocation: a token stays valid until this expiry regardless of
// logout, which is a client-side action only.
const SessionValidity = 30 * 24 * time.Hour

// TokenService issues and verifies the stateless signed bearer tokens that
// prove identity to one origin's API. Verification needs no store lookup.
type TokenService struct {
	secret   []byte
	validity time.Duration
}

func NewTokenService(secret []byte) *TokenService {
	return &TokenService{secret: secret, validity: SessionValidity}
}

// Issue signs a token carrying the subject id, issued-at, and expiry.
func (s *TokenService) Issue(userID string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.validity)),
	})
	return token.SignedString(s.secret)
}

// Verify checks signature and expiry and returns the subject id. Any
// mismatch, tamper, or expiry yields ErrInvalidToken.
func (s *TokenService) Verify(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}

	return claims.Subject, nil
}
