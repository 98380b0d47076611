package service

import (
	"fmt"

	"github.com/echoease/echoease-go/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

// AuthService validates session tokens issued by the external auth
// collaborator. It exists only to obtain the acting user's id for
// stamping new records; sign-in/up/out live outside this service.
type AuthService struct {
	secret []byte
}

// NewAuthService creates the token validator.
func NewAuthService(secret string) *AuthService {
	return &AuthService{secret: []byte(secret)}
}

// SessionClaims are the claims EchoEase reads from a session token.
type SessionClaims struct {
	jwt.RegisteredClaims
}

// ValidateSessionToken parses and verifies a bearer token and returns the
// acting user's id.
func (a *AuthService) ValidateSessionToken(tokenString string) (string, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return "", &domain.ErrUnauthorized{Message: "invalid or expired session token"}
	}
	if !token.Valid || claims.Subject == "" {
		return "", &domain.ErrUnauthorized{Message: "invalid session token"}
	}
	return claims.Subject, nil
}
