package httpapi

import (
	"errors"
	"strings"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"salesledger/backend/internal/domain"
)

// TokenVerifier checks bearer tokens issued by the company account service.
// This API never mints tokens; it only verifies HS256 signatures against the
// shared secret and extracts the acting user.
type TokenVerifier struct {
	secret []byte
}

type ledgerClaims struct {
	jwtlib.RegisteredClaims
	Role string `json:"role"`
}

func NewTokenVerifier(secret string) *TokenVerifier {
	if secret == "" {
		secret = "dev-change-me"
	}
	return &TokenVerifier{secret: []byte(secret)}
}

func (v *TokenVerifier) ParseToken(tokenStr string) (domain.Actor, error) {
	claims := &ledgerClaims{}
	token, err := jwtlib.ParseWithClaims(tokenStr, claims, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return v.secret, nil
	}, jwtlib.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return domain.Actor{}, errors.New("invalid or expired token")
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return domain.Actor{}, errors.New("invalid token subject")
	}

	role := strings.TrimSpace(claims.Role)
	switch role {
	case domain.RoleAdmin, domain.RoleManager, domain.RoleDataEntry:
	default:
		return domain.Actor{}, errors.New("unknown role in token")
	}

	return domain.Actor{Username: sub, Role: role}, nil
}
