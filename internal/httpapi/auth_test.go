package httpapi

import (
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"salesledger/backend/internal/domain"
)

func signToken(t *testing.T, secret, username, role string, expiresAt time.Time) string {
	t.Helper()
	claims := ledgerClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwtlib.NewNumericDate(time.Now().UTC()),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
			Issuer:    "accounts",
		},
		Role: role,
	}
	token, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestParseTokenExtractsActor(t *testing.T) {
	verifier := NewTokenVerifier("test-secret")
	token := signToken(t, "test-secret", "siti", domain.RoleDataEntry, time.Now().Add(time.Hour))

	actor, err := verifier.ParseToken(token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if actor.Username != "siti" || actor.Role != domain.RoleDataEntry {
		t.Fatalf("unexpected actor %+v", actor)
	}
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	verifier := NewTokenVerifier("test-secret")
	token := signToken(t, "other-secret", "siti", domain.RoleDataEntry, time.Now().Add(time.Hour))

	if _, err := verifier.ParseToken(token); err == nil {
		t.Fatal("expected error for token signed with wrong secret")
	}
}

func TestParseTokenRejectsExpired(t *testing.T) {
	verifier := NewTokenVerifier("test-secret")
	token := signToken(t, "test-secret", "siti", domain.RoleDataEntry, time.Now().Add(-time.Hour))

	if _, err := verifier.ParseToken(token); err == nil {
		t.Fatal("expected error for expired token")
	}
}

func TestParseTokenRejectsUnknownRole(t *testing.T) {
	verifier := NewTokenVerifier("test-secret")
	token := signToken(t, "test-secret", "siti", "superuser", time.Now().Add(time.Hour))

	if _, err := verifier.ParseToken(token); err == nil {
		t.Fatal("expected error for unknown role")
	}
}

func TestParseTokenRejectsMissingSubject(t *testing.T) {
	verifier := NewTokenVerifier("test-secret")
	token := signToken(t, "test-secret", "", domain.RoleAdmin, time.Now().Add(time.Hour))

	if _, err := verifier.ParseToken(token); err == nil {
		t.Fatal("expected error for empty subject")
	}
}

func TestParseTokenRejectsUnsignedToken(t *testing.T) {
	verifier := NewTokenVerifier("test-secret")
	claims := ledgerClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   "siti",
			ExpiresAt: jwtlib.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role: domain.RoleAdmin,
	}
	token, err := jwtlib.NewWithClaims(jwtlib.SigningMethodNone, claims).SignedString(jwtlib.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none token: %v", err)
	}

	if _, err := verifier.ParseToken(token); err == nil {
		t.Fatal("expected error for alg=none token")
	}
}
