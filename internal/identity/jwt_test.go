package identity

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "super-secret-jwt-token-with-at-least-32-characters"

func signToken(t *testing.T, secret string, claims SessionClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func validClaims() SessionClaims {
	now := time.Now()
	return SessionClaims{
		Email: "a@b.co",
		Role:  "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			Audience:  jwt.ClaimStrings{"authenticated"},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
}

func TestJWTVerifierResolve(t *testing.T) {
	verifier, err := NewJWTVerifier(testSecret, "authenticated")
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	got, err := verifier.Resolve(context.Background(), signToken(t, testSecret, validClaims()))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.UserID != "user-1" || got.Role != "authenticated" {
		t.Fatalf("unexpected identity %+v", got)
	}
	if got.Claims["email"] != "a@b.co" {
		t.Fatalf("expected email claim, got %v", got.Claims["email"])
	}
}

func TestJWTVerifierRejects(t *testing.T) {
	verifier, err := NewJWTVerifier(testSecret, "authenticated")
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	ctx := context.Background()

	expired := validClaims()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	wrongAud := validClaims()
	wrongAud.Audience = jwt.ClaimStrings{"service_role"}

	noSubject := validClaims()
	noSubject.Subject = ""

	cases := map[string]string{
		"wrong secret": signToken(t, "another-secret-another-secret-another", validClaims()),
		"expired":      signToken(t, testSecret, expired),
		"audience":     signToken(t, testSecret, wrongAud),
		"no subject":   signToken(t, testSecret, noSubject),
		"garbage":      "not-a-jwt",
		"empty":        "",
	}
	for name, token := range cases {
		if _, err := verifier.Resolve(ctx, token); err == nil {
			t.Fatalf("%s: expected token to be rejected", name)
		}
	}
}

func TestNewJWTVerifierRequiresSecret(t *testing.T) {
	if _, err := NewJWTVerifier(" ", "authenticated"); err == nil {
		t.Fatal("expected empty secret to fail")
	}
}
