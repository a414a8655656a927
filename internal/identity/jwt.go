package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	pkgerrors "github.com/bldrfitness/subscription-payments/pkg/errors"
)

var jwtSigningMethod = jwt.SigningMethodHS256

// SessionClaims mirrors the access tokens minted by the auth server.
type SessionClaims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// JWTVerifier resolves identities by verifying the access token signature locally.
type JWTVerifier struct {
	secret   []byte
	audience string
}

// NewJWTVerifier builds a verifier for HS256 tokens. An empty audience disables the aud check.
func NewJWTVerifier(secret, audience string) (*JWTVerifier, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	return &JWTVerifier{secret: []byte(secret), audience: strings.TrimSpace(audience)}, nil
}

func (v *JWTVerifier) Resolve(_ context.Context, token string) (*Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "bearer token required")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwtSigningMethod.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	claims := &SessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwtSigningMethod {
			return nil, fmt.Errorf("unexpected signing method %s", t.Header["alg"])
		}
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid access token")
	}
	if !parsed.Valid || strings.TrimSpace(claims.Subject) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "access token missing subject")
	}

	raw := map[string]any{
		"sub":  claims.Subject,
		"role": claims.Role,
	}
	if claims.Email != "" {
		raw["email"] = claims.Email
	}
	if len(claims.Audience) > 0 {
		raw["aud"] = []string(claims.Audience)
	}
	if claims.ExpiresAt != nil {
		raw["exp"] = claims.ExpiresAt.Unix()
	}

	return &Identity{
		UserID: claims.Subject,
		Email:  claims.Email,
		Role:   claims.Role,
		Claims: raw,
	}, nil
}
