// Package identity resolves the authenticated caller behind a bearer token.
package identity

import (
	"context"
	"net/http"

	"github.com/bldrfitness/subscription-payments/pkg/config"
)

// Identity is the verified caller.
type Identity struct {
	UserID string
	Email  string
	Role   string
	// Claims carries the verified token claims when the provider has them.
	Claims map[string]any
}

// Provider exchanges a bearer token for the caller's identity.
type Provider interface {
	Resolve(ctx context.Context, token string) (*Identity, error)
}

// NewProvider picks local JWT verification when a secret is configured and
// falls back to the hosted auth API otherwise.
func NewProvider(cfg config.SupabaseConfig) (Provider, error) {
	if cfg.UsesLocalJWT() {
		verifier, err := NewJWTVerifier(cfg.JWTSecret, cfg.JWTAudience)
		if err != nil {
			return nil, err
		}
		return verifier, nil
	}
	var opts []Option
	if cfg.AuthTimeout > 0 {
		opts = append(opts, WithHTTPClient(&http.Client{Timeout: cfg.AuthTimeout}))
	}
	client, err := NewGoTrueClient(cfg.URL, cfg.AnonKey, opts...)
	if err != nil {
		return nil, err
	}
	return client, nil
}
