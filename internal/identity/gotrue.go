package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	pkgerrors "github.com/bldrfitness/subscription-payments/pkg/errors"
)

const (
	userPath              = "/auth/v1/user"
	responseBodyReadLimit = 1024
	defaultRequestTimeout = 10 * time.Second
)

var (
	errBaseURLRequired = errors.New("supabase url is required")
	errAnonKeyRequired = errors.New("supabase anon key is required")
)

// GoTrueClient resolves identities through the hosted auth API.
type GoTrueClient struct {
	httpClient *http.Client
	baseURL    string
	anonKey    string
}

// Option configures optional client behavior.
type Option func(*GoTrueClient)

// WithHTTPClient overrides the default HTTP client. The client is used as is,
// including its Timeout.
func WithHTTPClient(client *http.Client) Option {
	return func(c *GoTrueClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewGoTrueClient builds an auth API client for the project at baseURL.
func NewGoTrueClient(baseURL, anonKey string, opts ...Option) (*GoTrueClient, error) {
	trimmedURL := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmedURL == "" {
		return nil, errBaseURLRequired
	}
	trimmedKey := strings.TrimSpace(anonKey)
	if trimmedKey == "" {
		return nil, errAnonKeyRequired
	}

	client := &GoTrueClient{
		baseURL: trimmedURL,
		anonKey: trimmedKey,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultRequestTimeout}
	}
	return client, nil
}

// Resolve returns the user owning token. Any non-200 answer is an auth failure.
func (c *GoTrueClient) Resolve(ctx context.Context, token string) (*Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "bearer token required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+userPath, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build auth user request")
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute auth user request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "auth user request rejected")
	}

	var user struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Role  string `json:"role"`
		Aud   string `json:"aud"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode auth user response")
	}
	if strings.TrimSpace(user.ID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "auth user response missing id")
	}

	return &Identity{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		Claims: map[string]any{
			"sub":   user.ID,
			"email": user.Email,
			"role":  user.Role,
			"aud":   user.Aud,
		},
	}, nil
}
