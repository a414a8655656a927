package validators

import (
	"errors"
	"strings"
)

var ErrMissingAuthorization = errors.New("missing authorization header")

// BearerToken extracts the credential from an Authorization header value.
// A present header without the Bearer prefix is passed through unchanged.
func BearerToken(header string) (string, error) {
	token := strings.TrimSpace(header)
	if token == "" {
		return "", ErrMissingAuthorization
	}
	if len(token) >= 7 && strings.EqualFold(token[:7], "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	return token, nil
}
