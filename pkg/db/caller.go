package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"gorm.io/gorm"
)

// CallerClaims identifies the authenticated caller a transaction runs on behalf of.
type CallerClaims struct {
	Subject string
	Role    string
	// Raw holds the verified token claims when available; Subject and Role win on conflict.
	Raw map[string]any
}

func (c CallerClaims) encode() (string, error) {
	claims := make(map[string]any, len(c.Raw)+2)
	for k, v := range c.Raw {
		claims[k] = v
	}
	claims["sub"] = c.Subject
	if c.Role != "" {
		claims["role"] = c.Role
	}
	payload, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("encoding caller claims: %w", err)
	}
	return string(payload), nil
}

// WithCallerTx runs fn in a transaction scoped to the caller so row-level
// security policies evaluate against the caller's claims. Scoping is only
// applied on Postgres.
func (c *Client) WithCallerTx(ctx context.Context, caller CallerClaims, fn func(tx *gorm.DB) error) error {
	return c.WithTx(ctx, func(tx *gorm.DB) error {
		if err := c.applyCaller(tx, caller); err != nil {
			return err
		}
		return fn(tx)
	})
}

func (c *Client) applyCaller(tx *gorm.DB, caller CallerClaims) error {
	if tx.Dialector == nil || tx.Dialector.Name() != "postgres" {
		return nil
	}

	claims, err := caller.encode()
	if err != nil {
		return err
	}
	if err := tx.Exec("SELECT set_config('request.jwt.claims', ?, true)", claims).Error; err != nil {
		return fmt.Errorf("setting caller claims: %w", err)
	}
	if err := tx.Exec("SELECT set_config('request.jwt.claim.sub', ?, true)", caller.Subject).Error; err != nil {
		return fmt.Errorf("setting caller subject: %w", err)
	}
	if c.rlsRole == "" {
		return nil
	}
	if err := tx.Exec("SET LOCAL ROLE " + pgx.Identifier{c.rlsRole}.Sanitize()).Error; err != nil {
		return fmt.Errorf("assuming role %s: %w", c.rlsRole, err)
	}
	return nil
}
