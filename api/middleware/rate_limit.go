package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/bldrfitness/subscription-payments/api/responses"
	"github.com/bldrfitness/subscription-payments/api/validators"
	pkgerrors "github.com/bldrfitness/subscription-payments/pkg/errors"
	"github.com/bldrfitness/subscription-payments/pkg/logger"
)

type rateLimiterStore interface {
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
}

// RateLimitPolicy defines fixed-window throttling for a route.
type RateLimitPolicy struct {
	name       string
	window     time.Duration
	ipLimit    int
	tokenLimit int
	// proxyHops is the number of trusted proxies appending to X-Forwarded-For.
	proxyHops int
}

// NewRateLimitPolicy builds a policy with the supplied window and limits.
// A zero limit disables that scope.
func NewRateLimitPolicy(name string, window time.Duration, ipLimit, tokenLimit int) RateLimitPolicy {
	return RateLimitPolicy{
		name:       strings.ToLower(strings.TrimSpace(name)),
		window:     window,
		ipLimit:    ipLimit,
		tokenLimit: tokenLimit,
	}
}

// WithTrustedProxyHops returns a copy of p that reads the client address from
// the X-Forwarded-For entry appended by the outermost of hops trusted proxies.
// Zero ignores forwarding headers and uses the connection address.
func (p RateLimitPolicy) WithTrustedProxyHops(hops int) RateLimitPolicy {
	if hops < 0 {
		hops = 0
	}
	p.proxyHops = hops
	return p
}

func (p RateLimitPolicy) enabled() bool {
	return p.window > 0 && (p.ipLimit > 0 || p.tokenLimit > 0)
}

func (p RateLimitPolicy) normalizedName() string {
	if p.name == "" {
		return "default"
	}
	return p.name
}

func (p RateLimitPolicy) key(scope, value string) string {
	if value == "" {
		return ""
	}
	return fmt.Sprintf("rl:%s:%s:%s", scope, p.normalizedName(), value)
}

// RateLimit enforces per-IP and per-credential counters. Store failures are
// logged and let the request through.
func RateLimit(policy RateLimitPolicy, store rateLimiterStore, logg *logger.Logger, status responses.StatusPolicy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || store == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			checks := make([]rateCheck, 0, 2)
			if policy.ipLimit > 0 {
				checks = append(checks, rateCheck{scope: "ip", value: clientIP(r, policy.proxyHops), limit: policy.ipLimit})
			}
			if policy.tokenLimit > 0 {
				if token, err := validators.BearerToken(r.Header.Get("Authorization")); err == nil && token != "" {
					checks = append(checks, rateCheck{scope: "token", value: hashValue(token), limit: policy.tokenLimit})
				}
			}

			for _, check := range checks {
				key := policy.key(check.scope, check.value)
				if key == "" {
					continue
				}
				count, err := store.IncrWithTTL(ctx, key, policy.window)
				if err != nil {
					if logg != nil {
						logg.Warn(logg.WithError(ctx, err), "rate_limit.store_unavailable")
					}
					break
				}
				if count > int64(check.limit) {
					respondRateLimited(ctx, logg, w, status, policy, check, count)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

type rateCheck struct {
	scope string
	value string
	limit int
}

func respondRateLimited(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, status responses.StatusPolicy, policy RateLimitPolicy, check rateCheck, count int64) {
	if logg != nil {
		fields := map[string]any{
			"scope":          check.scope,
			"policy":         policy.normalizedName(),
			"attempts":       count,
			"limit":          check.limit,
			"window_seconds": int(policy.window.Seconds()),
		}
		if check.scope == "ip" {
			fields["ip"] = check.value
		}
		logg.Warn(logg.WithFields(ctx, fields), "rate_limit.blocked")
	}
	responses.WriteError(ctx, nil, w, status, pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded"))
}

// clientIP ignores entries a caller can prepend to X-Forwarded-For: only the
// hop written by the outermost trusted proxy is used.
func clientIP(r *http.Request, proxyHops int) string {
	if r == nil {
		return ""
	}
	if proxyHops > 0 {
		var hops []string
		for _, header := range r.Header.Values("X-Forwarded-For") {
			for _, part := range strings.Split(header, ",") {
				hops = append(hops, strings.TrimSpace(part))
			}
		}
		if idx := len(hops) - proxyHops; idx >= 0 && idx < len(hops) {
			if ip := net.ParseIP(hops[idx]); ip != nil {
				return ip.String()
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

func hashValue(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
