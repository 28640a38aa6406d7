package server

import (
	"net/http"
	"strings"

	"github.com/samber/lo"
)

// OriginChecker accepts WebSocket upgrades from a fixed set of origins.
// Requests without an Origin header come from non-browser clients and are
// accepted. "*" accepts every origin.
type OriginChecker struct {
	allowedOrigins []string
	allowAll       bool
}

func NewOriginChecker(allowedOrigins []string) *OriginChecker {
	normalized := lo.Uniq(lo.Compact(lo.Map(allowedOrigins, func(origin string, _ int) string {
		return normalizeOrigin(origin)
	})))

	return &OriginChecker{
		allowedOrigins: normalized,
		allowAll:       lo.Contains(normalized, "*"),
	}
}

func (c *OriginChecker) Check(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || c.allowAll {
		return true
	}

	return lo.Contains(c.allowedOrigins, normalizeOrigin(origin))
}

func normalizeOrigin(origin string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(origin)), "/")
}
