/*
Package origin implements the relay's cross-origin policy.

A request is trusted when it declares no Origin (non-browser clients), when its normalized
origin is on the explicit allow-list, or when it matches the trusted-domain pattern. The
same Policy backs the CORS headers, the rejecting HTTP middleware and the WebSocket
upgrader's CheckOrigin.
*/
package origin

import (
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"chatrelay/internal/pkg/errs"
	"chatrelay/internal/pkg/logx"
	"chatrelay/internal/pkg/resp"
)

// Policy decides whether a declared Origin may talk to the relay.
type Policy struct {
	allowed  map[string]struct{}
	allowAll bool
	pattern  *regexp.Regexp
}

// NewPolicy builds a Policy from an allow-list and an optional trusted-domain regexp.
// "*" in the allow-list trusts every origin. Malformed entries are skipped with a warning.
func NewPolicy(allowedOrigins []string, trustedPattern string) (*Policy, error) {
	p := &Policy{allowed: make(map[string]struct{}, len(allowedOrigins))}

	for _, o := range allowedOrigins {
		trimmed := strings.TrimSpace(o)
		if trimmed == "" {
			continue
		}

		if trimmed == "*" {
			p.allowAll = true
			continue
		}

		normalized, ok := Normalize(trimmed)
		if !ok {
			logx.Warn("Ignoring invalid origin in configuration", "origin", o)
			continue
		}
		p.allowed[normalized] = struct{}{}
	}

	if trustedPattern != "" {
		re, err := regexp.Compile(trustedPattern)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted origin pattern %q: %w", trustedPattern, err)
		}
		p.pattern = re
	}

	return p, nil
}

// Normalize lowercases scheme and host and drops any path, e.g. "HTTPS://App.io/" -> "https://app.io".
func Normalize(origin string) (string, bool) {
	parsed, err := url.Parse(origin)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", false
	}

	return strings.ToLower(parsed.Scheme) + "://" + strings.ToLower(parsed.Host), true
}

// Allowed reports whether a declared origin is trusted. An empty origin is trusted.
func (p *Policy) Allowed(origin string) bool {
	if origin == "" || p.allowAll {
		return true
	}

	normalized, ok := Normalize(origin)
	if !ok {
		return false
	}

	if _, ok := p.allowed[normalized]; ok {
		return true
	}

	return p.pattern != nil && p.pattern.MatchString(normalized)
}

// CheckRequest is the WebSocket upgrader hook.
func (p *Policy) CheckRequest(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if p.Allowed(origin) {
		return true
	}

	logx.Warn("WebSocket connection rejected: Origin not allowed.", "origin", origin)
	return false
}

// Middleware refuses requests from untrusted origins with ErrCrossOriginRejected (403).
// Preflight requests are left to the CORS handler, which runs first.
func (p *Policy) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if !p.Allowed(origin) {
			logx.Warn("Request rejected: Origin not allowed.", "origin", origin, "request_uri", r.RequestURI)
			resp.RespondError(w, r, errs.NewError(errs.ErrCrossOriginRejected))
			return
		}

		next.ServeHTTP(w, r)
	})
}
