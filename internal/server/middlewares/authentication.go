package middlewares

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/xdavidwu/openapi-conformance/internal/server"
)

const (
	bearerScheme = "bearer"
	realm        = `Bearer realm="conformanced"`
)

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, bearerScheme) {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// ParseTokens splits a comma separated token list, dropping empty entries.
func ParseTokens(s string) []string {
	var tokens []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

// AuthnWithPreShared accepts a bearer token matching any of tokens, so a
// token can be rotated without downtime.
func AuthnWithPreShared(next http.Handler, tokens []string) http.Handler {
	accepted := make([][]byte, len(tokens))
	for i := range tokens {
		accepted[i] = []byte(tokens[i])
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t, ok := bearerToken(r)
		if !ok {
			w.Header().Set("WWW-Authenticate", realm)
			server.WriteError(w, http.StatusUnauthorized, "bearer token required")
			return
		}

		matched := 0
		for _, a := range accepted {
			matched |= subtle.ConstantTimeCompare([]byte(t), a)
		}
		if matched != 1 {
			server.WriteError(w, http.StatusForbidden, "token not accepted")
			return
		}
		next.ServeHTTP(w, r)
	})
}
