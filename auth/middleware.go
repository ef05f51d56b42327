package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/lifecaller/simulator/simulation"
	"github.com/rs/zerolog"
)

type ctxKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id simulation.Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// IdentityFrom returns the identity stored by Middleware.
func IdentityFrom(ctx context.Context) (simulation.Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(simulation.Identity)
	return id, ok
}

// Middleware requires a valid "Authorization: Bearer <token>" header and
// stores the identity on the request context. Failures answer 401.
func Middleware(a *Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				unauthorized(w, "authorization token not provided")
				return
			}

			id, err := a.Identify(raw)
			if err != nil {
				zerolog.Ctx(r.Context()).Debug().Err(err).Msg("rejected bearer token")
				unauthorized(w, "invalid or expired token")
				return
			}

			ctx := zerolog.Ctx(r.Context()).With().Str("subject", id.Subject).Logger().WithContext(r.Context())
			next.ServeHTTP(w, r.WithContext(WithIdentity(ctx, id)))
		})
	}
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
