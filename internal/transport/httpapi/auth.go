package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

const (
	claimSubject = "sub"
	claimRole    = "role"

	anonymousActor = "anonymous"
)

type actorKey struct{}

// Actor returns the authenticated user id stored by the auth middleware.
func Actor(ctx context.Context) string {
	if v, ok := ctx.Value(actorKey{}).(string); ok && v != "" {
		return v
	}
	return anonymousActor
}

// authMiddleware verifies Supabase HS256 access tokens. With allowQuery the
// token may also come from the access_token query parameter, which browsers
// need for websocket upgrades. An empty secret disables verification.
func (a *API) authMiddleware(allowQuery bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if a.jwtSecret == "" {
				next.ServeHTTP(w, r)
				return
			}

			raw := bearerToken(r)
			if raw == "" && allowQuery {
				raw = r.URL.Query().Get("access_token")
			}
			if raw == "" {
				respondMessage(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			subject, err := a.verifyToken(raw)
			if err != nil {
				a.logger.Info("rejected token", "path", r.URL.Path, "error", err)
				respondMessage(w, http.StatusUnauthorized, "invalid token")
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), actorKey{}, subject)))
		})
	}
}

func (a *API) verifyToken(raw string) (string, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return []byte(a.jwtSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", fmt.Errorf("token not valid")
	}
	subject := claimString(claims, claimSubject)
	if subject == "" {
		return "", fmt.Errorf("subject claim missing")
	}
	if role := claimString(claims, claimRole); role != "" && role != "authenticated" && role != "service_role" {
		return "", fmt.Errorf("role %q not allowed", role)
	}
	return subject, nil
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

func claimString(claims jwt.MapClaims, key string) string {
	raw, ok := claims[key]
	if !ok || raw == nil {
		return ""
	}
	switch v := raw.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(raw)
	}
}
