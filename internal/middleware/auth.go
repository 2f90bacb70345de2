package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type ctxKey int

const (
	viewerKey ctxKey = iota
	viewerSlotKey
)

// withViewerSlot lets an outer middleware learn who the authenticator
// resolved for this request.
func withViewerSlot(ctx context.Context, slot *uuid.UUID) context.Context {
	return context.WithValue(ctx, viewerSlotKey, slot)
}

// WithViewer returns a copy of ctx carrying the authenticated user ID.
func WithViewer(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, viewerKey, userID)
}

// ViewerFrom returns the authenticated user ID set by NewAuthenticator.
func ViewerFrom(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(viewerKey).(uuid.UUID)
	return id, ok && id != uuid.Nil
}

// NewAuthenticator returns a middleware that requires an HS256 bearer token
// signed with secret. The token's subject must be the caller's user UUID.
// Requests without a valid token get 401 and never reach next.
func NewAuthenticator(secret []byte) func(http.Handler) http.Handler {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	keyFunc := func(*jwt.Token) (any, error) { return secret, nil }

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || raw == "" {
				unauthorized(w, "missing bearer token")
				return
			}
			var claims jwt.RegisteredClaims
			if _, err := parser.ParseWithClaims(raw, &claims, keyFunc); err != nil {
				msg := "invalid token"
				if errors.Is(err, jwt.ErrTokenExpired) {
					msg = "token expired"
				}
				unauthorized(w, msg)
				return
			}
			userID, err := uuid.Parse(claims.Subject)
			if err != nil || userID == uuid.Nil {
				unauthorized(w, "token subject is not a user id")
				return
			}
			if slot, ok := r.Context().Value(viewerSlotKey).(*uuid.UUID); ok {
				*slot = userID
			}
			next.ServeHTTP(w, r.WithContext(WithViewer(r.Context(), userID)))
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
	writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", msg)
}

// writeError writes the API's standard error body. Middleware cannot import
// the handler package, so the envelope is repeated here.
func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	body := map[string]map[string]string{"error": {"code": code, "message": msg}}
	_ = json.NewEncoder(w).Encode(body)
}
