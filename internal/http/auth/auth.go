// Package auth verifies bearer tokens and puts the caller on the request context.
// Tokens are minted by the identity service; this package only checks them.
package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/garage/internal/estimate"
	"github.com/MrJamesThe3rd/garage/internal/http/httpkit"
)

// Actor is the authenticated caller.
type Actor struct {
	ID           uuid.UUID
	SiteID       uuid.UUID
	Capabilities estimate.Capabilities
}

// Claims is the token payload: sub is the user id, caps the granted capabilities.
type Claims struct {
	SiteID string   `json:"site_id"`
	Caps   []string `json:"caps"`
	jwt.RegisteredClaims
}

type ctxKey struct{}

func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, ctxKey{}, a)
}

func FromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(ctxKey{}).(Actor)
	return a, ok
}

// Require returns the caller or writes 401 and reports false.
func Require(w http.ResponseWriter, r *http.Request) (Actor, bool) {
	a, ok := FromContext(r.Context())
	if !ok {
		httpkit.Message(w, http.StatusUnauthorized, "authentication required")
	}

	return a, ok
}

// Middleware accepts HS256 tokens signed with secret.
func Middleware(secret []byte) func(http.Handler) http.Handler {
	keyFunc := func(*jwt.Token) (any, error) { return secret, nil }

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || strings.TrimSpace(raw) == "" {
				httpkit.Message(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			var claims Claims

			_, err := jwt.ParseWithClaims(strings.TrimSpace(raw), &claims, keyFunc,
				jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
				jwt.WithExpirationRequired(),
			)
			if err != nil {
				httpkit.Message(w, http.StatusUnauthorized, "invalid token")
				return
			}

			actor, err := claims.actor()
			if err != nil {
				httpkit.Message(w, http.StatusUnauthorized, "invalid token claims")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

func (c *Claims) actor() (Actor, error) {
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return Actor{}, err
	}

	site, err := uuid.Parse(c.SiteID)
	if err != nil {
		return Actor{}, err
	}

	return Actor{ID: id, SiteID: site, Capabilities: estimate.NewCapabilities(c.Caps...)}, nil
}

// EstimateActor converts the caller to the estimate service's actor.
func (a Actor) EstimateActor() estimate.Actor {
	return estimate.Actor{SiteID: a.SiteID, ID: a.ID, Capabilities: a.Capabilities}
}
