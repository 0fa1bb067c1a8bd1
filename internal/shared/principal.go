package shared

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Principal identifies the organization and user behind a request. Every
// repository and aggregation call requires one; it is never inferred from
// payload data.
type Principal struct {
	OrganizationID int64 `json:"organization_id"`
	UserID         int64 `json:"user_id"`
}

// Valid reports whether both ids are present.
func (p Principal) Valid() bool {
	return p.OrganizationID > 0 && p.UserID > 0
}

// Resolver turns an inbound request into a Principal.
type Resolver interface {
	Resolve(ctx context.Context, r *http.Request) (Principal, error)
}

type principalContextKey struct{}

// ContextWithPrincipal stores the principal in context.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the principal from context.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(Principal)
	return p, ok && p.Valid()
}

// TokenResolver resolves bearer tokens against Redis. Tokens are opaque
// UUIDs issued by the auth layer; this engine only reads them.
type TokenResolver struct {
	client *redis.Client
	ttl    time.Duration
}

// NewTokenResolver constructs a TokenResolver.
func NewTokenResolver(client *redis.Client, ttl time.Duration) *TokenResolver {
	return &TokenResolver{client: client, ttl: ttl}
}

func tokenKey(token string) string {
	return "auth:token:" + token
}

// Resolve implements Resolver.
func (t *TokenResolver) Resolve(ctx context.Context, r *http.Request) (Principal, error) {
	if t == nil || t.client == nil {
		return Principal{}, ErrUnauthorized
	}
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return Principal{}, ErrUnauthorized
	}
	if _, err := uuid.Parse(token); err != nil {
		return Principal{}, ErrUnauthorized
	}
	payload, err := t.client.Get(ctx, tokenKey(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Principal{}, ErrUnauthorized
	}
	if err != nil {
		return Principal{}, err
	}
	var p Principal
	if err := json.Unmarshal(payload, &p); err != nil {
		return Principal{}, ErrUnauthorized
	}
	if !p.Valid() {
		return Principal{}, ErrUnauthorized
	}
	return p, nil
}

// Issue stores a new token for the principal and returns it. Used by the
// seed tooling and tests; the production auth service owns token issuance.
func (t *TokenResolver) Issue(ctx context.Context, p Principal) (string, error) {
	if !p.Valid() {
		return "", ErrUnauthorized
	}
	token := uuid.NewString()
	payload, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	if err := t.client.Set(ctx, tokenKey(token), payload, t.ttl).Err(); err != nil {
		return "", err
	}
	return token, nil
}
