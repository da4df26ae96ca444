package manager

import (
	"strings"

	"github.com/mcp-gateway/toolkit/internal/gwerrors"
)

// IdentityKind distinguishes an authenticated caller from an anonymous one
// (spec §3).
type IdentityKind string

const (
	IdentityBearer    IdentityKind = "bearer"
	IdentityAnonymous IdentityKind = "anonymous"
)

// Identity is derived from a request's Authorization header.
type Identity struct {
	Kind IdentityKind
	Key  string
}

// CacheKey is the manager's map key, "{kind}:{key}" (spec §4.6 step 2).
func (i Identity) CacheKey() string {
	return string(i.Kind) + ":" + i.Key
}

// AuthMode gates whether an anonymous identity is acceptable.
type AuthMode string

const (
	AuthOptional AuthMode = "optional"
	AuthRequired AuthMode = "required"
)

// ResolveIdentity derives an Identity from the first Authorization header
// value, per spec §3: "Bearer <token>" -> {bearer, token}; absent ->
// {anonymous, ""}; malformed -> AUTH_INVALID.
func ResolveIdentity(authorizationHeader string) (Identity, error) {
	if authorizationHeader == "" {
		return Identity{Kind: IdentityAnonymous}, nil
	}

	const prefix = "Bearer "
	if !strings.HasPrefix(authorizationHeader, prefix) {
		return Identity{}, gwerrors.New(gwerrors.KindAuthInvalid, "manager", "ResolveIdentity",
			"Authorization header is not a Bearer token", nil)
	}
	token := strings.TrimSpace(strings.TrimPrefix(authorizationHeader, prefix))
	if token == "" {
		return Identity{}, gwerrors.New(gwerrors.KindAuthInvalid, "manager", "ResolveIdentity",
			"Bearer token is empty", nil)
	}
	return Identity{Kind: IdentityBearer, Key: token}, nil
}

// enforce applies the manager's auth.mode gate to identity (spec §4.6 step
// 1): required mode rejects anonymous callers.
func enforce(mode AuthMode, identity Identity) error {
	if mode == AuthRequired && identity.Kind == IdentityAnonymous {
		return gwerrors.New(gwerrors.KindAuthRequired, "manager", "Get",
			"this deployment requires an Authorization header", nil)
	}
	return nil
}
