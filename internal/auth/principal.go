package auth

import (
	"context"
	"errors"
	"strings"
)

// DefaultRolesClaim is the Keycloak location of realm roles.
const DefaultRolesClaim = "realm_access.roles"

var (
	ErrMissingToken = errors.New("auth: bearer token required")
	ErrInvalidToken = errors.New("auth: invalid token")
	ErrExpiredToken = errors.New("auth: token expired")
)

// Principal is the authenticated caller.
type Principal struct {
	Subject string
	Roles   []string
}

// HasRole reports whether the principal carries role, compared case-insensitively.
func (p Principal) HasRole(role string) bool {
	wanted := strings.ToUpper(strings.TrimSpace(role))
	if wanted == "" {
		return false
	}
	for _, granted := range p.Roles {
		if granted == wanted {
			return true
		}
	}
	return false
}

// Verifier turns a raw bearer token into a Principal.
type Verifier interface {
	Verify(ctx context.Context, rawToken string) (Principal, error)
}

func claimPath(rolesClaim string) []string {
	path := strings.TrimSpace(rolesClaim)
	if path == "" {
		path = DefaultRolesClaim
	}
	return strings.Split(path, ".")
}

// extractRoles reads roles at the dotted claim path. Arrays of strings and
// space or comma separated strings are accepted; roles come back uppercased.
func extractRoles(claims map[string]any, rolesClaim string) []string {
	var current any = claims
	for _, segment := range claimPath(rolesClaim) {
		object, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current, ok = object[segment]
		if !ok {
			return nil
		}
	}

	var raw []string
	switch value := current.(type) {
	case string:
		raw = strings.FieldsFunc(value, func(r rune) bool {
			return r == ',' || r == ' '
		})
	case []string:
		raw = value
	case []any:
		for _, item := range value {
			if role, ok := item.(string); ok {
				raw = append(raw, role)
			}
		}
	}

	seen := make(map[string]struct{}, len(raw))
	roles := make([]string, 0, len(raw))
	for _, role := range raw {
		normalized := strings.ToUpper(strings.TrimSpace(role))
		if normalized == "" {
			continue
		}
		if _, duplicate := seen[normalized]; duplicate {
			continue
		}
		seen[normalized] = struct{}{}
		roles = append(roles, normalized)
	}
	return roles
}

// nestRoles places roles at the dotted claim path inside claims.
func nestRoles(claims map[string]any, rolesClaim string, roles []string) {
	path := claimPath(rolesClaim)
	current := claims
	for _, segment := range path[:len(path)-1] {
		next, ok := current[segment].(map[string]any)
		if !ok {
			next = make(map[string]any)
			current[segment] = next
		}
		current = next
	}
	values := make([]string, 0, len(roles))
	for _, role := range roles {
		if trimmed := strings.TrimSpace(role); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	current[path[len(path)-1]] = values
}
