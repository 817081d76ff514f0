package kernel

import "strings"

// AuthContext is the authenticated caller attached to each request.
type AuthContext struct {
	UserID UserID   `json:"user_id"`
	Email  string   `json:"email"`
	Name   string   `json:"name"`
	Scopes []string `json:"scopes"`
}

// IsValid reports whether the context identifies a user.
func (ac *AuthContext) IsValid() bool {
	return ac != nil && !ac.UserID.IsEmpty()
}

// HasScope matches exact scopes, "*" and "prefix:*" wildcards.
func (ac *AuthContext) HasScope(scope string) bool {
	for _, s := range ac.Scopes {
		if s == scope || s == "*" {
			return true
		}
		if prefix, ok := strings.CutSuffix(s, ":*"); ok && strings.HasPrefix(scope, prefix+":") {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the caller holds the admin scope family.
func (ac *AuthContext) IsAdmin() bool {
	return ac.HasScope("*") || ac.HasScope("admin:*")
}

type ContextKey string

const (
	// AuthContextKey is the fiber Locals / context key for *AuthContext.
	AuthContextKey ContextKey = "auth"
	RequestIDKey   ContextKey = "request_id"
)
