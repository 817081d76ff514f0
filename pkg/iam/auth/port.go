package auth

import (
	"context"
	"time"

	"github.com/Abraxas-365/rentify/pkg/kernel"
)

// TokenClaims is the validated content of an access token.
type TokenClaims struct {
	UserID    kernel.UserID `json:"user_id"`
	Email     string        `json:"email"`
	Name      string        `json:"name"`
	Scopes    []string      `json:"scopes"`
	IssuedAt  time.Time     `json:"iat"`
	ExpiresAt time.Time     `json:"exp"`
}

// AuthContext converts validated claims into the request identity.
func (c *TokenClaims) AuthContext() *kernel.AuthContext {
	return &kernel.AuthContext{
		UserID: c.UserID,
		Email:  c.Email,
		Name:   c.Name,
		Scopes: c.Scopes,
	}
}

// TokenService issues and validates access tokens.
type TokenService interface {
	GenerateAccessToken(userID kernel.UserID, claims map[string]any) (string, error)
	ValidateAccessToken(token string) (*TokenClaims, error)
}

// AuditService records privileged operations performed by admins.
type AuditService interface {
	LogAdminAction(ctx context.Context, actor *kernel.AuthContext, action string, target string, ip string)
	LogAccessDenied(ctx context.Context, actor *kernel.AuthContext, path string, ip string)
}
