package auth

import (
	"strings"

	"github.com/Abraxas-365/rentify/pkg/errx"
	"github.com/Abraxas-365/rentify/pkg/kernel"
	"github.com/gofiber/fiber/v2"
)

// TokenMiddleware authenticates fiber requests with bearer tokens.
type TokenMiddleware struct {
	tokenService TokenService
	audit        AuditService
}

// NewAuthMiddleware builds the middleware. audit may be nil.
func NewAuthMiddleware(tokenService TokenService, audit AuditService) *TokenMiddleware {
	return &TokenMiddleware{tokenService: tokenService, audit: audit}
}

func reject(c *fiber.Ctx, err *errx.Error) error {
	return c.Status(err.HTTPStatus).JSON(err.ToHTTPResponse())
}

// bearerToken reads "Authorization: Bearer <token>", falling back to
// the access_token cookie.
func bearerToken(c *fiber.Ctx) string {
	if header := c.Get(fiber.HeaderAuthorization); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if ok && strings.EqualFold(scheme, "Bearer") && token != "" {
			return token
		}
	}
	return c.Cookies("access_token")
}

// Authenticate validates the token and stores the caller in Locals
// under kernel.AuthContextKey.
func (am *TokenMiddleware) Authenticate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c)
		if token == "" {
			return reject(c, ErrUnauthorized())
		}

		claims, err := am.tokenService.ValidateAccessToken(token)
		if err != nil {
			if e, ok := errx.As(err); ok {
				return reject(c, e)
			}
			return reject(c, ErrInvalidToken())
		}

		c.Locals(kernel.AuthContextKey, claims.AuthContext())
		return c.Next()
	}
}

// RequireAdmin allows callers holding "*" or "admin:*".
func (am *TokenMiddleware) RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authContext, ok := FromContext(c)
		if !ok {
			return reject(c, ErrUnauthorized())
		}
		if !authContext.IsAdmin() {
			if am.audit != nil {
				am.audit.LogAccessDenied(c.UserContext(), authContext, c.Path(), c.IP())
			}
			return reject(c, ErrAccessDenied())
		}
		return c.Next()
	}
}

// FromContext returns the caller stored by Authenticate.
func FromContext(c *fiber.Ctx) (*kernel.AuthContext, bool) {
	authContext, ok := c.Locals(kernel.AuthContextKey).(*kernel.AuthContext)
	return authContext, ok && authContext.IsValid()
}
