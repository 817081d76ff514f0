package auth_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Abraxas-365/rentify/pkg/iam/auth"
	"github.com/Abraxas-365/rentify/pkg/kernel"
	"github.com/gofiber/fiber/v2"
)

const secret = "test-secret"

func token(t *testing.T, svc *auth.JWTService, scopes ...string) string {
	t.Helper()
	tok, err := svc.GenerateAccessToken(kernel.UserID("user-1"), map[string]any{
		"email":  "ana@example.com",
		"name":   "Ana",
		"scopes": scopes,
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	return tok
}

func TestJWTService_RoundTrip(t *testing.T) {
	svc := auth.NewJWTService(secret, time.Hour, "rentify")
	claims, err := svc.ValidateAccessToken(token(t, svc, "admin:*"))
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.UserID != "user-1" || claims.Email != "ana@example.com" || claims.Name != "Ana" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if !claims.AuthContext().IsAdmin() {
		t.Fatal("admin:* scope should grant admin")
	}
}

func TestJWTService_RejectsForeignSecretAndExpiry(t *testing.T) {
	svc := auth.NewJWTService(secret, time.Hour, "rentify")

	other := auth.NewJWTService("other-secret", time.Hour, "rentify")
	if _, err := svc.ValidateAccessToken(token(t, other)); !errors.Is(err, auth.CodeInvalidToken) {
		t.Fatalf("foreign secret: got %v", err)
	}

	expired := auth.NewJWTService(secret, -time.Minute, "rentify")
	if _, err := svc.ValidateAccessToken(token(t, expired)); !errors.Is(err, auth.CodeInvalidToken) {
		t.Fatalf("expired token: got %v", err)
	}

	otherIssuer := auth.NewJWTService(secret, time.Hour, "someone-else")
	if _, err := svc.ValidateAccessToken(token(t, otherIssuer)); !errors.Is(err, auth.CodeInvalidToken) {
		t.Fatalf("issuer mismatch: got %v", err)
	}
}

type recordingAudit struct {
	denied []string
}

func (r *recordingAudit) LogAdminAction(_ context.Context, _ *kernel.AuthContext, _, _, _ string) {}

func (r *recordingAudit) LogAccessDenied(_ context.Context, _ *kernel.AuthContext, path, _ string) {
	r.denied = append(r.denied, path)
}

func newAdminApp(svc *auth.JWTService, audit auth.AuditService) *fiber.App {
	mw := auth.NewAuthMiddleware(svc, audit)
	app := fiber.New()
	app.Get("/admin", mw.Authenticate(), mw.RequireAdmin(), func(c *fiber.Ctx) error {
		ac, _ := auth.FromContext(c)
		return c.SendString(ac.UserID.String())
	})
	return app
}

func TestMiddleware_RequireAdmin(t *testing.T) {
	svc := auth.NewJWTService(secret, time.Hour, "rentify")
	audit := &recordingAudit{}
	app := newAdminApp(svc, audit)

	tests := []struct {
		name   string
		header string
		cookie string
		want   int
	}{
		{"missing token", "", "", http.StatusUnauthorized},
		{"garbage token", "Bearer nope", "", http.StatusUnauthorized},
		{"non-admin", "Bearer " + token(t, svc, "rentals:read"), "", http.StatusForbidden},
		{"admin wildcard", "Bearer " + token(t, svc, "*"), "", http.StatusOK},
		{"admin cookie", "", token(t, svc, "admin:*"), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "access_token", Value: tt.cookie})
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("request: %v", err)
			}
			if resp.StatusCode != tt.want {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}

	if len(audit.denied) != 1 || audit.denied[0] != "/admin" {
		t.Fatalf("expected one audited denial, got %v", audit.denied)
	}
}
