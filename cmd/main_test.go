package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Abraxas-365/rentify/pkg/jobx"
	"github.com/Abraxas-365/rentify/pkg/logx"
	"github.com/gofiber/fiber/v2"
)

func init() {
	logx.SetLevel(logx.LevelOff)
}

func TestGlobalErrorHandler(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: globalErrorHandler(false)})
	app.Get("/coded", func(*fiber.Ctx) error { return jobx.NotFound("j-1") })
	app.Get("/fiber", func(*fiber.Ctx) error { return fiber.ErrTeapot })
	app.Get("/plain", func(*fiber.Ctx) error { return errors.New("boom") })
	app.Use(notFoundHandler)

	tests := []struct {
		path     string
		wantCode int
		wantBody string
	}{
		{"/coded", http.StatusNotFound, jobx.ErrJobNotFound.Code},
		{"/fiber", http.StatusTeapot, "FIBER_ERROR"},
		{"/plain", http.StatusInternalServerError, "INTERNAL_ERROR"},
		{"/nowhere", http.StatusNotFound, "NOT_FOUND"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, tt.path, nil))
			if err != nil {
				t.Fatalf("request: %v", err)
			}
			if resp.StatusCode != tt.wantCode {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.wantCode)
			}
			raw, _ := io.ReadAll(resp.Body)
			var body map[string]any
			if err := json.Unmarshal(raw, &body); err != nil {
				t.Fatalf("decode %s: %v", raw, err)
			}
			if body["code"] != tt.wantBody {
				t.Fatalf("code = %v, want %s", body["code"], tt.wantBody)
			}
		})
	}
}
