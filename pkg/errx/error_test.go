package errx_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/Abraxas-365/rentify/pkg/errx"
)

var testErrors = errx.NewRegistry("TEST")

var (
	errMissing  = testErrors.Register("MISSING", errx.TypeNotFound, 404, "Thing not found")
	errConflict = testErrors.Register("CONFLICT", errx.TypeConflict, 409, "Thing conflicts")
)

func TestError_IsMatchesRegisteredCode(t *testing.T) {
	err := testErrors.New(errMissing).WithDetail("id", "42")

	if !errors.Is(err, errMissing) {
		t.Fatal("expected errors.Is to match the registered code")
	}
	if errors.Is(err, errConflict) {
		t.Fatal("did not expect errors.Is to match a different code")
	}
}

func TestError_IsThroughWrapping(t *testing.T) {
	inner := testErrors.NewWithCause(errConflict, fmt.Errorf("row changed"))
	wrapped := fmt.Errorf("saving thing: %w", inner)

	if !errors.Is(wrapped, errConflict) {
		t.Fatal("expected match through fmt.Errorf wrapping")
	}
	if got := errx.HTTPStatus(wrapped); got != 409 {
		t.Fatalf("HTTPStatus = %d, want 409", got)
	}
}

func TestHTTPStatus_DefaultsTo500(t *testing.T) {
	if got := errx.HTTPStatus(errors.New("plain")); got != 500 {
		t.Fatalf("HTTPStatus = %d, want 500", got)
	}
}

func TestWrap_PreservesCode(t *testing.T) {
	base := testErrors.New(errMissing)
	w := errx.Wrap(base, "loading failed", errx.TypeInternal)

	if w.Code != base.Code {
		t.Fatalf("Code = %q, want %q", w.Code, base.Code)
	}
	if w.HTTPStatus != 404 {
		t.Fatalf("HTTPStatus = %d, want 404", w.HTTPStatus)
	}
	if errx.Wrap(nil, "x", errx.TypeInternal) != nil {
		t.Fatal("Wrap(nil) should return nil")
	}
}

func TestRegistry_CodeIsPrefixed(t *testing.T) {
	if errMissing.Code != "TEST_MISSING" {
		t.Fatalf("Code = %q, want TEST_MISSING", errMissing.Code)
	}
	got, ok := testErrors.Get("MISSING")
	if !ok || got != errMissing {
		t.Fatal("Get did not return the registered code")
	}
}
