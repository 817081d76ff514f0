package jobx_test

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/Abraxas-365/rentify/pkg/jobx"
)

func noop(context.Context, *jobx.Job) error { return nil }

func TestRegistry_RegisterAndResolve(t *testing.T) {
	r := jobx.NewRegistry()
	if err := r.Register(jobx.TypeSendEmail, noop); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, ok := r.Resolve(jobx.TypeSendEmail); !ok {
		t.Fatal("registered handler not resolved")
	}
	if _, ok := r.Resolve("missing"); ok {
		t.Fatal("unregistered type resolved")
	}
}

func TestRegistry_RejectsDuplicatesAndBlanks(t *testing.T) {
	r := jobx.NewRegistry()
	r.MustRegister("a", noop)

	if err := r.Register("a", noop); !errors.Is(err, jobx.ErrDuplicateHandler) {
		t.Errorf("duplicate err = %v", err)
	}
	if err := r.Register("  ", noop); !errors.Is(err, jobx.ErrInvalidJobSpec) {
		t.Errorf("blank type err = %v", err)
	}
	if err := r.Register("b", nil); !errors.Is(err, jobx.ErrInvalidJobSpec) {
		t.Errorf("nil handler err = %v", err)
	}
}

func TestRegistry_TypesSorted(t *testing.T) {
	r := jobx.NewRegistry()
	r.MustRegister(jobx.TypeReviewRequest, noop)
	r.MustRegister(jobx.TypeCleanupExpiredTokens, noop)
	r.MustRegister(jobx.TypeSendEmail, noop)

	want := []string{jobx.TypeCleanupExpiredTokens, jobx.TypeReviewRequest, jobx.TypeSendEmail}
	if got := r.Types(); !slices.Equal(got, want) {
		t.Fatalf("Types() = %v, want %v", got, want)
	}
}

func TestDecode(t *testing.T) {
	type reminder struct {
		RentalID string `json:"rentalId"`
	}

	got, err := jobx.Decode[reminder](&jobx.Job{Payload: jobx.Payload{"rentalId": "r-1"}})
	if err != nil || got.RentalID != "r-1" {
		t.Fatalf("Decode = %+v, %v", got, err)
	}

	_, err = jobx.Decode[reminder](&jobx.Job{Type: "x", Payload: jobx.Payload{"rentalId": 42}})
	if err == nil || !jobx.IsPermanent(err) {
		t.Fatalf("mismatched payload err = %v, want permanent", err)
	}
}
