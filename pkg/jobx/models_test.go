package jobx_test

import (
	"errors"
	"testing"

	"github.com/Abraxas-365/rentify/pkg/jobx"
)

func TestStatus_Transitions(t *testing.T) {
	tests := []struct {
		from, to jobx.Status
		ok       bool
	}{
		{jobx.StatusPending, jobx.StatusRunning, true},
		{jobx.StatusPending, jobx.StatusCancelled, true},
		{jobx.StatusRunning, jobx.StatusSucceeded, true},
		{jobx.StatusRunning, jobx.StatusPending, true},
		{jobx.StatusRunning, jobx.StatusFailed, true},
		{jobx.StatusRunning, jobx.StatusCancelled, false},
		{jobx.StatusPending, jobx.StatusSucceeded, false},
		{jobx.StatusSucceeded, jobx.StatusPending, false},
		{jobx.StatusFailed, jobx.StatusPending, false},
		{jobx.StatusCancelled, jobx.StatusPending, false},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.ok {
			t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.ok)
		}
	}
}

func TestStatus_Terminal(t *testing.T) {
	for _, s := range jobx.Statuses {
		want := s == jobx.StatusSucceeded || s == jobx.StatusFailed || s == jobx.StatusCancelled
		if s.IsTerminal() != want {
			t.Errorf("%s.IsTerminal() = %v", s, !want)
		}
	}
}

func TestParseStatus(t *testing.T) {
	if s, err := jobx.ParseStatus(""); err != nil || s != "" {
		t.Fatalf("empty: %q %v", s, err)
	}
	if s, err := jobx.ParseStatus("failed"); err != nil || s != jobx.StatusFailed {
		t.Fatalf("failed: %q %v", s, err)
	}
	if _, err := jobx.ParseStatus("done"); !errors.Is(err, jobx.ErrInvalidJobSpec) {
		t.Fatalf("unknown status err = %v", err)
	}
}

func TestPayload_Scan(t *testing.T) {
	var p jobx.Payload
	if err := p.Scan([]byte(`{"rentalId":"r-9","n":2}`)); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if p.String("rentalId") != "r-9" || p["n"] != float64(2) {
		t.Fatalf("payload = %v", p)
	}
	if err := p.Scan(nil); err != nil || len(p) != 0 {
		t.Fatalf("Scan(nil) = %v, %v", p, err)
	}
	if err := p.Scan(42); err == nil {
		t.Fatal("Scan(int) should fail")
	}
}

func TestJob_CloneIsDeep(t *testing.T) {
	job := &jobx.Job{Payload: jobx.Payload{"args": map[string]any{"to": "a@example.com"}}}
	c := job.Clone()
	c.Payload["args"].(map[string]any)["to"] = "b@example.com"

	if job.Payload["args"].(map[string]any)["to"] != "a@example.com" {
		t.Fatal("clone shares nested payload maps")
	}
}
