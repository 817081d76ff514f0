package ptrx_test

import (
	"testing"
	"time"

	"github.com/Abraxas-365/rentify/pkg/ptrx"
)

func TestOfCopies(t *testing.T) {
	v := time.Unix(10, 0)
	p := ptrx.Of(v)
	v = v.Add(time.Hour)
	if !p.Equal(time.Unix(10, 0)) {
		t.Fatalf("pointer should hold a copy, got %v", *p)
	}
}

func TestDeref(t *testing.T) {
	if got := ptrx.Deref[string](nil, "fallback"); got != "fallback" {
		t.Fatalf("Deref(nil) = %q", got)
	}
	if got := ptrx.Deref(ptrx.Of("set"), "fallback"); got != "set" {
		t.Fatalf("Deref(set) = %q", got)
	}
}
