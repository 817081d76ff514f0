package jobxmemory_test

import (
	"context"
	"testing"

	"github.com/Abraxas-365/rentify/pkg/jobx"
	"github.com/Abraxas-365/rentify/pkg/jobx/jobxmemory"
	"github.com/Abraxas-365/rentify/pkg/jobx/jobxtest"
)

func TestStoreContract(t *testing.T) {
	jobxtest.RunStoreSuite(t, func(*testing.T) jobx.Store { return jobxmemory.New() })
}

func TestStore_ReturnsCopies(t *testing.T) {
	s := jobxmemory.New()
	job := jobxtest.NewJob("a", jobxtest.Epoch)
	if err := s.Insert(context.Background(), job); err != nil {
		t.Fatal(err)
	}
	job.Payload["to"] = "mutated@example.com"

	got, err := s.Get(context.Background(), job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Payload.String("to") != "a@example.com" {
		t.Fatalf("stored payload mutated through caller copy: %v", got.Payload)
	}
	got.Status = jobx.StatusSucceeded

	again, _ := s.Get(context.Background(), job.ID)
	if again.Status != jobx.StatusPending {
		t.Fatalf("stored status mutated through returned copy: %s", again.Status)
	}
}
