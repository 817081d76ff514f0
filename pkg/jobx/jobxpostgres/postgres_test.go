package jobxpostgres_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/Abraxas-365/rentify/pkg/jobx"
	"github.com/Abraxas-365/rentify/pkg/jobx/jobxpostgres"
	"github.com/Abraxas-365/rentify/pkg/jobx/jobxtest"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

func openDB(t *testing.T) *sqlx.DB {
	t.Helper()
	dsn := os.Getenv("JOBX_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("JOBX_TEST_POSTGRES_DSN not set")
	}
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := jobxpostgres.Migrate(context.Background(), db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return db
}

func TestStoreContract(t *testing.T) {
	db := openDB(t)
	jobxtest.RunStoreSuite(t, func(t *testing.T) jobx.Store {
		if _, err := db.Exec(`TRUNCATE jobx_jobs`); err != nil {
			t.Fatalf("truncate: %v", err)
		}
		return jobxpostgres.New(db)
	})
}

func TestMigrate_IsIdempotent(t *testing.T) {
	db := openDB(t)
	if err := jobxpostgres.Migrate(context.Background(), db); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
}

func TestInsert_DuplicateID(t *testing.T) {
	db := openDB(t)
	if _, err := db.Exec(`TRUNCATE jobx_jobs`); err != nil {
		t.Fatal(err)
	}
	s := jobxpostgres.New(db)
	job := jobxtest.NewJob("a", jobxtest.Epoch)
	if err := s.Insert(context.Background(), job); err != nil {
		t.Fatal(err)
	}
	if err := s.Insert(context.Background(), job); !errors.Is(err, jobxpostgres.ErrDuplicate) {
		t.Fatalf("err = %v, want ErrDuplicate", err)
	}
}
