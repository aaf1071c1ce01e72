// Package testutil provides shared fixtures for flavyr tests: seeded
// in-memory databases and transaction builders.
package testutil

import (
	"context"
	"testing"

	"github.com/Veraticus/flavyr/internal/model"
	"github.com/Veraticus/flavyr/internal/storage"
)

// CasualAmerican is a segment present in the default seed catalogue.
var CasualAmerican = model.Segment{CuisineType: "American", DiningModel: "Casual Dining"}

// TestDB wraps an in-memory store and the seed it was loaded with.
type TestDB struct {
	Storage *storage.SQLiteStorage
	t       *testing.T
	Seed    storage.SeedData
}

// SetupTestDB creates a migrated in-memory database loaded with seed.
// Cleanup is registered on t.
//
// Example:
//
//	db := testutil.SetupTestDB(t, storage.SeedData{Deals: deals})
func SetupTestDB(t *testing.T, seed storage.SeedData) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	if _, err := store.Seed(ctx, seed); err != nil {
		t.Fatalf("failed to seed test database: %v", err)
	}

	return &TestDB{Storage: store, Seed: seed, t: t}
}

// SetupSeededDB creates a test database loaded with the default catalogue.
func SetupSeededDB(t *testing.T) *TestDB {
	t.Helper()
	seed, err := storage.DefaultSeed()
	if err != nil {
		t.Fatalf("failed to load default seed: %v", err)
	}
	return SetupTestDB(t, seed)
}

// Benchmark returns the stored aggregate benchmark for seg, failing the
// test when it is absent.
func (db *TestDB) Benchmark(seg model.Segment) model.MetricRecord {
	db.t.Helper()
	record, err := db.Storage.GetBenchmark(context.Background(), seg)
	if err != nil {
		db.t.Fatalf("failed to load benchmark: %v", err)
	}
	if record == nil {
		db.t.Fatalf("no benchmark seeded for %s", seg)
	}
	return *record
}

// Actual builds an actual record for seg by scaling every benchmark value.
func (db *TestDB) Actual(seg model.Segment, scale float64) model.MetricRecord {
	db.t.Helper()
	bench := db.Benchmark(seg)
	actual := model.NewMetricRecord(model.RecordActual, seg)
	for k, v := range bench.Values {
		actual.Set(k, v*scale)
	}
	return actual
}
