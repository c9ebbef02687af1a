// Package testutil provides test helpers shared across packages: in-memory
// storage and a small builder for transactional datasets.
package testutil

import (
	"context"
	"testing"

	"github.com/Tydik42/desbordante-core/internal/model"
	"github.com/Tydik42/desbordante-core/internal/storage"
)

// TestDB wraps an in-memory storage for a single test.
type TestDB struct {
	Storage *storage.SQLiteStorage
	t       *testing.T
}

// SetupTestDB creates a migrated in-memory database and seeds it with the
// given datasets. The database is closed when the test ends.
//
// Example:
//
//	db := testutil.SetupTestDB(t, map[string]*model.TransactionalData{
//		"basket": testutil.NewDatasetBuilder().
//			Transaction(1, "bread", "milk").
//			Build(),
//	})
func SetupTestDB(t *testing.T, datasets map[string]*model.TransactionalData) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	for name, data := range datasets {
		if err := store.SaveDataset(ctx, name, data); err != nil {
			_ = store.Close()
			t.Fatalf("failed to seed dataset %q: %v", name, err)
		}
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return &TestDB{Storage: store, t: t}
}

// MustLoad returns the named dataset or fails the test.
func (db *TestDB) MustLoad(name string) *model.TransactionalData {
	db.t.Helper()
	data, err := db.Storage.LoadDataset(context.Background(), name)
	if err != nil {
		db.t.Fatalf("failed to load dataset %q: %v", name, err)
	}
	return data
}

// DatasetBuilder assembles transactional data from item names.
type DatasetBuilder struct {
	itemIDs  map[string]int
	universe []string
	txns     []model.Transaction
}

// NewDatasetBuilder returns an empty builder.
func NewDatasetBuilder() *DatasetBuilder {
	return &DatasetBuilder{itemIDs: make(map[string]int)}
}

// Transaction adds a transaction holding the named items. Repeated names are kept.
func (b *DatasetBuilder) Transaction(id int, items ...string) *DatasetBuilder {
	txn := model.Transaction{ID: id}
	for _, name := range items {
		itemID, ok := b.itemIDs[name]
		if !ok {
			itemID = len(b.universe)
			b.universe = append(b.universe, name)
			b.itemIDs[name] = itemID
		}
		txn.Items = append(txn.Items, itemID)
	}
	b.txns = append(b.txns, txn)
	return b
}

// Build returns the assembled dataset.
func (b *DatasetBuilder) Build() *model.TransactionalData {
	return model.NewTransactionalData(b.universe, b.txns)
}
