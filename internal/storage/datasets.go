package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Tydik42/desbordante-core/internal/common"
	"github.com/Tydik42/desbordante-core/internal/model"
)

// noItem marks a stored transaction that holds no items.
const noItem = -1

// SaveDataset stores data under name, replacing any dataset with the same name.
func (s *SQLiteStorage) SaveDataset(ctx context.Context, name string, data *model.TransactionalData) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(name, "name"); err != nil {
		return err
	}
	if err := validateDataset(data); err != nil {
		return err
	}

	tx, err := s.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := deleteDatasetTx(ctx, tx, name); err != nil && !errors.Is(err, common.ErrNotFound) {
		return err
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO datasets (name, num_transactions, num_items) VALUES (?, ?, ?)`,
		name, data.NumTransactions(), len(data.ItemUniverse()))
	if err != nil {
		return fmt.Errorf("failed to insert dataset: %w", err)
	}
	datasetID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get dataset id: %w", err)
	}

	itemStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO dataset_items (dataset_id, item_id, name) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = itemStmt.Close() }()

	for id, itemName := range data.ItemUniverse() {
		if _, err := itemStmt.ExecContext(ctx, datasetID, id, itemName); err != nil {
			return fmt.Errorf("failed to insert item %q: %w", itemName, err)
		}
	}

	txnStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO dataset_transactions (dataset_id, position, tid, item_id) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = txnStmt.Close() }()

	for pos, txn := range data.Transactions() {
		if len(txn.Items) == 0 {
			if _, err := txnStmt.ExecContext(ctx, datasetID, pos, txn.ID, noItem); err != nil {
				return fmt.Errorf("failed to insert transaction %d: %w", txn.ID, err)
			}
			continue
		}
		for _, item := range txn.Items {
			if _, err := txnStmt.ExecContext(ctx, datasetID, pos, txn.ID, item); err != nil {
				return fmt.Errorf("failed to insert transaction %d: %w", txn.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit dataset: %w", err)
	}

	slog.Info("Saved dataset",
		"name", name,
		"transactions", data.NumTransactions(),
		"items", len(data.ItemUniverse()))
	return nil
}

// LoadDataset reads the dataset stored under name. Transactions and items come
// back in the order they were saved.
func (s *SQLiteStorage) LoadDataset(ctx context.Context, name string) (*model.TransactionalData, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}

	var datasetID int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM datasets WHERE name = ?`, name).Scan(&datasetID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: dataset %q", common.ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query dataset: %w", err)
	}

	universe, err := s.loadItems(ctx, datasetID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT position, tid, item_id FROM dataset_transactions
		WHERE dataset_id = ?
		ORDER BY position, rowid`, datasetID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var txns []model.Transaction
	lastPos := -1
	for rows.Next() {
		var pos, tid, item int
		if err := rows.Scan(&pos, &tid, &item); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		if pos != lastPos {
			txns = append(txns, model.Transaction{ID: tid})
			lastPos = pos
		}
		if item != noItem {
			last := &txns[len(txns)-1]
			last.Items = append(last.Items, item)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}

	return model.NewTransactionalData(universe, txns), nil
}

func (s *SQLiteStorage) loadItems(ctx context.Context, datasetID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM dataset_items WHERE dataset_id = ? ORDER BY item_id`, datasetID)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var universe []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		universe = append(universe, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate items: %w", err)
	}
	return universe, nil
}

// ListDatasets returns every stored dataset ordered by name.
func (s *SQLiteStorage) ListDatasets(ctx context.Context) ([]model.DatasetInfo, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT name, num_transactions, num_items FROM datasets ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query datasets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var infos []model.DatasetInfo
	for rows.Next() {
		var info model.DatasetInfo
		if err := rows.Scan(&info.Name, &info.NumTransactions, &info.NumItems); err != nil {
			return nil, fmt.Errorf("failed to scan dataset: %w", err)
		}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate datasets: %w", err)
	}
	return infos, nil
}

// DeleteDataset removes the dataset stored under name.
func (s *SQLiteStorage) DeleteDataset(ctx context.Context, name string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(name, "name"); err != nil {
		return err
	}

	tx, err := s.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := deleteDatasetTx(ctx, tx, name); err != nil {
		return err
	}
	return tx.Commit()
}

func deleteDatasetTx(ctx context.Context, tx *sql.Tx, name string) error {
	var datasetID int64
	err := tx.QueryRowContext(ctx, `SELECT id FROM datasets WHERE name = ?`, name).Scan(&datasetID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: dataset %q", common.ErrNotFound, name)
	}
	if err != nil {
		return fmt.Errorf("failed to query dataset: %w", err)
	}

	queries := []string{
		`DELETE FROM dataset_transactions WHERE dataset_id = ?`,
		`DELETE FROM dataset_items WHERE dataset_id = ?`,
		`DELETE FROM datasets WHERE id = ?`,
	}
	for _, query := range queries {
		if _, err := tx.ExecContext(ctx, query, datasetID); err != nil {
			return fmt.Errorf("failed to delete dataset %q: %w", name, err)
		}
	}
	return nil
}
