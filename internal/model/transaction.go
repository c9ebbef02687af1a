// Package model defines the core data structures for association rule verification.
package model

import (
	"github.com/Tydik42/desbordante-core/internal/tidlist"
)

// Transaction is one row of transactional data: an id and the multiset of item
// ids it contains. Duplicate item ids are meaningful.
type Transaction struct {
	Items []int
	ID    int
}

// TransactionalData is an immutable set of transactions over an item universe.
// Item ids index into the universe. Iteration order of Transactions is the
// order in which transactions were first seen while loading.
type TransactionalData struct {
	byID         map[int]int
	itemIndex    map[string]int
	transactions []Transaction
	universe     []string
}

// NewTransactionalData wraps transactions and the item universe they reference.
// The slices are owned by the returned value afterwards.
func NewTransactionalData(universe []string, transactions []Transaction) *TransactionalData {
	d := &TransactionalData{
		byID:         make(map[int]int, len(transactions)),
		itemIndex:    make(map[string]int, len(universe)),
		transactions: transactions,
		universe:     universe,
	}
	for i, txn := range transactions {
		d.byID[txn.ID] = i
	}
	for i, name := range universe {
		if _, ok := d.itemIndex[name]; !ok {
			d.itemIndex[name] = i
		}
	}
	return d
}

// Transactions returns all transactions in load order. Callers must not modify them.
func (d *TransactionalData) Transactions() []Transaction {
	return d.transactions
}

// Transaction returns the transaction with the given id.
func (d *TransactionalData) Transaction(id int) (Transaction, bool) {
	i, ok := d.byID[id]
	if !ok {
		return Transaction{}, false
	}
	return d.transactions[i], true
}

// ItemUniverse returns item names indexed by item id.
func (d *TransactionalData) ItemUniverse() []string {
	return d.universe
}

// NumTransactions returns the number of transactions.
func (d *TransactionalData) NumTransactions() int {
	return len(d.transactions)
}

// ItemID resolves an item name to its id by exact match.
func (d *TransactionalData) ItemID(name string) (int, bool) {
	id, ok := d.itemIndex[name]
	return id, ok
}

// ItemTIDList returns the ids of the transactions containing item, in load order.
func (d *TransactionalData) ItemTIDList(item int) tidlist.Simple {
	var tids tidlist.Simple
	for _, txn := range d.transactions {
		for _, it := range txn.Items {
			if it == item {
				tids = append(tids, txn.ID)
				break
			}
		}
	}
	return tids
}

// DatasetInfo describes a dataset held in storage.
type DatasetInfo struct {
	Name            string `json:"name"`
	NumTransactions int    `json:"num_transactions"`
	NumItems        int    `json:"num_items"`
}
