package dataset

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/Tydik42/desbordante-core/internal/common"
	"github.com/Tydik42/desbordante-core/internal/model"
)

// Options selects the table layout and how its cells map to transactions.
type Options struct {
	Format         model.InputFormat
	TIDColumn      int
	ItemColumn     int
	FirstColumnTID bool
	EqualNulls     bool
}

// DefaultOptions matches the defaults of the verify command.
func DefaultOptions() Options {
	return Options{
		Format:     model.InputSingular,
		TIDColumn:  0,
		ItemColumn: 1,
	}
}

// Build converts table into transactional data according to opts.
func Build(table *Table, opts Options) (*model.TransactionalData, error) {
	switch opts.Format {
	case model.InputSingular:
		return FromSingular(table, opts.TIDColumn, opts.ItemColumn, opts.EqualNulls)
	case model.InputTabular:
		return FromTabular(table, opts.FirstColumnTID, opts.EqualNulls)
	default:
		return nil, fmt.Errorf("%w: %q", common.ErrInvalidInputFormat, opts.Format)
	}
}

// builder accumulates transactions and assigns item ids in order of first appearance.
type builder struct {
	itemIDs    map[string]int
	txnIndex   map[int]int
	universe   []string
	txns       []model.Transaction
	equalNulls bool
}

func newBuilder(equalNulls bool) *builder {
	return &builder{
		itemIDs:    make(map[string]int),
		txnIndex:   make(map[int]int),
		equalNulls: equalNulls,
	}
}

// transaction returns the index of the transaction with the given id, creating it if needed.
func (b *builder) transaction(tid int) int {
	if i, ok := b.txnIndex[tid]; ok {
		return i
	}
	b.txns = append(b.txns, model.Transaction{ID: tid})
	i := len(b.txns) - 1
	b.txnIndex[tid] = i
	return i
}

// addItem records item in the transaction at index i. Empty cells are nulls:
// they are skipped unless nulls compare equal, in which case they share one item.
func (b *builder) addItem(i int, item string) {
	if item == "" && !b.equalNulls {
		return
	}
	id, ok := b.itemIDs[item]
	if !ok {
		id = len(b.universe)
		b.universe = append(b.universe, item)
		b.itemIDs[item] = id
	}
	b.txns[i].Items = append(b.txns[i].Items, id)
}

func (b *builder) build() *model.TransactionalData {
	return model.NewTransactionalData(b.universe, b.txns)
}

// FromSingular builds transactions from a table holding one (tid, item) pair per row.
func FromSingular(table *Table, tidColumn, itemColumn int, equalNulls bool) (*model.TransactionalData, error) {
	if err := checkColumn(table, tidColumn, "tid column"); err != nil {
		return nil, err
	}
	if err := checkColumn(table, itemColumn, "item column"); err != nil {
		return nil, err
	}

	b := newBuilder(equalNulls)
	for rowNum, row := range table.Rows {
		if tidColumn >= len(row) {
			return nil, fmt.Errorf("%w: row %d has no tid column", common.ErrColumnOutOfRange, rowNum)
		}
		tid, err := parseTID(row[tidColumn], rowNum)
		if err != nil {
			return nil, err
		}
		i := b.transaction(tid)
		item := ""
		if itemColumn < len(row) {
			item = row[itemColumn]
		}
		b.addItem(i, item)
	}

	data := b.build()
	slog.Debug("Built transactional data from singular table",
		"rows", len(table.Rows),
		"transactions", data.NumTransactions(),
		"items", len(data.ItemUniverse()))
	return data, nil
}

// FromTabular builds one transaction per row. When firstColumnTID is set the
// first cell is the transaction id, otherwise the row index is used.
func FromTabular(table *Table, firstColumnTID bool, equalNulls bool) (*model.TransactionalData, error) {
	b := newBuilder(equalNulls)
	for rowNum, row := range table.Rows {
		tid := rowNum
		cells := row
		if firstColumnTID {
			if len(row) == 0 {
				return nil, fmt.Errorf("%w: row %d has no tid column", common.ErrColumnOutOfRange, rowNum)
			}
			parsed, err := parseTID(row[0], rowNum)
			if err != nil {
				return nil, err
			}
			tid = parsed
			cells = row[1:]
		}

		i := b.transaction(tid)
		for _, cell := range cells {
			b.addItem(i, cell)
		}
	}

	data := b.build()
	slog.Debug("Built transactional data from tabular table",
		"rows", len(table.Rows),
		"transactions", data.NumTransactions(),
		"items", len(data.ItemUniverse()))
	return data, nil
}

func checkColumn(table *Table, column int, what string) error {
	if column < 0 || (len(table.Rows) > 0 && column >= table.NumColumns()) {
		return fmt.Errorf("%w: %s %d (table has %d columns)",
			common.ErrColumnOutOfRange, what, column, table.NumColumns())
	}
	return nil
}

func parseTID(raw string, rowNum int) (int, error) {
	tid, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: row %d: %q", common.ErrInvalidTID, rowNum, raw)
	}
	return tid, nil
}
