package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Tydik42/desbordante-core/internal/common"
	"github.com/Tydik42/desbordante-core/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func itemNames(t *testing.T, data *model.TransactionalData, tid int) []string {
	t.Helper()
	txn, ok := data.Transaction(tid)
	require.True(t, ok, "transaction %d not found", tid)
	names := make([]string, 0, len(txn.Items))
	for _, id := range txn.Items {
		names = append(names, data.ItemUniverse()[id])
	}
	return names
}

func TestReadCSV(t *testing.T) {
	input := "tid,item\n1, bread\n1,milk\n\n2,eggs\n"

	table, err := ReadCSV(strings.NewReader(input), DefaultCSVOptions())
	require.NoError(t, err)

	assert.Equal(t, []string{"tid", "item"}, table.Header)
	assert.Equal(t, [][]string{{"1", "bread"}, {"1", "milk"}, {"2", "eggs"}}, table.Rows)
	assert.Equal(t, 2, table.NumColumns())
}

func TestReadCSV_SeparatorWithoutHeader(t *testing.T) {
	input := "bread;milk\neggs\n"

	table, err := ReadCSV(strings.NewReader(input), CSVOptions{Separator: ';'})
	require.NoError(t, err)

	assert.Nil(t, table.Header)
	assert.Equal(t, [][]string{{"bread", "milk"}, {"eggs"}}, table.Rows)
}

func TestReadCSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "basket.csv")
	require.NoError(t, os.WriteFile(path, []byte("tid,item\n5,tea\n"), 0o600))

	table, err := ReadCSVFile(path, DefaultCSVOptions())
	require.NoError(t, err)
	assert.Len(t, table.Rows, 1)

	_, err = ReadCSVFile(filepath.Join(t.TempDir(), "missing.csv"), DefaultCSVOptions())
	assert.Error(t, err)
}

func TestFromSingular(t *testing.T) {
	table := &Table{Rows: [][]string{
		{"2", "bread"},
		{"1", "milk"},
		{"2", "milk"},
		{"2", "milk"},
		{"1", ""},
	}}

	data, err := FromSingular(table, 0, 1, false)
	require.NoError(t, err)

	assert.Equal(t, 2, data.NumTransactions())
	assert.Equal(t, []string{"bread", "milk"}, data.ItemUniverse())
	assert.Equal(t, 2, data.Transactions()[0].ID, "first seen transaction comes first")
	assert.Equal(t, []string{"bread", "milk", "milk"}, itemNames(t, data, 2))
	assert.Equal(t, []string{"milk"}, itemNames(t, data, 1))
}

func TestFromSingular_EqualNulls(t *testing.T) {
	table := &Table{Rows: [][]string{
		{"1", ""},
		{"2", ""},
		{"2", "tea"},
	}}

	data, err := FromSingular(table, 0, 1, true)
	require.NoError(t, err)

	assert.Equal(t, []string{"", "tea"}, data.ItemUniverse())
	assert.Equal(t, []string{""}, itemNames(t, data, 1))
	assert.Equal(t, []string{"", "tea"}, itemNames(t, data, 2))
}

func TestFromSingular_Errors(t *testing.T) {
	tests := []struct {
		table   *Table
		wantErr error
		name    string
		tidCol  int
		itemCol int
	}{
		{
			name:    "non numeric tid",
			table:   &Table{Rows: [][]string{{"x", "bread"}}},
			itemCol: 1,
			wantErr: common.ErrInvalidTID,
		},
		{
			name:    "item column out of range",
			table:   &Table{Rows: [][]string{{"1", "bread"}}},
			itemCol: 4,
			wantErr: common.ErrColumnOutOfRange,
		},
		{
			name:    "negative tid column",
			table:   &Table{Rows: [][]string{{"1", "bread"}}},
			tidCol:  -1,
			itemCol: 1,
			wantErr: common.ErrColumnOutOfRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromSingular(tt.table, tt.tidCol, tt.itemCol, false)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestFromTabular(t *testing.T) {
	table := &Table{Rows: [][]string{
		{"bread", "milk", ""},
		{"eggs"},
		{"milk", "milk"},
	}}

	data, err := FromTabular(table, false, false)
	require.NoError(t, err)

	assert.Equal(t, 3, data.NumTransactions())
	assert.Equal(t, []string{"bread", "milk", "eggs"}, data.ItemUniverse())
	assert.Equal(t, []string{"bread", "milk"}, itemNames(t, data, 0))
	assert.Equal(t, []string{"milk", "milk"}, itemNames(t, data, 2))
}

func TestFromTabular_FirstColumnTID(t *testing.T) {
	table := &Table{Rows: [][]string{
		{"100", "bread", "milk"},
		{"200", "eggs"},
	}}

	data, err := FromTabular(table, true, false)
	require.NoError(t, err)

	assert.Equal(t, []string{"bread", "milk"}, itemNames(t, data, 100))
	assert.Equal(t, []string{"eggs"}, itemNames(t, data, 200))

	_, err = FromTabular(&Table{Rows: [][]string{{"abc", "bread"}}}, true, false)
	assert.ErrorIs(t, err, common.ErrInvalidTID)
}

func TestBuild(t *testing.T) {
	table := &Table{Rows: [][]string{{"1", "bread"}}}

	data, err := Build(table, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 1, data.NumTransactions())

	_, err = Build(table, Options{Format: "columnar"})
	assert.ErrorIs(t, err, common.ErrInvalidInputFormat)
}
