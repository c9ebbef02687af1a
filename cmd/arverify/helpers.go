package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Tydik42/desbordante-core/internal/common"
	"github.com/Tydik42/desbordante-core/internal/config"
	"github.com/Tydik42/desbordante-core/internal/dataset"
	"github.com/Tydik42/desbordante-core/internal/model"
	"github.com/Tydik42/desbordante-core/internal/storage"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var errRuleDoesNotHold = errors.New("association rule does not hold")

// Output formats.
const (
	outputText = "text"
	outputJSON = "json"
)

// initStorage opens the dataset database and brings its schema up to date.
func initStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	dbPath := config.DatabasePath(viper.GetViper())

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// addInputFlags registers the flags that select and shape input data.
func addInputFlags(cmd *cobra.Command, withDataset bool) {
	cmd.Flags().StringP("input", "i", "", "CSV file to read transactions from")
	if withDataset {
		cmd.Flags().StringP("dataset", "d", "", "name of an imported dataset")
		cmd.MarkFlagsMutuallyExclusive("input", "dataset")
		cmd.MarkFlagsOneRequired("input", "dataset")
	}
	cmd.Flags().String("format", string(model.InputSingular), "input layout (singular, tabular)")
	cmd.Flags().Int("tid-column", 0, "transaction id column (singular layout)")
	cmd.Flags().Int("item-column", 1, "item column (singular layout)")
	cmd.Flags().Bool("first-column-tid", false, "first column holds transaction ids (tabular layout)")
	cmd.Flags().Bool("equal-nulls", true, "treat empty cells as one shared item instead of skipping them")
	cmd.Flags().Bool("has-header", true, "first CSV row is a header")
	cmd.Flags().String("separator", ",", "CSV field separator (use 'tab' for tabs)")
}

var inputBindings = map[string]string{
	config.KeyInputFormat:         "format",
	config.KeyInputTIDColumn:      "tid-column",
	config.KeyInputItemColumn:     "item-column",
	config.KeyInputFirstColumnTID: "first-column-tid",
	config.KeyInputEqualNulls:     "equal-nulls",
	config.KeyInputHasHeader:      "has-header",
	config.KeyInputSeparator:      "separator",
}

// addThresholdFlags registers the verification thresholds.
func addThresholdFlags(cmd *cobra.Command) {
	cmd.Flags().Float64("min-support", 0, "minimum support for the rule to hold")
	cmd.Flags().Float64("min-confidence", 0, "minimum confidence for the rule to hold")
	cmd.Flags().Float64("threshold", 0, "Jaccard similarity threshold (default: (n-1)/n for an antecedent of n items)")
}

var thresholdBindings = map[string]string{
	config.KeyMinSupport:    "min-support",
	config.KeyMinConfidence: "min-confidence",
	config.KeyThreshold:     "threshold",
}

// bindFlags binds command flags to viper keys. Several commands share keys,
// so binding happens when a command runs rather than when it is built.
func bindFlags(cmd *cobra.Command, bindings ...map[string]string) error {
	for _, m := range bindings {
		for key, flag := range m {
			if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
				return fmt.Errorf("failed to bind flag %q: %w", flag, err)
			}
		}
	}
	return nil
}

// loadData reads transactions from a CSV file, or from the named dataset
// when no file is given.
func loadData(ctx context.Context, inputPath, datasetName string) (*model.TransactionalData, error) {
	if inputPath != "" {
		return readCSVData(inputPath)
	}

	store, err := initStorage(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			common.LogError(closeErr, "failed to close storage", common.Fields{"database": store.Path()})
		}
	}()

	data, err := store.LoadDataset(ctx, datasetName)
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset %q: %w", datasetName, err)
	}
	slog.Debug("Loaded dataset", "name", datasetName, "transactions", data.NumTransactions())
	return data, nil
}

func readCSVData(path string) (*model.TransactionalData, error) {
	cfg, err := config.LoadInputConfig(viper.GetViper())
	if err != nil {
		return nil, err
	}

	table, err := dataset.ReadCSVFile(path, cfg.CSV)
	if err != nil {
		return nil, err
	}

	data, err := dataset.Build(table, cfg.Dataset)
	if err != nil {
		return nil, fmt.Errorf("failed to build transactions from %s: %w", path, err)
	}
	common.LogDebug("Read transactions", common.Fields{
		"path":         path,
		"format":       cfg.Dataset.Format,
		"rows":         len(table.Rows),
		"transactions": data.NumTransactions(),
	})
	return data, nil
}

func validateOutput(output string) error {
	switch output {
	case outputText, outputJSON:
		return nil
	default:
		return fmt.Errorf("invalid output format %q (want %s or %s)", output, outputText, outputJSON)
	}
}
