package main

import (
	"fmt"
	"log/slog"

	"github.com/Tydik42/desbordante-core/internal/cli"
	"github.com/Tydik42/desbordante-core/internal/common"
	"github.com/spf13/cobra"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <name>",
		Short: "Import a CSV file as a named dataset",
		Long: `Read transactions from a CSV file and store them in the local database
under the given name. An existing dataset with the same name is replaced.

Imported datasets can be verified with --dataset instead of re-reading the CSV.`,
		Args: cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return bindFlags(cmd, inputBindings)
		},
		RunE: runImport,
	}

	addInputFlags(cmd, false)
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	name := args[0]
	inputPath, _ := cmd.Flags().GetString("input")

	data, err := readCSVData(inputPath)
	if err != nil {
		return err
	}

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			slog.Error("failed to close storage", "error", closeErr)
		}
	}()

	if err := store.SaveDataset(ctx, name, data); err != nil {
		return fmt.Errorf("failed to save dataset: %w", err)
	}

	common.LogInfo("Imported dataset", common.Fields{
		"name":         name,
		"path":         inputPath,
		"database":     store.Path(),
		"transactions": data.NumTransactions(),
	})
	_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf(
		"Imported %q: %d transactions, %d items", name, data.NumTransactions(), len(data.ItemUniverse()))))
	return err
}
