package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/Tydik42/desbordante-core/internal/cli"
	"github.com/Tydik42/desbordante-core/internal/common"
	"github.com/spf13/cobra"
)

func datasetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "datasets",
		Short: "Manage imported datasets",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List imported datasets",
		Args:  cobra.NoArgs,
		RunE:  runDatasetsList,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <name>",
		Short: "Delete an imported dataset",
		Args:  cobra.ExactArgs(1),
		RunE:  runDatasetsDelete,
	})

	return cmd
}

func runDatasetsList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			slog.Error("failed to close storage", "error", closeErr)
		}
	}()

	datasets, err := store.ListDatasets(ctx)
	if err != nil {
		return fmt.Errorf("failed to list datasets: %w", err)
	}

	return cli.RenderDatasets(cmd.OutOrStdout(), datasets)
}

func runDatasetsDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	name := args[0]

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			slog.Error("failed to close storage", "error", closeErr)
		}
	}()

	if err := store.DeleteDataset(ctx, name); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.NewUserError(fmt.Sprintf("no dataset named %q", name), err)
		}
		return fmt.Errorf("failed to delete dataset: %w", err)
	}

	common.LogInfo("Deleted dataset", common.Fields{"name": name, "database": store.Path()})
	_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Deleted dataset %q", name)))
	return err
}
