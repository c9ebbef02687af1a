package main

import (
	"sort"

	"github.com/Tydik42/desbordante-core/internal/cli"
	"github.com/Tydik42/desbordante-core/internal/model"
	"github.com/Tydik42/desbordante-core/internal/tidlist"
	"github.com/spf13/cobra"
)

func itemsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "items",
		Short: "Show how often each item occurs",
		Long: `List the items of a dataset with the number of transactions containing
each one, most frequent first. Useful for picking rule items and thresholds.`,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return bindFlags(cmd, inputBindings)
		},
		RunE: runItems,
	}

	addInputFlags(cmd, true)
	cmd.Flags().IntP("top", "n", 0, "show only the n most frequent items")
	cmd.Flags().Float64("min-support", 0, "hide items below this support")
	cmd.Flags().StringP("output", "o", outputText, "output format (text, json)")

	return cmd
}

func runItems(cmd *cobra.Command, _ []string) error {
	inputPath, _ := cmd.Flags().GetString("input")
	datasetName, _ := cmd.Flags().GetString("dataset")
	top, _ := cmd.Flags().GetInt("top")
	minSupport, _ := cmd.Flags().GetFloat64("min-support")
	output, _ := cmd.Flags().GetString("output")

	if err := validateOutput(output); err != nil {
		return err
	}

	data, err := loadData(cmd.Context(), inputPath, datasetName)
	if err != nil {
		return err
	}

	items := itemSupports(data, minSupport)
	if top > 0 && len(items) > top {
		items = items[:top]
	}

	if output == outputJSON {
		return cli.RenderJSON(cmd.OutOrStdout(), items)
	}
	return cli.RenderItemSupports(cmd.OutOrStdout(), items)
}

// itemSupports returns per-item transaction counts, most frequent first.
func itemSupports(data *model.TransactionalData, minSupport float64) []cli.ItemSupport {
	n := data.NumTransactions()
	items := make([]cli.ItemSupport, 0, len(data.ItemUniverse()))
	for id, name := range data.ItemUniverse() {
		count := tidlist.Support(data.ItemTIDList(id))
		support := 0.0
		if n > 0 {
			support = float64(count) / float64(n)
		}
		if support < minSupport {
			continue
		}
		items = append(items, cli.ItemSupport{Item: name, Count: count, Support: support})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Count != items[j].Count {
			return items[i].Count > items[j].Count
		}
		return items[i].Item < items[j].Item
	})
	return items
}
