package main

import (
	"fmt"
	"log/slog"

	"github.com/Tydik42/desbordante-core/internal/cli"
	"github.com/Tydik42/desbordante-core/internal/config"
	"github.com/Tydik42/desbordante-core/internal/verifier"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func verifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify a single association rule",
		Long: `Verify an association rule X -> Y against transactional data.

The report shows the rule's real support and confidence, whether it meets the
minimum support and confidence, and the clusters of transactions that are
close to the rule by weighted Jaccard similarity.

Examples:
  arverify verify -i basket.csv --left bread --right milk
  arverify verify -d retail --left bread,butter --right milk --min-confidence 0.8`,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return bindFlags(cmd, inputBindings, thresholdBindings, map[string]string{
				config.KeyRuleLeft:  "left",
				config.KeyRuleRight: "right",
			})
		},
		RunE: runVerify,
	}

	addInputFlags(cmd, true)
	addThresholdFlags(cmd)

	cmd.Flags().StringSliceP("left", "l", nil, "antecedent items (comma-separated)")
	cmd.Flags().StringSliceP("right", "r", nil, "consequent items (comma-separated)")
	cmd.Flags().StringP("output", "o", outputText, "output format (text, json)")
	cmd.Flags().BoolP("verbose", "v", false, "list every transaction id in each cluster")
	cmd.Flags().Bool("strict", false, "exit with status 2 when the rule does not hold")

	return cmd
}

func runVerify(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	inputPath, _ := cmd.Flags().GetString("input")
	datasetName, _ := cmd.Flags().GetString("dataset")
	output, _ := cmd.Flags().GetString("output")
	verbose, _ := cmd.Flags().GetBool("verbose")
	strict, _ := cmd.Flags().GetBool("strict")

	if err := validateOutput(output); err != nil {
		return err
	}

	names, err := config.LoadRule(viper.GetViper())
	if err != nil {
		return fmt.Errorf("failed to read rule (use --left and --right): %w", err)
	}
	opts, err := config.LoadVerifyOptions(viper.GetViper())
	if err != nil {
		return err
	}

	data, err := loadData(ctx, inputPath, datasetName)
	if err != nil {
		return err
	}

	v, err := verifier.New(data, names, opts)
	if err != nil {
		return fmt.Errorf("failed to set up verification: %w", err)
	}
	elapsed, err := v.Execute()
	if err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}

	result := v.Result()
	slog.Info("Verified rule",
		"rule", result.Rule,
		"support", result.Support,
		"confidence", result.Confidence,
		"holds", result.Holds,
		"elapsed", elapsed)

	out := cmd.OutOrStdout()
	if output == outputJSON {
		err = cli.RenderJSON(out, result)
	} else {
		err = cli.RenderResult(out, result, verbose)
	}
	if err != nil {
		return err
	}

	if strict && !result.Holds {
		return errRuleDoesNotHold
	}
	return nil
}
