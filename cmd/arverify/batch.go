package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Tydik42/desbordante-core/internal/cli"
	"github.com/Tydik42/desbordante-core/internal/common"
	"github.com/Tydik42/desbordante-core/internal/config"
	"github.com/Tydik42/desbordante-core/internal/verifier"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func batchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch <rules.yaml>",
		Short: "Verify every rule listed in a rules file",
		Long: `Verify a list of association rules against the same data.

The rules file is YAML:

  rules:
    - name: breakfast
      left: [bread]
      right: [milk]
      min_confidence: 0.7
    - left: [bread, butter]
      right: [milk]

Thresholds given on the command line are defaults for rules that do not set
their own. Rules are verified concurrently.`,
		Args: cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return bindFlags(cmd, inputBindings, thresholdBindings, map[string]string{
				config.KeyParallel: "parallel",
			})
		},
		RunE: runBatch,
	}

	addInputFlags(cmd, true)
	addThresholdFlags(cmd)

	cmd.Flags().IntP("parallel", "p", 0, "rules verified at once (default: number of CPUs)")
	cmd.Flags().StringP("output", "o", outputText, "output format (text, json)")
	cmd.Flags().Bool("no-progress", false, "hide the progress bar")
	cmd.Flags().Bool("strict", false, "exit with status 2 when any rule does not hold")

	return cmd
}

func runBatch(cmd *cobra.Command, args []string) error {
	inputPath, _ := cmd.Flags().GetString("input")
	datasetName, _ := cmd.Flags().GetString("dataset")
	output, _ := cmd.Flags().GetString("output")
	noProgress, _ := cmd.Flags().GetBool("no-progress")
	strict, _ := cmd.Flags().GetBool("strict")

	if err := validateOutput(output); err != nil {
		return err
	}

	specs, err := verifier.LoadRuleFile(args[0])
	if err != nil {
		return err
	}
	defaults, err := config.LoadVerifyOptions(viper.GetViper())
	if err != nil {
		return err
	}

	data, err := loadData(cmd.Context(), inputPath, datasetName)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	handler := cli.NewInterruptHandler(cmd.ErrOrStderr())
	ctx := handler.HandleInterrupts(runCtx, len(specs))
	ctx = common.WithLogger(ctx, slog.Default().With("rules_file", args[0]))

	opts := verifier.BatchOptions{
		Defaults: defaults,
		Parallel: viper.GetInt(config.KeyParallel),
	}
	if noProgress {
		opts.OnRuleDone = func(verifier.Result) { handler.RuleDone() }
	} else {
		bar := cli.NewRuleProgress(cmd.ErrOrStderr(), len(specs))
		opts.OnRuleDone = func(verifier.Result) {
			handler.RuleDone()
			if err := bar.Add(1); err != nil {
				slog.Warn("Failed to update progress bar", "error", err)
			}
		}
	}

	results, err := verifier.RunBatch(ctx, data, specs, opts)
	if err != nil {
		if handler.WasInterrupted() {
			return fmt.Errorf("batch verification interrupted: %w", err)
		}
		return err
	}

	out := cmd.OutOrStdout()
	if output == outputJSON {
		err = cli.RenderJSON(out, results)
	} else {
		err = cli.RenderBatch(out, results)
	}
	if err != nil {
		return err
	}

	failing := 0
	for _, r := range results {
		if !r.Holds {
			failing++
		}
	}
	slog.Info("Batch summary", "rules", len(results), "failing", failing)

	if strict && failing > 0 {
		return fmt.Errorf("%d of %d rules: %w", failing, len(results), errRuleDoesNotHold)
	}
	return nil
}
