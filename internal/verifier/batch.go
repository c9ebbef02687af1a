package verifier

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/Tydik42/desbordante-core/internal/common"
	"github.com/Tydik42/desbordante-core/internal/model"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// RuleSpec is one rule of a rules file. Unset thresholds fall back to the batch defaults.
type RuleSpec struct {
	MinSupport      *float64 `yaml:"min_support"`
	MinConfidence   *float64 `yaml:"min_confidence"`
	Threshold       *float64 `yaml:"threshold"`
	model.RuleNames `yaml:",inline"`
}

// Options returns the verification options for this rule.
func (s RuleSpec) Options(defaults Options) Options {
	opts := defaults
	if s.MinSupport != nil {
		opts.MinSupport = *s.MinSupport
	}
	if s.MinConfidence != nil {
		opts.MinConfidence = *s.MinConfidence
	}
	if s.Threshold != nil {
		opts.Threshold = s.Threshold
	}
	return opts
}

type ruleFile struct {
	Rules []RuleSpec `yaml:"rules"`
}

// ParseRules decodes a YAML rules document.
func ParseRules(data []byte) ([]RuleSpec, error) {
	var f ruleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: failed to parse rules: %v", common.ErrInvalidConfig, err)
	}
	if len(f.Rules) == 0 {
		return nil, fmt.Errorf("%w: rules file defines no rules", common.ErrInvalidConfig)
	}
	for i := range f.Rules {
		if f.Rules[i].Name == "" {
			f.Rules[i].Name = fmt.Sprintf("rule-%d", i+1)
		}
	}
	return f.Rules, nil
}

// LoadRuleFile reads and decodes the YAML rules file at path.
func LoadRuleFile(path string) ([]RuleSpec, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user-supplied rules path
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}
	return ParseRules(data)
}

// BatchOptions configures RunBatch.
type BatchOptions struct {
	// OnRuleDone is called after each rule finishes. It may be called concurrently.
	OnRuleDone func(Result)
	Defaults   Options
	// Parallel bounds the number of rules verified at once; 0 means GOMAXPROCS.
	Parallel int
}

// BatchResult is the outcome of one rule in a batch.
type BatchResult struct {
	// SameRelevantAs is the index of an earlier rule with the same relevant
	// transactions, or -1.
	SameRelevantAs int `json:"same_relevant_as"`
	Result
}

// RunBatch verifies every rule against the same data. All rules are resolved
// before any of them runs, so a bad rule aborts the batch without partial results.
// Results are returned in rule order.
func RunBatch(ctx context.Context, data TransactionSource, specs []RuleSpec, opts BatchOptions) ([]BatchResult, error) {
	logger := common.FromContext(ctx)

	verifiers := make([]*Verifier, len(specs))
	for i, spec := range specs {
		v, err := New(data, spec.RuleNames, spec.Options(opts.Defaults))
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", spec.Name, err)
		}
		verifiers[i] = v
	}

	parallel := opts.Parallel
	if parallel <= 0 {
		parallel = runtime.GOMAXPROCS(0)
	}

	results := make([]BatchResult, len(verifiers))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for i, v := range verifiers {
		i, v := i, v
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			if _, err := v.Execute(); err != nil {
				return fmt.Errorf("rule %q: %w", v.Rule().Name, err)
			}
			results[i] = BatchResult{Result: v.Result(), SameRelevantAs: -1}
			if opts.OnRuleDone != nil {
				opts.OnRuleDone(results[i].Result)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	markSameRelevant(results)

	logger.Info("Batch verification finished", "rules", len(results), "parallel", parallel)
	return results, nil
}

// markSameRelevant links rules whose relevant transaction sets coincide.
// Equal hashes are confirmed by comparing the clusters.
func markSameRelevant(results []BatchResult) {
	first := make(map[string][]int)
	for i := range results {
		h := results[i].RelevantHash
		for _, j := range first[h] {
			if sameTransactions(results[i].Clusters, results[j].Clusters) {
				results[i].SameRelevantAs = j
				break
			}
		}
		if results[i].SameRelevantAs == -1 {
			first[h] = append(first[h], i)
		}
	}
}

func sameTransactions(a, b []Cluster) bool {
	set := make(map[int]struct{})
	n := 0
	for _, c := range a {
		for _, id := range c.TransactionIDs {
			set[id] = struct{}{}
			n++
		}
	}
	m := 0
	for _, c := range b {
		for _, id := range c.TransactionIDs {
			if _, ok := set[id]; !ok {
				return false
			}
			m++
		}
	}
	return n == m
}
