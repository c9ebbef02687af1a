// Package verifier checks whether an association rule holds over transactional
// data and groups the transactions that deviate from it.
package verifier

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/Tydik42/desbordante-core/internal/common"
	"github.com/Tydik42/desbordante-core/internal/model"
	"github.com/Tydik42/desbordante-core/internal/tidlist"
)

// Options holds the user thresholds for a verification.
type Options struct {
	// Threshold overrides the relevance threshold. When nil it is derived
	// from the antecedent size, see DefaultThreshold.
	Threshold     *float64
	MinSupport    float64
	MinConfidence float64
}

// Validate checks that all thresholds are numbers within [0, 1].
func (o Options) Validate() error {
	if math.IsNaN(o.MinSupport) || o.MinSupport < 0 || o.MinSupport > 1 {
		return fmt.Errorf("%w: minimum support %v not in [0, 1]", common.ErrInvalidConfig, o.MinSupport)
	}
	if math.IsNaN(o.MinConfidence) || o.MinConfidence < 0 || o.MinConfidence > 1 {
		return fmt.Errorf("%w: minimum confidence %v not in [0, 1]", common.ErrInvalidConfig, o.MinConfidence)
	}
	if o.Threshold != nil && (math.IsNaN(*o.Threshold) || *o.Threshold < 0 || *o.Threshold >= 1) {
		return fmt.Errorf("%w: similarity threshold %v not in [0, 1)", common.ErrInvalidConfig, *o.Threshold)
	}
	return nil
}

// Verifier resolves a rule given by item names and verifies it over a dataset.
type Verifier struct {
	data     TransactionSource
	rule     *model.Rule
	stats    *StatsCalculator
	names    model.RuleNames
	opts     Options
	elapsed  time.Duration
	executed bool
}

// New resolves the rule names against the item universe of data. Every name
// must match an item exactly; nothing is computed until Execute.
func New(data TransactionSource, names model.RuleNames, opts Options) (*Verifier, error) {
	if data == nil || data.NumTransactions() == 0 {
		return nil, common.ErrEmptyDataset
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if len(names.Left) == 0 {
		return nil, fmt.Errorf("%w: left rule part is empty", common.ErrInvalidRule)
	}
	if len(names.Right) == 0 {
		return nil, fmt.Errorf("%w: right rule part is empty", common.ErrInvalidRule)
	}

	index := itemIndex(data.ItemUniverse())
	left, err := resolve(index, names.Left, "left")
	if err != nil {
		return nil, err
	}
	right, err := resolve(index, names.Right, "right")
	if err != nil {
		return nil, err
	}

	rule := model.NewRule(left, right)
	if !rule.Disjoint() {
		return nil, fmt.Errorf("%w: rule parts %s are not disjoint", common.ErrInvalidRule, names)
	}

	threshold := DefaultThreshold(len(left))
	if opts.Threshold != nil {
		threshold = *opts.Threshold
	}

	return &Verifier{
		data:  data,
		rule:  rule,
		stats: NewStatsCalculator(data, rule, threshold),
		names: names,
		opts:  opts,
	}, nil
}

func itemIndex(universe []string) map[string]int {
	index := make(map[string]int, len(universe))
	for i, name := range universe {
		if _, ok := index[name]; !ok {
			index[name] = i
		}
	}
	return index
}

func resolve(index map[string]int, names []string, side string) ([]int, error) {
	ids := make([]int, 0, len(names))
	for _, name := range names {
		id, ok := index[name]
		if !ok {
			return nil, fmt.Errorf("%w: item in %s rule part: %q", common.ErrUnknownItem, side, name)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Execute runs the verification and returns how long it took. A previous run
// is discarded first.
func (v *Verifier) Execute() (time.Duration, error) {
	if v.executed || v.stats.Calculated() {
		v.ResetState()
	}

	slog.Debug("Verifying association rule",
		"rule", v.names.String(),
		"transactions", v.data.NumTransactions(),
		"threshold", v.stats.Threshold())

	start := time.Now()
	if err := v.stats.CalculateStatistics(); err != nil {
		return 0, fmt.Errorf("failed to calculate statistics: %w", err)
	}
	v.elapsed = time.Since(start)
	v.executed = true

	slog.Debug("Association rule verified",
		"rule", v.names.String(),
		"support", v.stats.Support(),
		"confidence", v.stats.Confidence(),
		"violating", v.stats.NumTransactionsViolatingAR(),
		"elapsed", v.elapsed)

	return v.elapsed, nil
}

// ResetState discards the results of the last run so the verifier can run again.
func (v *Verifier) ResetState() {
	v.stats.ResetState()
	v.elapsed = 0
	v.executed = false
}

// ARHolds reports whether the computed support and confidence reach the
// required minimums. It is false before Execute.
func (v *Verifier) ARHolds() bool {
	if !v.executed {
		return false
	}
	return v.stats.Support() >= v.opts.MinSupport &&
		v.stats.Confidence() >= v.opts.MinConfidence
}

// Rule returns the rule as supplied by the caller.
func (v *Verifier) Rule() model.RuleNames {
	return v.names
}

// RuleIDs returns the resolved rule.
func (v *Verifier) RuleIDs() model.Rule {
	return *v.rule
}

// Threshold returns the relevance threshold in use.
func (v *Verifier) Threshold() float64 {
	return v.stats.Threshold()
}

// Elapsed returns the duration of the last run.
func (v *Verifier) Elapsed() time.Duration {
	return v.elapsed
}

// NumClustersViolatingAR returns the number of clusters of relevant transactions.
func (v *Verifier) NumClustersViolatingAR() int {
	return v.stats.NumClustersViolatingAR()
}

// NumTransactionsViolatingAR returns the number of transactions that violate the rule.
func (v *Verifier) NumTransactionsViolatingAR() int {
	return v.stats.NumTransactionsViolatingAR()
}

// ClustersViolatingAR returns transaction ids keyed by cluster priority.
func (v *Verifier) ClustersViolatingAR() map[int][]int {
	return v.stats.ClustersViolatingAR()
}

// Coefficients returns the similarity pairs of the relevant transactions.
func (v *Verifier) Coefficients() map[int]JaccardPair {
	return v.stats.Coefficients()
}

// RealSupport returns the computed support.
func (v *Verifier) RealSupport() float64 {
	return v.stats.Support()
}

// RealConfidence returns the computed confidence.
func (v *Verifier) RealConfidence() float64 {
	return v.stats.Confidence()
}

// Priorities returns the cluster priorities present, highest first.
func (v *Verifier) Priorities() []int {
	clusters := v.stats.ClustersViolatingAR()
	priorities := make([]int, 0, len(clusters))
	for p := range clusters {
		priorities = append(priorities, p)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(priorities)))
	return priorities
}

// RelevantTIDs returns the relevant transactions partitioned by cluster, highest priority first.
func (v *Verifier) RelevantTIDs() *tidlist.Partition {
	clusters := v.stats.ClustersViolatingAR()
	p := tidlist.NewPartition()
	for _, priority := range v.Priorities() {
		p.Add(clusters[priority])
	}
	return p
}
