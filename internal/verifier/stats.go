package verifier

import (
	"errors"
	"math"

	"github.com/Tydik42/desbordante-core/internal/model"
)

// ErrStatsAlreadyCalculated is returned when statistics are calculated twice
// without a ResetState in between.
var ErrStatsAlreadyCalculated = errors.New("statistics already calculated: reset state first")

// Cluster priorities. A priority is 3*floor(jaccard_left) + 2*floor(jaccard_right).
const (
	PriorityNoneExact  = 0
	PriorityRightExact = 2
	PriorityLeftExact  = 3
	PriorityBothExact  = 5
)

// TransactionSource is the read-only view of transactional data the verifier needs.
type TransactionSource interface {
	Transactions() []model.Transaction
	ItemUniverse() []string
	NumTransactions() int
}

// JaccardPair holds the similarity of one transaction to each side of a rule.
type JaccardPair struct {
	Left  float64 `json:"left"`
	Right float64 `json:"right"`
}

// StatsCalculator computes rule statistics over a dataset.
//
// A calculator serves one CalculateStatistics call at a time and is not safe
// for concurrent use. The bound data is only read and may be shared.
type StatsCalculator struct {
	data         TransactionSource
	rule         *model.Rule
	coefficients map[int]JaccardPair
	clusters     map[int][]int
	retained     []int
	threshold    float64
	support      float64
	numViolating int
	calculated   bool
}

// NewStatsCalculator binds a calculator to data and rule. Transactions are kept
// only when their left similarity exceeds threshold and their right similarity
// either exceeds it or is zero.
func NewStatsCalculator(data TransactionSource, rule *model.Rule, threshold float64) *StatsCalculator {
	return &StatsCalculator{
		data:         data,
		rule:         rule,
		threshold:    threshold,
		coefficients: make(map[int]JaccardPair),
		clusters:     make(map[int][]int),
	}
}

// DefaultThreshold derives the relevance threshold from the antecedent size:
// (n-1)/n, so a transaction must share more than all but one antecedent item.
func DefaultThreshold(leftSize int) float64 {
	if leftSize <= 0 {
		return 0
	}
	return float64(leftSize-1) / float64(leftSize)
}

// JaccardSimilarity returns the weighted Jaccard similarity of a transaction
// and a rule part: the sum of per-item minimum counts over the size of the
// transaction plus the counts of rule items the transaction lacks. Repeats in
// the rule part beyond the transaction's count do not lower the similarity.
// Two empty multisets have similarity 1.
func JaccardSimilarity(transaction, rulePart []int) float64 {
	countTxn := countItems(transaction)
	countRule := countItems(rulePart)

	intersection := 0
	union := len(transaction)
	for item, c := range countTxn {
		intersection += min(c, countRule[item])
	}
	for item, r := range countRule {
		if _, ok := countTxn[item]; !ok {
			union += r
		}
	}

	if union == 0 {
		return 1.0
	}
	return float64(intersection) / float64(union)
}

func countItems(items []int) map[int]int {
	counts := make(map[int]int, len(items))
	for _, item := range items {
		counts[item]++
	}
	return counts
}

// ClusterPriority maps a coefficient pair to its cluster priority.
func ClusterPriority(p JaccardPair) int {
	return 3*int(math.Floor(p.Left)) + 2*int(math.Floor(p.Right))
}

func (s *StatsCalculator) relevant(p JaccardPair) bool {
	return p.Left > s.threshold && (p.Right > s.threshold || p.Right == 0.0)
}

// CalculateStatistics computes coefficients, support, confidence and clusters.
func (s *StatsCalculator) CalculateStatistics() error {
	if s.calculated {
		return ErrStatsAlreadyCalculated
	}

	transactions := s.data.Transactions()
	var bothExact, leftExact int
	for _, txn := range transactions {
		p := JaccardPair{
			Left:  JaccardSimilarity(txn.Items, s.rule.Left),
			Right: JaccardSimilarity(txn.Items, s.rule.Right),
		}
		if p.Left == 1.0 {
			leftExact++
			if p.Right == 1.0 {
				bothExact++
			}
		}
		if s.relevant(p) {
			s.coefficients[txn.ID] = p
			s.retained = append(s.retained, txn.ID)
		}
	}

	s.support = fraction(bothExact, len(transactions))
	lhsSupport := fraction(leftExact, len(transactions))
	if lhsSupport != 0.0 {
		s.rule.Confidence = s.support / lhsSupport
	} else {
		s.rule.Confidence = 0.0
	}

	for _, id := range s.retained {
		priority := ClusterPriority(s.coefficients[id])
		s.clusters[priority] = append(s.clusters[priority], id)
		if priority != PriorityBothExact {
			s.numViolating++
		}
	}

	s.calculated = true
	return nil
}

func fraction(count, total int) float64 {
	if total == 0 {
		return 0.0
	}
	return float64(count) / float64(total)
}

// ResetState drops everything computed by CalculateStatistics. The bound data,
// rule and threshold are kept.
func (s *StatsCalculator) ResetState() {
	s.coefficients = make(map[int]JaccardPair)
	s.clusters = make(map[int][]int)
	s.retained = nil
	s.support = 0.0
	s.rule.Confidence = 0.0
	s.numViolating = 0
	s.calculated = false
}

// Calculated reports whether statistics are available.
func (s *StatsCalculator) Calculated() bool {
	return s.calculated
}

// Threshold returns the relevance threshold.
func (s *StatsCalculator) Threshold() float64 {
	return s.threshold
}

// NumClustersViolatingAR returns the number of non-empty priority clusters.
func (s *StatsCalculator) NumClustersViolatingAR() int {
	return len(s.clusters)
}

// NumTransactionsViolatingAR returns the number of relevant transactions that
// do not match both rule sides exactly.
func (s *StatsCalculator) NumTransactionsViolatingAR() int {
	return s.numViolating
}

// ClustersViolatingAR returns transaction ids keyed by priority. Callers must not modify it.
func (s *StatsCalculator) ClustersViolatingAR() map[int][]int {
	return s.clusters
}

// Coefficients returns the similarity pairs of the relevant transactions. Callers must not modify it.
func (s *StatsCalculator) Coefficients() map[int]JaccardPair {
	return s.coefficients
}

// RetainedIDs returns the relevant transaction ids in transaction order.
func (s *StatsCalculator) RetainedIDs() []int {
	return s.retained
}

// Support returns the fraction of transactions matching both rule sides exactly.
func (s *StatsCalculator) Support() float64 {
	return s.support
}

// Confidence returns support divided by antecedent support.
func (s *StatsCalculator) Confidence() float64 {
	return s.rule.Confidence
}
