package verifier

import (
	"math/rand"
	"testing"

	"github.com/Tydik42/desbordante-core/internal/model"
	"github.com/Tydik42/desbordante-core/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	itemA = iota
	itemB
	itemC
)

// basketData is T1={A,B}, T2={A,B,C}, T3={A}, T4={B,C}. Items get ids in
// order of first appearance, matching itemA, itemB and itemC.
func basketData() *model.TransactionalData {
	return testutil.NewDatasetBuilder().
		Transaction(1, "A", "B").
		Transaction(2, "A", "B", "C").
		Transaction(3, "A").
		Transaction(4, "B", "C").
		Build()
}

func floatPtr(f float64) *float64 { return &f }

func TestJaccardSimilarity(t *testing.T) {
	tests := []struct {
		name string
		txn  []int
		rule []int
		want float64
	}{
		{name: "both empty", txn: nil, rule: nil, want: 1.0},
		{name: "empty transaction", txn: nil, rule: []int{1}, want: 0.0},
		{name: "empty rule part", txn: []int{1, 2}, rule: nil, want: 0.0},
		{name: "identical sets", txn: []int{1, 2}, rule: []int{2, 1}, want: 1.0},
		{name: "disjoint", txn: []int{1, 2}, rule: []int{3}, want: 0.0},
		{name: "superset transaction", txn: []int{1, 2, 3}, rule: []int{1, 2}, want: 2.0 / 3.0},
		{name: "subset transaction", txn: []int{1}, rule: []int{1, 2}, want: 0.5},
		{name: "partial overlap", txn: []int{2, 3}, rule: []int{1, 2}, want: 1.0 / 3.0},
		{name: "identical multisets", txn: []int{1, 1, 2}, rule: []int{1, 2, 1}, want: 1.0},
		{name: "extra duplicate in transaction", txn: []int{1, 1}, rule: []int{1}, want: 0.5},
		{name: "extra duplicate in rule", txn: []int{1}, rule: []int{1, 1}, want: 1.0},
		{name: "duplicate in rule with missing item", txn: []int{1}, rule: []int{1, 1, 2}, want: 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, JaccardSimilarity(tt.txn, tt.rule), 1e-12)
		})
	}
}

func TestJaccardSimilarity_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	randomMultiset := func() []int {
		items := make([]int, rng.Intn(6))
		for i := range items {
			items[i] = rng.Intn(5)
		}
		return items
	}

	for i := 0; i < 2000; i++ {
		a, b := randomMultiset(), randomMultiset()
		ab := JaccardSimilarity(a, b)

		require.GreaterOrEqual(t, ab, 0.0)
		require.LessOrEqual(t, ab, 1.0)
		require.Equal(t, 1.0, JaccardSimilarity(a, a), "self match for %v", a)

		sa, sb := distinct(a), distinct(b)
		require.Equal(t, JaccardSimilarity(sa, sb), JaccardSimilarity(sb, sa), "symmetry for sets %v and %v", sa, sb)
	}
}

func distinct(items []int) []int {
	seen := make(map[int]bool, len(items))
	var out []int
	for _, it := range items {
		if !seen[it] {
			seen[it] = true
			out = append(out, it)
		}
	}
	return out
}

func TestStatsCalculator_RepeatedRuleItem(t *testing.T) {
	data := model.NewTransactionalData(
		[]string{"A", "B"},
		[]model.Transaction{
			{ID: 1, Items: []int{itemA}},
			{ID: 2, Items: []int{itemB}},
		},
	)
	calc := NewStatsCalculator(data, model.NewRule([]int{itemA, itemA}, []int{itemB}), 0.5)
	require.NoError(t, calc.CalculateStatistics())

	assert.Equal(t, map[int]JaccardPair{1: {Left: 1.0, Right: 0.0}}, calc.Coefficients())
	assert.Equal(t, map[int][]int{PriorityLeftExact: {1}}, calc.ClustersViolatingAR())
	assert.Equal(t, 0.0, calc.Support())
	assert.Equal(t, 0.0, calc.Confidence())
}

func TestClusterPriority(t *testing.T) {
	tests := []struct {
		name string
		pair JaccardPair
		want int
	}{
		{name: "both exact", pair: JaccardPair{Left: 1, Right: 1}, want: PriorityBothExact},
		{name: "left exact", pair: JaccardPair{Left: 1, Right: 0}, want: PriorityLeftExact},
		{name: "right exact", pair: JaccardPair{Left: 0.6, Right: 1}, want: PriorityRightExact},
		{name: "neither", pair: JaccardPair{Left: 0.99, Right: 0.5}, want: PriorityNoneExact},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClusterPriority(tt.pair))
		})
	}
}

func TestDefaultThreshold(t *testing.T) {
	assert.Equal(t, 0.0, DefaultThreshold(0))
	assert.Equal(t, 0.0, DefaultThreshold(1))
	assert.Equal(t, 0.5, DefaultThreshold(2))
	assert.InDelta(t, 0.75, DefaultThreshold(4), 1e-12)
}

func TestStatsCalculator_BasketScenario(t *testing.T) {
	rule := model.NewRule([]int{itemA, itemB}, []int{itemC})
	calc := NewStatsCalculator(basketData(), rule, DefaultThreshold(2))

	require.NoError(t, calc.CalculateStatistics())

	assert.Equal(t, 0.0, calc.Support())
	assert.Equal(t, 0.0, calc.Confidence(), "no transaction matches the whole rule")
	assert.Equal(t, 0.0, rule.Confidence, "confidence is stored on the rule")

	// Only T1 passes: T2 has 1/3 similarity to {C}, T3 and T4 do not exceed 0.5 on the left.
	assert.Equal(t, map[int]JaccardPair{1: {Left: 1, Right: 0}}, calc.Coefficients())
	assert.Equal(t, map[int][]int{PriorityLeftExact: {1}}, calc.ClustersViolatingAR())
	assert.Equal(t, 1, calc.NumClustersViolatingAR())
	assert.Equal(t, 1, calc.NumTransactionsViolatingAR())
}

func TestStatsCalculator_LowThreshold(t *testing.T) {
	rule := model.NewRule([]int{itemA, itemB}, []int{itemC})
	calc := NewStatsCalculator(basketData(), rule, 0.3)

	require.NoError(t, calc.CalculateStatistics())

	coef := calc.Coefficients()
	require.Len(t, coef, 4)
	assert.InDelta(t, 2.0/3.0, coef[2].Left, 1e-12)
	assert.InDelta(t, 1.0/3.0, coef[2].Right, 1e-12)
	assert.InDelta(t, 0.5, coef[3].Left, 1e-12)
	assert.InDelta(t, 1.0/3.0, coef[4].Left, 1e-12)
	assert.InDelta(t, 0.5, coef[4].Right, 1e-12)

	assert.Equal(t, map[int][]int{
		PriorityLeftExact: {1},
		PriorityNoneExact: {2, 3, 4},
	}, calc.ClustersViolatingAR())
	assert.Equal(t, []int{1, 2, 3, 4}, calc.RetainedIDs())
	assert.Equal(t, 4, calc.NumTransactionsViolatingAR())
}

func TestStatsCalculator_ExactMatches(t *testing.T) {
	data := model.NewTransactionalData(
		[]string{"A", "B"},
		[]model.Transaction{
			{ID: 1, Items: []int{itemA}},
			{ID: 2, Items: []int{itemA}},
			{ID: 3, Items: []int{itemB}},
			{ID: 4, Items: []int{itemA, itemA}},
		},
	)
	// Both sides name the same item so a transaction can match them exactly.
	rule := model.NewRule([]int{itemA}, []int{itemA})
	calc := NewStatsCalculator(data, rule, DefaultThreshold(1))

	require.NoError(t, calc.CalculateStatistics())

	assert.Equal(t, 0.5, calc.Support())
	assert.Equal(t, 1.0, calc.Confidence())
	assert.Equal(t, map[int][]int{
		PriorityBothExact: {1, 2},
		PriorityNoneExact: {4},
	}, calc.ClustersViolatingAR())
	assert.Equal(t, 1, calc.NumTransactionsViolatingAR(), "exact matches are not violations")
}

func TestStatsCalculator_RightExactPriority(t *testing.T) {
	data := model.NewTransactionalData(
		[]string{"A", "B"},
		[]model.Transaction{{ID: 7, Items: []int{itemA, itemB}}},
	)
	rule := model.NewRule([]int{itemA}, []int{itemA, itemB})
	calc := NewStatsCalculator(data, rule, 0.4)

	require.NoError(t, calc.CalculateStatistics())
	assert.Equal(t, map[int][]int{PriorityRightExact: {7}}, calc.ClustersViolatingAR())
}

func TestStatsCalculator_CalculateTwiceRequiresReset(t *testing.T) {
	calc := NewStatsCalculator(basketData(), model.NewRule([]int{itemA}, []int{itemC}), 0)

	require.NoError(t, calc.CalculateStatistics())
	err := calc.CalculateStatistics()
	assert.ErrorIs(t, err, ErrStatsAlreadyCalculated)
}

func TestStatsCalculator_ResetState(t *testing.T) {
	rule := model.NewRule([]int{itemA, itemB}, []int{itemC})
	calc := NewStatsCalculator(basketData(), rule, 0.3)

	require.NoError(t, calc.CalculateStatistics())
	support := calc.Support()
	confidence := calc.Confidence()
	clusters := copyClusters(calc.ClustersViolatingAR())
	coefficients := copyCoefficients(calc.Coefficients())
	violating := calc.NumTransactionsViolatingAR()

	calc.ResetState()

	assert.False(t, calc.Calculated())
	assert.Empty(t, calc.ClustersViolatingAR())
	assert.Empty(t, calc.Coefficients())
	assert.Empty(t, calc.RetainedIDs())
	assert.Equal(t, 0, calc.NumClustersViolatingAR())
	assert.Equal(t, 0, calc.NumTransactionsViolatingAR())
	assert.Equal(t, 0.0, calc.Support())
	assert.Equal(t, 0.0, calc.Confidence())
	assert.Equal(t, 0.3, calc.Threshold(), "threshold survives a reset")

	require.NoError(t, calc.CalculateStatistics())
	assert.Equal(t, support, calc.Support())
	assert.Equal(t, confidence, calc.Confidence())
	assert.Equal(t, clusters, calc.ClustersViolatingAR())
	assert.Equal(t, coefficients, calc.Coefficients())
	assert.Equal(t, violating, calc.NumTransactionsViolatingAR())
}

func TestStatsCalculator_RandomDatasets(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for round := 0; round < 50; round++ {
		const numItems = 5
		txns := make([]model.Transaction, 1+rng.Intn(40))
		for i := range txns {
			items := make([]int, rng.Intn(5))
			for j := range items {
				items[j] = rng.Intn(numItems)
			}
			txns[i] = model.Transaction{ID: i * 3, Items: items}
		}
		data := model.NewTransactionalData([]string{"a", "b", "c", "d", "e"}, txns)

		left := []int{rng.Intn(numItems)}
		if rng.Intn(2) == 0 {
			left = append(left, rng.Intn(numItems))
		}
		right := []int{rng.Intn(numItems)}
		threshold := rng.Float64() * 0.9

		calc := NewStatsCalculator(data, model.NewRule(left, right), threshold)
		require.NoError(t, calc.CalculateStatistics())

		assert.GreaterOrEqual(t, calc.Support(), 0.0)
		assert.LessOrEqual(t, calc.Support(), 1.0)
		assert.GreaterOrEqual(t, calc.Confidence(), 0.0)
		assert.LessOrEqual(t, calc.Confidence(), 1.0, "support never exceeds antecedent support")

		seen := make(map[int]bool)
		for priority, ids := range calc.ClustersViolatingAR() {
			assert.Contains(t, []int{0, 2, 3, 5}, priority)
			for _, id := range ids {
				assert.False(t, seen[id], "transaction %d in more than one cluster", id)
				seen[id] = true
				_, ok := calc.Coefficients()[id]
				assert.True(t, ok, "clustered transaction %d was not retained", id)
			}
		}
		assert.Len(t, seen, len(calc.Coefficients()), "clusters cover every retained transaction")

		for id, p := range calc.Coefficients() {
			_, ok := data.Transaction(id)
			assert.True(t, ok)
			assert.Greater(t, p.Left, threshold)
			assert.True(t, p.Right > threshold || p.Right == 0.0)
		}
	}
}

func copyClusters(in map[int][]int) map[int][]int {
	out := make(map[int][]int, len(in))
	for k, v := range in {
		out[k] = append([]int(nil), v...)
	}
	return out
}

func copyCoefficients(in map[int]JaccardPair) map[int]JaccardPair {
	out := make(map[int]JaccardPair, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
