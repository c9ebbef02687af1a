package verifier

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/Tydik42/desbordante-core/internal/common"
	"github.com/Tydik42/desbordante-core/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rulesYAML = `
rules:
  - name: bread-milk
    left: [A, B]
    right: [C]
    threshold: 0.3
  - left: [A]
    right: [C]
    min_support: 0.2
  - name: same-as-first
    left: [B, A]
    right: [C]
    threshold: 0.3
`

func TestParseRules(t *testing.T) {
	specs, err := ParseRules([]byte(rulesYAML))
	require.NoError(t, err)
	require.Len(t, specs, 3)

	assert.Equal(t, "bread-milk", specs[0].Name)
	assert.Equal(t, []string{"A", "B"}, specs[0].Left)
	assert.Equal(t, []string{"C"}, specs[0].Right)
	require.NotNil(t, specs[0].Threshold)
	assert.Equal(t, 0.3, *specs[0].Threshold)

	assert.Equal(t, "rule-2", specs[1].Name, "unnamed rules get a positional name")
	require.NotNil(t, specs[1].MinSupport)
	assert.Nil(t, specs[1].MinConfidence)
}

func TestParseRules_Errors(t *testing.T) {
	_, err := ParseRules([]byte("rules: [unterminated"))
	assert.ErrorIs(t, err, common.ErrInvalidConfig)

	_, err = ParseRules([]byte("rules: []"))
	assert.ErrorIs(t, err, common.ErrInvalidConfig)
}

func TestLoadRuleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(rulesYAML), 0o600))

	specs, err := LoadRuleFile(path)
	require.NoError(t, err)
	assert.Len(t, specs, 3)

	_, err = LoadRuleFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestRuleSpec_Options(t *testing.T) {
	defaults := Options{MinSupport: 0.1, MinConfidence: 0.2}

	spec := RuleSpec{MinConfidence: floatPtr(0.9), Threshold: floatPtr(0.4)}
	opts := spec.Options(defaults)

	assert.Equal(t, 0.1, opts.MinSupport)
	assert.Equal(t, 0.9, opts.MinConfidence)
	require.NotNil(t, opts.Threshold)
	assert.Equal(t, 0.4, *opts.Threshold)
	assert.Nil(t, defaults.Threshold, "defaults are not modified")
}

func TestRunBatch(t *testing.T) {
	specs, err := ParseRules([]byte(rulesYAML))
	require.NoError(t, err)

	var done atomic.Int32
	results, err := RunBatch(context.Background(), basketData(), specs, BatchOptions{
		Parallel:   2,
		OnRuleDone: func(Result) { done.Add(1) },
	})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, int32(3), done.Load())

	assert.Equal(t, "bread-milk", results[0].Name)
	assert.Equal(t, -1, results[0].SameRelevantAs)
	assert.Equal(t, 4, results[0].NumRelevant)

	// {A} -> {C} with a zero threshold: T1, T2 and T3 share items with the antecedent.
	assert.Equal(t, "rule-2", results[1].Name)
	assert.Equal(t, 0.2, results[1].MinSupport)
	assert.False(t, results[1].Holds)
	assert.Equal(t, -1, results[1].SameRelevantAs)

	assert.Equal(t, 0, results[2].SameRelevantAs, "reordered antecedent keeps the same relevant set")
	assert.Equal(t, results[0].RelevantHash, results[2].RelevantHash)
}

func TestRunBatch_BadRuleAbortsBeforeRunning(t *testing.T) {
	specs := []RuleSpec{
		{RuleNames: model.RuleNames{Name: "ok", Left: []string{"A"}, Right: []string{"C"}}},
		{RuleNames: model.RuleNames{Name: "bad", Left: []string{"A"}, Right: []string{"Z"}}},
	}

	var done atomic.Int32
	results, err := RunBatch(context.Background(), basketData(), specs, BatchOptions{
		OnRuleDone: func(Result) { done.Add(1) },
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrUnknownItem)
	assert.Contains(t, err.Error(), `rule "bad"`)
	assert.Nil(t, results)
	assert.Equal(t, int32(0), done.Load())
}

func TestRunBatch_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	specs := []RuleSpec{{RuleNames: model.RuleNames{Name: "r", Left: []string{"A"}, Right: []string{"C"}}}}
	_, err := RunBatch(ctx, basketData(), specs, BatchOptions{Parallel: 1})
	assert.ErrorIs(t, err, context.Canceled)
}
