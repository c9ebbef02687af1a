package verifier

import (
	"fmt"
	"time"

	"github.com/Tydik42/desbordante-core/internal/tidlist"
)

// Cluster is one priority bucket of relevant transactions.
type Cluster struct {
	TransactionIDs []int `json:"transaction_ids"`
	Priority       int   `json:"priority"`
}

// Result is a snapshot of a finished verification.
type Result struct {
	Rule                     string        `json:"rule"`
	Name                     string        `json:"name,omitempty"`
	RelevantHash             string        `json:"relevant_hash"`
	Clusters                 []Cluster     `json:"clusters"`
	Left                     []string      `json:"left"`
	Right                    []string      `json:"right"`
	Elapsed                  time.Duration `json:"elapsed_ns"`
	Support                  float64       `json:"support"`
	Confidence               float64       `json:"confidence"`
	MinSupport               float64       `json:"min_support"`
	MinConfidence            float64       `json:"min_confidence"`
	Threshold                float64       `json:"threshold"`
	NumTransactions          int           `json:"num_transactions"`
	NumRelevant              int           `json:"num_relevant"`
	NumTransactionsViolating int           `json:"num_transactions_violating"`
	NumClusters              int           `json:"num_clusters"`
	Holds                    bool          `json:"holds"`
}

// Result returns a snapshot of the last run. Clusters are ordered by priority,
// highest first.
func (v *Verifier) Result() Result {
	clusters := v.stats.ClustersViolatingAR()
	out := make([]Cluster, 0, len(clusters))
	for _, p := range v.Priorities() {
		ids := make([]int, len(clusters[p]))
		copy(ids, clusters[p])
		out = append(out, Cluster{Priority: p, TransactionIDs: ids})
	}

	relevant := v.RelevantTIDs()

	return Result{
		Rule:                     v.names.String(),
		Name:                     v.names.Name,
		Left:                     v.names.Left,
		Right:                    v.names.Right,
		Holds:                    v.ARHolds(),
		Support:                  v.RealSupport(),
		Confidence:               v.RealConfidence(),
		MinSupport:               v.opts.MinSupport,
		MinConfidence:            v.opts.MinConfidence,
		Threshold:                v.Threshold(),
		NumTransactions:          v.data.NumTransactions(),
		NumRelevant:              tidlist.Support(relevant),
		NumTransactionsViolating: v.NumTransactionsViolatingAR(),
		NumClusters:              v.NumClustersViolatingAR(),
		Clusters:                 out,
		RelevantHash:             fmt.Sprintf("%016x", tidlist.Hash(relevant)),
		Elapsed:                  v.elapsed,
	}
}

// PriorityLabel describes what a cluster priority means.
func PriorityLabel(priority int) string {
	switch priority {
	case PriorityBothExact:
		return "both sides exact"
	case PriorityLeftExact:
		return "antecedent exact"
	case PriorityRightExact:
		return "consequent exact"
	case PriorityNoneExact:
		return "neither side exact"
	default:
		return fmt.Sprintf("priority %d", priority)
	}
}
