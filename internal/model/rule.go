package model

import (
	"fmt"
	"strings"
)

// Rule is an association rule left -> right over item ids. Confidence is
// filled in by the statistics calculator.
type Rule struct {
	Left       []int
	Right      []int
	Confidence float64
}

// NewRule returns a rule with an unset confidence.
func NewRule(left, right []int) *Rule {
	return &Rule{Left: left, Right: right}
}

// Disjoint reports whether no item id appears on both sides.
func (r *Rule) Disjoint() bool {
	left := make(map[int]struct{}, len(r.Left))
	for _, id := range r.Left {
		left[id] = struct{}{}
	}
	for _, id := range r.Right {
		if _, ok := left[id]; ok {
			return false
		}
	}
	return true
}

// RuleNames is an association rule expressed with item names, as supplied by a user.
type RuleNames struct {
	Name  string   `json:"name,omitempty" yaml:"name"`
	Left  []string `json:"left" yaml:"left"`
	Right []string `json:"right" yaml:"right"`
}

func (r RuleNames) String() string {
	return fmt.Sprintf("{%s} -> {%s}", strings.Join(r.Left, ", "), strings.Join(r.Right, ", "))
}
