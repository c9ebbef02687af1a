// Package tidlist provides transaction-id list representations together with
// their support and identity hash.
//
// A tid-list is either Simple (a flat list of ids) or Partition (ids grouped by
// equivalence class). Both satisfy TIDList; the interface is sealed so no other
// representation can be introduced outside this package.
package tidlist

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// TIDList is a set of transaction ids in one of the two supported representations.
type TIDList interface {
	tidList()
}

// Simple is a flat list of transaction ids.
type Simple []int

func (Simple) tidList() {}

// Partition is a list of transaction ids grouped into equivalence classes.
// The total number of ids is cached at construction so Support never walks the ids.
type Partition struct {
	groups [][]int
	size   int
}

func (*Partition) tidList() {}

// NewPartition builds a partitioned tid-list. Empty groups are dropped.
func NewPartition(groups ...[]int) *Partition {
	p := &Partition{groups: make([][]int, 0, len(groups))}
	for _, g := range groups {
		p.Add(g)
	}
	return p
}

// Add appends a new equivalence class.
func (p *Partition) Add(group []int) {
	if len(group) == 0 {
		return
	}
	p.groups = append(p.groups, group)
	p.size += len(group)
}

// Groups returns the equivalence classes. Callers must not modify them.
func (p *Partition) Groups() [][]int {
	return p.groups
}

// NumGroups returns the number of equivalence classes.
func (p *Partition) NumGroups() int {
	return len(p.groups)
}

// Flatten returns every id of the partition as a Simple tid-list.
func (p *Partition) Flatten() Simple {
	out := make(Simple, 0, p.size)
	for _, g := range p.groups {
		out = append(out, g...)
	}
	return out
}

// Support returns the number of transaction ids represented by tids.
func Support(tids TIDList) int {
	switch l := tids.(type) {
	case Simple:
		return len(l)
	case *Partition:
		if l == nil {
			return 0
		}
		return l.size
	default:
		return 0
	}
}

// Hash returns an order-independent hash of the ids in tids. Two tid-lists
// holding the same ids hash identically whatever their representation.
func Hash(tids TIDList) uint64 {
	var sum, xor uint64
	var n int

	mix := func(ids []int) {
		for _, id := range ids {
			h := hashID(id)
			sum += h
			xor ^= h
		}
		n += len(ids)
	}

	switch l := tids.(type) {
	case Simple:
		mix(l)
	case *Partition:
		if l != nil {
			for _, g := range l.groups {
				mix(g)
			}
		}
	}

	return finalize(sum, xor, n)
}

func hashID(id int) uint64 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(id))
	return xxhash.Sum64(buf[:])
}

// finalize folds the commutative accumulators and the cardinality into one value.
func finalize(sum, xor uint64, n int) uint64 {
	var buf [24]byte
	binary.LittleEndian.PutUint64(buf[0:8], sum)
	binary.LittleEndian.PutUint64(buf[8:16], xor)
	binary.LittleEndian.PutUint64(buf[16:24], uint64(n))
	return xxhash.Sum64(buf[:])
}
