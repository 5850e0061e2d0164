package domain

import (
	"slices"
	"strings"
)

// Registry is the participant list, always sorted by ID.
type Registry []Participant

// Find binary-searches for id. When absent it returns the insertion index and false.
func (r Registry) Find(id string) (int, bool) {
	return slices.BinarySearchFunc(r, id, func(p Participant, target string) int {
		return strings.Compare(p.ID, target)
	})
}

// NameTaken reports whether any participant already uses name.
func (r Registry) NameTaken(name string) bool {
	for _, p := range r {
		if p.Name == name {
			return true
		}
	}
	return false
}

// Insert places p at idx, which must come from a failed Find for p.ID.
func (r Registry) Insert(idx int, p Participant) Registry {
	return slices.Insert(r, idx, p)
}

// Clone returns an independent copy of the registry.
func (r Registry) Clone() Registry {
	return slices.Clone(r)
}

// RanksBefore is the scoring order: higher score first, then lower compute usage.
func RanksBefore(a, b Participant) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.ComputeUsed < b.ComputeUsed
}

// Winner returns the index of the best-ranked participant. Ties that survive the
// scoring order go to the lowest index. ok is false for an empty registry.
func (r Registry) Winner() (idx int, ok bool) {
	if len(r) == 0 {
		return 0, false
	}
	for i := 1; i < len(r); i++ {
		if RanksBefore(r[i], r[idx]) {
			idx = i
		}
	}
	return idx, true
}

// Ranked returns a copy of the registry ordered by the scoring order.
func (r Registry) Ranked() Registry {
	out := r.Clone()
	slices.SortStableFunc(out, func(a, b Participant) int {
		switch {
		case RanksBefore(a, b):
			return -1
		case RanksBefore(b, a):
			return 1
		default:
			return 0
		}
	})
	return out
}
