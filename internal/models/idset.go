package models

import (
	"encoding/json"
	"slices"
)

// IDSet is an insertion-ordered set of ids. It marshals as a JSON array.
//
// index mirrors ids for constant-time membership. Both are nil when the set is empty.
type IDSet struct {
	ids   []int64
	index map[int64]struct{}
}

// NewIDSet builds a set from ids, dropping duplicates.
func NewIDSet(ids ...int64) IDSet {
	var s IDSet
	s.Add(ids...)
	return s
}

// Has reports whether id is in the set.
func (s IDSet) Has(id int64) bool {
	_, ok := s.index[id]
	return ok
}

// Add inserts ids that are not already present.
func (s *IDSet) Add(ids ...int64) {
	for _, id := range ids {
		if s.Has(id) {
			continue
		}
		if s.index == nil {
			s.index = make(map[int64]struct{}, len(ids))
		}
		s.index[id] = struct{}{}
		s.ids = append(s.ids, id)
	}
}

// Remove deletes ids from the set.
func (s *IDSet) Remove(ids ...int64) {
	removed := false
	for _, id := range ids {
		if s.Has(id) {
			delete(s.index, id)
			removed = true
		}
	}
	if !removed {
		return
	}
	s.ids = slices.DeleteFunc(s.ids, func(v int64) bool {
		_, ok := s.index[v]
		return !ok
	})
	if len(s.ids) == 0 {
		s.Clear()
	}
}

// Clear empties the set.
func (s *IDSet) Clear() {
	s.ids = nil
	s.index = nil
}

// Len returns the number of ids.
func (s IDSet) Len() int {
	return len(s.ids)
}

// Slice returns a copy of the ids in insertion order.
func (s IDSet) Slice() []int64 {
	return slices.Clone(s.ids)
}

// Clone returns an independent copy.
func (s IDSet) Clone() IDSet {
	return NewIDSet(s.ids...)
}

// ContainsAll reports whether every id is in the set. It is true for an empty argument.
func (s IDSet) ContainsAll(ids []int64) bool {
	for _, id := range ids {
		if !s.Has(id) {
			return false
		}
	}
	return true
}

// ContainsAny reports whether at least one id is in the set.
func (s IDSet) ContainsAny(ids []int64) bool {
	return slices.ContainsFunc(ids, s.Has)
}

func (s IDSet) MarshalJSON() ([]byte, error) {
	if s.ids == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.ids)
}

func (s *IDSet) UnmarshalJSON(data []byte) error {
	var ids []int64
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*s = NewIDSet(ids...)
	return nil
}
