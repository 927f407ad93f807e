package internal

import "reflect"

// Equal compares with == when the dynamic type allows it and falls back to
// reflect.DeepEqual otherwise (slices, maps, structs holding them).
func Equal(a, b any) (equal bool) {
	if a == nil || b == nil {
		return a == b
	}

	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if !ta.Comparable() {
		return reflect.DeepEqual(a, b)
	}

	// comparable types may still hold incomparable interface values
	defer func() {
		if recover() != nil {
			equal = reflect.DeepEqual(a, b)
		}
	}()
	return a == b
}

// Set remembers values for the lifetime of one subscription.
type Set struct {
	keys  map[any]struct{}
	other []any
}

func NewSet() *Set {
	return &Set{keys: make(map[any]struct{})}
}

// Add inserts v and reports whether it was absent.
func (s *Set) Add(v any) (added bool) {
	if v == nil || reflect.TypeOf(v).Comparable() {
		if ok := s.addKey(v); ok != nil {
			return *ok
		}
	}

	for _, o := range s.other {
		if reflect.DeepEqual(o, v) {
			return false
		}
	}
	s.other = append(s.other, v)
	return true
}

// addKey returns nil when v turned out not to be hashable.
func (s *Set) addKey(v any) (added *bool) {
	defer func() {
		if recover() != nil {
			added = nil
		}
	}()

	_, seen := s.keys[v]
	if !seen {
		s.keys[v] = struct{}{}
	}
	result := !seen
	return &result
}
