package connection

import (
	"encoding/json"
	"sort"
	"strings"
)

// WarehouseSet is the set of warehouses considered for stock aggregation.
// Duplicates collapse and order is irrelevant; blank names are ignored.
type WarehouseSet struct {
	items map[string]struct{}
}

// NewWarehouseSet builds a set from the given warehouse names
func NewWarehouseSet(names ...string) WarehouseSet {
	s := WarehouseSet{}
	for _, n := range names {
		s.Add(n)
	}
	return s
}

// Add inserts a warehouse; it reports whether the set changed
func (s *WarehouseSet) Add(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	if s.items == nil {
		s.items = make(map[string]struct{})
	}
	if _, ok := s.items[name]; ok {
		return false
	}
	s.items[name] = struct{}{}
	return true
}

// Contains reports whether the warehouse is part of the set
func (s WarehouseSet) Contains(name string) bool {
	_, ok := s.items[strings.TrimSpace(name)]
	return ok
}

// Len returns the number of distinct warehouses
func (s WarehouseSet) Len() int {
	return len(s.items)
}

// IsEmpty returns true if no warehouse is selected
func (s WarehouseSet) IsEmpty() bool {
	return len(s.items) == 0
}

// Sorted returns the warehouses in lexical order
func (s WarehouseSet) Sorted() []string {
	out := make([]string, 0, len(s.items))
	for name := range s.items {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Equal compares two sets by membership
func (s WarehouseSet) Equal(other WarehouseSet) bool {
	if s.Len() != other.Len() {
		return false
	}
	for name := range s.items {
		if !other.Contains(name) {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the set as a sorted array
func (s WarehouseSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

// UnmarshalJSON decodes an array, collapsing duplicates
func (s *WarehouseSet) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	*s = NewWarehouseSet(names...)
	return nil
}
