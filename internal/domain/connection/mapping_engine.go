package connection

// MappingEntry is one surviving rule of a resolved mapping table
type MappingEntry struct {
	Source    string        `json:"source"`
	Target    string        `json:"target"`
	Transform TransformKind `json:"transform,omitempty"`
}

// MappingTable is the resolved source-to-target field mapping. Each source and
// each target appears at most once. The zero value is an empty table.
type MappingTable struct {
	entries  []MappingEntry
	bySource map[string]int
	byTarget map[string]int
}

// BuildMapping resolves an ordered rule list into a mapping table.
// Rules are applied in declaration order with last-write-wins on both a
// duplicate source and a duplicate target. Rules with an empty reference are
// skipped. Surviving entries keep their declaration order.
func BuildMapping(rules []FieldMapping) MappingTable {
	type slot struct {
		entry MappingEntry
		live  bool
	}
	slots := make([]slot, 0, len(rules))
	bySource := make(map[string]int, len(rules))
	byTarget := make(map[string]int, len(rules))

	for _, r := range rules {
		src, dst := ParseFieldRef(r.Source), ParseFieldRef(r.Target)
		if src == "" || dst == "" {
			continue
		}
		if i, ok := bySource[src]; ok {
			slots[i].live = false
			delete(byTarget, slots[i].entry.Target)
		}
		if i, ok := byTarget[dst]; ok {
			slots[i].live = false
			delete(bySource, slots[i].entry.Source)
		}
		slots = append(slots, slot{entry: MappingEntry{Source: src, Target: dst, Transform: r.Transform}, live: true})
		bySource[src] = len(slots) - 1
		byTarget[dst] = len(slots) - 1
	}

	t := MappingTable{
		entries:  make([]MappingEntry, 0, len(bySource)),
		bySource: make(map[string]int, len(bySource)),
		byTarget: make(map[string]int, len(byTarget)),
	}
	for _, s := range slots {
		if !s.live {
			continue
		}
		t.bySource[s.entry.Source] = len(t.entries)
		t.byTarget[s.entry.Target] = len(t.entries)
		t.entries = append(t.entries, s.entry)
	}
	return t
}

// Len returns the number of resolved entries
func (t MappingTable) Len() int {
	return len(t.entries)
}

// Entries returns a copy of the resolved entries in declaration order
func (t MappingTable) Entries() []MappingEntry {
	out := make([]MappingEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// ForSource returns the entry reading from the given source field
func (t MappingTable) ForSource(source string) (MappingEntry, bool) {
	i, ok := t.bySource[source]
	if !ok {
		return MappingEntry{}, false
	}
	return t.entries[i], true
}

// ForTarget returns the entry writing the given target field
func (t MappingTable) ForTarget(target string) (MappingEntry, bool) {
	i, ok := t.byTarget[target]
	if !ok {
		return MappingEntry{}, false
	}
	return t.entries[i], true
}

// Apply translates a storefront record into ERP item fields. Sources absent
// from the record are ignored.
func (t MappingTable) Apply(record map[string]any) map[string]any {
	out := make(map[string]any, len(t.entries))
	for _, e := range t.entries {
		v, ok := record[e.Source]
		if !ok {
			continue
		}
		out[e.Target] = e.Transform.Apply(v)
	}
	return out
}

// ApplyReverse translates ERP item fields back onto storefront fields.
// Transforms are not inverted; values are copied as-is.
func (t MappingTable) ApplyReverse(record map[string]any) map[string]any {
	out := make(map[string]any, len(t.entries))
	for _, e := range t.entries {
		v, ok := record[e.Target]
		if !ok {
			continue
		}
		out[e.Source] = v
	}
	return out
}
