package meta

import (
	"errors"
	"fmt"
	"sort"

	"github.com/dot5enko/simple-object-db/schema"
)

var (
	ErrUniqueViolation = errors.New("unique index violation")
)

type indexEntry struct {
	key []schema.Value
	id  uint64
}

// OrderedIndex keeps (key tuple, id) entries sorted. Null sorts first, equal keys are
// ordered by id.
type OrderedIndex struct {
	def     schema.IndexDef
	columns []int

	entries []indexEntry
}

func newOrderedIndex(s *schema.Schema, def schema.IndexDef) *OrderedIndex {
	idx := &OrderedIndex{def: def}
	for _, f := range def.Fields {
		idx.columns = append(idx.columns, s.ColumnIndex(f))
	}
	return idx
}

func (idx *OrderedIndex) Len() int {
	return len(idx.entries)
}

func (idx *OrderedIndex) clone() *OrderedIndex {
	cp := *idx
	cp.entries = append([]indexEntry(nil), idx.entries...)
	return &cp
}

func compareKeys(a, b []schema.Value) int {
	for i := range a {
		if c := a[i].Compare(b[i]); c != 0 {
			return c
		}
	}
	return 0
}

func (idx *OrderedIndex) keyOf(values []schema.Value) []schema.Value {
	key := make([]schema.Value, len(idx.columns))
	for i, col := range idx.columns {
		key[i] = values[col]
	}
	return key
}

func hasNull(key []schema.Value) bool {
	for _, v := range key {
		if v.IsNull() {
			return true
		}
	}
	return false
}

func (idx *OrderedIndex) insert(id uint64, values []schema.Value) error {

	key := idx.keyOf(values)

	pos := sort.Search(len(idx.entries), func(i int) bool {
		e := idx.entries[i]
		c := compareKeys(e.key, key)
		return c > 0 || (c == 0 && e.id >= id)
	})

	// keys with a null part are not unique constrained
	if idx.def.Unique && !hasNull(key) {
		if pos > 0 && compareKeys(idx.entries[pos-1].key, key) == 0 {
			return fmt.Errorf("%w: `%s` key %v", ErrUniqueViolation, idx.def.Name, key)
		}
		if pos < len(idx.entries) && compareKeys(idx.entries[pos].key, key) == 0 {
			return fmt.Errorf("%w: `%s` key %v", ErrUniqueViolation, idx.def.Name, key)
		}
	}

	idx.entries = append(idx.entries, indexEntry{})
	copy(idx.entries[pos+1:], idx.entries[pos:])
	idx.entries[pos] = indexEntry{key: key, id: id}

	return nil
}

func (idx *OrderedIndex) removeIds(ids map[uint64]struct{}) {
	kept := idx.entries[:0]
	for _, e := range idx.entries {
		if _, drop := ids[e.id]; !drop {
			kept = append(kept, e)
		}
	}
	clear(idx.entries[len(kept):])
	idx.entries = kept
}

// before reports entries ordered below the range. All bounds but the last are points.
func before(key []schema.Value, bounds []schema.Bounds) bool {
	for i, b := range bounds {
		if b.IsPoint() {
			c := key[i].Compare(b.Lower)
			if c != 0 {
				return c < 0
			}
			continue
		}
		return !b.AboveLower(key[i])
	}
	return false
}

func after(key []schema.Value, bounds []schema.Bounds) bool {
	for i, b := range bounds {
		if b.IsPoint() {
			c := key[i].Compare(b.Upper)
			if c != 0 {
				return c > 0
			}
			continue
		}
		return !b.BelowUpper(key[i])
	}
	return false
}

// Scan walks the entries within bounds in key order, or reversed when desc is set, until
// fn returns false. bounds constrain a prefix of the index fields.
func (idx *OrderedIndex) Scan(bounds []schema.Bounds, desc bool, fn func(id uint64, key []schema.Value) bool) error {

	if len(bounds) > len(idx.columns) {
		return fmt.Errorf("index `%s` has %d fields, got %d bounds", idx.def.Name, len(idx.columns), len(bounds))
	}

	for _, b := range bounds {
		if b.IsEmpty() {
			return nil
		}
	}

	start := sort.Search(len(idx.entries), func(i int) bool {
		return !before(idx.entries[i].key, bounds)
	})
	end := sort.Search(len(idx.entries), func(i int) bool {
		return after(idx.entries[i].key, bounds)
	})

	if desc {
		for i := end - 1; i >= start; i-- {
			if !fn(idx.entries[i].id, idx.entries[i].key) {
				return nil
			}
		}
		return nil
	}

	for i := start; i < end; i++ {
		if !fn(idx.entries[i].id, idx.entries[i].key) {
			return nil
		}
	}

	return nil
}
