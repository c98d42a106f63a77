package query

import (
	"log/slog"

	"github.com/dot5enko/simple-object-db/schema"
)

type indexMatch struct {
	index  *schema.IndexDef
	bounds []schema.Bounds

	// positions of absorbed conjuncts
	absorbed []int
}

// matchIndex absorbs conjuncts into the longest prefix of the index fields: point
// conditions on leading fields, then at most one ranged field.
func matchIndex(idx *schema.IndexDef, parts []Predicate) indexMatch {

	m := indexMatch{index: idx}

	for _, field := range idx.Fields {

		point := -1
		var ranged []int

		for pos, p := range parts {
			leaf, ok := p.(Leaf)
			if !ok || leaf.Cond.Field != field || !leaf.Cond.Absorbable() {
				continue
			}
			if leaf.Cond.IsPoint() {
				point = pos
				break
			}
			ranged = append(ranged, pos)
		}

		if point >= 0 {
			m.bounds = append(m.bounds, parts[point].(Leaf).Cond.KeyBounds())
			m.absorbed = append(m.absorbed, point)
			continue
		}

		if len(ranged) > 0 {
			b := schema.Unbounded()
			for _, pos := range ranged {
				b.Morph(parts[pos].(Leaf).Cond.KeyBounds())
			}
			m.bounds = append(m.bounds, b)
			m.absorbed = append(m.absorbed, ranged...)
		}

		break
	}

	return m
}

// selectWhere picks the traversal for a predicate and returns the residual filter.
// Longest matched prefix wins, ties go to the first declared index. A hint forces its
// index if the index can absorb anything, otherwise the plan becomes a plain scan.
func selectWhere(s *schema.Schema, root Predicate, hint string) (WhereClause, Predicate) {

	parts := conjuncts(root, nil)

	var best indexMatch

	if hint != "" {
		for i := range s.Indexes {
			if s.Indexes[i].Name == hint {
				best = matchIndex(&s.Indexes[i], parts)
				break
			}
		}

		if len(best.bounds) == 0 {
			slog.Debug("index hint can not be used, scanning", "collection", s.Name, "index", hint)
			return WhereClause{}, root
		}
	} else {
		for i := range s.Indexes {
			m := matchIndex(&s.Indexes[i], parts)
			if len(m.bounds) > len(best.bounds) {
				best = m
			}
		}
	}

	if len(best.bounds) == 0 {
		return WhereClause{}, root
	}

	where := WhereClause{
		Index:  best.index,
		Bounds: best.bounds,
	}

	taken := make(map[int]struct{}, len(best.absorbed))
	for _, pos := range best.absorbed {
		taken[pos] = struct{}{}
		where.Absorbed = append(where.Absorbed, parts[pos].(Leaf).Cond)
	}

	var residual []Predicate
	for pos, p := range parts {
		if _, ok := taken[pos]; !ok {
			residual = append(residual, p)
		}
	}

	return where, chainAnd(residual)
}
