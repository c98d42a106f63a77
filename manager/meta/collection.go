package meta

import (
	"maps"
	"sync"

	"github.com/dot5enko/simple-object-db/schema"
)

// collectionVersion is an immutable state of one collection once published. Writers
// clone the current version, modify the clone and publish it.
type collectionVersion struct {
	schema *schema.Schema
	seq    uint64

	nextId uint64
	ids    []uint64

	records map[uint64][]byte
	indexes map[string]*OrderedIndex

	// relation -> source id -> sorted target ids
	links map[string]map[uint64][]uint64

	// via relation name -> target id -> sorted source ids, built on first use
	inverse sync.Map
}

func newCollectionVersion(s *schema.Schema) *collectionVersion {
	v := &collectionVersion{
		schema:  s,
		nextId:  1,
		records: map[uint64][]byte{},
		indexes: map[string]*OrderedIndex{},
		links:   map[string]map[uint64][]uint64{},
	}

	for _, def := range s.Indexes {
		v.indexes[def.Name] = newOrderedIndex(s, def)
	}
	for _, l := range s.Links {
		if !l.Backlink {
			v.links[l.Name] = map[uint64][]uint64{}
		}
	}

	return v
}

func (v *collectionVersion) clone(seq uint64) *collectionVersion {
	cp := &collectionVersion{
		schema:  v.schema,
		seq:     seq,
		nextId:  v.nextId,
		ids:     append([]uint64(nil), v.ids...),
		records: maps.Clone(v.records),
		indexes: make(map[string]*OrderedIndex, len(v.indexes)),
		links:   make(map[string]map[uint64][]uint64, len(v.links)),
	}

	for name, idx := range v.indexes {
		cp.indexes[name] = idx.clone()
	}

	// target slices are shared, writers replace them instead of appending
	for name, m := range v.links {
		cp.links[name] = maps.Clone(m)
	}

	return cp
}

func (v *collectionVersion) exists(id uint64) bool {
	_, ok := v.records[id]
	return ok
}
