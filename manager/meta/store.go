package meta

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/dot5enko/simple-object-db/codec"
	"github.com/dot5enko/simple-object-db/lists"
	"github.com/dot5enko/simple-object-db/schema"
	"golang.org/x/sync/singleflight"
)

var (
	ErrCollectionNotFound = errors.New("collection not found")
	ErrRecordNotFound     = errors.New("record not found")
	ErrRelationNotFound   = errors.New("relation not found")
)

// Store is an in-memory record store with copy-on-write collection versions. Readers
// work on snapshots and never block writers.
type Store struct {
	meta  *MetaManager
	codec codec.Codec

	// serializes writers
	writeLock sync.Mutex

	lock    sync.RWMutex
	current map[string]*collectionVersion

	versionSeq    atomic.Uint64
	openSnapshots atomic.Int64

	inverseGroup singleflight.Group
}

func NewStore(meta *MetaManager, c codec.Codec) *Store {
	return &Store{
		meta:    meta,
		codec:   c,
		current: map[string]*collectionVersion{},
	}
}

func (st *Store) Meta() *MetaManager {
	return st.meta
}

// OpenSnapshots is the number of snapshots not released yet.
func (st *Store) OpenSnapshots() int64 {
	return st.openSnapshots.Load()
}

// version returns the latest version, creating the empty one for a registered schema.
func (st *Store) version(collection string) (*collectionVersion, error) {

	st.lock.RLock()
	v, ok := st.current[collection]
	st.lock.RUnlock()

	if ok {
		return v, nil
	}

	s := st.meta.GetSchema(collection)
	if s == nil {
		return nil, fmt.Errorf("%w: `%s`", ErrCollectionNotFound, collection)
	}

	st.lock.Lock()
	defer st.lock.Unlock()

	if v, ok := st.current[collection]; ok {
		return v, nil
	}

	v = newCollectionVersion(s)
	st.current[collection] = v

	return v, nil
}

func (st *Store) publish(collection string, v *collectionVersion) {
	st.lock.Lock()
	st.current[collection] = v
	st.lock.Unlock()
}

// update runs fn on a private copy of the collection and publishes it if fn succeeds.
func (st *Store) update(collection string, fn func(v *collectionVersion) error) error {

	st.writeLock.Lock()
	defer st.writeLock.Unlock()

	cur, err := st.version(collection)
	if err != nil {
		return err
	}

	next := cur.clone(st.versionSeq.Add(1))
	if err := fn(next); err != nil {
		return err
	}

	st.publish(collection, next)
	return nil
}

// Ingest stores rows as new records and returns their ids. The batch is applied
// atomically: one invalid row rejects all of them.
func (st *Store) Ingest(collection string, rows []map[string]any) ([]uint64, error) {

	ids := make([]uint64, 0, len(rows))

	err := st.update(collection, func(v *collectionVersion) error {

		for rowIdx, row := range rows {

			values, err := schema.NewRecordValues(v.schema, row)
			if err != nil {
				return fmt.Errorf("row %d: %w", rowIdx, err)
			}

			encoded, err := st.codec.Encode(v.schema, values)
			if err != nil {
				return fmt.Errorf("row %d: %w", rowIdx, err)
			}

			id := v.nextId
			v.nextId++

			for _, idx := range v.indexes {
				if err := idx.insert(id, values); err != nil {
					return fmt.Errorf("row %d: %w", rowIdx, err)
				}
			}

			v.records[id] = encoded
			v.ids = append(v.ids, id)
			ids = append(ids, id)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	slog.Debug("ingested", "collection", collection, "records", len(ids))

	return ids, nil
}

// Link adds targets to the forward relation of a record.
func (st *Store) Link(collection, relation string, from uint64, to ...uint64) error {

	s := st.meta.GetSchema(collection)
	if s == nil {
		return fmt.Errorf("%w: `%s`", ErrCollectionNotFound, collection)
	}

	link, ok := s.Link(relation)
	if !ok || link.Backlink {
		return fmt.Errorf("%w: no forward link `%s` on `%s`", ErrRelationNotFound, relation, collection)
	}

	target, err := st.version(link.Target)
	if err != nil {
		return err
	}

	return st.update(collection, func(v *collectionVersion) error {

		if !v.exists(from) {
			return fmt.Errorf("%w: `%s` #%d", ErrRecordNotFound, collection, from)
		}

		// self links see the private copy
		if link.Target == collection {
			target = v
		}

		for _, id := range to {
			if !target.exists(id) {
				return fmt.Errorf("%w: `%s` #%d", ErrRecordNotFound, link.Target, id)
			}
		}

		v.links[relation][from] = lists.Union(v.links[relation][from], lists.FromUnsorted(to))
		return nil
	})
}

// DeleteBatch removes the records in a single new version and returns how many existed.
func (st *Store) DeleteBatch(collection string, ids []uint64) (int, error) {

	removed := 0

	err := st.update(collection, func(v *collectionVersion) error {

		present := lists.Intersect(lists.FromUnsorted(ids), v.ids)
		if len(present) == 0 {
			return nil
		}

		drop := make(map[uint64]struct{}, len(present))
		for _, id := range present {
			drop[id] = struct{}{}
			delete(v.records, id)
			for _, m := range v.links {
				delete(m, id)
			}
		}

		for _, idx := range v.indexes {
			idx.removeIds(drop)
		}

		v.ids = lists.Difference(v.ids, present)
		removed = len(present)

		return nil
	})

	if err != nil {
		return 0, err
	}

	if removed > 0 {
		slog.Debug("deleted", "collection", collection, "records", removed)
	}

	return removed, nil
}

// Count is the number of records in the latest version.
func (st *Store) Count(collection string) (int, error) {
	v, err := st.version(collection)
	if err != nil {
		return 0, err
	}
	return len(v.ids), nil
}

// inverse returns target id -> source ids for the forward relation via of v, built
// once per version.
func (st *Store) inverse(v *collectionVersion, via string) map[uint64][]uint64 {

	if cached, ok := v.inverse.Load(via); ok {
		return cached.(map[uint64][]uint64)
	}

	key := fmt.Sprintf("%s@%d/%s", v.schema.Name, v.seq, via)

	res, _, _ := st.inverseGroup.Do(key, func() (any, error) {

		if cached, ok := v.inverse.Load(via); ok {
			return cached, nil
		}

		inv := map[uint64][]uint64{}
		forward := v.links[via]

		// sources are walked in id order so every list comes out sorted
		for _, src := range v.ids {
			for _, target := range forward[src] {
				inv[target] = append(inv[target], src)
			}
		}

		v.inverse.Store(via, inv)
		slog.Debug("backlinks built", "key", key, "targets", len(inv))

		return inv, nil
	})

	return res.(map[uint64][]uint64)
}
