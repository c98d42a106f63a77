package meta

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/dot5enko/simple-object-db/codec"
	"github.com/dot5enko/simple-object-db/lists"
	"github.com/dot5enko/simple-object-db/manager/executor"
	"github.com/dot5enko/simple-object-db/schema"
	"github.com/google/uuid"
)

var (
	ErrSnapshotReleased = errors.New("snapshot released")
)

// Snapshot pins the versions of every collection that existed when it was taken.
type Snapshot struct {
	id    uuid.UUID
	store *Store

	versions map[string]*collectionVersion
	released atomic.Bool
}

func (st *Store) Snapshot() *Snapshot {

	for _, name := range st.meta.Names() {
		// materialize empty versions so the snapshot sees every registered collection
		st.version(name)
	}

	st.lock.RLock()
	versions := make(map[string]*collectionVersion, len(st.current))
	for name, v := range st.current {
		versions[name] = v
	}
	st.lock.RUnlock()

	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}

	st.openSnapshots.Add(1)

	return &Snapshot{id: id, store: st, versions: versions}
}

func (s *Snapshot) Id() string {
	return s.id.String()
}

func (s *Snapshot) Release() {
	if s.released.CompareAndSwap(false, true) {
		s.store.openSnapshots.Add(-1)
	}
}

func (s *Snapshot) version(collection string) (*collectionVersion, error) {
	if s.released.Load() {
		return nil, ErrSnapshotReleased
	}

	v, ok := s.versions[collection]
	if !ok {
		return nil, fmt.Errorf("%w: `%s`", ErrCollectionNotFound, collection)
	}
	return v, nil
}

func (s *Snapshot) Scan(collection string, desc bool, fn func(id uint64) bool) error {
	v, err := s.version(collection)
	if err != nil {
		return err
	}

	if desc {
		for i := len(v.ids) - 1; i >= 0; i-- {
			if !fn(v.ids[i]) {
				return nil
			}
		}
		return nil
	}

	for _, id := range v.ids {
		if !fn(id) {
			return nil
		}
	}
	return nil
}

func (s *Snapshot) Index(collection, name string) (executor.IndexReader, bool) {
	v, err := s.version(collection)
	if err != nil {
		return nil, false
	}

	idx, ok := v.indexes[name]
	if !ok {
		return nil, false
	}
	return idx, true
}

func (s *Snapshot) encoded(collection string, id uint64) (*collectionVersion, []byte, error) {
	v, err := s.version(collection)
	if err != nil {
		return nil, nil, err
	}

	data, ok := v.records[id]
	if !ok {
		return nil, nil, fmt.Errorf("%w: `%s` #%d", ErrRecordNotFound, collection, id)
	}
	return v, data, nil
}

func (s *Snapshot) Record(collection string, id uint64) (*schema.Record, error) {
	v, data, err := s.encoded(collection, id)
	if err != nil {
		return nil, err
	}
	return codec.Decode(v.schema, id, data)
}

func (s *Snapshot) Property(collection string, id uint64, column int) (schema.Value, error) {
	v, data, err := s.encoded(collection, id)
	if err != nil {
		return schema.Null(), err
	}
	return codec.DecodeField(v.schema, data, column)
}

func (s *Snapshot) Links(collection, relation string, id uint64) ([]uint64, error) {
	v, err := s.version(collection)
	if err != nil {
		return nil, err
	}

	link, ok := v.schema.Link(relation)
	if !ok {
		return nil, fmt.Errorf("%w: `%s` on `%s`", ErrRelationNotFound, relation, collection)
	}

	target, err := s.version(link.Target)
	if err != nil {
		return nil, err
	}

	if link.Backlink {
		return s.store.inverse(target, link.Via)[id], nil
	}

	// targets deleted after linking are dropped
	return lists.Intersect(v.links[relation][id], target.ids), nil
}

// DeleteBatch applies a deletion computed on this snapshot to the latest version.
func (s *Snapshot) DeleteBatch(collection string, ids []uint64) (int, error) {
	if s.released.Load() {
		return 0, ErrSnapshotReleased
	}

	removed, err := s.store.DeleteBatch(collection, ids)
	if err != nil {
		return 0, err
	}

	slog.Debug("batch delete from snapshot", "snapshot", s.Id(), "collection", collection, "requested", len(ids), "removed", removed)
	return removed, nil
}
