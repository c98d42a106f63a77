package executor

import "github.com/dot5enko/simple-object-db/schema"

// Snapshot is one consistent read view supplied by the storage layer. The executor only
// reads through it and never releases it.
type Snapshot interface {
	Id() string

	// Scan walks record ids in ascending order, or descending, until fn returns false.
	Scan(collection string, desc bool, fn func(id uint64) bool) error
	Index(collection, name string) (IndexReader, bool)

	Record(collection string, id uint64) (*schema.Record, error)
	Property(collection string, id uint64, column int) (schema.Value, error)

	// Links resolves a link or backlink to target ids in ascending order.
	Links(collection, relation string, id uint64) ([]uint64, error)

	Release()
}

type IndexReader interface {
	// Scan walks entries whose leading fields fall within bounds, in key order then id
	// order, until fn returns false.
	Scan(bounds []schema.Bounds, desc bool, fn func(id uint64, key []schema.Value) bool) error
}

// BatchDeleter removes records as one batch.
type BatchDeleter interface {
	DeleteBatch(collection string, ids []uint64) (int, error)
}
