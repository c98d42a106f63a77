package executor_test

import (
	"context"
	"testing"

	"github.com/dot5enko/simple-object-db/codec"
	"github.com/dot5enko/simple-object-db/manager/executor"
	"github.com/dot5enko/simple-object-db/manager/meta"
	"github.com/dot5enko/simple-object-db/manager/query"
	"github.com/dot5enko/simple-object-db/schema"
	"github.com/stretchr/testify/require"
)

func testSchemas() []*schema.Schema {
	return []*schema.Schema{
		{
			Name: "Shoe",
			Columns: []schema.SchemaColumn{
				{Name: "model", Type: schema.StringFieldType},
				{Name: "size", Type: schema.Int16FieldType, Nullable: true},
				{Name: "color", Type: schema.StringFieldType, Nullable: true},
				{Name: "price", Type: schema.Float64FieldType, Nullable: true},
				{Name: "weight", Type: schema.Float32FieldType, Nullable: true},
			},
			Indexes: []schema.IndexDef{
				{Name: "by_size", Fields: []string{"size"}},
				{Name: "by_model_size", Fields: []string{"model", "size"}},
				{Name: "by_price", Fields: []string{"price"}},
				{Name: "by_weight", Fields: []string{"weight"}},
			},
			Links: []schema.LinkDef{
				{Name: "brand", Target: "Brand"},
			},
		},
		{
			Name: "Brand",
			Columns: []schema.SchemaColumn{
				{Name: "name", Type: schema.StringFieldType},
				{Name: "country", Type: schema.StringFieldType, Nullable: true},
			},
			Links: []schema.LinkDef{
				{Name: "shoes", Target: "Shoe", Backlink: true, Via: "brand"},
			},
		},
		{
			Name: "Person",
			Columns: []schema.SchemaColumn{
				{Name: "name", Type: schema.StringFieldType},
				{Name: "age", Type: schema.Uint8FieldType},
			},
			Links: []schema.LinkDef{
				{Name: "friends", Target: "Person"},
				{Name: "friendOf", Target: "Person", Backlink: true, Via: "friends"},
			},
		},
	}
}

type fixture struct {
	t     *testing.T
	store *meta.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	m := meta.NewMetaManager()
	require.NoError(t, m.AddSchema(testSchemas()...))

	return &fixture{t: t, store: meta.NewStore(m, codec.Codec{CompressThreshold: 48})}
}

func (f *fixture) ingest(collection string, rows ...map[string]any) []uint64 {
	f.t.Helper()

	ids, err := f.store.Ingest(collection, rows)
	require.NoError(f.t, err)
	return ids
}

// sizes ingests one shoe per size, nil meaning a null size.
func (f *fixture) sizes(sizes ...any) []uint64 {
	rows := make([]map[string]any, len(sizes))
	for i, s := range sizes {
		rows[i] = map[string]any{"model": "Runner", "size": s}
	}
	return f.ingest("Shoe", rows...)
}

func (f *fixture) query(collection string) *query.Builder {
	return query.NewBuilder(f.store.Meta(), collection)
}

func (f *fixture) run(b *query.Builder) *executor.Result {
	f.t.Helper()

	res, err := f.runErr(context.Background(), b)
	require.NoError(f.t, err)
	return res
}

func (f *fixture) runErr(ctx context.Context, b *query.Builder) (*executor.Result, error) {
	f.t.Helper()

	plan, err := b.Build()
	require.NoError(f.t, err)

	snap := f.store.Snapshot()
	defer snap.Release()

	return executor.Run(ctx, snap, plan)
}

func column(records []*schema.Record, field string) []any {
	out := make([]any, len(records))
	for i, r := range records {
		out[i] = r.Get(field).Any()
	}
	return out
}

func ids(records []*schema.Record) []uint64 {
	out := make([]uint64, len(records))
	for i, r := range records {
		out[i] = r.Id
	}
	return out
}
