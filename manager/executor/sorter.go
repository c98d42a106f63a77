package executor

import (
	"slices"

	"github.com/dot5enko/simple-object-db/manager/query"
)

// sortViews orders the buffered stream by the sort keys. The sort is stable, records
// equal on every key keep their traversal order.
func (e *execution) sortViews(views []*recordView, keys []query.SortKey) error {

	// load keys up front so the comparator can not fail
	for _, v := range views {
		for _, k := range keys {
			if _, err := e.get(v, k.Column); err != nil {
				return err
			}
		}
	}

	slices.SortStableFunc(views, func(a, b *recordView) int {
		for _, k := range keys {
			c := a.valueAt(k.Column).Compare(b.valueAt(k.Column))
			if c == 0 {
				continue
			}
			if k.Desc {
				return -c
			}
			return c
		}
		return 0
	})

	return nil
}
