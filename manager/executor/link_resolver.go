package executor

import (
	"fmt"

	"github.com/dot5enko/simple-object-db/manager/query"
)

// linkExists follows only the relation named by the node. Nested nodes name their own
// relations, so traversal depth is bounded by the predicate and cycles can not loop.
func (e *execution) linkExists(n query.LinkExists, v *recordView) (bool, error) {

	targets, err := e.snap.Links(v.collection.Name, n.Relation, v.id)
	if err != nil {
		return false, fmt.Errorf("resolving `%s` of %s #%d: %w", n.Relation, v.collection.Name, v.id, err)
	}
	e.stats.LinkTraversals++

	if n.Inner == nil {
		return len(targets) > 0, nil
	}

	for _, id := range targets {
		ok, err := e.eval(n.Inner, newRecordView(n.Target, id))
		if err != nil || ok {
			return ok, err
		}
	}

	return false, nil
}
