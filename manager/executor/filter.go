package executor

import (
	"fmt"

	"github.com/dot5enko/simple-object-db/manager/query"
)

// eval decides whether the record satisfies p. And and Or short circuit left to right.
func (e *execution) eval(p query.Predicate, v *recordView) (bool, error) {

	switch n := p.(type) {
	case nil:
		return true, nil

	case query.Leaf:
		val, err := e.get(v, n.Cond.Column)
		if err != nil {
			return false, err
		}
		return n.Cond.Test(val), nil

	case query.And:
		ok, err := e.eval(n.Left, v)
		if err != nil || !ok {
			return false, err
		}
		return e.eval(n.Right, v)

	case query.Or:
		ok, err := e.eval(n.Left, v)
		if err != nil || ok {
			return ok, err
		}
		return e.eval(n.Right, v)

	case query.Not:
		ok, err := e.eval(n.Inner, v)
		if err != nil {
			return false, err
		}
		return !ok, nil

	case query.Group:
		return e.eval(n.Inner, v)

	case query.LinkExists:
		return e.linkExists(n, v)
	}

	return false, fmt.Errorf("unsupported predicate %T", p)
}
