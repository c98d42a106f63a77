package query

import (
	"strings"

	"github.com/dot5enko/simple-object-db/schema"
)

// Predicate is a closed set of expression nodes: Leaf, And, Or, Not, Group and LinkExists.
type Predicate interface {
	isPredicate()
	String() string
}

type (
	Leaf struct {
		Cond *FilterCondition
	}

	And struct {
		Left, Right Predicate
	}

	Or struct {
		Left, Right Predicate
	}

	Not struct {
		Inner Predicate
	}

	// Group only carries the precedence chosen during construction.
	Group struct {
		Inner Predicate
	}

	// LinkExists holds when at least one record reachable through Relation satisfies Inner.
	// A nil Inner matches any linked record.
	LinkExists struct {
		Relation string
		Link     schema.LinkDef
		Target   *schema.Schema

		Inner Predicate
	}
)

func (Leaf) isPredicate()       {}
func (And) isPredicate()        {}
func (Or) isPredicate()         {}
func (Not) isPredicate()        {}
func (Group) isPredicate()      {}
func (LinkExists) isPredicate() {}

func (p Leaf) String() string {
	return p.Cond.String()
}

func (p And) String() string {
	return p.Left.String() + " AND " + p.Right.String()
}

func (p Or) String() string {
	return p.Left.String() + " OR " + p.Right.String()
}

func (p Not) String() string {
	return "NOT " + p.Inner.String()
}

func (p Group) String() string {
	return "(" + p.Inner.String() + ")"
}

func (p LinkExists) String() string {
	if p.Inner == nil {
		return "EXISTS " + p.Relation
	}
	return "EXISTS " + p.Relation + "{" + p.Inner.String() + "}"
}

// conjuncts flattens the top level AND chain, looking through groups.
func conjuncts(p Predicate, out []Predicate) []Predicate {
	switch n := p.(type) {
	case nil:
		return out
	case And:
		out = conjuncts(n.Left, out)
		return conjuncts(n.Right, out)
	case Group:
		return conjuncts(n.Inner, out)
	default:
		return append(out, p)
	}
}

func chainAnd(parts []Predicate) Predicate {
	var root Predicate
	for _, p := range parts {
		if root == nil {
			root = p
		} else {
			root = And{Left: root, Right: p}
		}
	}
	return root
}

// Relations lists the relation names a predicate traverses, outermost first.
func Relations(p Predicate) []string {
	var out []string

	var walk func(p Predicate, path string)
	walk = func(p Predicate, path string) {
		switch n := p.(type) {
		case And:
			walk(n.Left, path)
			walk(n.Right, path)
		case Or:
			walk(n.Left, path)
			walk(n.Right, path)
		case Not:
			walk(n.Inner, path)
		case Group:
			walk(n.Inner, path)
		case LinkExists:
			name := n.Relation
			if path != "" {
				name = path + "." + name
			}
			out = append(out, name)
			walk(n.Inner, name)
		}
	}
	walk(p, "")

	return out
}

func describe(parts []Predicate) string {
	s := make([]string, len(parts))
	for i, p := range parts {
		s[i] = p.String()
	}
	return strings.Join(s, " AND ")
}
