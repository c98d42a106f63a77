package executor

// paginator applies offset then limit. A negative limit is unbounded.
type paginator struct {
	offset int
	limit  int

	skipped int
	emitted int
}

func newPaginator(offset, limit int) *paginator {
	if offset < 0 {
		offset = 0
	}
	if limit < 0 {
		limit = -1
	}
	return &paginator{offset: offset, limit: limit}
}

func (p *paginator) full() bool {
	return p.limit >= 0 && p.emitted >= p.limit
}

// admit reports whether the next record is inside the page.
func (p *paginator) admit() bool {
	if p.skipped < p.offset {
		p.skipped++
		return false
	}
	if p.full() {
		return false
	}
	p.emitted++
	return true
}
