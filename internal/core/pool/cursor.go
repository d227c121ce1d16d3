package pool

type cursorState uint8

const (
	cursorUnpositioned cursorState = iota
	cursorBeforeFirst
	cursorAt
	cursorEnd
)

// Cursor is a single-pass traversal position over a pool's active list.
//
// The zero value (and any cursor invalidated by ReleaseAll or Purge) is
// unpositioned: Next, Current and Release do nothing until Reset is called.
// Releasing through the cursor rewinds it to the previous active record so
// that the following Next yields the record after the removed one.
type Cursor[T any] struct {
	p     *Pool[T]
	state cursorState
	pos   Handle
	gen   uint32
	epoch uint32
}

// NewCursor returns an unpositioned cursor over p.
func (p *Pool[T]) NewCursor() Cursor[T] {
	return Cursor[T]{p: p, pos: NoHandle}
}

// Reset positions the cursor on the first active record and returns it, or
// returns nil (cursor at end) when nothing is active.
func (c *Cursor[T]) Reset() *T {
	if c.p == nil {
		return nil
	}
	c.epoch = c.p.epoch
	return c.moveTo(c.p.active.head)
}

// Next advances to the following active record. It returns nil at the end
// and for an unpositioned cursor.
func (c *Cursor[T]) Next() *T {
	if !c.valid() {
		return nil
	}
	switch c.state {
	case cursorBeforeFirst:
		return c.moveTo(c.p.active.head)
	case cursorAt:
		return c.moveTo(c.p.links[c.pos].next)
	}
	return nil
}

// Current returns the record under the cursor, or nil.
func (c *Cursor[T]) Current() *T {
	if !c.valid() || c.state != cursorAt {
		return nil
	}
	return &c.p.records[c.pos]
}

// Handle returns the slot under the cursor, or NoHandle.
func (c *Cursor[T]) Handle() Handle {
	if !c.valid() || c.state != cursorAt {
		return NoHandle
	}
	return c.pos
}

// Release demotes the record under the cursor to the free head and rewinds
// the cursor to the previous active record (or before the first one).
func (c *Cursor[T]) Release() {
	if !c.valid() || c.state != cursorAt {
		return
	}
	h := c.pos
	prev := c.p.links[h].prev
	c.p.demote(h)
	if prev == NoHandle {
		c.state, c.pos = cursorBeforeFirst, NoHandle
		return
	}
	c.state, c.pos, c.gen = cursorAt, prev, c.p.links[prev].gen
}

// ReleaseRecord scans the active list for rec and demotes it. The cursor
// keeps its position; if rec is the record under the cursor the cursor is
// rewound as by Release. Unknown records are ignored.
func (c *Cursor[T]) ReleaseRecord(rec *T) bool {
	if c.p == nil || rec == nil {
		return false
	}
	p := c.p
	for h := p.active.head; h != NoHandle; h = p.links[h].next {
		if &p.records[h] != rec {
			continue
		}
		if c.valid() && c.state == cursorAt && c.pos == h {
			c.Release()
		} else {
			p.demote(h)
		}
		return true
	}
	return false
}

// End reports whether the traversal is exhausted.
func (c *Cursor[T]) End() bool { return c.valid() && c.state == cursorEnd }

// Positioned reports whether the cursor has been Reset and is still valid.
func (c *Cursor[T]) Positioned() bool { return c.valid() }

func (c *Cursor[T]) moveTo(h Handle) *T {
	if h == NoHandle {
		c.state, c.pos = cursorEnd, NoHandle
		return nil
	}
	c.state, c.pos, c.gen = cursorAt, h, c.p.links[h].gen
	return &c.p.records[h]
}

// valid rejects unpositioned cursors, cursors from an older epoch, and
// cursors whose slot was released behind their back.
func (c *Cursor[T]) valid() bool {
	if c.p == nil || c.state == cursorUnpositioned || c.epoch != c.p.epoch {
		return false
	}
	if c.state == cursorAt {
		if int(c.pos) >= len(c.p.links) {
			return false
		}
		ln := c.p.links[c.pos]
		if ln.owner != listActive || ln.gen != c.gen {
			c.state = cursorUnpositioned
			return false
		}
	}
	return true
}
