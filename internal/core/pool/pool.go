package pool

// Handle is a stable slot index into a Pool's arena. It stays valid for the
// lifetime of the pool (until Purge), regardless of which list owns the slot.
type Handle int32

// NoHandle is returned when no slot is available.
const NoHandle Handle = -1

type listID uint8

const (
	listNone listID = iota
	listActive
	listFree
)

// link is the intrusive prev/next pair of one arena slot.
type link struct {
	prev, next Handle
	owner      listID
	// gen counts demotions so cursors can detect a recycled slot.
	gen uint32
}

// list is an index-linked sequence over the arena.
type list struct {
	head, tail Handle
	n          int
}

func emptyList() list { return list{head: NoHandle, tail: NoHandle} }

// Pool is a dual-list recycling pool over a single contiguous arena.
// Every slot is owned by exactly one of two lists: active (live records,
// insertion order) or free (records available for reuse, head first).
// Moving a slot between lists relinks two indices and never allocates.
//
// A Pool is owned by one goroutine; nothing here is synchronized.
type Pool[T any] struct {
	records []T
	links   []link
	active  list
	free    list
	reset   func(*T)

	// epoch invalidates outstanding cursors on ReleaseAll/Purge.
	epoch uint32

	cursor Cursor[T]
}

// Option configures a Pool.
type Option[T any] func(*Pool[T])

// WithReset installs a hook applied to a record every time it is acquired
// and to every slot created by Grow.
func WithReset[T any](fn func(*T)) Option[T] {
	return func(p *Pool[T]) { p.reset = fn }
}

// New creates an empty pool. Capacity is added with Add or Grow.
func New[T any](opts ...Option[T]) *Pool[T] {
	p := &Pool[T]{
		active: emptyList(),
		free:   emptyList(),
	}
	for _, o := range opts {
		o(p)
	}
	p.cursor = p.NewCursor()
	return p
}

// Add inserts a newly constructed record at the free tail and returns its
// handle. Only meant for capacity growth between ticks: the arena may be
// reallocated, so record pointers handed out earlier must not be kept.
func (p *Pool[T]) Add(rec T) Handle {
	h := Handle(len(p.records))
	p.records = append(p.records, rec)
	p.links = append(p.links, link{prev: NoHandle, next: NoHandle})
	p.pushBack(&p.free, listFree, h)
	return h
}

// Grow adds n fresh slots to the free list.
func (p *Pool[T]) Grow(n int) {
	if n <= 0 {
		return
	}
	if need := len(p.records) + n; need > cap(p.records) {
		recs := make([]T, len(p.records), need)
		copy(recs, p.records)
		p.records = recs
		links := make([]link, len(p.links), need)
		copy(links, p.links)
		p.links = links
	}
	for i := 0; i < n; i++ {
		var rec T
		if p.reset != nil {
			p.reset(&rec)
		}
		p.Add(rec)
	}
}

// Acquire promotes the free head to the active tail and returns it.
// It returns nil, false when the free list is empty; nothing is mutated then.
func (p *Pool[T]) Acquire() (*T, bool) {
	h, ok := p.AcquireHandle()
	if !ok {
		return nil, false
	}
	return &p.records[h], true
}

// AcquireHandle is Acquire returning the slot handle.
func (p *Pool[T]) AcquireHandle() (Handle, bool) {
	h := p.free.head
	if h == NoHandle {
		return NoHandle, false
	}
	p.unlink(&p.free, h)
	p.pushBack(&p.active, listActive, h)
	if p.reset != nil {
		p.reset(&p.records[h])
	}
	return h, true
}

// Release demotes an active slot to the free head. It reports false when h
// is not active. Cursors positioned on h are left dangling; traversals must
// release through their cursor instead.
func (p *Pool[T]) Release(h Handle) bool {
	if !p.IsActive(h) {
		return false
	}
	p.demote(h)
	return true
}

// ReleaseAll demotes every active record. All cursors become unpositioned.
func (p *Pool[T]) ReleaseAll() {
	for h := p.active.head; h != NoHandle; {
		next := p.links[h].next
		p.demote(h)
		h = next
	}
	p.epoch++
}

// Purge releases everything and then destroys all storage. The pool is
// empty afterwards and can be grown again.
func (p *Pool[T]) Purge() {
	p.ReleaseAll()
	clear(p.records)
	p.records = nil
	p.links = nil
	p.active = emptyList()
	p.free = emptyList()
	p.epoch++
}

// Exhausted reports whether the free list is empty.
func (p *Pool[T]) Exhausted() bool { return p.free.n == 0 }

// Len is the number of active records.
func (p *Pool[T]) Len() int { return p.active.n }

// FreeLen is the number of free records.
func (p *Pool[T]) FreeLen() int { return p.free.n }

// Cap is the number of records the pool owns.
func (p *Pool[T]) Cap() int { return len(p.records) }

// Get returns the record in slot h, or nil for an out-of-range handle.
func (p *Pool[T]) Get(h Handle) *T {
	if h < 0 || int(h) >= len(p.records) {
		return nil
	}
	return &p.records[h]
}

// IsActive reports whether slot h is on the active list.
func (p *Pool[T]) IsActive(h Handle) bool {
	return h >= 0 && int(h) < len(p.links) && p.links[h].owner == listActive
}

// Active returns a read-only view of the active list.
func (p *Pool[T]) Active() View[T] { return View[T]{p: p, l: &p.active} }

// Free returns a read-only view of the free list.
func (p *Pool[T]) Free() View[T] { return View[T]{p: p, l: &p.free} }

// Shared cursor API. The pool carries one cursor that single-pass
// traversals (affectors) share; NewCursor gives independent ones.

// ResetCursor positions the shared cursor on the first active record.
func (p *Pool[T]) ResetCursor() *T { return p.cursor.Reset() }

// AdvanceCursor moves the shared cursor forward.
func (p *Pool[T]) AdvanceCursor() *T { return p.cursor.Next() }

// ReleaseCurrent releases the record under the shared cursor.
func (p *Pool[T]) ReleaseCurrent() { p.cursor.Release() }

// ReleaseByIdentity releases rec if it is active, keeping the shared cursor
// position.
func (p *Pool[T]) ReleaseByIdentity(rec *T) bool { return p.cursor.ReleaseRecord(rec) }

// SharedCursor exposes the pool's shared cursor.
func (p *Pool[T]) SharedCursor() *Cursor[T] { return &p.cursor }

func (p *Pool[T]) demote(h Handle) {
	p.unlink(&p.active, h)
	p.links[h].gen++
	p.pushFront(&p.free, listFree, h)
}

func (p *Pool[T]) unlink(l *list, h Handle) {
	ln := &p.links[h]
	if ln.prev != NoHandle {
		p.links[ln.prev].next = ln.next
	} else {
		l.head = ln.next
	}
	if ln.next != NoHandle {
		p.links[ln.next].prev = ln.prev
	} else {
		l.tail = ln.prev
	}
	ln.prev, ln.next, ln.owner = NoHandle, NoHandle, listNone
	l.n--
}

func (p *Pool[T]) pushBack(l *list, id listID, h Handle) {
	ln := &p.links[h]
	ln.prev, ln.next, ln.owner = l.tail, NoHandle, id
	if l.tail != NoHandle {
		p.links[l.tail].next = h
	} else {
		l.head = h
	}
	l.tail = h
	l.n++
}

func (p *Pool[T]) pushFront(l *list, id listID, h Handle) {
	ln := &p.links[h]
	ln.prev, ln.next, ln.owner = NoHandle, l.head, id
	if l.head != NoHandle {
		p.links[l.head].prev = h
	} else {
		l.tail = h
	}
	l.head = h
	l.n++
}
