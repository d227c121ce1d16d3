package pool

// View is a read-only window onto one of a pool's lists. It observes the
// list as it is at call time; it cannot change membership.
type View[T any] struct {
	p *Pool[T]
	l *list
}

// Len returns the number of records in the list.
func (v View[T]) Len() int {
	if v.l == nil {
		return 0
	}
	return v.l.n
}

// Each calls fn for every record in list order. fn must not acquire or
// release records of the same pool.
func (v View[T]) Each(fn func(Handle, *T)) {
	if v.p == nil {
		return
	}
	for h := v.l.head; h != NoHandle; h = v.p.links[h].next {
		fn(h, &v.p.records[h])
	}
}

// All is a range-over-func form of Each.
func (v View[T]) All() func(yield func(Handle, *T) bool) {
	return func(yield func(Handle, *T) bool) {
		if v.p == nil {
			return
		}
		for h := v.l.head; h != NoHandle; h = v.p.links[h].next {
			if !yield(h, &v.p.records[h]) {
				return
			}
		}
	}
}

// Handles appends the list's handles to dst in list order.
func (v View[T]) Handles(dst []Handle) []Handle {
	v.Each(func(h Handle, _ *T) { dst = append(dst, h) })
	return dst
}

// Contains reports whether h is in this list.
func (v View[T]) Contains(h Handle) bool {
	if v.p == nil || h < 0 || int(h) >= len(v.p.links) {
		return false
	}
	want := listActive
	if v.l == &v.p.free {
		want = listFree
	}
	return v.p.links[h].owner == want
}

// First returns the head of the list, or NoHandle.
func (v View[T]) First() Handle {
	if v.l == nil {
		return NoHandle
	}
	return v.l.head
}

// Next returns the slot after h in this list, or NoHandle.
func (v View[T]) Next(h Handle) Handle {
	if v.p == nil || h < 0 || int(h) >= len(v.p.links) {
		return NoHandle
	}
	return v.p.links[h].next
}

// At returns the record in slot h.
func (v View[T]) At(h Handle) *T { return &v.p.records[h] }
