package pool

import (
	"math/rand"
	"testing"
)

type rec struct {
	id  int
	hit int
}

func newFilled(n int) *Pool[rec] {
	p := New[rec]()
	for i := 0; i < n; i++ {
		p.Add(rec{id: i})
	}
	return p
}

// checkInvariants asserts conservation and no-duplication over both lists.
func checkInvariants(t *testing.T, p *Pool[rec]) {
	t.Helper()
	if got := p.Len() + p.FreeLen(); got != p.Cap() {
		t.Fatalf("conservation: active %d + free %d != cap %d", p.Len(), p.FreeLen(), p.Cap())
	}
	seen := make(map[Handle]string, p.Cap())
	for _, h := range p.Active().Handles(nil) {
		if prev, ok := seen[h]; ok {
			t.Fatalf("slot %d seen twice (active after %s)", h, prev)
		}
		seen[h] = "active"
	}
	for _, h := range p.Free().Handles(nil) {
		if prev, ok := seen[h]; ok {
			t.Fatalf("slot %d seen twice (free after %s)", h, prev)
		}
		seen[h] = "free"
	}
	if len(seen) != p.Cap() {
		t.Fatalf("lost slots: %d owned, cap %d", len(seen), p.Cap())
	}
}

func TestAcquireReleaseConservation(t *testing.T) {
	p := newFilled(64)
	rng := rand.New(rand.NewSource(7))
	var held []Handle
	for step := 0; step < 5000; step++ {
		switch rng.Intn(4) {
		case 0, 1:
			if h, ok := p.AcquireHandle(); ok {
				held = append(held, h)
			}
		case 2:
			if len(held) > 0 {
				i := rng.Intn(len(held))
				if !p.Release(held[i]) {
					t.Fatalf("release of held slot %d failed", held[i])
				}
				held = append(held[:i], held[i+1:]...)
			}
		case 3:
			c := p.NewCursor()
			for r := c.Reset(); r != nil; r = c.Next() {
				if rng.Intn(5) == 0 {
					h := c.Handle()
					c.Release()
					for i := range held {
						if held[i] == h {
							held = append(held[:i], held[i+1:]...)
							break
						}
					}
				}
			}
		}
		checkInvariants(t, p)
		if p.Len() != len(held) {
			t.Fatalf("step %d: active %d, tracked %d", step, p.Len(), len(held))
		}
	}
}

func TestAcquireOnExhaustedPoolDoesNotMutate(t *testing.T) {
	p := newFilled(2)
	p.Acquire()
	p.Acquire()
	if !p.Exhausted() {
		t.Fatalf("expected exhausted pool")
	}
	before := p.Active().Handles(nil)

	r, ok := p.Acquire()
	if ok || r != nil {
		t.Fatalf("expected no-capacity result, got %v %v", r, ok)
	}
	after := p.Active().Handles(nil)
	if len(before) != len(after) || p.FreeLen() != 0 {
		t.Fatalf("lists mutated on exhausted acquire: %v -> %v", before, after)
	}
	if h, ok := p.AcquireHandle(); ok || h != NoHandle {
		t.Fatalf("expected NoHandle, got %d", h)
	}
}

func TestTraversalCompletenessUnderRemoval(t *testing.T) {
	const n = 12
	// Every subset of a 12 element active list.
	for mask := 0; mask < 1<<n; mask++ {
		p := newFilled(n)
		for i := 0; i < n; i++ {
			p.Acquire()
		}
		visited := make([]int, n)
		for r := p.ResetCursor(); r != nil; r = p.AdvanceCursor() {
			visited[r.id]++
			if mask&(1<<r.id) != 0 {
				p.ReleaseCurrent()
			}
		}
		for id, v := range visited {
			if v != 1 {
				t.Fatalf("mask %b: record %d visited %d times", mask, id, v)
			}
		}
		// Survivors keep their original relative order.
		prev := -1
		p.Active().Each(func(_ Handle, r *rec) {
			if mask&(1<<r.id) != 0 {
				t.Fatalf("mask %b: released record %d still active", mask, r.id)
			}
			if r.id <= prev {
				t.Fatalf("mask %b: order broken at %d", mask, r.id)
			}
			prev = r.id
		})
		checkInvariants(t, p)
	}
}

func TestScenarioReleaseSecondOfThree(t *testing.T) {
	p := newFilled(5)
	a, _ := p.Acquire()
	b, _ := p.Acquire()
	c, _ := p.Acquire()
	if p.Len() != 3 || p.FreeLen() != 2 {
		t.Fatalf("after 3 acquires: active=%d free=%d", p.Len(), p.FreeLen())
	}

	for r := p.ResetCursor(); r != nil; r = p.AdvanceCursor() {
		if r == b {
			p.ReleaseCurrent()
		}
	}
	if p.Len() != 2 || p.FreeLen() != 3 {
		t.Fatalf("after pass: active=%d free=%d", p.Len(), p.FreeLen())
	}
	var got []*rec
	p.Active().Each(func(_ Handle, r *rec) { got = append(got, r) })
	if got[0] != a || got[1] != c {
		t.Fatalf("expected [a c], got ids %d %d", got[0].id, got[1].id)
	}
	// The released record is the next one handed out.
	if r, _ := p.Acquire(); r != b {
		t.Fatalf("expected released slot at free head, got id %d", r.id)
	}
}

func TestReleaseFirstAndLastDuringTraversal(t *testing.T) {
	p := newFilled(4)
	for i := 0; i < 4; i++ {
		p.Acquire()
	}
	var order []int
	for r := p.ResetCursor(); r != nil; r = p.AdvanceCursor() {
		order = append(order, r.id)
		if r.id == 0 || r.id == 3 {
			p.ReleaseCurrent()
		}
	}
	if len(order) != 4 || order[0] != 0 || order[1] != 1 || order[2] != 2 || order[3] != 3 {
		t.Fatalf("unexpected visit order %v", order)
	}
	if p.Len() != 2 {
		t.Fatalf("expected 2 active, got %d", p.Len())
	}
}

func TestUnpositionedCursorIsNoop(t *testing.T) {
	p := newFilled(3)
	p.Acquire()
	c := p.NewCursor()
	if c.Next() != nil || c.Current() != nil || c.Positioned() {
		t.Fatalf("unpositioned cursor yielded a record")
	}
	c.Release()
	if p.Len() != 1 {
		t.Fatalf("release on unpositioned cursor changed the pool")
	}

	var zero Cursor[rec]
	if zero.Reset() != nil || zero.Next() != nil {
		t.Fatalf("zero cursor yielded a record")
	}
}

func TestReleaseAllInvalidatesCursor(t *testing.T) {
	p := newFilled(3)
	p.Acquire()
	p.Acquire()
	if p.ResetCursor() == nil {
		t.Fatalf("expected first record")
	}
	p.ReleaseAll()
	if p.Len() != 0 || p.FreeLen() != 3 {
		t.Fatalf("release all: active=%d free=%d", p.Len(), p.FreeLen())
	}
	if p.AdvanceCursor() != nil {
		t.Fatalf("cursor survived ReleaseAll")
	}
	p.ReleaseCurrent()
	checkInvariants(t, p)
}

func TestCursorDetectsRecycledSlot(t *testing.T) {
	p := newFilled(3)
	p.Acquire()
	p.Acquire()
	c := p.NewCursor()
	first := c.Reset()
	h := c.Handle()
	p.Release(h)
	p.Acquire() // same slot, now at the active tail
	if c.Next() != nil {
		t.Fatalf("cursor followed a recycled slot")
	}
	if first == nil {
		t.Fatalf("expected a first record")
	}
}

func TestReleaseByIdentity(t *testing.T) {
	p := newFilled(5)
	var rs []*rec
	for i := 0; i < 4; i++ {
		r, _ := p.Acquire()
		rs = append(rs, r)
	}

	// Cursor on rs[1]; release rs[3] elsewhere in the list.
	p.ResetCursor()
	cur := p.AdvanceCursor()
	if cur != rs[1] {
		t.Fatalf("expected cursor on record 1")
	}
	if !p.ReleaseByIdentity(rs[3]) {
		t.Fatalf("identity release failed")
	}
	if p.SharedCursor().Current() != rs[1] {
		t.Fatalf("cursor moved by identity release")
	}
	if next := p.AdvanceCursor(); next != rs[2] {
		t.Fatalf("expected record 2 after cursor")
	}
	if p.AdvanceCursor() != nil {
		t.Fatalf("released record still reachable")
	}

	// Releasing the record under the cursor rewinds like ReleaseCurrent.
	p.ResetCursor()
	p.AdvanceCursor() // rs[1]
	if !p.ReleaseByIdentity(rs[1]) {
		t.Fatalf("identity release of current failed")
	}
	if next := p.AdvanceCursor(); next != rs[2] {
		t.Fatalf("expected record 2 after releasing current")
	}

	// Unknown and already-free records are ignored.
	stranger := &rec{id: 99}
	before := p.Len()
	if p.ReleaseByIdentity(stranger) || p.ReleaseByIdentity(rs[3]) {
		t.Fatalf("release of non-active record reported success")
	}
	if p.Len() != before {
		t.Fatalf("active count changed on missing identity")
	}
	checkInvariants(t, p)
}

func TestGrowAddsFreeOnly(t *testing.T) {
	p := New(WithReset(func(r *rec) { r.hit = -1 }))
	p.Grow(3)
	a, _ := p.Acquire()
	a.id = 42
	activeBefore := p.Active().Handles(nil)

	p.Grow(4)
	if p.FreeLen() != 2+4 || p.Cap() != 7 {
		t.Fatalf("grow: free=%d cap=%d", p.FreeLen(), p.Cap())
	}
	activeAfter := p.Active().Handles(nil)
	if len(activeAfter) != 1 || activeAfter[0] != activeBefore[0] || p.Get(activeAfter[0]).id != 42 {
		t.Fatalf("grow touched the active list")
	}
	p.Free().Each(func(_ Handle, r *rec) {
		if r.hit != -1 {
			t.Fatalf("grown slot not reset")
		}
	})
	p.Grow(0)
	p.Grow(-2)
	if p.Cap() != 7 {
		t.Fatalf("non-positive grow changed capacity")
	}
}

func TestResetHookOnAcquire(t *testing.T) {
	p := New(WithReset(func(r *rec) { r.hit = 0 }))
	p.Grow(1)
	r, _ := p.Acquire()
	r.hit = 9
	p.ReleaseAll()
	r, _ = p.Acquire()
	if r.hit != 0 {
		t.Fatalf("recycled record not reset, hit=%d", r.hit)
	}
}

func TestPurge(t *testing.T) {
	p := newFilled(6)
	p.Acquire()
	p.Acquire()
	p.ResetCursor()
	p.Purge()
	if p.Len() != 0 || p.FreeLen() != 0 || p.Cap() != 0 {
		t.Fatalf("purge left active=%d free=%d cap=%d", p.Len(), p.FreeLen(), p.Cap())
	}
	if p.AdvanceCursor() != nil {
		t.Fatalf("cursor survived purge")
	}
	if _, ok := p.Acquire(); ok {
		t.Fatalf("acquire after purge succeeded")
	}
	p.Grow(2)
	checkInvariants(t, p)
}

func TestViewContains(t *testing.T) {
	p := newFilled(2)
	h, _ := p.AcquireHandle()
	if !p.Active().Contains(h) || p.Free().Contains(h) {
		t.Fatalf("membership views disagree for %d", h)
	}
	if p.Active().Contains(NoHandle) || p.Free().Contains(Handle(10)) {
		t.Fatalf("out of range handle reported as member")
	}
	n := 0
	for range p.Free().All() {
		n++
	}
	if n != 1 {
		t.Fatalf("expected 1 free record via All, got %d", n)
	}
}

func TestSteadyStateDoesNotAllocate(t *testing.T) {
	p := newFilled(256)
	allocs := testing.AllocsPerRun(100, func() {
		for i := 0; i < 128; i++ {
			p.Acquire()
		}
		for r := p.ResetCursor(); r != nil; r = p.AdvanceCursor() {
			if r.id%2 == 0 {
				p.ReleaseCurrent()
			}
		}
		p.ReleaseAll()
	})
	if allocs != 0 {
		t.Fatalf("expected zero allocations per tick, got %.1f", allocs)
	}
}
