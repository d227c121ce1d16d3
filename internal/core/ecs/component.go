package ecs

// Removable is implemented by all component stores so the Registry can
// bulk-remove an entity's data from every store on destroy.
type Removable interface {
	Remove(id EntityID)
}

// PtrComponentStore is a generic dense store for ECS components. Components
// live in insertion order; removal swaps the last entry into the hole.
type PtrComponentStore[T any] struct {
	ids      []EntityID
	comps    []*T
	index    map[EntityID]int
	onRemove func(EntityID, *T)
}

func NewPtrComponentStore[T any]() *PtrComponentStore[T] {
	return &PtrComponentStore[T]{
		index: make(map[EntityID]int, 16),
	}
}

// OnRemove installs a hook run for every component leaving the store.
func (s *PtrComponentStore[T]) OnRemove(fn func(EntityID, *T)) {
	s.onRemove = fn
}

// Set adds or replaces the component of id.
func (s *PtrComponentStore[T]) Set(id EntityID, c *T) {
	if i, ok := s.index[id]; ok {
		s.comps[i] = c
		return
	}
	s.index[id] = len(s.ids)
	s.ids = append(s.ids, id)
	s.comps = append(s.comps, c)
}

func (s *PtrComponentStore[T]) Get(id EntityID) (*T, bool) {
	i, ok := s.index[id]
	if !ok {
		return nil, false
	}
	return s.comps[i], true
}

func (s *PtrComponentStore[T]) Remove(id EntityID) {
	i, ok := s.index[id]
	if !ok {
		return
	}
	c := s.comps[i]
	last := len(s.ids) - 1
	s.ids[i], s.comps[i] = s.ids[last], s.comps[last]
	s.index[s.ids[i]] = i
	s.comps[last] = nil
	s.ids, s.comps = s.ids[:last], s.comps[:last]
	delete(s.index, id)
	if s.onRemove != nil {
		s.onRemove(id, c)
	}
}

func (s *PtrComponentStore[T]) Has(id EntityID) bool {
	_, ok := s.index[id]
	return ok
}

func (s *PtrComponentStore[T]) Len() int {
	return len(s.ids)
}

// Each visits components in store order. fn must not add or remove.
func (s *PtrComponentStore[T]) Each(fn func(EntityID, *T)) {
	for i, id := range s.ids {
		fn(id, s.comps[i])
	}
}
