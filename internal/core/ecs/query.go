package ecs

// Each2 iterates over entities that have both component A and B, in the
// store order of A.
func Each2[A, B any](sa *PtrComponentStore[A], sb *PtrComponentStore[B], fn func(EntityID, *A, *B)) {
	for i, id := range sa.ids {
		if j, ok := sb.index[id]; ok {
			fn(id, sa.comps[i], sb.comps[j])
		}
	}
}
