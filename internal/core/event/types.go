package event

import "github.com/particle3d/server/internal/particle"

// StateChanged is emitted after a particle system changes lifecycle state.
type StateChanged struct {
	System string
	From   particle.State
	To     particle.State
}

// QuotaExhausted is emitted when a system first hits its particle quota.
type QuotaExhausted struct {
	System string
	Quota  int
}

// SystemDestroyed is emitted after a system's entity is removed from the scene.
type SystemDestroyed struct {
	System string
}
