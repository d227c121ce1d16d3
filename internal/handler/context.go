package handler

import (
	"github.com/particle3d/server/internal/config"
	"github.com/particle3d/server/internal/net"
	"github.com/particle3d/server/internal/net/packet"
	"github.com/particle3d/server/internal/world"
	"go.uber.org/zap"
)

// Deps holds shared dependencies injected into all packet handlers.
type Deps struct {
	Config *config.Config
	Scene  *world.Scene
	Log    *zap.Logger
}

// RegisterAll registers all packet handlers into the registry.
func RegisterAll(reg *packet.Registry, deps *Deps) {
	reg.Register(packet.C_OPCODE_AUTH,
		[]packet.SessionState{packet.StateHandshake, packet.StateAuthenticated},
		func(sess any, r *packet.Reader) {
			HandleAuth(sess.(*net.Session), r, deps)
		},
	)

	authed := []packet.SessionState{packet.StateAuthenticated}
	control := map[byte]func(*net.Session, *packet.Reader, *Deps){
		packet.C_OPCODE_LIST:      HandleList,
		packet.C_OPCODE_START:     HandleStart,
		packet.C_OPCODE_STOP:      HandleStop,
		packet.C_OPCODE_PAUSE:     HandlePause,
		packet.C_OPCODE_RESUME:    HandleResume,
		packet.C_OPCODE_QUOTA:     HandleQuota,
		packet.C_OPCODE_ENABLE:    HandleEnable,
		packet.C_OPCODE_SUBSCRIBE: HandleSubscribe,
	}
	for op, fn := range control {
		fn := fn
		reg.Register(op, authed, func(sess any, r *packet.Reader) {
			fn(sess.(*net.Session), r, deps)
		})
	}
}
