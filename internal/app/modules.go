package app

import (
	"github.com/vk/wanattn/internal/registry"
	"github.com/vk/wanattn/modules/attention_control"
	"github.com/vk/wanattn/modules/audio_motion_boost"
	"github.com/vk/wanattn/modules/lipsync_suppress"
)

// coreModules is the definitive list of node modules compiled into this
// plugin.
var coreModules = []registry.Module{
	&attention_control.Module{},
	&audio_motion_boost.Module{},
	&lipsync_suppress.Module{},
}

// NewRegistry builds a registry populated with every core node module.
func NewRegistry() *registry.Registry {
	r := registry.New()
	for _, m := range coreModules {
		m.Register(r)
	}
	return r
}
