package game

import (
	"github.com/mpapenbr/checkpoint-racer/pkg/model"
)

type (
	// Renderer receives the authoritative snapshot after every frame and
	// every state transition. Render must not block.
	Renderer interface {
		Render(s model.Snapshot)
	}
	RendererFunc func(s model.Snapshot)
)

func (f RendererFunc) Render(s model.Snapshot) {
	f(s)
}

type (
	multiRenderer   []Renderer
	channelRenderer chan<- model.Snapshot
	nopRenderer     struct{}
)

// MultiRenderer hands each snapshot to all renderers in order
func MultiRenderer(r ...Renderer) Renderer {
	return multiRenderer(r)
}

func (m multiRenderer) Render(s model.Snapshot) {
	for _, r := range m {
		r.Render(s)
	}
}

// ChannelRenderer sends snapshots to ch. Snapshots are dropped while ch is full.
func ChannelRenderer(ch chan<- model.Snapshot) Renderer {
	return channelRenderer(ch)
}

func (c channelRenderer) Render(s model.Snapshot) {
	select {
	case c <- s:
	default:
	}
}

func (nopRenderer) Render(model.Snapshot) {}
