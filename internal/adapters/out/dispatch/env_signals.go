package dispatch

import (
	"sync"

	"fulfillment/internal/core/ports"
)

// SignalHub implements EnvSignals as an in-process fan-out. External
// watchers (a connectivity prober, a host suspend/resume hook) feed edges in
// through SetOnline and SetVisible; registered handlers receive them.
type SignalHub struct {
	mu         sync.Mutex
	nextID     int
	network    map[int]func(online bool)
	visibility map[int]func(visible bool)
}

// NewSignalHub creates an empty signal hub.
func NewSignalHub() *SignalHub {
	return &SignalHub{
		network:    make(map[int]func(online bool)),
		visibility: make(map[int]func(visible bool)),
	}
}

var _ ports.EnvSignals = (*SignalHub)(nil)

// OnNetworkChange registers a handler for online/offline edges.
func (h *SignalHub) OnNetworkChange(handler func(online bool)) (cancel func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	h.network[id] = handler

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.network, id)
	}
}

// OnVisibilityChange registers a handler for visible/hidden edges.
func (h *SignalHub) OnVisibilityChange(handler func(visible bool)) (cancel func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	h.visibility[id] = handler

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.visibility, id)
	}
}

// SetOnline delivers a connectivity edge to all network handlers.
func (h *SignalHub) SetOnline(online bool) {
	for _, handler := range h.snapshotNetwork() {
		handler(online)
	}
}

// SetVisible delivers a visibility edge to all visibility handlers.
func (h *SignalHub) SetVisible(visible bool) {
	for _, handler := range h.snapshotVisibility() {
		handler(visible)
	}
}

func (h *SignalHub) snapshotNetwork() []func(online bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]func(online bool), 0, len(h.network))
	for _, handler := range h.network {
		out = append(out, handler)
	}
	return out
}

func (h *SignalHub) snapshotVisibility() []func(visible bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]func(visible bool), 0, len(h.visibility))
	for _, handler := range h.visibility {
		out = append(out, handler)
	}
	return out
}
