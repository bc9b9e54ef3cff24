package ports

// EnvSignals exposes the process-wide environment signals the reconnection
// manager reacts to: network connectivity edges and foreground/background
// visibility edges. Implementations deliver the current-edge value to the
// handler; handlers must be safe to call from the signal source's goroutine.
//
// The returned cancel function removes the handler; the manager calls it
// during cleanup.
type EnvSignals interface {
	// OnNetworkChange registers a handler for online/offline edges.
	// online=false suspends reconnects; online=true resubscribes everything.
	OnNetworkChange(handler func(online bool)) (cancel func())

	// OnVisibilityChange registers a handler for visible/hidden edges.
	// Only a return to visibility after a long hidden period triggers a
	// liveness probe; hiding by itself does nothing.
	OnVisibilityChange(handler func(visible bool)) (cancel func())
}
