package connectivity

import "github.com/custodia-labs/parcelsync/internal/core/ports/driven"

// Ensure Static implements the interface.
var _ driven.Connectivity = (*Static)(nil)

// Static is a connectivity source whose state only changes through Set.
type Static struct {
	*broadcaster
}

// NewStatic creates a Static starting in the given state.
func NewStatic(online bool) *Static {
	return &Static{broadcaster: newBroadcaster(online)}
}

// Set changes the state, notifying subscribers on a transition.
func (s *Static) Set(online bool) {
	s.set(online)
}
