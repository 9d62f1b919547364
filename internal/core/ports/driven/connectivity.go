package driven

// Connectivity reports whether remote sources are reachable.
type Connectivity interface {
	// Online returns the current connectivity state.
	Online() bool

	// Subscribe returns a channel that receives the new state on every
	// transition, and a function that cancels the subscription.
	Subscribe() (<-chan bool, func())
}
