package connectivity

import "sync"

// broadcaster tracks the current state and fans transitions out to
// subscribers. Each subscriber channel holds at most one pending value; a
// slow reader sees the latest state, not every intermediate one.
type broadcaster struct {
	mu     sync.RWMutex
	online bool
	nextID int
	subs   map[int]chan bool
}

func newBroadcaster(initial bool) *broadcaster {
	return &broadcaster{online: initial, subs: make(map[int]chan bool)}
}

func (b *broadcaster) Online() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.online
}

// set records the state and reports whether it changed.
func (b *broadcaster) set(online bool) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.online == online {
		return false
	}
	b.online = online
	for _, ch := range b.subs {
		select {
		case <-ch:
		default:
		}
		ch <- online
	}
	return true
}

func (b *broadcaster) Subscribe() (<-chan bool, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan bool, 1)
	b.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
			close(ch)
		})
	}
	return ch, cancel
}

func (b *broadcaster) subscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
