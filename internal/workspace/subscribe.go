package workspace

import "sync"

// Subscription receives the full session list after every change. Only the
// latest list is kept: a slow reader skips intermediate values but always
// ends up with the most recent one.
type Subscription struct {
	ch    chan []Session
	id    int
	state *State
	once  sync.Once
}

// C returns the channel of session lists. It is closed by Close.
func (sub *Subscription) C() <-chan []Session {
	return sub.ch
}

// Close unregisters the subscription without affecting other subscribers.
func (sub *Subscription) Close() {
	sub.once.Do(func() {
		sub.state.subMu.Lock()
		defer sub.state.subMu.Unlock()
		delete(sub.state.subs, sub.id)
		close(sub.ch)
	})
}

// Subscribe registers a subscriber. The current list is delivered
// immediately.
func (s *State) Subscribe() *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.subMu.Lock()
	defer s.subMu.Unlock()

	sub := &Subscription{
		ch:    make(chan []Session, 1),
		id:    s.nextSub,
		state: s,
	}
	s.nextSub++
	s.subs[sub.id] = sub
	sub.ch <- CloneSessions(s.sessions)
	return sub
}

// publish delivers list to every subscriber without blocking. Callers hold s.mu.
func (s *State) publish(list []Session) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	for _, sub := range s.subs {
		snapshot := CloneSessions(list)
		select {
		case sub.ch <- snapshot:
			continue
		default:
		}
		// drop the stale value and retry once
		select {
		case <-sub.ch:
		default:
		}
		select {
		case sub.ch <- snapshot:
		default:
		}
	}
}
