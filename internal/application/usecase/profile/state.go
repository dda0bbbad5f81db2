package profile

import (
	"github.com/khoahotran/career-path/internal/domain/profile"
)

// State is the reconciled view handed to readers. Readers always get a copy.
type State struct {
	Session  *profile.Session
	Profile  *profile.Profile
	Loading  bool
	Degraded bool
	Err      error
	Version  uint64
}

func (s State) clone() State {
	c := s
	if s.Session != nil {
		sess := *s.Session
		c.Session = &sess
	}
	c.Profile = s.Profile.Clone()
	return c
}

// Subscribe returns a channel that always holds the latest state. Slow
// readers miss intermediate states, never the last one. Call cancel to stop.
func (r *Reconciler) Subscribe() (<-chan State, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextSub
	r.nextSub++
	ch := make(chan State, 1)
	ch <- r.state.clone()
	r.subs[id] = ch

	cancel := func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if c, ok := r.subs[id]; ok {
			delete(r.subs, id)
			close(c)
		}
	}
	return ch, cancel
}

// State returns a snapshot of the current state.
func (r *Reconciler) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state.clone()
}

// commit applies fn to the state, bumps the version and notifies
// subscribers. It is the only place state is written.
func (r *Reconciler) commit(fn func(*State)) State {
	r.mu.Lock()
	defer r.mu.Unlock()

	fn(&r.state)
	r.state.Version++
	snap := r.state.clone()

	for _, ch := range r.subs {
		select {
		case <-ch:
		default:
		}
		ch <- snap.clone()
	}
	return snap
}
