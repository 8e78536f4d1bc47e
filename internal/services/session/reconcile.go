package session

import "slices"

// leave is the single cleanup path for leaveSession and for disconnects.
// The caller holds e.mu.
func (e *Engine) leave(cc *ConnContext) {
	if !cc.InSession() {
		return
	}
	id := cc.ExitSession()
	for _, orphan := range e.reg.reconcile(id, cc.ID, cc.Identity) {
		if other, ok := e.conns[orphan]; ok && other.SessionID == id {
			other.ExitSession()
		}
	}
}

// reconcile drops connID from the session and unseats identity. It returns
// the member connections left behind when the session was closed.
func (r *Registry) reconcile(id, connID, identity string) []string {
	defer r.refreshLobby()

	delete(r.members[id], connID)
	s, ok := r.sessions[id]
	if !ok || identity == "" || s.seat(identity) < 0 {
		// Non-seated members do not affect the match.
		return nil
	}

	wasStarted := s.Started
	seats := slices.Clone(s.Players)
	s.removePlayer(identity)
	s.UpdatedAt = r.opts.clock.Now()
	r.record(KindPlayerLeft, s, identity, "")

	remaining := r.Members(id)
	if wasStarted && len(s.Players) == 1 {
		r.router.OpponentLeft(remaining)
	}

	switch {
	case wasStarted:
		return r.close(s, ReasonAbandoned, seats)
	case len(s.Players) == 0:
		return r.close(s, ReasonEmpty, seats)
	}

	clear(s.Ready)
	s.Started = false
	r.router.State(remaining, s.Snapshot())
	return nil
}
