package session

// seated resolves a session for an operation that needs a seated identity.
func (r *Registry) seated(id, identity string) (*Session, error) {
	if identity == "" {
		return nil, ErrInvalidIdentity
	}
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if s.seat(identity) < 0 {
		return nil, ErrNotSeated
	}
	return s, nil
}

// SetReady marks identity ready; the second ready seat starts the game.
func (r *Registry) SetReady(id, identity string) error {
	s, err := r.seated(id, identity)
	if err != nil {
		return err
	}

	s.Ready[identity] = struct{}{}
	s.UpdatedAt = r.opts.clock.Now()
	r.record(KindReady, s, identity, "")
	if !s.Started && s.bothReady() {
		s.Started = true
		r.record(KindStarted, s, "", "")
	}
	r.router.State(r.Members(id), s.Snapshot())
	return nil
}

// SetUnready clears identity's ready flag and always drops started.
func (r *Registry) SetUnready(id, identity string) error {
	s, err := r.seated(id, identity)
	if err != nil {
		return err
	}

	delete(s.Ready, identity)
	s.Started = false
	s.UpdatedAt = r.opts.clock.Now()
	r.record(KindUnready, s, identity, "")
	r.router.State(r.Members(id), s.Snapshot())
	return nil
}

// ApplyMove replaces the board history and move counter when identity holds
// the turn. Board contents are the mover's responsibility; only their shape
// is checked.
func (r *Registry) ApplyMove(id, identity string, history []Board, moveIndex int) error {
	if err := r.checkMove(id, identity, history, moveIndex); err != nil {
		if s, ok := r.sessions[id]; ok {
			r.record(KindMoveRejected, s, identity, err.Error())
		}
		return err
	}

	s := r.sessions[id]
	s.History = history
	s.CurrentMove = moveIndex
	s.UpdatedAt = r.opts.clock.Now()
	r.record(KindMove, s, identity, "")
	r.router.State(r.Members(id), s.Snapshot())
	return nil
}

func (r *Registry) checkMove(id, identity string, history []Board, moveIndex int) error {
	if identity == "" {
		return ErrInvalidIdentity
	}
	s, ok := r.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	if !s.Started {
		return ErrNotStarted
	}
	seat := s.seat(identity)
	if seat < 0 {
		return ErrNotSeated
	}
	if s.CurrentMove%maxPlayers != seat {
		return ErrWrongTurn
	}
	if moveIndex < 0 || len(history) == 0 {
		return ErrMalformedMove
	}
	// Shape only: every board must match the variant size. Cell contents
	// and move legality are left to the clients.
	size := s.Variant.BoardSize()
	for _, b := range history {
		if len(b) != size {
			return ErrMalformedMove
		}
	}
	return nil
}
