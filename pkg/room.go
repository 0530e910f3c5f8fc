package pkg

// Room is the ordered set of sessions sharing a room id. Rooms are only
// touched with the registry lock held.
type Room struct {
	id       string
	sessions []*Session
	started  bool
}

func (r *Room) add(s *Session) {
	r.sessions = append(r.sessions, s)
}

func (r *Room) remove(s *Session) bool {
	for i, session := range r.sessions {
		if session == s {
			r.sessions = append(r.sessions[:i], r.sessions[i+1:]...)
			return true
		}
	}
	return false
}

func (r *Room) size() int {
	return len(r.sessions)
}
