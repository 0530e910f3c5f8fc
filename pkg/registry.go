package pkg

import (
	"encoding/json"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Registry tracks which sessions belong to which room and fans messages out
// to them. One lock guards every room: mutations and broadcast snapshots are
// serialized, so all members of a room observe broadcasts in the same order.
// Delivery only enqueues onto each session's outbound buffer, so the lock is
// never held across network writes.
type Registry struct {
	lock    sync.Mutex
	rooms   map[string]*Room
	members map[*Session]string
}

func NewRegistry() *Registry {
	return &Registry{
		lock:    sync.Mutex{},
		rooms:   make(map[string]*Room),
		members: make(map[*Session]string),
	}
}

// Register appends the session to the room, creating the room if needed.
// It returns false if the session is already registered somewhere.
func (r *Registry) Register(s *Session, roomID string) bool {
	r.lock.Lock()
	defer r.lock.Unlock()

	if _, ok := r.members[s]; ok {
		return false
	}

	room, ok := r.rooms[roomID]
	if !ok {
		room = &Room{id: roomID, sessions: make([]*Session, 0)}
		r.rooms[roomID] = room
		EventServerRoomsGauge.Inc()
	}

	room.add(s)
	r.members[s] = roomID

	return true
}

// Deregister removes the session from the room and prunes the room once it
// is empty. Unknown rooms and sessions are ignored.
func (r *Registry) Deregister(s *Session, roomID string) {
	r.lock.Lock()
	defer r.lock.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return
	}

	if !room.remove(s) {
		return
	}

	delete(r.members, s)

	if room.size() == 0 {
		delete(r.rooms, roomID)
		EventServerRoomsGauge.Dec()
	}
}

// Broadcast serializes message once and queues it for every member of the
// room in join order. Members that cannot accept the message are stopped at
// once and evicted; stopped members still awaiting teardown are skipped.
func (r *Registry) Broadcast(roomID string, message any) error {
	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	var dropped []*Session

	r.lock.Lock()
	room, ok := r.rooms[roomID]
	if ok {
		for _, session := range room.sessions {
			if session.stopped() {
				continue
			}
			if !session.enqueue(data) && session.stop() {
				dropped = append(dropped, session)
			}
		}
	}
	r.lock.Unlock()

	if !ok {
		return nil
	}

	EventServerBroadcastsCounter.Inc()

	for _, session := range dropped {
		EventServerDroppedCounter.Inc()
		log.WithFields(session.logFields()).Warn("Outbound queue unavailable, evicting session")
		go session.close()
	}

	return nil
}

// RoomSize returns the number of sessions in the room.
func (r *Registry) RoomSize(roomID string) int {
	r.lock.Lock()
	defer r.lock.Unlock()

	if room, ok := r.rooms[roomID]; ok {
		return room.size()
	}

	return 0
}

// Ready reports the room size and whether it has just reached threshold.
// With once set, a room only becomes ready once per lifetime.
func (r *Registry) Ready(roomID string, threshold int, once bool) (int, bool) {
	r.lock.Lock()
	defer r.lock.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return 0, false
	}

	size := room.size()
	if size != threshold || (once && room.started) {
		return size, false
	}

	room.started = true

	return size, true
}

// Rooms returns the number of active rooms.
func (r *Registry) Rooms() int {
	r.lock.Lock()
	defer r.lock.Unlock()
	return len(r.rooms)
}
