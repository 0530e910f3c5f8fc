package pkg

import (
	"errors"
	"io"
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Session is one client connection inside one room.
type Session struct {
	manager   *Manager
	uuid      uuid.UUID
	roomID    string
	userID    string
	transport Transport
	send      chan []byte
	done      chan struct{}
	stopOnce  sync.Once
	closeOnce sync.Once
}

func (s *Session) logFields() log.Fields {
	return log.Fields{
		"session": s.uuid,
		"room":    s.roomID,
		"user":    s.userID,
	}
}

// enqueue hands a serialized message to the writer without blocking.
func (s *Session) enqueue(message []byte) bool {
	select {
	case <-s.done:
		return false
	default:
	}

	select {
	case s.send <- message:
		return true
	default:
		return false
	}
}

// stop ends outbound delivery. It reports whether this call was the one
// that stopped the session.
func (s *Session) stop() bool {
	stopped := false
	s.stopOnce.Do(func() {
		close(s.done)
		stopped = true
	})
	return stopped
}

func (s *Session) stopped() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// close stops the session and closes the transport, so the read loop ends
// and runs the usual teardown.
func (s *Session) close() {
	s.stop()
	s.closeOnce.Do(func() {
		if err := s.transport.Close(); err != nil {
			log.WithFields(s.logFields()).Debug("Failed to close transport: ", err)
		}
	})
}

// read relays every inbound message to the room until the transport ends.
// Bad messages are skipped.
func (s *Session) read() {
	for {
		message, err := s.transport.ReadMessage()
		if errors.Is(err, ErrMessageTooLarge) {
			EventServerRejectedCounter.WithLabelValues("too_large").Inc()
			log.WithFields(s.logFields()).Warn("Dropped oversize message")
			continue
		}

		if errors.Is(err, ErrUnsupportedMessage) {
			EventServerRejectedCounter.WithLabelValues("binary").Inc()
			log.WithFields(s.logFields()).Warn("Dropped non-text message")
			continue
		}

		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.WithFields(s.logFields()).Error("Failed to read message: ", err)
			}
			return
		}

		relay, err := decodeRelayMessage(message)
		if err != nil {
			EventServerRejectedCounter.WithLabelValues("malformed").Inc()
			log.WithFields(s.logFields()).Warn("Failed to decode message: ", err)
			continue
		}

		err = s.manager.registry.Broadcast(s.roomID, relay)
		if err != nil {
			log.WithFields(s.logFields()).Error("Failed to relay message: ", err)
			continue
		}

		EventServerRelayedCounter.Inc()
	}
}

func (s *Session) write() {
	for {
		select {
		case <-s.done:
			return
		case message := <-s.send:
			err := s.transport.WriteMessage(message)
			if err != nil {
				log.WithFields(s.logFields()).Error("Failed to write message: ", err)
				s.close()
				return
			}
		}
	}
}
