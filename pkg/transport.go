package pkg

import (
	"errors"
	"io"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrMessageTooLarge is returned by ReadMessage for a single oversize
// message. The transport remains usable.
var ErrMessageTooLarge = errors.New("message too large")

// ErrUnsupportedMessage is returned by ReadMessage for a single non-text
// message. The transport remains usable.
var ErrUnsupportedMessage = errors.New("unsupported message type")

// Transport is the connection capability a session needs. ReadMessage
// returns io.EOF once the peer has gone away.
type Transport interface {
	ReadMessage() ([]byte, error)
	WriteMessage(message []byte) error
	Close() error
}

type websocketTransport struct {
	conn            *websocket.Conn
	maxMessageBytes int64
	writeWait       time.Duration
	closeOnce       sync.Once
	done            chan struct{}
}

func newWebsocketTransport(conn *websocket.Conn, config Config) *websocketTransport {
	t := &websocketTransport{
		conn:            conn,
		maxMessageBytes: config.MaxMessageBytes,
		writeWait:       config.WriteWait,
		done:            make(chan struct{}),
	}

	if config.PingInterval > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(config.PongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(config.PongWait))
		})
		go t.keepalive(config.PingInterval)
	}

	return t
}

func (t *websocketTransport) keepalive(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-t.done:
			return
		case <-ticker.C:
			deadline := time.Now().Add(t.writeWait)
			err := t.conn.WriteControl(websocket.PingMessage, nil, deadline)
			if err != nil {
				return
			}
		}
	}
}

func (t *websocketTransport) ReadMessage() ([]byte, error) {
	messageType, reader, err := t.conn.NextReader()
	if err != nil {
		if t.closed() || websocket.IsCloseError(err,
			websocket.CloseNormalClosure,
			websocket.CloseGoingAway,
			websocket.CloseNoStatusReceived,
			websocket.CloseAbnormalClosure) {
			return nil, io.EOF
		}
		return nil, err
	}

	// The unread frame is discarded by the next NextReader call.
	if messageType != websocket.TextMessage {
		return nil, ErrUnsupportedMessage
	}

	return readLimited(reader, t.maxMessageBytes)
}

func (t *websocketTransport) WriteMessage(message []byte) error {
	if t.writeWait > 0 {
		_ = t.conn.SetWriteDeadline(time.Now().Add(t.writeWait))
	}
	return t.conn.WriteMessage(websocket.TextMessage, message)
}

func (t *websocketTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.done)
		_ = t.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		err = t.conn.Close()
	})
	return err
}

func (t *websocketTransport) closed() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// readLimited reads the whole message unless it exceeds max bytes. A max of
// zero disables the limit.
func readLimited(r io.Reader, max int64) ([]byte, error) {
	if max <= 0 {
		return io.ReadAll(r)
	}

	b, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, err
	}

	if int64(len(b)) > max {
		return nil, ErrMessageTooLarge
	}

	return b, nil
}
