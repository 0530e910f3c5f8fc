package pkg

import (
	"testing"
)

type testClient struct {
	session   *Session
	transport *fakeTransport
	done      chan struct{}
}

func join(m *Manager, roomID, userID string) *testClient {
	ft := newFakeTransport()
	c := &testClient{
		session:   m.NewSession(roomID, userID, ft),
		transport: ft,
		done:      make(chan struct{}),
	}
	go func() {
		defer close(c.done)
		m.Serve(c.session)
	}()
	return c
}

func (c *testClient) leave(t *testing.T) {
	t.Helper()
	c.transport.hangup()
	waitFinished(t, c)
}

func waitFinished(t *testing.T, c *testClient) {
	t.Helper()
	waitFor(t, c.session.userID+" to finish", func() bool {
		select {
		case <-c.done:
			return true
		default:
			return false
		}
	})
}

func TestServeSignalingScenario(t *testing.T) {
	m := NewManager(DefaultConfig())

	alice := join(m, "abc123", "alice")
	expectMessage(t, alice.transport, `{"event":"player_joined","user_id":"alice"}`)

	bob := join(m, "abc123", "bob")
	expectMessage(t, alice.transport, `{"event":"player_joined","user_id":"bob"}`)
	expectMessage(t, bob.transport, `{"event":"player_joined","user_id":"bob"}`)

	if got := m.Registry().RoomSize("abc123"); got != 2 {
		t.Fatalf("size = %d, want 2", got)
	}
	expectNoMessage(t, alice.transport)

	carol := join(m, "abc123", "carol")
	start := `{"event":"game_start","message":"3 people have gathered. Starting the game."}`
	for _, c := range []*testClient{alice, bob, carol} {
		expectMessage(t, c.transport, `{"event":"player_joined","user_id":"carol"}`)
		expectMessage(t, c.transport, start)
	}

	offer := `{"type":"offer","sdp":"v=0\r\no=- 46117317 2 IN IP4 127.0.0.1"}`
	alice.transport.deliver(offer)
	for _, c := range []*testClient{alice, bob, carol} {
		expectRaw(t, c.transport, offer)
	}

	bob.leave(t)
	if got := m.Registry().RoomSize("abc123"); got != 2 {
		t.Fatalf("size after leave = %d, want 2", got)
	}
	for _, c := range []*testClient{alice, carol} {
		expectMessage(t, c.transport, `{"event":"player_left","user_id":"bob"}`)
	}
	if !bob.transport.isClosed() {
		t.Fatalf("bob's transport was left open")
	}
	expectNoMessage(t, bob.transport)

	alice.leave(t)
	carol.leave(t)
	if got := m.Registry().Rooms(); got != 0 {
		t.Fatalf("rooms = %d, want 0", got)
	}
}

func TestServeSkipsMalformedMessages(t *testing.T) {
	m := NewManager(DefaultConfig())

	alice := join(m, "abc123", "alice")
	expectMessage(t, alice.transport, `{"event":"player_joined","user_id":"alice"}`)

	bob := join(m, "abc123", "bob")
	expectMessage(t, alice.transport, `{"event":"player_joined","user_id":"bob"}`)
	expectMessage(t, bob.transport, `{"event":"player_joined","user_id":"bob"}`)

	alice.transport.deliver("not json")
	alice.transport.deliver(`["an","array"]`)
	alice.transport.deliver(`{"type":"candidate"`)
	alice.transport.deliver("{\"sdp\":\"\xff\xfe\"}")
	alice.transport.fail(ErrMessageTooLarge)
	alice.transport.fail(ErrUnsupportedMessage)
	alice.transport.deliver(`{"type":"candidate","candidate":"candidate:1 1 udp 1 10.0.0.1 9 typ host"}`)

	// Only the valid candidate reaches anyone, and nobody was disconnected.
	for _, c := range []*testClient{alice, bob} {
		expectMessage(t, c.transport,
			`{"type":"candidate","candidate":"candidate:1 1 udp 1 10.0.0.1 9 typ host"}`)
		if c.transport.isClosed() {
			t.Fatalf("%s was disconnected", c.session.userID)
		}
	}

	if got := m.Registry().RoomSize("abc123"); got != 2 {
		t.Fatalf("size = %d, want 2", got)
	}

	bob.leave(t)
	alice.leave(t)
}

func TestServeTeardownOnTransportError(t *testing.T) {
	m := NewManager(DefaultConfig())

	alice := join(m, "abc123", "alice")
	expectMessage(t, alice.transport, `{"event":"player_joined","user_id":"alice"}`)

	bob := join(m, "abc123", "bob")
	expectMessage(t, alice.transport, `{"event":"player_joined","user_id":"bob"}`)

	bob.transport.fail(errUnexpectedTest)
	waitFinished(t, bob)

	expectMessage(t, alice.transport, `{"event":"player_left","user_id":"bob"}`)
	if got := m.Registry().RoomSize("abc123"); got != 1 {
		t.Fatalf("size = %d, want 1", got)
	}

	alice.leave(t)
}

func TestServeTeardownOnWriteFailure(t *testing.T) {
	m := NewManager(DefaultConfig())

	alice := join(m, "abc123", "alice")
	expectMessage(t, alice.transport, `{"event":"player_joined","user_id":"alice"}`)

	ft := newFakeTransport()
	ft.failWrite = true
	bob := &testClient{
		session:   m.NewSession("abc123", "bob", ft),
		transport: ft,
		done:      make(chan struct{}),
	}
	go func() {
		defer close(bob.done)
		m.Serve(bob.session)
	}()

	expectMessage(t, alice.transport, `{"event":"player_joined","user_id":"bob"}`)
	waitFinished(t, bob)
	expectMessage(t, alice.transport, `{"event":"player_left","user_id":"bob"}`)

	alice.leave(t)
}

func TestServeGameStartRefires(t *testing.T) {
	config := DefaultConfig()
	config.StartThreshold = 2
	m := NewManager(config)

	start := `{"event":"game_start","message":"2 people have gathered. Starting the game."}`

	alice := join(m, "abc123", "alice")
	expectMessage(t, alice.transport, `{"event":"player_joined","user_id":"alice"}`)

	bob := join(m, "abc123", "bob")
	expectMessage(t, alice.transport, `{"event":"player_joined","user_id":"bob"}`)
	expectMessage(t, alice.transport, start)

	bob.leave(t)
	expectMessage(t, alice.transport, `{"event":"player_left","user_id":"bob"}`)

	carol := join(m, "abc123", "carol")
	expectMessage(t, alice.transport, `{"event":"player_joined","user_id":"carol"}`)
	expectMessage(t, alice.transport, start)

	alice.leave(t)
	carol.leave(t)
}

func TestServeGameStartOnce(t *testing.T) {
	config := DefaultConfig()
	config.StartThreshold = 2
	config.StartOnce = true
	m := NewManager(config)

	alice := join(m, "abc123", "alice")
	expectMessage(t, alice.transport, `{"event":"player_joined","user_id":"alice"}`)

	bob := join(m, "abc123", "bob")
	expectMessage(t, alice.transport, `{"event":"player_joined","user_id":"bob"}`)
	expectMessage(t, alice.transport,
		`{"event":"game_start","message":"2 people have gathered. Starting the game."}`)

	bob.leave(t)
	expectMessage(t, alice.transport, `{"event":"player_left","user_id":"bob"}`)

	carol := join(m, "abc123", "carol")
	expectMessage(t, alice.transport, `{"event":"player_joined","user_id":"carol"}`)

	// Broadcasts are ordered, so a relayed marker proves no game_start was
	// queued in between.
	carol.transport.deliver(`{"type":"marker"}`)
	expectMessage(t, alice.transport, `{"type":"marker"}`)

	alice.leave(t)
	carol.leave(t)
}

func TestServeRejectsDuplicateSession(t *testing.T) {
	m := NewManager(DefaultConfig())

	alice := join(m, "abc123", "alice")
	expectMessage(t, alice.transport, `{"event":"player_joined","user_id":"alice"}`)

	// Serving the same session twice must not register it twice.
	m.Serve(alice.session)
	if got := m.Registry().RoomSize("abc123"); got != 1 {
		t.Fatalf("size = %d, want 1", got)
	}
	expectNoMessage(t, alice.transport)

	alice.transport.deliver(`{"type":"ping"}`)
	expectMessage(t, alice.transport, `{"type":"ping"}`)

	alice.leave(t)
}
