package pkg

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	log "github.com/sirupsen/logrus"
)

type Manager struct {
	config   Config
	registry *Registry
	upgrader websocket.Upgrader
}

type createRoomResponse struct {
	RoomID string `json:"room_id"`
}

func NewManager(config Config) *Manager {
	return &Manager{
		config:   config.withDefaults(),
		registry: NewRegistry(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func (m *Manager) Registry() *Registry {
	return m.registry
}

// Handler returns the signaling routes behind the cross-origin policy.
func (m *Manager) Handler() http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/api/v1/health", m.HealthHandler)
	router.HandleFunc("/create_room", m.CreateRoomHandler).Methods(http.MethodPost)
	router.HandleFunc("/ice_servers", m.ICEServersHandler).Methods(http.MethodGet)
	router.HandleFunc("/ws/{room_id}/{user_id}", m.SocketHandler)

	return cors.New(cors.Options{
		AllowedOrigins: m.config.CORSAllow,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodHead,
			http.MethodOptions,
		},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}).Handler(router)
}

func (m *Manager) NewSession(roomID, userID string, transport Transport) *Session {
	return &Session{
		manager:   m,
		uuid:      uuid.New(),
		roomID:    roomID,
		userID:    userID,
		transport: transport,
		send:      make(chan []byte, m.config.SendBufferSize),
		done:      make(chan struct{}),
	}
}

// Serve runs a session from admission to teardown and returns once the
// transport has gone away.
func (m *Manager) Serve(s *Session) {
	logFields := s.logFields()

	if !m.registry.Register(s, s.roomID) {
		log.WithFields(logFields).Error("Session is already registered")
		return
	}

	EventServerSessionsGauge.Inc()
	log.WithFields(logFields).Info("Joined room")

	go s.write()

	if err := m.registry.Broadcast(s.roomID, playerJoined(s.userID)); err != nil {
		log.WithFields(logFields).Error("Failed to announce join: ", err)
	}

	if size, ready := m.registry.Ready(
		s.roomID, m.config.StartThreshold, m.config.StartOnce); ready {
		if err := m.registry.Broadcast(s.roomID, gameStart(size)); err != nil {
			log.WithFields(logFields).Error("Failed to announce game start: ", err)
		}
	}

	s.read()

	m.registry.Deregister(s, s.roomID)
	if err := m.registry.Broadcast(s.roomID, playerLeft(s.userID)); err != nil {
		log.WithFields(logFields).Error("Failed to announce leave: ", err)
	}

	s.close()
	EventServerSessionsGauge.Dec()

	log.WithFields(logFields).Info("Left room")
}

func (m *Manager) HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
}

// CreateRoomHandler issues a short random room id. Nothing is reserved; the
// room comes into existence when its first session joins.
func (m *Manager) CreateRoomHandler(w http.ResponseWriter, r *http.Request) {
	roomID := strings.ReplaceAll(uuid.New().String(), "-", "")[:m.config.RoomIDLength]

	EventServerRoomsCreatedCounter.Inc()
	log.WithField("room", roomID).Debug("Issued room id")

	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(createRoomResponse{RoomID: roomID})
	if err != nil {
		log.Error("Failed to encode room id: ", err)
	}
}

func (m *Manager) SocketHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	roomID := vars["room_id"]
	userID := vars["user_id"]

	// Set the response headers
	w.Header().Set("Cache-Control", "no-cache")

	// Upgrade the connection to a websocket connection
	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("Failed to upgrade connection: ", err)
		return
	}

	session := m.NewSession(roomID, userID, newWebsocketTransport(conn, m.config))
	m.Serve(session)
}
