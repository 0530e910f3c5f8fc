package pkg

import (
	"encoding/json"
	"fmt"
	"net/http"
	"slices"

	"github.com/pion/stun/v3"
	"github.com/pion/webrtc/v4"
	log "github.com/sirupsen/logrus"
)

type iceServersResponse struct {
	ICEServers []webrtc.ICEServer `json:"iceServers"`
}

// parseICEServers builds the ICE server list handed to clients. URL lists
// are comma-separated; TURN servers need both a username and a credential.
func parseICEServers(stunURLs, turnURLs, turnUsername, turnCredential string) ([]webrtc.ICEServer, error) {
	servers := make([]webrtc.ICEServer, 0, 2)

	if urls := splitCSV(stunURLs); len(urls) > 0 {
		server := webrtc.ICEServer{URLs: urls}
		if err := validateICEServer(server, stun.SchemeTypeSTUN, stun.SchemeTypeSTUNS); err != nil {
			return nil, fmt.Errorf("STUN_URLS: %w", err)
		}
		servers = append(servers, server)
	}

	if urls := splitCSV(turnURLs); len(urls) > 0 {
		if turnUsername == "" || turnCredential == "" {
			return nil, fmt.Errorf("TURN_USERNAME/TURN_CREDENTIAL: both must be set when TURN_URLS is set")
		}
		server := webrtc.ICEServer{
			URLs:       urls,
			Username:   turnUsername,
			Credential: turnCredential,
		}
		if err := validateICEServer(server, stun.SchemeTypeTURN, stun.SchemeTypeTURNS); err != nil {
			return nil, fmt.Errorf("TURN_URLS: %w", err)
		}
		servers = append(servers, server)
	}

	return servers, nil
}

func validateICEServer(server webrtc.ICEServer, schemes ...stun.SchemeType) error {
	for _, raw := range server.URLs {
		uri, err := stun.ParseURI(raw)
		if err != nil {
			return fmt.Errorf("invalid url %q: %w", raw, err)
		}
		if !slices.Contains(schemes, uri.Scheme) {
			return fmt.Errorf("unexpected scheme in %q", raw)
		}
	}
	return nil
}

func (m *Manager) ICEServersHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Type", "application/json")

	err := json.NewEncoder(w).Encode(iceServersResponse{
		ICEServers: m.config.ICEServers,
	})
	if err != nil {
		log.Error("Failed to encode ICE servers: ", err)
	}
}
