package pkg

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pion/webrtc/v4"
	log "github.com/sirupsen/logrus"
)

type Config struct {
	EventsAddr  string
	MetricsAddr string
	CORSAllow   []string

	// Number of members at which a room announces game_start.
	StartThreshold int
	// Announce game_start at most once per room lifetime.
	StartOnce bool

	RoomIDLength    int
	SendBufferSize  int
	MaxMessageBytes int64
	WriteWait       time.Duration
	PingInterval    time.Duration
	PongWait        time.Duration

	LogLevel  log.Level
	LogFormat string

	ICEServers []webrtc.ICEServer
}

func DefaultConfig() Config {
	return Config{
		EventsAddr:      ":8080",
		MetricsAddr:     ":8081",
		CORSAllow:       []string{"http://localhost:3000"},
		StartThreshold:  3,
		StartOnce:       false,
		RoomIDLength:    6,
		SendBufferSize:  256,
		MaxMessageBytes: 64 * 1024,
		WriteWait:       10 * time.Second,
		PingInterval:    30 * time.Second,
		PongWait:        60 * time.Second,
		LogLevel:        log.InfoLevel,
		LogFormat:       "text",
	}
}

// LoadConfig reads the configuration from the environment on top of the
// defaults.
func LoadConfig() (Config, error) {
	return loadConfig(os.LookupEnv)
}

func loadConfig(lookup func(string) (string, bool)) (Config, error) {
	cfg := DefaultConfig()
	var err error

	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := get("EVENTS_ADDR"); ok {
		cfg.EventsAddr = v
	}
	if v, ok := get("METRICS_ADDR"); ok {
		cfg.MetricsAddr = v
	}
	if v, ok := get("CORS_ALLOW"); ok {
		cfg.CORSAllow = splitCSV(v)
	}

	if v, ok := get("START_THRESHOLD"); ok {
		if cfg.StartThreshold, err = parsePositiveInt("START_THRESHOLD", v); err != nil {
			return cfg, err
		}
	}
	if v, ok := get("START_ONCE"); ok {
		if cfg.StartOnce, err = strconv.ParseBool(v); err != nil {
			return cfg, fmt.Errorf("START_ONCE: %w", err)
		}
	}
	if v, ok := get("ROOM_ID_LENGTH"); ok {
		if cfg.RoomIDLength, err = parsePositiveInt("ROOM_ID_LENGTH", v); err != nil {
			return cfg, err
		}
		if cfg.RoomIDLength > 32 {
			return cfg, fmt.Errorf("ROOM_ID_LENGTH: must be at most 32")
		}
	}
	if v, ok := get("SEND_BUFFER"); ok {
		if cfg.SendBufferSize, err = parsePositiveInt("SEND_BUFFER", v); err != nil {
			return cfg, err
		}
	}
	if v, ok := get("MAX_MESSAGE_BYTES"); ok {
		if cfg.MaxMessageBytes, err = strconv.ParseInt(v, 10, 64); err != nil || cfg.MaxMessageBytes < 0 {
			return cfg, fmt.Errorf("MAX_MESSAGE_BYTES: invalid value %q", v)
		}
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"WRITE_WAIT", &cfg.WriteWait},
		{"PING_INTERVAL", &cfg.PingInterval},
		{"PONG_WAIT", &cfg.PongWait},
	}
	for _, d := range durations {
		v, ok := get(d.key)
		if !ok {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil || parsed < 0 {
			return cfg, fmt.Errorf("%s: invalid duration %q", d.key, v)
		}
		*d.dst = parsed
	}
	if cfg.PingInterval > 0 && cfg.PongWait <= cfg.PingInterval {
		return cfg, fmt.Errorf("PONG_WAIT (%s) must exceed PING_INTERVAL (%s)",
			cfg.PongWait, cfg.PingInterval)
	}

	if v, ok := get("LOG_LEVEL"); ok {
		if cfg.LogLevel, err = log.ParseLevel(v); err != nil {
			return cfg, fmt.Errorf("LOG_LEVEL: %w", err)
		}
	}
	if v, ok := get("LOG_FORMAT"); ok {
		if v != "text" && v != "json" {
			return cfg, fmt.Errorf("LOG_FORMAT: expected text or json, got %q", v)
		}
		cfg.LogFormat = v
	}

	stunURLs, _ := get("STUN_URLS")
	turnURLs, _ := get("TURN_URLS")
	turnUsername, _ := get("TURN_USERNAME")
	turnCredential, _ := get("TURN_CREDENTIAL")
	cfg.ICEServers, err = parseICEServers(stunURLs, turnURLs, turnUsername, turnCredential)
	if err != nil {
		return cfg, err
	}

	return cfg, nil
}

// withDefaults fills settings a zero Config leaves unusable.
func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.StartThreshold <= 0 {
		c.StartThreshold = defaults.StartThreshold
	}
	if c.RoomIDLength <= 0 || c.RoomIDLength > 32 {
		c.RoomIDLength = defaults.RoomIDLength
	}
	if c.SendBufferSize <= 0 {
		c.SendBufferSize = defaults.SendBufferSize
	}
	if len(c.CORSAllow) == 0 {
		c.CORSAllow = defaults.CORSAllow
	}
	return c
}

// ConfigureLogging applies the log level and formatter globally.
func (c Config) ConfigureLogging() {
	log.SetLevel(c.LogLevel)
	if c.LogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

func parsePositiveInt(key, v string) (int, error) {
	i, err := strconv.Atoi(v)
	if err != nil || i <= 0 {
		return 0, fmt.Errorf("%s: expected a positive integer, got %q", key, v)
	}
	return i, nil
}

// splitCSV trims and filters a comma-separated list
func splitCSV(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
