// Package config reads client configuration from the environment.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config for the LANSend client.
type Config struct {
	ServerHost     string        // host:port of the LANSend server
	ReconnectDelay time.Duration // pause between drop and redial
	MaxTextLen     int           // runes; above this, text uploads
	MaxLongTextLen int           // runes; above this, text becomes a plain file
	SnapshotPath   string        // empty means the per-user default
}

// Load reads configuration from environment variables, with defaults
// suitable for a server on the local machine.
func Load() Config {
	host := os.Getenv("LANSEND_HOST")
	if host == "" {
		host = "127.0.0.1:17133"
	}

	delay := 2000
	if v, ok := intEnv("LANSEND_RECONNECT_MS"); ok && v > 0 {
		delay = v
	}

	maxText := 2048
	if v, ok := intEnv("LANSEND_MAX_TEXT_LEN"); ok && v > 0 {
		maxText = v
	}
	maxLong := 65536
	if v, ok := intEnv("LANSEND_MAX_LONG_TEXT_LEN"); ok && v > 0 {
		maxLong = v
	}
	// The branching only makes sense with text < long-text.
	if maxLong <= maxText {
		maxText, maxLong = 2048, 65536
	}

	return Config{
		ServerHost:     host,
		ReconnectDelay: time.Duration(delay) * time.Millisecond,
		MaxTextLen:     maxText,
		MaxLongTextLen: maxLong,
		SnapshotPath:   os.Getenv("LANSEND_SNAPSHOT"),
	}
}

// BaseURL is the HTTP endpoint of the server.
func (c Config) BaseURL() string {
	return "http://" + c.ServerHost
}

// WSURL is the websocket endpoint of the server.
func (c Config) WSURL() string {
	return "ws://" + c.ServerHost + "/ws"
}

func intEnv(key string) (int, bool) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}
