package config

import (
	"fmt"
	"os"
	"strings"
)

// Default configuration values
const (
	DefaultServerURL = "ws://localhost:8080/ws"
	DefaultSTUN      = "stun:stun.l.google.com:19302"
)

// Config holds client configuration.
type Config struct {
	// ServerURL is the rendezvous server websocket endpoint.
	ServerURL string

	// ICE servers for WebRTC
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string
}

// Options for loading config with CLI flag overrides.
type Options struct {
	ServerURL  string
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string
}

// Load reads configuration with the following priority:
// 1. CLI flags (passed via Options) - highest priority
// 2. Environment variables
// 3. Defaults - lowest priority
func Load(opts Options) (*Config, error) {
	serverURL := firstNonEmpty(opts.ServerURL, os.Getenv("WATCHDROP_SERVER_URL"), DefaultServerURL)
	if !strings.HasPrefix(serverURL, "ws://") && !strings.HasPrefix(serverURL, "wss://") {
		return nil, fmt.Errorf("server URL must use ws:// or wss:// scheme: %s", serverURL)
	}

	return &Config{
		ServerURL:  serverURL,
		STUNServer: firstNonEmpty(opts.STUNServer, os.Getenv("WATCHDROP_STUN_SERVER"), DefaultSTUN),
		TURNServer: firstNonEmpty(opts.TURNServer, os.Getenv("WATCHDROP_TURN_SERVER")),
		TURNUser:   firstNonEmpty(opts.TURNUser, os.Getenv("WATCHDROP_TURN_USERNAME")),
		TURNPass:   firstNonEmpty(opts.TURNPass, os.Getenv("WATCHDROP_TURN_PASSWORD")),
	}, nil
}

// GetSTUNServers returns STUN server URLs.
func (c *Config) GetSTUNServers() []string {
	return []string{c.STUNServer}
}

// GetTURNServers returns TURN server URLs if configured.
func (c *Config) GetTURNServers() []string {
	if c.TURNServer == "" {
		return nil
	}
	return []string{
		fmt.Sprintf("%s?transport=udp", c.TURNServer),
		fmt.Sprintf("%s?transport=tcp", c.TURNServer),
	}
}

// GetTURNCredentials returns TURN username and password.
func (c *Config) GetTURNCredentials() (string, string) {
	return c.TURNUser, c.TURNPass
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
