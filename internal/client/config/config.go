// Package config handles configuration for the terminal agent.
package config

import "time"

// Config holds runtime settings for the termbind agent.
//
// Fields:
//   - ServerEndpointAddr: base URL of the backend HTTP endpoint.
//   - PollInterval: initial delay between pairing polls; the agent backs
//     off from this value while the request stays pending.
//   - IdentityFile: path of the agent's key material.
type Config struct {
	ServerEndpointAddr string
	PollInterval       time.Duration
	IdentityFile       string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "http://127.0.0.1:8080"
	c.PollInterval = 2 * time.Second
	c.IdentityFile = "termbind-identity.json"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
