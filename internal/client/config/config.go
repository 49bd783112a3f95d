// Package config handles configuration for the KeyGate CLI.
package config

// Config holds runtime settings for the KeyGate CLI.
//
// Fields:
//   - ServerEndpointAddr: base URL of the backend HTTP endpoint.
type Config struct {
	ServerEndpointAddr string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "http://127.0.0.1:8080"
}

// LoadConfig constructs a Config, applies defaults, then overlays values
// from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseFlags(cfg)
	return cfg
}
