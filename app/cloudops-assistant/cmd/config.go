package cmd

import "github.com/cchalm/cloudops-assistant/internal/config"

// cfg is the resolved configuration, filled in by the root command before any subcommand runs
var cfg = config.Config{}

// overrides holds flag values that take precedence over the environment
var overrides = struct {
	Region      string
	EndpointURL string
	LogLevel    string
	LogJSON     bool

	// serve
	ListenAddr  string
	MaxSessions int

	// ask
	Raw bool
}{}

func applyFlagOverrides(c *config.Config) {
	if overrides.Region != "" {
		c.Region = overrides.Region
	}
	if overrides.EndpointURL != "" {
		c.EndpointURL = overrides.EndpointURL
	}
	if overrides.LogLevel != "" {
		c.LogLevel = overrides.LogLevel
	}
	if overrides.LogJSON {
		c.LogJSON = true
	}
	if overrides.ListenAddr != "" {
		c.ListenAddr = overrides.ListenAddr
	}
	if overrides.MaxSessions > 0 {
		c.MaxSessions = overrides.MaxSessions
	}
}
