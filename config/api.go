package config

// APIConfig defines the HTTP server settings.
type APIConfig struct {
	Addr string `json:"addr" validate:"required"`
	// Token, when set, must be presented as a bearer token on every request.
	Token                  string `json:"token"`
	ShutdownTimeoutSeconds int    `json:"shutdown_timeout_seconds" validate:"gte=0"`
}

// SetDefaults applies sane defaults.
func (c *APIConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.ShutdownTimeoutSeconds == 0 {
		c.ShutdownTimeoutSeconds = 5
	}
}
