package config

// LoggingConfig defines the application log settings.
type LoggingConfig struct {
	// Level is the minimum level written: debug, info, warn or error.
	Level string `json:"level" validate:"oneof=debug info warn error"`
}

// SetDefaults applies sane defaults.
func (c *LoggingConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
}
