package config

import (
	"crypto/sha256"
	"encoding/hex"
)

// Snapshot computes a stable hash of the build-affecting configuration.
// Logging and server settings are excluded so changing them does not force
// a rebuild. Callers should hash a loaded (normalized, defaulted) config.
func (c *Config) Snapshot() string {
	if c == nil {
		return ""
	}
	view := c.Clone()
	view.Logging = LoggingConfig{}
	view.Server = ServerConfig{}
	data, err := view.Marshal()
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(append(data, []byte(c.Root)...))
	return hex.EncodeToString(sum[:])
}
