package instance

import (
	"os"

	"github.com/angelmondragon/storefront/pkg/env"
)

// GetID returns the process identifier used in logs. Platform dyno names win
// over the hostname.
func GetID() string {
	if id := env.Get("STOREFRONT_INSTANCE_ID", env.Get("DYNO", "")); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
