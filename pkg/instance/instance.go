package instance

import (
	"os"

	"github.com/angelmondragon/storefront-checkout/pkg/env"
)

const fallbackID = "storefront-0"

// ID names this process in logs. STOREFRONT_INSTANCE_ID wins over the hostname.
func ID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = fallbackID
	}
	return env.Get("STOREFRONT_INSTANCE_ID", host)
}
