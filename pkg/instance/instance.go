package instance

import "os"

// GetID identifies the running process in logs and lock owners. The
// platform dyno name wins, then an explicit FRESHBASKET_INSTANCE_ID,
// then the hostname.
func GetID() string {
	for _, key := range []string{"DYNO", "FRESHBASKET_INSTANCE_ID"} {
		if id := os.Getenv(key); id != "" {
			return id
		}
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
