package instance

import "github.com/angelmondragon/tablebite-backend/pkg/env"

// ID names the running process in logs: the platform dyno, then the host
// name, then "local".
func ID() string {
	return env.First("local", "DYNO", "HOSTNAME")
}
