package timeutil

import "time"

// Now returns the current time in UTC. It is the production clock handed to
// the services; booking expiry and order ids are computed from it.
func Now() time.Time {
	return time.Now().UTC()
}
