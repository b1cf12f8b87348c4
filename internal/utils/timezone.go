package utils

import "time"

// LocationOrUTC resolves an IANA timezone name (e.g. "Europe/Athens") to a
// *time.Location, falling back to UTC when the name is empty or unknown.
// Timezone conversion happens only at the transport boundary; the core
// stores absolute instants.
func LocationOrUTC(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}
