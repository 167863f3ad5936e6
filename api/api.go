// Package api contains common constants for daemon and client.
package api

// Common constants for daemon and client.
const (
	// DefaultVersion of Current REST API
	DefaultVersion = "1"
	// DefaultPrefix is the path prefix of the versioned routes
	DefaultPrefix = "/v" + DefaultVersion
)
