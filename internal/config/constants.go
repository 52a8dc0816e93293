package config

// Default paths
const (
	// DefaultDatabasePath is the default path for the main application database
	DefaultDatabasePath = "./gatekeeper.db"

	// DefaultLoginPath is where unauthenticated visitors are sent
	DefaultLoginPath = "/auth/login"

	// DefaultHomePath is where authenticated visitors land
	DefaultHomePath = "/home"
)
