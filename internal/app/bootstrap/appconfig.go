// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds configuration for the userz CLI.
//
// These values come from environment variables (USERZ_*), an optional
// configuration file, or command-line flags (loaded in LoadConfig).
//
// Add fields here as the tool grows. The struct is passed to every
// bootstrap step, so anything needed while connecting, building services
// or shutting down should live here.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string        // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string        // Database name within MongoDB
	MongoMaxPoolSize uint64        // Max connections in the driver pool
	MongoMinPoolSize uint64        // Min connections kept open
	MongoTimeout     time.Duration // Connect/ping timeout

	// Per-operation deadlines
	TimeoutShort time.Duration // single-record operations
	TimeoutLong  time.Duration // schema setup, deletes

	// Logging
	LogLevel  string // debug | info | warn | error
	LogFormat string // json | console

	// Password hashing
	BcryptCost int // bcrypt work factor (4-31)

	// Display name rendering
	NameOrder      string // first_first | last_first
	MiddleNameMode string // none | initial | full

	// Audit logging
	AuditLogAuth  string // all | db | log | off
	AuditLogAdmin string // all | db | log | off
}
