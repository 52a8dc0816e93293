// Package database opens the SQLite database and migrates the schema.
//
//	database/
//	├── database.go      # Connection setup and migrations
//	└── audit/           # Sign-in audit events
//
// Users are managed by auth.Service directly on Database.DB. The same
// connection pool backs the session store.
package database
