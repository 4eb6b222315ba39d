// Package database provides PostgreSQL connection pool management and the
// schema used by the live event journal.
package database
