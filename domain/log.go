package domain

import (
	"time"

	"github.com/google/uuid"
)

// LogRepository defines the interface for managing audit logs.
// It provides methods for persisting and retrieving log entries.
type LogRepository interface {
	// InsertLog saves a new log entry to the repository.
	InsertLog(log *Log) error
	// GetLogs retrieves the most recent log entries, newest first. A limit <= 0 returns all of them.
	GetLogs(limit int) ([]*Log, error)
}

// Log represents a single audit entry describing an administrative action on the catalog.
type Log struct {
	ID        uuid.UUID      // Unique identifier for the log entry.
	Timestamp time.Time      // The time at which the log entry was created.
	Level     string         // The severity level of the log (e.g., INFO, WARN, ERROR).
	Message   string         // The main content of the log message.
	Context   map[string]any // A map of additional key-value data for structured logging.
	RequestID *uuid.UUID     // An optional ID of the HTTP request that caused the entry.
	Actor     string         // Email of the admin that performed the action, if any.
}
