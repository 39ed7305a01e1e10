// Package core provides fundamental utilities for the catalog backend.
// This file contains option functions for customizing audit log entries.
package core

import (
	"fmt"
	"time"

	"github.com/Vinicius-jafe/bookish-broccoli/domain"
	"github.com/google/uuid"
)

// LogOption decorates an audit log entry before it is stored.
type LogOption func(log *domain.Log) error

// NewLog builds an audit entry with a fresh time-ordered ID and applies the options in order.
func NewLog(level, message string, options ...LogOption) (*domain.Log, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generating log id: %w", err)
	}

	log := &domain.Log{
		ID:        id,
		Timestamp: time.Now().UTC(),
		Level:     level,
		Message:   message,
		Context:   map[string]any{},
	}
	for _, option := range options {
		if err := option(log); err != nil {
			return nil, fmt.Errorf("applying log option: %w", err)
		}
	}
	return log, nil
}

// LogWithContext is an option to merge a context map into a log entry.
func LogWithContext(context map[string]any) LogOption {
	return func(log *domain.Log) error {
		if log.Context == nil {
			log.Context = make(map[string]any, len(context))
		}
		for key, value := range context {
			log.Context[key] = value
		}
		return nil
	}
}

// LogWithRequestID is an option to associate a log entry with the HTTP request that caused it.
func LogWithRequestID(id uuid.UUID) LogOption {
	return func(log *domain.Log) error {
		log.RequestID = &id
		return nil
	}
}

// LogWithActor is an option to record which admin performed the action.
func LogWithActor(email string) LogOption {
	return func(log *domain.Log) error {
		log.Actor = email
		return nil
	}
}

// LogWithPackageID is an option to tag a log entry with the affected package.
func LogWithPackageID(id string) LogOption {
	return func(log *domain.Log) error {
		if id == "" {
			return fmt.Errorf("empty package id")
		}
		return LogWithContext(map[string]any{"package_id": id})(log)
	}
}
