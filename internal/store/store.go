// Package store persists pending reminders.
//
// Three backends implement Store: GORM (SQLite or PostgreSQL), Firestore and
// an in-process map. All of them are safe for concurrent use, so the webhook
// and the scheduler share one instance without extra locking.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pathakanu/remindme/internal/database"
	"github.com/pathakanu/remindme/internal/model"
	"github.com/rs/zerolog"
)

var (
	// ErrNotFound is returned when deleting a reminder that does not exist.
	ErrNotFound = errors.New("reminder not found")
	// ErrInvalidReminder is returned when a reminder misses recipient, task or due time.
	ErrInvalidReminder = errors.New("invalid reminder")
)

// Store is the durable record of pending reminders.
type Store interface {
	// Add persists r and returns its assigned id.
	Add(ctx context.Context, r model.Reminder) (string, error)
	// DueBefore returns every reminder with DueAt <= asOf.
	DueBefore(ctx context.Context, asOf time.Time) ([]model.Reminder, error)
	// Delete removes the reminder with the given id.
	Delete(ctx context.Context, id string) error
	Close() error
}

// Config selects and configures a backend.
type Config struct {
	Driver              string // sqlite, postgres, firestore, memory
	DatabaseURL         string
	SQLitePath          string
	FirebaseConfig      string // service account JSON
	FirestoreCollection string // defaults to "reminders"
}

// Open initialises the configured store.
func Open(ctx context.Context, cfg Config, log zerolog.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	switch driver {
	case "sqlite", "sqlite3", "":
		db, err := database.New("sqlite", cfg.SQLitePath, log)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		return NewGorm(db), nil
	case "postgres", "postgresql":
		db, err := database.New("postgres", cfg.DatabaseURL, log)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return NewGorm(db), nil
	case "firestore":
		fs, err := NewFirestore(ctx, cfg.FirebaseConfig, cfg.FirestoreCollection)
		if err != nil {
			return nil, fmt.Errorf("open firestore: %w", err)
		}
		log.Info().Str("collection", fs.collection).Msg("store: using Firestore")
		return fs, nil
	case "memory":
		log.Warn().Msg("store: using in-memory store, reminders are lost on restart")
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store driver: %s", driver)
	}
}

func validate(r model.Reminder) error {
	switch {
	case strings.TrimSpace(r.Recipient) == "":
		return fmt.Errorf("%w: recipient is empty", ErrInvalidReminder)
	case strings.TrimSpace(r.Task) == "":
		return fmt.Errorf("%w: task is empty", ErrInvalidReminder)
	case r.DueAt.IsZero():
		return fmt.Errorf("%w: due time is missing", ErrInvalidReminder)
	}
	return nil
}
