package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/pathakanu/remindme/internal/model"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestGorm(t *testing.T) *Gorm {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite memory: %v", err)
	}
	if err := db.AutoMigrate(&model.Reminder{}); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	s := NewGorm(db)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// exerciseStore runs the behaviour every backend must share.
func exerciseStore(t *testing.T, s Store) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	_, err := s.Add(ctx, model.Reminder{Task: "no recipient", DueAt: now})
	require.ErrorIs(t, err, ErrInvalidReminder)
	_, err = s.Add(ctx, model.Reminder{Recipient: "whatsapp:+1555", DueAt: now})
	require.ErrorIs(t, err, ErrInvalidReminder)
	_, err = s.Add(ctx, model.Reminder{Recipient: "whatsapp:+1555", Task: "no time"})
	require.ErrorIs(t, err, ErrInvalidReminder)

	pastID, err := s.Add(ctx, model.Reminder{Recipient: "whatsapp:+1555", Task: "past", DueAt: now.Add(-time.Minute)})
	require.NoError(t, err)
	require.NotEmpty(t, pastID)
	exactID, err := s.Add(ctx, model.Reminder{Recipient: "whatsapp:+1555", Task: "exact", DueAt: now})
	require.NoError(t, err)
	futureID, err := s.Add(ctx, model.Reminder{Recipient: "whatsapp:+1666", Task: "future", Summary: "Later", DueAt: now.Add(time.Hour)})
	require.NoError(t, err)
	require.NotEqual(t, pastID, exactID)

	due, err := s.DueBefore(ctx, now)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{pastID, exactID}, ids(due))
	for _, r := range due {
		require.Equal(t, "whatsapp:+1555", r.Recipient)
	}

	require.NoError(t, s.Delete(ctx, pastID))
	require.ErrorIs(t, s.Delete(ctx, pastID), ErrNotFound)

	due, err = s.DueBefore(ctx, now.Add(2*time.Hour))
	require.NoError(t, err)
	require.ElementsMatch(t, []string{exactID, futureID}, ids(due))
	for _, r := range due {
		if r.ID == futureID {
			require.Equal(t, "future", r.Task)
			require.Equal(t, "Later", r.Summary)
			require.True(t, r.DueAt.Equal(now.Add(time.Hour)), "due at %v", r.DueAt)
		}
	}
}

func ids(reminders []model.Reminder) []string {
	out := make([]string, 0, len(reminders))
	for _, r := range reminders {
		out = append(out, r.ID)
	}
	return out
}

func TestMemoryStore(t *testing.T) {
	t.Parallel()
	exerciseStore(t, NewMemory())
}

func TestGormStore(t *testing.T) {
	t.Parallel()
	exerciseStore(t, newTestGorm(t))
}

func TestGormStoreComparesAcrossZones(t *testing.T) {
	t.Parallel()
	s := newTestGorm(t)
	ctx := context.Background()

	ist := time.FixedZone("IST", 5*3600+1800)
	dueLocal := time.Date(2024, 1, 1, 15, 30, 0, 0, ist) // 10:00 UTC
	id, err := s.Add(ctx, model.Reminder{Recipient: "whatsapp:+91", Task: "tea", DueAt: dueLocal})
	require.NoError(t, err)

	due, err := s.DueBefore(ctx, time.Date(2024, 1, 1, 9, 59, 59, 0, time.UTC))
	require.NoError(t, err)
	require.Empty(t, due)

	due, err = s.DueBefore(ctx, time.Date(2024, 1, 1, 15, 30, 0, 0, ist))
	require.NoError(t, err)
	require.Equal(t, []string{id}, ids(due))
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Parallel()
	_, err := Open(context.Background(), Config{Driver: "cassandra"}, testLogger())
	require.Error(t, err)
}

func TestOpenMemory(t *testing.T) {
	t.Parallel()
	s, err := Open(context.Background(), Config{Driver: "memory"}, testLogger())
	require.NoError(t, err)
	_, ok := s.(*Memory)
	require.True(t, ok)
}

func TestNewFirestoreRejectsBadCredentials(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	_, err := NewFirestore(ctx, "", "")
	require.Error(t, err)
	_, err = NewFirestore(ctx, "{not json", "")
	require.Error(t, err)
	_, err = NewFirestore(ctx, `{"type":"service_account"}`, "")
	require.Error(t, err)
}

func TestNewFirestoreClientCollection(t *testing.T) {
	t.Parallel()
	require.Equal(t, "reminders", NewFirestoreClient(nil, "").collection)
	require.Equal(t, "team_reminders", NewFirestoreClient(nil, "team_reminders").collection)
}

func TestFirestoreStore(t *testing.T) {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	ctx := context.Background()
	client, err := firestore.NewClient(ctx, "remindme-test")
	require.NoError(t, err)

	collection := fmt.Sprintf("reminders_%d", time.Now().UnixNano())
	s := NewFirestoreClient(client, collection)
	t.Cleanup(func() { _ = s.Close() })

	exerciseStore(t, s)

	err = s.Delete(ctx, "missing")
	require.True(t, errors.Is(err, ErrNotFound), "got %v", err)
}
