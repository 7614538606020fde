package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/pathakanu/remindme/internal/model"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const defaultCollection = "reminders"

// reminderDoc keeps the field names used by existing reminder documents.
type reminderDoc struct {
	Recipient string    `firestore:"phone_number"`
	Task      string    `firestore:"task"`
	Summary   string    `firestore:"summary,omitempty"`
	DueAt     time.Time `firestore:"timestamp"`
	CreatedAt time.Time `firestore:"created_at"`
}

// Firestore stores reminders as documents of one collection.
type Firestore struct {
	client     *firestore.Client
	collection string
}

// NewFirestore connects with a service account JSON document. The project id
// is read from the credentials.
func NewFirestore(ctx context.Context, credentialsJSON, collection string) (*Firestore, error) {
	credentialsJSON = strings.TrimSpace(credentialsJSON)
	if credentialsJSON == "" {
		return nil, errors.New("firebase credentials are empty")
	}
	var creds struct {
		ProjectID string `json:"project_id"`
	}
	if err := json.Unmarshal([]byte(credentialsJSON), &creds); err != nil {
		return nil, fmt.Errorf("decode firebase credentials: %w", err)
	}
	if creds.ProjectID == "" {
		return nil, errors.New("firebase credentials have no project_id")
	}

	client, err := firestore.NewClient(ctx, creds.ProjectID, option.WithCredentialsJSON([]byte(credentialsJSON)))
	if err != nil {
		return nil, err
	}
	return NewFirestoreClient(client, collection), nil
}

// NewFirestoreClient wraps an existing client.
func NewFirestoreClient(client *firestore.Client, collection string) *Firestore {
	if collection == "" {
		collection = defaultCollection
	}
	return &Firestore{client: client, collection: collection}
}

func (s *Firestore) Add(ctx context.Context, r model.Reminder) (string, error) {
	if err := validate(r); err != nil {
		return "", err
	}
	doc := reminderDoc{
		Recipient: r.Recipient,
		Task:      r.Task,
		Summary:   r.Summary,
		DueAt:     r.DueAt.UTC(),
		CreatedAt: time.Now().UTC(),
	}
	ref, _, err := s.client.Collection(s.collection).Add(ctx, doc)
	if err != nil {
		return "", err
	}
	return ref.ID, nil
}

func (s *Firestore) DueBefore(ctx context.Context, asOf time.Time) ([]model.Reminder, error) {
	snaps, err := s.client.Collection(s.collection).
		Where("timestamp", "<=", asOf.UTC()).
		Documents(ctx).
		GetAll()
	if err != nil {
		return nil, err
	}

	reminders := make([]model.Reminder, 0, len(snaps))
	for _, snap := range snaps {
		var doc reminderDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode reminder %s: %w", snap.Ref.ID, err)
		}
		// Documents written by other tools may miss fields; they cannot be delivered.
		if doc.Recipient == "" || doc.Task == "" {
			continue
		}
		reminders = append(reminders, model.Reminder{
			ID:        snap.Ref.ID,
			Recipient: doc.Recipient,
			Task:      doc.Task,
			Summary:   doc.Summary,
			DueAt:     doc.DueAt,
			CreatedAt: doc.CreatedAt,
		})
	}
	return reminders, nil
}

func (s *Firestore) Delete(ctx context.Context, id string) error {
	_, err := s.client.Collection(s.collection).Doc(id).Delete(ctx, firestore.Exists)
	if status.Code(err) == codes.NotFound {
		return ErrNotFound
	}
	return err
}

func (s *Firestore) Close() error {
	return s.client.Close()
}
