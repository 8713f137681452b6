package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"spendview/internal/domain"
)

// firestoreInteraction mantiene los nombres de campo de la coleccion chat_logs.
type firestoreInteraction struct {
	ID                 string    `firestore:"id"`
	Timestamp          time.Time `firestore:"timestamp"`
	SessionID          string    `firestore:"session_id"`
	UserInput          string    `firestore:"user_input"`
	Question           string    `firestore:"question,omitempty"`
	AIResponse         string    `firestore:"ai_response"`
	HasImage           bool      `firestore:"has_image"`
	ImageURL           string    `firestore:"image_url,omitempty"`
	ImageKey           string    `firestore:"image_key,omitempty"`
	HasAudio           bool      `firestore:"has_audio"`
	AudioURL           string    `firestore:"audio_url,omitempty"`
	AudioKey           string    `firestore:"audio_key,omitempty"`
	AudioTranscription string    `firestore:"audio_transcription,omitempty"`
	UserAgent          string    `firestore:"user_agent,omitempty"`
	ClientIP           string    `firestore:"client_ip,omitempty"`
}

func toFirestore(it domain.Interaction) firestoreInteraction {
	return firestoreInteraction{
		ID:                 it.ID,
		Timestamp:          it.CreatedAt,
		SessionID:          it.SessionID,
		UserInput:          it.UserInput,
		Question:           it.Question,
		AIResponse:         it.Answer,
		HasImage:           it.HasImage(),
		ImageURL:           it.ImageURL,
		ImageKey:           it.ImageKey,
		HasAudio:           it.HasAudio(),
		AudioURL:           it.AudioURL,
		AudioKey:           it.AudioKey,
		AudioTranscription: it.Transcription,
		UserAgent:          it.UserAgent,
		ClientIP:           it.ClientIP,
	}
}

func (f firestoreInteraction) toDomain(docID string) domain.Interaction {
	id := f.ID
	if id == "" {
		id = docID
	}
	return domain.Interaction{
		ID:            id,
		SessionID:     f.SessionID,
		UserInput:     f.UserInput,
		Question:      f.Question,
		Transcription: f.AudioTranscription,
		ImageURL:      f.ImageURL,
		ImageKey:      f.ImageKey,
		AudioURL:      f.AudioURL,
		AudioKey:      f.AudioKey,
		Answer:        f.AIResponse,
		UserAgent:     f.UserAgent,
		ClientIP:      f.ClientIP,
		CreatedAt:     f.Timestamp,
	}
}

// FirestoreInteractionRepository usa una coleccion de Firestore como document store.
type FirestoreInteractionRepository struct {
	client     *firestore.Client
	collection string
}

// NewFirestoreClient abre un cliente; credentialsFile vacio usa las credenciales por defecto
// (o el emulador si FIRESTORE_EMULATOR_HOST esta definido).
func NewFirestoreClient(ctx context.Context, projectID, credentialsFile string) (*firestore.Client, error) {
	if projectID == "" {
		return nil, errors.New("FIRESTORE_PROJECT_ID is required for the firestore store")
	}
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("firestore client: %w", err)
	}
	return client, nil
}

func NewFirestoreInteractionRepository(client *firestore.Client, collection string) *FirestoreInteractionRepository {
	if collection == "" {
		collection = "chat_logs"
	}
	return &FirestoreInteractionRepository{client: client, collection: collection}
}

func (r *FirestoreInteractionRepository) Create(ctx context.Context, interaction domain.Interaction) error {
	ref := r.client.Collection(r.collection).Doc(interaction.ID)
	if interaction.ID == "" {
		ref = r.client.Collection(r.collection).NewDoc()
	}
	_, err := ref.Create(ctx, toFirestore(interaction))
	return err
}

func (r *FirestoreInteractionRepository) ListRecentBySession(ctx context.Context, sessionID string, limit int) ([]domain.Interaction, error) {
	iter := r.client.Collection(r.collection).
		Where("session_id", "==", sessionID).
		OrderBy("timestamp", firestore.Desc).
		Limit(limit).
		Documents(ctx)
	defer iter.Stop()

	interactions := make([]domain.Interaction, 0, limit)
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		var rec firestoreInteraction
		if err := doc.DataTo(&rec); err != nil {
			return nil, fmt.Errorf("decode %s: %w", doc.Ref.ID, err)
		}
		interactions = append(interactions, rec.toDomain(doc.Ref.ID))
	}
	return interactions, nil
}
