package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/labook/users-api/internal/core/domain"
	"github.com/labook/users-api/internal/core/ports"
)

const collectionUserEvents = "user_events"

// AuditRepository implements ports.AuditRepository using MongoDB.
type AuditRepository struct {
	col *mongo.Collection
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(db *mongo.Database) ports.AuditRepository {
	return &AuditRepository{col: db.Collection(collectionUserEvents)}
}

// InsertEvent appends an event to the user_events audit collection.
func (r *AuditRepository) InsertEvent(ctx context.Context, event *domain.AuditEvent) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := bson.M{
		"user_id":      event.UserID,
		"kind":         string(event.Kind),
		"actor_id":     event.ActorID,
		"actor_role":   string(event.ActorRole),
		"at":           event.At.UTC(),
		"processed_at": time.Now().UTC(),
	}

	_, err := r.col.InsertOne(ctx, doc)
	return err
}
