// Package activity records lifecycle events in MongoDB for audit history.
// Writes are fire-and-forget from the core's perspective; reads back the
// per-request timeline for the history endpoint.
package activity

import (
	"context"
	"fmt"
	"log"
	"time"

	"carcare-dispatch/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// entry is the stored shape of one lifecycle event.
type entry struct {
	RequestID string    `bson:"request_id"`
	From      string    `bson:"from"`
	To        string    `bson:"to"`
	ActorID   string    `bson:"actor_id"`
	Timestamp time.Time `bson:"timestamp"`
}

// Log is a Mongo-backed activity log.
type Log struct {
	collection *mongo.Collection
}

// NewLog creates the activity log over the given client.
func NewLog(client *mongo.Client, database string) *Log {
	return &Log{
		collection: client.Database(database).Collection("request_activity"),
	}
}

// HandleRequestEvent appends one event to the audit trail. Errors are logged
// and swallowed: the audit trail must never fail a lifecycle operation that
// already committed.
func (l *Log) HandleRequestEvent(ctx context.Context, ev models.RequestEvent) {
	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := l.collection.InsertOne(writeCtx, entry{
		RequestID: ev.RequestID,
		From:      string(ev.From),
		To:        string(ev.To),
		ActorID:   ev.ActorID,
		Timestamp: ev.Timestamp,
	})
	if err != nil {
		log.Printf("activity: failed to record event for request %s: %v", ev.RequestID, err)
	}
}

// History returns the recorded events for one request in chronological order.
func (l *Log) History(ctx context.Context, requestID string) ([]models.RequestEvent, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}})
	cursor, err := l.collection.Find(ctx, bson.M{"request_id": requestID}, opts)
	if err != nil {
		return nil, fmt.Errorf("activity.History: %w", err)
	}
	defer cursor.Close(ctx)

	var events []models.RequestEvent
	for cursor.Next(ctx) {
		var e entry
		if err := cursor.Decode(&e); err != nil {
			return nil, fmt.Errorf("activity.History decode: %w", err)
		}
		events = append(events, models.RequestEvent{
			RequestID: e.RequestID,
			From:      models.RequestStatus(e.From),
			To:        models.RequestStatus(e.To),
			ActorID:   e.ActorID,
			Timestamp: e.Timestamp,
		})
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("activity.History cursor: %w", err)
	}
	return events, nil
}
