package archive

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel"

	"github.com/parlorhq/go-hookrelay/pkg/queue"
)

type MongoArchive struct {
	client     *mongo.Client
	database   string
	collection string
}

func NewMongoArchive(client *mongo.Client, database, collection string) *MongoArchive {
	return &MongoArchive{
		client:     client,
		database:   database,
		collection: collection,
	}
}

func (m *MongoArchive) Archive(ctx context.Context, job *queue.Job) error {
	tracer := otel.Tracer("hookrelay")
	ctx, span := tracer.Start(ctx, "ArchiveJob")
	defer span.End()

	startTime := time.Now()

	collection := m.client.Database(m.database).Collection(m.collection)
	filter := bson.M{"id": job.ID}
	update := bson.M{
		"$set": bson.M{
			"id":          job.ID,
			"event_name":  job.EventName,
			"target_url":  job.TargetURL,
			"payload":     []byte(job.Payload),
			"status":      string(job.Status),
			"attempt":     job.Attempt,
			"last_error":  job.LastError,
			"created_at":  job.CreatedAt,
			"archived_at": time.Now(),
		},
	}
	_, err := collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		span.RecordError(err)
		return err
	}

	addDBStatsToSpan(span, "mongodb", "ArchiveJob", time.Since(startTime))
	return nil
}

func (m *MongoArchive) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
