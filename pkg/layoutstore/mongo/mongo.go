// Package mongo persists layout coordinates into the chat application's graph
// documents. Each graph document embeds its nodes as an array; coordinates are
// written in place with positional updates.
package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/graphmind/kgraph/pkg/interfaces"
	"github.com/graphmind/kgraph/pkg/logging"
)

// Config holds connection configuration for the layout repository.
type Config struct {
	// URI is the MongoDB connection string
	URI string

	// Database is the database name (default: "chat")
	Database string

	// Collection is the graph collection name (default: "kgraphs")
	Collection string
}

// Repository implements interfaces.LayoutRepository over a MongoDB collection
// of graph documents.
type Repository struct {
	collection *mongo.Collection
	logger     logging.Logger
}

// Option represents an option for configuring the repository.
type Option func(*Repository)

// WithLogger sets the logger for the repository.
func WithLogger(logger logging.Logger) Option {
	return func(r *Repository) {
		r.logger = logger
	}
}

// New connects to MongoDB and returns a layout repository.
func New(ctx context.Context, config *Config, opts ...Option) (*Repository, error) {
	if config == nil || config.URI == "" {
		return nil, fmt.Errorf("mongo URI is required")
	}
	database := config.Database
	if database == "" {
		database = "chat"
	}
	collection := config.Collection
	if collection == "" {
		collection = "kgraphs"
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(config.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	repo := &Repository{
		collection: client.Database(database).Collection(collection),
		logger:     logging.New(),
	}
	for _, opt := range opts {
		opt(repo)
	}
	return repo, nil
}

// SavePositions writes each coordinate onto the matching embedded node with a
// positional update. Coordinates whose node ID matches no document are skipped
// silently; the returned count is the number of documents actually modified.
func (r *Repository) SavePositions(ctx context.Context, userID string, coords []interfaces.Coordinate) (int, error) {
	if len(coords) == 0 {
		return 0, nil
	}

	writes := make([]mongo.WriteModel, 0, len(coords))
	for _, coord := range coords {
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"nodes._id": nodeFilterID(coord.ID)}).
			SetUpdate(bson.M{"$set": bson.M{
				"nodes.$.x": coord.X,
				"nodes.$.y": coord.Y,
			}}))
	}

	result, err := r.collection.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return 0, fmt.Errorf("failed to save layout positions: %w", err)
	}

	modified := int(result.ModifiedCount)
	r.logger.Info(ctx, "Layout positions saved", map[string]interface{}{
		"user_id":  userID,
		"written":  modified,
		"received": len(coords),
	})
	return modified, nil
}

// nodeFilterID matches node IDs stored either as ObjectIDs or as plain
// strings, depending on how the chat application created them.
func nodeFilterID(id string) interface{} {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return oid
	}
	return id
}
