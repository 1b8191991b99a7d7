package archive

import (
	"context"
	"database/sql"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	mongooptions "go.mongodb.org/mongo-driver/mongo/options"

	"github.com/parlorhq/go-hookrelay/pkg/config"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// NewPostgresArchiveFactory and NewMongoArchiveFactory are swappable for tests.
var NewPostgresArchiveFactory = func(db *sql.DB) Repository {
	return NewPostgresArchive(db)
}

var NewMongoArchiveFactory = func(client *mongo.Client, database, collection string) Repository {
	return NewMongoArchive(client, database, collection)
}

// NewRepository builds the archive backend selected by configuration. An
// empty type means archiving is disabled and nil is returned.
func NewRepository(ctx context.Context, cfg config.ArchiveSettings) (Repository, error) {
	switch cfg.Type {
	case "":
		return nil, nil
	case "postgres":
		db, err := sql.Open("postgres", cfg.DSN)
		if err != nil {
			return nil, err
		}
		return NewPostgresArchiveFactory(db), nil
	case "mongo":
		client, err := mongo.Connect(ctx, mongooptions.Client().ApplyURI(cfg.URI))
		if err != nil {
			return nil, err
		}
		return NewMongoArchiveFactory(client, cfg.Database, cfg.Collection), nil
	default:
		return nil, fmt.Errorf("unsupported archive type: %s", cfg.Type)
	}
}
