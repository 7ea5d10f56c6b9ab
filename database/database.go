package database

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"postapi/models"
)

// PostCollection is the name of the only collection the service uses.
const PostCollection = "post"

// MemoryURL selects the in-process store instead of MongoDB.
const MemoryURL = "memory://"

var ErrNotFound = errors.New("post not found")

// Config locates the document store.
type Config struct {
	URL      string
	Database string
	Timeout  time.Duration
}

// Store hands out request-scoped connections to the post collection.
type Store interface {
	Acquire(ctx context.Context) (Conn, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Conn is a handle on the post collection that lives for one request.
// Release must be called exactly once when the request is done.
type Conn interface {
	InsertOne(ctx context.Context, post *models.Post) (primitive.ObjectID, error)
	FindOne(ctx context.Context, id primitive.ObjectID) (*models.Post, error)
	FindMany(ctx context.Context, filter models.PostFilter) ([]models.Post, error)
	UpdateOne(ctx context.Context, id primitive.ObjectID, fields models.PostFields) error
	DeleteOne(ctx context.Context, id primitive.ObjectID) error
	Release(ctx context.Context)
}

// Open connects to the store described by cfg.
func Open(ctx context.Context, cfg Config) (Store, error) {
	if cfg.URL == "" {
		return nil, errors.New("store URL is empty")
	}
	if strings.HasPrefix(cfg.URL, MemoryURL) {
		return NewMemoryStore(), nil
	}
	store, err := ConnectMongo(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return store, nil
}
