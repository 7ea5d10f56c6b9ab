package database

import (
	"context"
	"regexp"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"postapi/models"
)

const (
	defaultDatabase = "fastapi3"
	connectTimeout  = 15 * time.Second
)

// MongoStore keeps one client for the process. Each request gets its own
// causally consistent session, so an insert or update is visible to the
// re-read that follows it.
type MongoStore struct {
	client *mongo.Client
	posts  *mongo.Collection
}

func ConnectMongo(ctx context.Context, cfg Config) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	opts := options.Client().ApplyURI(cfg.URL)
	if cfg.Timeout > 0 {
		opts.SetTimeout(cfg.Timeout)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, errors.Wrap(err, "connect to mongodb")
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(err, "ping mongodb")
	}

	name := cfg.Database
	if name == "" {
		name = defaultDatabase
	}

	return &MongoStore{
		client: client,
		posts:  client.Database(name).Collection(PostCollection),
	}, nil
}

func (s *MongoStore) Acquire(ctx context.Context) (Conn, error) {
	sess, err := s.client.StartSession(options.Session().SetCausalConsistency(true))
	if err != nil {
		return nil, errors.Wrap(err, "start mongodb session")
	}
	return &mongoConn{sess: sess, posts: s.posts}, nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return errors.Wrap(s.client.Ping(ctx, nil), "ping mongodb")
}

func (s *MongoStore) Close(ctx context.Context) error {
	return errors.Wrap(s.client.Disconnect(ctx), "disconnect mongodb")
}

// mongoConn runs operations in sess. A nil sess leaves session handling to
// the driver's implicit sessions.
type mongoConn struct {
	sess  mongo.Session
	posts *mongo.Collection
}

func (c *mongoConn) ctx(ctx context.Context) context.Context {
	if c.sess == nil {
		return ctx
	}
	return mongo.NewSessionContext(ctx, c.sess)
}

func (c *mongoConn) InsertOne(ctx context.Context, post *models.Post) (primitive.ObjectID, error) {
	res, err := c.posts.InsertOne(c.ctx(ctx), post)
	if err != nil {
		return primitive.NilObjectID, errors.Wrap(err, "insert post")
	}
	id, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.Errorf("unexpected inserted id type %T", res.InsertedID)
	}
	return id, nil
}

func (c *mongoConn) FindOne(ctx context.Context, id primitive.ObjectID) (*models.Post, error) {
	var post models.Post
	err := c.posts.FindOne(c.ctx(ctx), bson.M{"_id": id}).Decode(&post)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "find post %s", id.Hex())
	}
	return &post, nil
}

func (c *mongoConn) FindMany(ctx context.Context, filter models.PostFilter) ([]models.Post, error) {
	sctx := c.ctx(ctx)
	cursor, err := c.posts.Find(sctx, postQuery(filter))
	if err != nil {
		return nil, errors.Wrap(err, "find posts")
	}
	defer cursor.Close(sctx)

	posts := []models.Post{}
	if err := cursor.All(sctx, &posts); err != nil {
		return nil, errors.Wrap(err, "decode posts")
	}
	return posts, nil
}

func (c *mongoConn) UpdateOne(ctx context.Context, id primitive.ObjectID, fields models.PostFields) error {
	res, err := c.posts.UpdateOne(c.ctx(ctx), bson.M{"_id": id}, bson.M{
		"$set": bson.M{
			"title":   fields.Title,
			"content": fields.Content,
		},
	})
	if err != nil {
		return errors.Wrapf(err, "update post %s", id.Hex())
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (c *mongoConn) DeleteOne(ctx context.Context, id primitive.ObjectID) error {
	res, err := c.posts.DeleteOne(c.ctx(ctx), bson.M{"_id": id})
	if err != nil {
		return errors.Wrapf(err, "delete post %s", id.Hex())
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (c *mongoConn) Release(ctx context.Context) {
	if c.sess != nil {
		c.sess.EndSession(ctx)
	}
}

// postQuery ANDs a literal, case-insensitive substring match per supplied field.
func postQuery(f models.PostFilter) bson.M {
	query := bson.M{}
	if f.Title != "" {
		query["title"] = bson.M{"$regex": regexp.QuoteMeta(f.Title), "$options": "i"}
	}
	if f.Content != "" {
		query["content"] = bson.M{"$regex": regexp.QuoteMeta(f.Content), "$options": "i"}
	}
	return query
}
