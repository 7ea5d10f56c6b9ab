package database

import (
	"context"
	"strings"
	"sync"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"postapi/models"
)

// MemoryStore is an in-process Store used by tests and local runs.
// It keeps insertion order and counts connection acquisitions and releases.
type MemoryStore struct {
	mu       sync.RWMutex
	order    []primitive.ObjectID
	posts    map[primitive.ObjectID]models.Post
	acquired int
	released int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{posts: make(map[primitive.ObjectID]models.Post)}
}

func (s *MemoryStore) Acquire(ctx context.Context) (Conn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.acquired++
	return &memoryConn{store: s}, nil
}

func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

func (s *MemoryStore) Close(ctx context.Context) error { return nil }

// Sessions reports how many connections were acquired and released.
func (s *MemoryStore) Sessions() (acquired, released int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.acquired, s.released
}

// Put stores post as-is, bypassing the request path. Tests use it to seed
// documents the API could not create, such as ones without a created stamp.
func (s *MemoryStore) Put(post models.Post) primitive.ObjectID {
	s.mu.Lock()
	defer s.mu.Unlock()
	if post.ID.IsZero() {
		post.ID = primitive.NewObjectID()
	}
	if _, ok := s.posts[post.ID]; !ok {
		s.order = append(s.order, post.ID)
	}
	s.posts[post.ID] = clonePost(post)
	return post.ID
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.posts)
}

type memoryConn struct {
	store *MemoryStore
	once  sync.Once
}

func (c *memoryConn) InsertOne(ctx context.Context, post *models.Post) (primitive.ObjectID, error) {
	p := *post
	p.ID = primitive.NewObjectID()
	return c.store.Put(p), nil
}

func (c *memoryConn) FindOne(ctx context.Context, id primitive.ObjectID) (*models.Post, error) {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()
	p, ok := c.store.posts[id]
	if !ok {
		return nil, ErrNotFound
	}
	p = clonePost(p)
	return &p, nil
}

func (c *memoryConn) FindMany(ctx context.Context, filter models.PostFilter) ([]models.Post, error) {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()
	posts := []models.Post{}
	for _, id := range c.store.order {
		p, ok := c.store.posts[id]
		if !ok {
			continue
		}
		if filter.IsEmpty() || containsFold(p.Title, filter.Title) && containsFold(p.Content, filter.Content) {
			posts = append(posts, clonePost(p))
		}
	}
	return posts, nil
}

func (c *memoryConn) UpdateOne(ctx context.Context, id primitive.ObjectID, fields models.PostFields) error {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	p, ok := c.store.posts[id]
	if !ok {
		return ErrNotFound
	}
	p.Title = fields.Title
	p.Content = fields.Content
	c.store.posts[id] = p
	return nil
}

func (c *memoryConn) DeleteOne(ctx context.Context, id primitive.ObjectID) error {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	if _, ok := c.store.posts[id]; !ok {
		return ErrNotFound
	}
	delete(c.store.posts, id)
	for i, oid := range c.store.order {
		if oid == id {
			c.store.order = append(c.store.order[:i], c.store.order[i+1:]...)
			break
		}
	}
	return nil
}

func (c *memoryConn) Release(ctx context.Context) {
	c.once.Do(func() {
		c.store.mu.Lock()
		c.store.released++
		c.store.mu.Unlock()
	})
}

// containsFold reports whether substr occurs in s under Unicode simple case
// folding, the way a case-insensitive regex on a quoted literal matches.
// Windows are compared rune-wise, so "ſ" matches "s" and "K" (Kelvin) matches "k".
func containsFold(s, substr string) bool {
	if substr == "" {
		return true
	}
	n := utf8.RuneCountInString(substr)
	for i := range s {
		end, count := i, 0
		for end < len(s) && count < n {
			_, size := utf8.DecodeRuneInString(s[end:])
			end += size
			count++
		}
		if count < n {
			return false
		}
		if strings.EqualFold(s[i:end], substr) {
			return true
		}
	}
	return false
}

func clonePost(p models.Post) models.Post {
	if p.Created != nil {
		created := *p.Created
		p.Created = &created
	}
	return p
}
