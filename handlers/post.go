package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"postapi/database"
	"postapi/middleware"
	"postapi/models"
)

const defaultStoreTimeout = 10 * time.Second

// PostRequest is the body of create and edit. Content is a pointer so that
// an empty string is accepted while an absent field is not.
type PostRequest struct {
	Title   string  `json:"title" form:"title" binding:"required,min=1,max=255"`
	Content *string `json:"content" form:"content" binding:"required"`
}

type postURI struct {
	ID string `uri:"id" binding:"required,objectid"`
}

type searchQuery struct {
	Title   string `form:"titulo" binding:"omitempty,min=1,max=255"`
	Content string `form:"contenido" binding:"omitempty,min=1,max=255"`
}

// PostHandler serves the post collection. The store connection comes from
// middleware.StoreSession.
type PostHandler struct {
	timeout time.Duration
	now     func() time.Time
}

func NewPostHandler(storeTimeout time.Duration) *PostHandler {
	if storeTimeout <= 0 {
		storeTimeout = defaultStoreTimeout
	}
	return &PostHandler{timeout: storeTimeout, now: time.Now}
}

// WithClock replaces the time source used for created stamps and the
// missing-created fallback.
func (h *PostHandler) WithClock(now func() time.Time) *PostHandler {
	h.now = now
	return h
}

// Store calls are not tied to the request context: a started operation runs
// to completion or times out.
func (h *PostHandler) storeContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), h.timeout)
}

// stamp returns the creation time rounded up to BSON's millisecond
// resolution, so the stored value is never before the request started.
func (h *PostHandler) stamp() time.Time {
	now := h.now().UTC()
	created := now.Truncate(time.Millisecond)
	if created.Before(now) {
		created = created.Add(time.Millisecond)
	}
	return created
}

func bindID(c *gin.Context) (primitive.ObjectID, bool) {
	var uri postURI
	if err := c.ShouldBindUri(&uri); err != nil {
		validationFailed(c, err)
		return primitive.NilObjectID, false
	}
	id, err := primitive.ObjectIDFromHex(uri.ID)
	if err != nil {
		validationFailed(c, err)
		return primitive.NilObjectID, false
	}
	return id, true
}

func (h *PostHandler) findMany(c *gin.Context, filter models.PostFilter) ([]models.Post, bool) {
	ctx, cancel := h.storeContext()
	defer cancel()

	posts, err := middleware.Conn(c).FindMany(ctx, filter)
	if err != nil {
		storeFailure(c, "find posts", err)
		return nil, false
	}
	return posts, true
}

// ListPosts returns every post.
func (h *PostHandler) ListPosts(c *gin.Context) {
	posts, ok := h.findMany(c, models.PostFilter{})
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": models.Views(posts, h.now())})
}

// SearchPosts filters by titulo and contenido, both optional.
func (h *PostHandler) SearchPosts(c *gin.Context) {
	var q searchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		validationFailed(c, err)
		return
	}

	posts, ok := h.findMany(c, models.PostFilter{Title: q.Title, Content: q.Content})
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"total": len(posts),
		"posts": models.Views(posts, h.now()),
	})
}

func (h *PostHandler) GetPost(c *gin.Context) {
	id, ok := bindID(c)
	if !ok {
		return
	}

	ctx, cancel := h.storeContext()
	defer cancel()

	post, err := middleware.Conn(c).FindOne(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		notFound(c)
		return
	}
	if err != nil {
		storeFailure(c, "find post", err)
		return
	}
	c.JSON(http.StatusOK, post.View(h.now()))
}

func (h *PostHandler) CreatePostJSON(c *gin.Context) {
	var req PostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationFailed(c, err)
		return
	}
	h.create(c, req)
}

func (h *PostHandler) CreatePostForm(c *gin.Context) {
	var req PostRequest
	if err := c.ShouldBindWith(&req, binding.Form); err != nil {
		validationFailed(c, err)
		return
	}
	h.create(c, req)
}

func (h *PostHandler) create(c *gin.Context, req PostRequest) {
	ctx, cancel := h.storeContext()
	defer cancel()

	conn := middleware.Conn(c)
	created := h.stamp()
	id, err := conn.InsertOne(ctx, &models.Post{
		Title:   req.Title,
		Content: *req.Content,
		Created: &created,
	})
	if err != nil {
		storeFailure(c, "insert post", err)
		return
	}

	post, err := conn.FindOne(ctx, id)
	if err != nil {
		storeFailure(c, "re-read created post", err)
		return
	}
	c.JSON(http.StatusCreated, post.View(h.now()))
}

// EditPost replaces title and content; id and created are kept.
func (h *PostHandler) EditPost(c *gin.Context) {
	id, ok := bindID(c)
	if !ok {
		return
	}
	var req PostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationFailed(c, err)
		return
	}

	ctx, cancel := h.storeContext()
	defer cancel()

	conn := middleware.Conn(c)
	if _, err := conn.FindOne(ctx, id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			notFound(c)
			return
		}
		storeFailure(c, "find post", err)
		return
	}

	err := conn.UpdateOne(ctx, id, models.PostFields{Title: req.Title, Content: *req.Content})
	if errors.Is(err, database.ErrNotFound) {
		notFound(c)
		return
	}
	if err != nil {
		storeFailure(c, "update post", err)
		return
	}

	post, err := conn.FindOne(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		notFound(c)
		return
	}
	if err != nil {
		storeFailure(c, "re-read edited post", err)
		return
	}
	c.JSON(http.StatusOK, post.View(h.now()))
}

func (h *PostHandler) DeletePost(c *gin.Context) {
	id, ok := bindID(c)
	if !ok {
		return
	}

	ctx, cancel := h.storeContext()
	defer cancel()

	conn := middleware.Conn(c)
	if _, err := conn.FindOne(ctx, id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			notFound(c)
			return
		}
		storeFailure(c, "find post", err)
		return
	}

	err := conn.DeleteOne(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		notFound(c)
		return
	}
	if err != nil {
		storeFailure(c, "delete post", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Post deleted successfully"})
}
