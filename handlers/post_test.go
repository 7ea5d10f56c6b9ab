package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"postapi/database"
	"postapi/middleware"
	"postapi/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var errBroken = errors.New("connection reset by peer")

// brokenStore hands out connections whose every operation fails.
type brokenStore struct {
	released int
}

func (s *brokenStore) Acquire(context.Context) (database.Conn, error) { return &brokenConn{s}, nil }
func (s *brokenStore) Ping(context.Context) error                     { return errBroken }
func (s *brokenStore) Close(context.Context) error                    { return nil }

type brokenConn struct{ store *brokenStore }

func (c *brokenConn) InsertOne(context.Context, *models.Post) (primitive.ObjectID, error) {
	return primitive.NilObjectID, errBroken
}
func (c *brokenConn) FindOne(context.Context, primitive.ObjectID) (*models.Post, error) {
	return nil, errBroken
}
func (c *brokenConn) FindMany(context.Context, models.PostFilter) ([]models.Post, error) {
	return nil, errBroken
}
func (c *brokenConn) UpdateOne(context.Context, primitive.ObjectID, models.PostFields) error {
	return errBroken
}
func (c *brokenConn) DeleteOne(context.Context, primitive.ObjectID) error { return errBroken }
func (c *brokenConn) Release(context.Context)                             { c.store.released++ }

func newEngine(t *testing.T, store database.Store, h *PostHandler) *gin.Engine {
	t.Helper()
	require.NoError(t, RegisterValidators())
	r := gin.New()
	r.GET("/health", Health(store))
	g := r.Group("/", middleware.StoreSession(store))
	g.GET("/list", h.ListPosts)
	g.GET("/search", h.SearchPosts)
	g.GET("/get/:id", h.GetPost)
	g.POST("/create", h.CreatePostJSON)
	g.POST("/form", h.CreatePostForm)
	g.PUT("/edit/:id", h.EditPost)
	g.DELETE("/delete/:id", h.DeletePost)
	return r
}

func TestStoreFailuresAreServerErrors(t *testing.T) {
	store := &brokenStore{}
	r := newEngine(t, store, NewPostHandler(time.Second))
	id := primitive.NewObjectID().Hex()

	requests := []struct {
		method, path, body, contentType string
	}{
		{http.MethodGet, "/list", "", ""},
		{http.MethodGet, "/search?titulo=x", "", ""},
		{http.MethodGet, "/get/" + id, "", ""},
		{http.MethodPost, "/create", `{"title":"t","content":"c"}`, "application/json"},
		{http.MethodPost, "/form", "title=t&content=c", "application/x-www-form-urlencoded"},
		{http.MethodPut, "/edit/" + id, `{"title":"t","content":"c"}`, "application/json"},
		{http.MethodDelete, "/delete/" + id, "", ""},
	}
	for _, tt := range requests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)

			assert.Equal(t, http.StatusInternalServerError, rr.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.Contains(t, body["error"], "connection reset by peer")
		})
	}
	assert.Equal(t, len(requests), store.released)
}

func TestHealthReportsStoreFailure(t *testing.T) {
	r := newEngine(t, &brokenStore{}, NewPostHandler(0))

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestValidationRunsBeforeStore(t *testing.T) {
	store := &brokenStore{}
	r := newEngine(t, store, NewPostHandler(time.Second))

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/get/nothex", nil),
		httptest.NewRequest(http.MethodPost, "/create", strings.NewReader(`{"title":""}`)),
		httptest.NewRequest(http.MethodPut, "/edit/"+primitive.NewObjectID().Hex(), strings.NewReader(`{}`)),
	} {
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code, req.URL.Path)
	}
}

func TestStampRoundsUpToMillisecond(t *testing.T) {
	h := NewPostHandler(time.Second)

	h.WithClock(func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 1500, time.UTC) })
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, int(time.Millisecond), time.UTC), h.stamp())

	h.WithClock(func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 2000000, time.UTC) })
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 2000000, time.UTC), h.stamp())
}

func TestNewPostHandlerDefaultTimeout(t *testing.T) {
	assert.Equal(t, defaultStoreTimeout, NewPostHandler(0).timeout)
	assert.Equal(t, 3*time.Second, NewPostHandler(3*time.Second).timeout)
}

func TestObjectIDPattern(t *testing.T) {
	assert.True(t, objectIDPattern.MatchString("507f1f77bcf86cd799439011"))
	assert.True(t, objectIDPattern.MatchString("507F1F77BCF86CD799439011"))
	assert.False(t, objectIDPattern.MatchString("507f1f77bcf86cd79943901"))
	assert.False(t, objectIDPattern.MatchString("507f1f77bcf86cd7994390111"))
	assert.False(t, objectIDPattern.MatchString("507f1f77bcf86cd79943901g"))
}
