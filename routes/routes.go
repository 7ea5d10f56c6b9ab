package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"postapi/database"
	"postapi/handlers"
	"postapi/middleware"
)

// Deps are the collaborators the router is built from.
type Deps struct {
	Store        database.Store
	Verifier     middleware.TokenVerifier
	Logger       zerolog.Logger
	AllowOrigins []string
	StoreTimeout time.Duration
	// Clock overrides time.Now for created stamps; nil means time.Now.
	Clock func() time.Time
}

func SetupRouter(d Deps) (*gin.Engine, error) {
	if err := handlers.RegisterValidators(); err != nil {
		return nil, err
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(d.Logger))
	router.Use(cors.New(corsConfig(d.AllowOrigins)))

	router.GET("/", handlers.Home)
	router.GET("/health", handlers.Health(d.Store))

	posts := handlers.NewPostHandler(d.StoreTimeout)
	if d.Clock != nil {
		posts.WithClock(d.Clock)
	}
	session := middleware.StoreSession(d.Store)

	post := router.Group("/post", session)
	post.GET("/list", posts.ListPosts)
	post.GET("/:id", posts.GetPost)
	post.POST("/create-json-data", posts.CreatePostJSON)
	post.POST("/create-form-data", posts.CreatePostForm)
	post.PUT("/edit/:id", posts.EditPost)
	post.DELETE("/delete/:id", posts.DeletePost)

	router.GET("/posts/buscar/", session, posts.SearchPosts)
	// Auth runs before a store connection is taken.
	router.GET("/posts/secure/", middleware.BearerAuth(d.Verifier), session, posts.ListPosts)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Endpoint not found",
			"path":  c.Request.URL.Path,
		})
	})

	return router, nil
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With", middleware.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", "Content-Type", middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}

	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}
