package http

import (
	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookcatalog/internal/auth"
	"github.com/mrlokans/bookcatalog/internal/entities"
	"github.com/mrlokans/bookcatalog/internal/metadata"
)

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	router.Use(auth.SecurityHeadersMiddleware())
	if cfg.SecureCookies {
		router.Use(auth.StrictTransportSecurityMiddleware())
	}

	// CSRF must run before session so that session context is preserved
	if len(cfg.CSRFSecret) > 0 {
		router.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.SecureCookies))
	}
	router.Use(cfg.Cookies.SessionLoadSave())

	lookup := cfg.Lookup
	if lookup == nil {
		lookup = metadata.NewLookup(nil)
	}
	enricher := cfg.Enricher
	if enricher == nil {
		enricher = metadata.NewEnricher(lookup)
	}

	health := NewHealthController(cfg.Database, cfg.Sessions, cfg.Version)
	authController := NewAuthController(cfg.Sessions, cfg.Cookies)
	booksController := NewBooksController()
	syncController := NewSyncController()
	lookupController := NewLookupController(lookup, cfg.ImageDecoder)
	tasksController := NewTasksController(cfg.TaskClient, enricher)

	// Health endpoints
	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	// Sign-in endpoints
	router.GET("/api/auth/providers", authController.Providers)
	router.POST("/api/auth/local", authController.SignInLocal)
	router.GET("/api/auth/google/start", authController.GoogleStart)
	router.GET("/api/auth/google/callback", authController.GoogleCallback)

	// Everything below needs the active session
	api := router.Group("/api", auth.NewMiddleware(cfg.Sessions, cfg.Cookies).RequireSession())

	api.GET("/auth/session", authController.Session)
	api.POST("/auth/signout", authController.SignOut)

	// Books API endpoints
	api.GET("/books", booksController.ListBooks)
	api.POST("/books", booksController.CreateBook)
	api.GET("/books/stats", booksController.GetBookStats)
	api.POST("/books/enrich-all", tasksController.EnrichAll)
	api.GET("/books/:id", booksController.GetBook)
	api.PUT("/books/:id", booksController.UpdateBook)
	api.DELETE("/books/:id", booksController.DeleteBook)
	api.POST("/books/:id/enrich", tasksController.EnrichBook)

	// Library, category and keyword lists
	for _, kind := range entities.TaxonomyKinds {
		tc := NewTaxonomyController(kind)
		path := "/" + kind.Plural()
		api.GET(path, tc.List)
		api.POST(path, tc.Create)
		api.DELETE(path+"/:name", tc.Delete)
	}

	// Sync endpoints
	api.POST("/sync", syncController.Reload)
	api.GET("/sync/status", syncController.Status)

	// Lookup and scanning
	api.GET("/lookup/:code", lookupController.Lookup)
	api.POST("/scan", lookupController.Scan)
	if cfg.ImageDecoder != nil {
		api.POST("/scan/image", lookupController.ScanImage)
	}

	// Task status
	api.GET("/tasks/:id", tasksController.GetTaskStatus)

	return router
}
