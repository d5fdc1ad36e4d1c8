package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/urmzd/hbconsole/pkg/accessory"
	"github.com/urmzd/hbconsole/pkg/accessory/schema"
	"github.com/urmzd/hbconsole/pkg/api/handlers"
	"github.com/urmzd/hbconsole/pkg/config"
	"github.com/urmzd/hbconsole/pkg/db"
	"github.com/urmzd/hbconsole/pkg/logstream"
)

// Dependencies are the services the router's handlers are built on.
type Dependencies struct {
	Client      accessory.Client
	Layouts     db.LayoutStore
	Validator   *schema.Validator
	Manager     handlers.BridgeManager
	SetupCoder  handlers.SetupCoder
	Homebridge  *config.Homebridge
	LogSource   logstream.Source
	StoragePath string
	Reconciler  accessory.Options
}

// Router holds the Gin engine and dependencies
type Router struct {
	engine *gin.Engine
	deps   Dependencies
}

// NewRouter creates a new API router
func NewRouter(deps Dependencies) *Router {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	SetupMiddleware(engine)

	router := &Router{
		engine: engine,
		deps:   deps,
	}

	router.setupRoutes()

	return router
}

// setupRoutes configures all API routes
func (r *Router) setupRoutes() {
	timeout := r.deps.Reconciler.RequestTimeout
	if timeout <= 0 {
		timeout = accessory.DefaultRequestTimeout
	}

	// Swagger UI
	r.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.engine.GET("/docs", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
	})

	// Health check at root
	healthHandler := handlers.NewHealthHandler(r.deps.Client, timeout)
	r.engine.GET("/health", healthHandler.Health)

	// Real-time sessions
	socketHandler := handlers.NewSocketHandler(
		r.deps.LogSource,
		r.deps.StoragePath,
		r.deps.Client,
		r.deps.Validator,
		r.deps.Reconciler,
	)
	ws := r.engine.Group("/ws")
	{
		ws.GET("/log", socketHandler.Log)
		ws.GET("/accessories", socketHandler.Accessories)
	}

	// API v1 routes
	v1 := r.engine.Group("/api/v1")
	{
		// Health
		v1.GET("/health", healthHandler.Health)

		// Accessories
		accessoriesHandler := handlers.NewAccessoriesHandler(r.deps.Client, r.deps.Layouts, r.deps.Validator, timeout)
		accessories := v1.Group("/accessories")
		{
			accessories.GET("", accessoriesHandler.ListAccessories)
			accessories.GET("/layout/:user", accessoriesHandler.GetLayout)
			accessories.PUT("/layout/:user", accessoriesHandler.SaveLayout)
		}

		// Bridge lifecycle
		serverHandler := handlers.NewServerHandler(r.deps.Manager, r.deps.SetupCoder, r.deps.Homebridge)
		server := v1.Group("/server")
		{
			server.PUT("/restart", serverHandler.Restart)
			server.PUT("/reset", serverHandler.Reset)
			server.GET("/pairing", serverHandler.Pairing)
		}
	}
}

// Handler returns the router as an http.Handler
func (r *Router) Handler() http.Handler {
	return r.engine
}

// Server returns an http.Server serving the router on addr
func (r *Router) Server(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           r.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
