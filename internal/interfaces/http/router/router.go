package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/restoledger/backend/internal/infrastructure/auth"
	"github.com/restoledger/backend/internal/infrastructure/logger"
	"github.com/restoledger/backend/internal/interfaces/http/dto"
	"github.com/restoledger/backend/internal/interfaces/http/handler"
	"github.com/restoledger/backend/internal/interfaces/http/middleware"
)

// RouteRegistrar defines the interface for registering routes
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Router manages HTTP route registration
type Router struct {
	engine     *gin.Engine
	apiVersion string
	registrars []RouteRegistrar
}

// RouterOption is a functional option for Router configuration
type RouterOption func(*Router)

// WithAPIVersion sets the API version prefix (e.g., "v1", "v2")
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) {
		r.apiVersion = version
	}
}

// NewRouter creates a new Router instance
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{
		engine:     engine,
		apiVersion: "v1",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a RouteRegistrar to be registered later
func (r *Router) Register(registrar RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrar)
	return r
}

// Setup registers all routes under /api/<version>
func (r *Router) Setup() {
	api := r.engine.Group("/api/" + r.apiVersion)
	for _, registrar := range r.registrars {
		registrar.RegisterRoutes(api)
	}
}

// DomainGroup collects the routes of one area of the API
type DomainGroup struct {
	name       string
	prefix     string
	routes     []routeDefinition
	middleware []gin.HandlerFunc
}

type routeDefinition struct {
	method   string
	path     string
	handlers []gin.HandlerFunc
}

// NewDomainGroup creates a new domain-specific route group
func NewDomainGroup(name, prefix string) *DomainGroup {
	return &DomainGroup{name: name, prefix: prefix}
}

// Use adds middleware to this group
func (dg *DomainGroup) Use(middleware ...gin.HandlerFunc) *DomainGroup {
	dg.middleware = append(dg.middleware, middleware...)
	return dg
}

// GET registers a GET route
func (dg *DomainGroup) GET(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	dg.routes = append(dg.routes, routeDefinition{method: http.MethodGet, path: path, handlers: handlers})
	return dg
}

// POST registers a POST route
func (dg *DomainGroup) POST(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	dg.routes = append(dg.routes, routeDefinition{method: http.MethodPost, path: path, handlers: handlers})
	return dg
}

// RegisterRoutes implements RouteRegistrar interface
func (dg *DomainGroup) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group(dg.prefix)
	if len(dg.middleware) > 0 {
		group.Use(dg.middleware...)
	}
	for _, route := range dg.routes {
		group.Handle(route.method, route.path, route.handlers...)
	}
}

// Name returns the group name
func (dg *DomainGroup) Name() string {
	return dg.name
}

// EngineConfig tunes the global middleware chain
type EngineConfig struct {
	ServiceName    string
	TracingEnabled bool
	MaxBodySize    int64
	RateLimitRPS   float64
	RateLimitBurst int
	TrustedProxies []string
}

// NewEngine builds a gin engine with the global middleware chain:
// recovery, request id, tracing, access log, body limit, rate limit.
func NewEngine(cfg EngineConfig, log *zap.Logger) *gin.Engine {
	engine := gin.New()
	_ = engine.SetTrustedProxies(cfg.TrustedProxies)
	middleware.SetupValidator()

	engine.Use(logger.Recovery(log))
	engine.Use(middleware.RequestID())
	engine.Use(middleware.Tracing(cfg.ServiceName, cfg.TracingEnabled)...)
	engine.Use(logger.GinMiddleware(log))
	if cfg.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(cfg.MaxBodySize))
	}
	if cfg.RateLimitRPS > 0 {
		engine.Use(middleware.RateLimit(middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)))
	}

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeNotFound, "Route not found", middleware.GetRequestID(c)))
	})
	return engine
}

// Handlers are the endpoints mounted by Mount
type Handlers struct {
	Health   *handler.HealthHandler
	Imports  *handler.ReceiptImportHandler
	Receipts *handler.ReceiptHandler
}

// Mount registers /health and the admin-only /api/v1 routes
func Mount(engine *gin.Engine, h Handlers, jwtService *auth.JWTService, log *zap.Logger) {
	engine.GET("/health", h.Health.Health)

	requireAdmin := middleware.RequireRole(jwtService, auth.RoleAdmin, log)

	imports := NewDomainGroup("receipt-imports", "/receipt-imports").Use(requireAdmin).
		POST("/day", h.Imports.ImportDay).
		POST("/range", h.Imports.ImportRange)

	receipts := NewDomainGroup("receipts", "/receipts").Use(requireAdmin).
		GET("", h.Receipts.ListByDate).
		GET("/:order_num", h.Receipts.GetByOrderNum)

	NewRouter(engine).Register(imports).Register(receipts).Setup()
}
