package server

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sifan077/PowerMark/internal/app/service"
	inthttp "github.com/sifan077/PowerMark/internal/http/handler"
	"github.com/sifan077/PowerMark/internal/http/middleware"
	"github.com/sifan077/PowerMark/internal/http/util"
	"go.uber.org/zap"
)

// Dependencies bundles infrastructure dependencies required by the HTTP server.
type Dependencies struct {
	Logger       *zap.Logger
	Postgres     *pgxpool.Pool
	Redis        *redis.Client
	Bookmarks    service.BookmarkService
	Resolver     inthttp.MetadataResolver
	Sessions     *util.SessionSigner
	RateLimit    middleware.RateLimitConfig
	AllowOrigins string
}

// Server wraps the Fiber application and its dependencies.
type Server struct {
	app  *fiber.App
	deps Dependencies
}

// New creates a new HTTP server instance with default routes.
func New(deps Dependencies) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.RateLimit.MaxRequests <= 0 || deps.RateLimit.Window <= 0 {
		deps.RateLimit = middleware.DefaultRateLimitConfig()
	}
	if deps.RateLimit.KeyPrefix == "" {
		deps.RateLimit.KeyPrefix = middleware.DefaultRateLimitConfig().KeyPrefix
	}

	app := fiber.New(fiber.Config{
		AppName:               "PowerMark",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	s := &Server{
		app:  app,
		deps: deps,
	}

	s.registerMiddleware()
	s.registerRoutes()
	return s
}

// App exposes the underlying Fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen starts the Fiber server on the given address.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the Fiber server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) registerMiddleware() {
	s.app.Use(middleware.RequestID())
	s.app.Use(middleware.Recovery(s.deps.Logger))
	s.app.Use(middleware.Logger(s.deps.Logger))
	s.app.Use(middleware.CORS(s.deps.AllowOrigins))
}

func (s *Server) registerRoutes() {
	var postgres inthttp.Pinger
	if s.deps.Postgres != nil {
		postgres = s.deps.Postgres
	}
	inthttp.NewHealthHandler(s.deps.Logger, postgres).Register(s.app)

	api := s.app.Group("/api", middleware.Session(s.deps.Sessions, s.deps.Logger))

	inthttp.NewBookmarkHandler(inthttp.BookmarkDeps{
		Logger:    s.deps.Logger,
		Bookmarks: s.deps.Bookmarks,
	}).Register(api)

	inthttp.NewMetadataHandler(inthttp.MetadataDeps{
		Logger:   s.deps.Logger,
		Resolver: s.deps.Resolver,
		Limiter:  middleware.RateLimit(s.deps.Redis, s.deps.RateLimit, s.deps.Logger),
	}).Register(api)
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}
