package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"go.uber.org/zap"

	"github.com/newscuss/newscuss/pkg/engine"
	"github.com/newscuss/newscuss/pkg/session"
)

// ErrorResponse is the JSON body for failed requests.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Server is the HTTP server for the discussion API. The session store and
// engine client are injected so they can be shared with other components
// and faked in tests.
type Server struct {
	config Config
	store  *session.Store
	engine *engine.Client
	logger *zap.Logger
	app    *fiber.App
}

// NewServer creates a new API server and registers its routes.
func NewServer(config Config, store *session.Store, eng *engine.Client, logger *zap.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		// Needed so streaming responses flush per chunk
		StreamRequestBody: true,
	})

	// The frontend is served from a different origin during development.
	app.Use(cors.New())

	s := &Server{
		config: config,
		store:  store,
		engine: eng,
		logger: logger,
		app:    app,
	}

	app.Get("/ping", s.handlePing)

	apiGroup := app.Group("/api")
	apiGroup.Post("/url", s.handleProcessURL)
	apiGroup.Post("/topic", s.handleGenerateTopic)
	apiGroup.Post("/discussion/start", s.handleStartDiscussion)
	apiGroup.Post("/discussion/message", s.handleSendMessage)
	apiGroup.Post("/discussion/message/stream", s.handleStreamMessage)
	apiGroup.Get("/discussion/summary/:sessionId", s.handleSummary)
	apiGroup.Get("/discussion/feedback/:sessionId", s.handleFeedback)
	apiGroup.Get("/session/:sessionId", s.handleSessionStatus)

	return s
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		zap.String("listen", s.config.ListenAddr),
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}
