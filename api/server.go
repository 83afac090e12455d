// Package api exposes the feed-server HTTP surface.
package api

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/robertmeta/feed-server/ai"
	"github.com/robertmeta/feed-server/config"
	"github.com/robertmeta/feed-server/feed"
	"github.com/robertmeta/feed-server/store"
)

// Server holds dependencies for the HTTP handlers.
type Server struct {
	store     *store.Store
	refresher *feed.Refresher
	ai        *ai.Client
	cfg       *config.Config
	logger    *slog.Logger
	echo      *echo.Echo
}

// New wires up routes and returns a ready-to-use Server.
func New(s *store.Store, aiClient *ai.Client, cfg *config.Config, logger *slog.Logger) *Server {
	srv := &Server{
		store:     s,
		refresher: feed.NewRefresher(s, logger),
		ai:        aiClient,
		cfg:       cfg,
		logger:    logger,
		echo:      echo.New(),
	}
	srv.echo.HideBanner = true
	srv.echo.HidePort = true
	srv.echo.Use(middleware.Recover())
	srv.routes()
	return srv
}

func (s *Server) routes() {
	e := s.echo

	e.GET("/health", s.handleHealth)

	feeds := e.Group("/feeds")
	feeds.GET("", s.handleListFeeds)
	feeds.POST("", s.handleCreateFeed)
	feeds.GET("/:id", s.handleGetFeed)
	feeds.PUT("/:id", s.handleUpdateFeed)
	feeds.DELETE("/:id", s.handleDeleteFeed)
	feeds.POST("/bulk-delete", s.handleBulkDeleteFeeds)
	feeds.POST("/refresh", s.handleRefreshAllFeeds)
	feeds.POST("/:id/refresh", s.handleRefreshFeed)
	feeds.POST("/import/opml", s.handleImportOPML)
	feeds.GET("/export/opml", s.handleExportOPML)

	articles := e.Group("/articles")
	articles.GET("", s.handleListArticles)
	articles.GET("/:id", s.handleGetArticle)
	articles.POST("/:id/read", s.handleMarkArticleRead)
	articles.GET("/:id/chat", s.handleGetChat)
	articles.POST("/:id/chat", s.handleSendChatMessage)
	articles.DELETE("/:id/chat", s.handleDeleteChat)
	articles.POST("/:id/summarize", s.handleSummarizeArticle)

	e.POST("/summarize", s.handleSummarize)
	e.POST("/summarize/batch", s.handleSummarizeBatch)
}

// ServeHTTP makes Server satisfy the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Start runs the server until it fails or is shut down.
func (s *Server) Start(addr string) error {
	s.logger.Info("starting server", "addr", addr)
	return s.echo.Start(addr)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// errJSON writes the uniform error body used across all handlers.
func errJSON(c echo.Context, status int, msg string) error {
	return c.JSON(status, map[string]string{"error": msg})
}
