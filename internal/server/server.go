// Package server is a reference implementation of the /api/todos resource
// the client talks to. It exists for local development and integration
// tests; any backend honouring the same contract can replace it.
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/store"
)

// Options tune a Server. Zero values pick sensible defaults.
type Options struct {
	AllowOrigins []string // empty allows every origin
	Logger       *log.Logger
	Now          func() time.Time
	NewID        func() (string, error)
}

// Server exposes a store.Store over HTTP.
type Server struct {
	store store.Store
	opts  Options

	// mu serialises read-modify-write updates.
	mu sync.Mutex
}

// New returns a server backed by s.
func New(s store.Store, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = func() (string, error) { return gonanoid.New() }
	}
	return &Server{store: s, opts: opts}
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.opts.Logger))

	config := cors.DefaultConfig()
	if len(s.opts.AllowOrigins) == 0 {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = s.opts.AllowOrigins
	}
	config.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	r.Use(cors.New(config))

	api := r.Group("/api")
	{
		api.GET("/todos", s.listTodos)
		api.GET("/todos/:id", s.getTodo)
		api.POST("/todos", s.createTodo)
		api.PUT("/todos/:id", s.updateTodo)
		api.DELETE("/todos/:id", s.deleteTodo)
	}
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.opts.Logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func requestLogger(l *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		l.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

type createRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
}

func (s *Server) listTodos(c *gin.Context) {
	todos, err := s.store.List(c.Request.Context())
	if err != nil {
		s.internalError(c, "Failed to fetch todos", err)
		return
	}
	c.JSON(http.StatusOK, todos)
}

func (s *Server) getTodo(c *gin.Context) {
	t, err := s.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.storeError(c, "Failed to fetch todo", err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (s *Server) createTodo(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Title is required"})
		return
	}

	id, err := s.opts.NewID()
	if err != nil {
		s.internalError(c, "Failed to assign id", err)
		return
	}
	now := model.NewTimestamp(s.opts.Now())
	t := model.Todo{
		ID:        id,
		Title:     req.Title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.Description != nil {
		t.Description = *req.Description
	}
	if err := s.store.Insert(c.Request.Context(), t); err != nil {
		s.internalError(c, "Failed to save todo", err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (s *Server) updateTodo(c *gin.Context) {
	var patch model.Patch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}
	if patch.Empty() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No fields to update"})
		return
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Title cannot be empty"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx := c.Request.Context()
	current, err := s.store.Get(ctx, c.Param("id"))
	if err != nil {
		s.storeError(c, "Failed to fetch todo", err)
		return
	}
	next := patch.Apply(current)
	next.UpdatedAt = model.NewTimestamp(s.opts.Now())
	if next.UpdatedAt.Before(next.CreatedAt.Time) {
		next.UpdatedAt = next.CreatedAt
	}
	if err := s.store.Replace(ctx, next); err != nil {
		s.storeError(c, "Failed to update todo", err)
		return
	}
	c.JSON(http.StatusOK, next)
}

func (s *Server) deleteTodo(c *gin.Context) {
	if err := s.store.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.storeError(c, "Failed to delete todo", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Todo deleted successfully"})
}

func (s *Server) storeError(c *gin.Context, msg string, err error) {
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Todo not found"})
		return
	}
	s.internalError(c, msg, err)
}

func (s *Server) internalError(c *gin.Context, msg string, err error) {
	s.opts.Logger.Error(msg, "path", c.Request.URL.Path, "err", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}
