// Package server exposes the chat agent over HTTP and serves the browser chat page.
package server

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/comigor/chat-relay/internal/agent"
	"github.com/comigor/chat-relay/internal/config"
	"github.com/comigor/chat-relay/internal/logger"
	"github.com/comigor/chat-relay/internal/session"
)

// ErrAddrInUse is returned by Run when the listen address is taken.
var ErrAddrInUse = errors.New("address already in use")

const (
	msgInternal     = "Internal server error"
	msgEmptyMessage = "message must not be empty"
	msgBadRequest   = "invalid request body"
)

//go:embed static/index.html
var indexHTML []byte

// ChatAgent answers one user message within a session.
type ChatAgent interface {
	HandleMessage(ctx context.Context, sess *session.Session, userText string) (string, error)
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Server routes HTTP requests to the agent.
type Server struct {
	cfg    config.ServerConfig
	agent  ChatAgent
	store  session.Store
	locks  *session.Locker
	engine *gin.Engine
}

// New builds the gin engine with its middleware and routes.
func New(cfg config.ServerConfig, a ChatAgent, store session.Store) *Server {
	s := &Server{
		cfg:   cfg,
		agent: a,
		store: store,
		locks: session.NewLocker(),
	}

	g := gin.New()
	g.Use(gin.Recovery(), requestLogger())
	g.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length", requestIDHeader},
		AllowCredentials: true,
	}))

	g.GET("/", s.index)
	g.GET("/healthz", s.health)
	g.POST("/chat", s.chat)

	s.engine = g
	return s
}

// Handler returns the underlying http.Handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		if errors.Is(err, syscall.EADDRINUSE) {
			return fmt.Errorf("%w: %s", ErrAddrInUse, addr)
		}
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	logger.L.Info("Server running", "address", ln.Addr().String())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.L.Info("Shutting down server")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) index(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", indexHTML)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) chat(c *gin.Context) {
	ctx := c.Request.Context()
	log := logger.FromContext(ctx)

	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid chat request", "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: msgBadRequest})
		return
	}
	// Reject blank input before a session is created.
	if strings.TrimSpace(req.Message) == "" {
		log.Warn("Rejected empty chat message")
		c.JSON(http.StatusInternalServerError, errorResponse{Error: msgEmptyMessage})
		return
	}

	sess, err := s.resolveSession(c)
	if err != nil {
		log.Error("Failed to resolve session", "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: msgInternal})
		return
	}

	unlock := s.locks.Lock(sess.ID)
	defer unlock()

	// Reload under the lock so a request that waited sees the previous turn.
	if fresh, err := s.store.Get(ctx, sess.ID); err == nil {
		sess = fresh
	}

	reply, err := s.agent.HandleMessage(ctx, sess, req.Message)
	if err != nil {
		log.Error("Error in chat endpoint", "session_id", sess.ID, "error", err)
		msg := msgInternal
		if errors.Is(err, agent.ErrValidation) {
			msg = msgEmptyMessage
		}
		c.JSON(http.StatusInternalServerError, errorResponse{Error: msg})
		return
	}

	if err := s.store.Save(ctx, sess); err != nil {
		log.Error("Failed to save session", "session_id", sess.ID, "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: msgInternal})
		return
	}

	c.JSON(http.StatusOK, chatResponse{Reply: reply})
}

// resolveSession loads the session named by the cookie, creating one (and issuing the
// cookie) when it is absent, unknown or expired.
func (s *Server) resolveSession(c *gin.Context) (*session.Session, error) {
	ctx := c.Request.Context()
	if id, err := c.Cookie(s.cfg.CookieName); err == nil && id != "" {
		sess, err := s.store.Get(ctx, id)
		if err == nil {
			return sess, nil
		}
		if !errors.Is(err, session.ErrNotFound) {
			return nil, err
		}
	}

	sess, err := s.store.Create(ctx)
	if err != nil {
		return nil, err
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(s.cfg.CookieName, sess.ID, 0, "/", "", s.cfg.CookieSecure, true)
	logger.FromContext(ctx).Debug("Created session", "session_id", sess.ID)
	return sess, nil
}
