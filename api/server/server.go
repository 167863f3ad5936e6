// Package server contains the main server struct and methods
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/apex/log"
	"github.com/blacktop/symbolicator/api"
	"github.com/blacktop/symbolicator/api/server/routes"
	"github.com/blacktop/symbolicator/internal/commands/symbolicate"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Config is the server config
type Config struct {
	Host  string
	Port  int
	Debug bool
}

// Server is the main server struct
type Server struct {
	router *gin.Engine
	server *http.Server
	conf   *Config
}

// NewServer creates a new server
func NewServer(conf *Config, sym *symbolicate.Symbolicator) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	if conf.Debug {
		router.Use(gin.Logger())
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "HEAD", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}))

	routes.AddDaemon(router.Group(""), sym)
	routes.Add(router.Group(api.DefaultPrefix), sym)

	return &Server{
		router: router,
		conf:   conf,
	}
}

// Handler returns the server's HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the server and blocks until it is stopped
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.conf.Host, s.conf.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.WithField("addr", s.server.Addr).Info("Starting server")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	log.Info("Stopping server")
	return s.server.Shutdown(ctx)
}
