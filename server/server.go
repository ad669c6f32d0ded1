// Package server exposes the blog's HTTP surface and is the single
// enforcement point for authentication and authorization: handlers behind
// the guard middleware receive an already-verified claim and never touch
// raw credentials themselves.
package server

import (
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-blog-server/ai"
	"github.com/jrsteele09/go-blog-server/auth"
	"github.com/jrsteele09/go-blog-server/credential"
	"github.com/jrsteele09/go-blog-server/internal/config"
	"github.com/jrsteele09/go-blog-server/posts"
)

type Server struct {
	env       string // Environment (e.g., "DEV", "production")
	mux       *http.ServeMux
	routes    []string
	config    config.Config
	logger    zerolog.Logger
	auth      *auth.Service
	codec     *credential.Codec
	posts     posts.Repo
	generator ai.Generator // nil when AI generation is not configured
}

// ServerOption defines a function type to modify the Server instance.
type ServerOption func(*Server)

// WithGenerator wires the AI post generator. Without it the generation
// endpoint reports an upstream misconfiguration.
func WithGenerator(generator ai.Generator) ServerOption {
	return func(s *Server) {
		s.generator = generator
	}
}

// WithLogger sets the structured logger used by the request middleware.
func WithLogger(logger zerolog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

func New(cfg config.Config, authService *auth.Service, codec *credential.Codec, postRepo posts.Repo, options ...ServerOption) (*Server, error) {
	if authService == nil {
		return nil, fmt.Errorf("[Server New] auth service is required")
	}
	if codec == nil {
		return nil, fmt.Errorf("[Server New] credential codec is required")
	}
	if postRepo == nil {
		return nil, fmt.Errorf("[Server New] post repo is required")
	}

	s := &Server{
		mux:    http.NewServeMux(),
		config: cfg,
		auth:   authService,
		codec:  codec,
		posts:  postRepo,
		logger: zerolog.Nop(),
	}
	s.env = cfg.GetEnv()

	for _, opt := range options {
		opt(s)
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	log.Printf("[%-19s] %s\n", displayMethod, path)
}
