// Package httpapi serves a small JSON API next to gRPC: a health probe and
// read/merge access to the caller's profile document.
package httpapi

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/dmitrijs2005/boilerbudget/internal/logging"
	"github.com/dmitrijs2005/boilerbudget/internal/models"
)

// ProfileService is the subset of services.ProfileService the API needs.
type ProfileService interface {
	Get(ctx context.Context, userID string) (models.Document, error)
	Merge(ctx context.Context, userID string, patch models.Patch) (models.Document, error)
}

type Server struct {
	app       *fiber.App
	profiles  ProfileService
	logger    logging.Logger
	jwtSecret []byte
}

func New(l logging.Logger, ps ProfileService, secretKey string) *Server {
	s := &Server{
		app:       fiber.New(fiber.Config{AppName: "boilerbudget"}),
		profiles:  ps,
		logger:    l.With("module", "http_server"),
		jwtSecret: []byte(secretKey),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.app.Get("/healthz", s.health)

	api := s.app.Group("/api/v1", s.requireAccessToken)
	api.Get("/profile", s.getProfile)
	api.Patch("/profile", s.patchProfile)
}

// App exposes the underlying fiber app, mostly for app.Test.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run listens on addr until ctx is done.
func (s *Server) Run(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "Starting HTTP server", "address", addr)
		errCh <- s.app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true})
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info(ctx, "Stopping HTTP server...")
	if err := s.app.ShutdownWithContext(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return <-errCh
}
