package httpapi

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/dmitrijs2005/boilerbudget/internal/common"
	"github.com/dmitrijs2005/boilerbudget/internal/models"
)

func (s *Server) health(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) getProfile(c fiber.Ctx) error {
	doc, err := s.profiles.Get(c.Context(), userID(c))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(doc)
}

func (s *Server) patchProfile(c fiber.Ctx) error {
	var patch models.Patch
	if err := c.Bind().Body(&patch); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "malformed patch"})
	}

	doc, err := s.profiles.Merge(c.Context(), userID(c), patch)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(doc)
}

func (s *Server) fail(c fiber.Ctx, err error) error {
	status := statusOf(err)
	msg := err.Error()
	if status == fiber.StatusInternalServerError {
		s.logger.Error(c.Context(), "request failed", "path", c.Path(), "error", err)
		msg = common.ErrorInternal.Error()
	}
	return c.Status(status).JSON(fiber.Map{"error": msg})
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, common.ErrorNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, common.ErrorValidation), errors.Is(err, common.ErrorIncorrectMetadata):
		return fiber.StatusBadRequest
	case errors.Is(err, common.ErrorForbidden):
		return fiber.StatusForbidden
	case errors.Is(err, common.ErrorUnauthorized):
		return fiber.StatusUnauthorized
	default:
		return fiber.StatusInternalServerError
	}
}
