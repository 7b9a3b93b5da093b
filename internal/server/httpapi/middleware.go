package httpapi

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/dmitrijs2005/boilerbudget/internal/common"
	"github.com/dmitrijs2005/boilerbudget/internal/server/auth"
)

const userIDLocal = "uid"

func (s *Server) requireAccessToken(c fiber.Ctx) error {
	token := extractToken(c)
	if token == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing token"})
	}

	userID, err := auth.GetUserIDFromToken(token, s.jwtSecret)
	if err != nil {
		msg := common.ErrInvalidToken.Error()
		if errors.Is(err, common.ErrTokenExpired) {
			msg = common.ErrTokenExpired.Error()
		}
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": msg})
	}

	c.Locals(userIDLocal, userID)
	return c.Next()
}

func extractToken(c fiber.Ctx) string {
	h := c.Get(fiber.HeaderAuthorization)
	if strings.HasPrefix(h, common.BearerPrefix) {
		return strings.TrimSpace(h[len(common.BearerPrefix):])
	}
	return ""
}

func userID(c fiber.Ctx) string {
	id, _ := c.Locals(userIDLocal).(string)
	return id
}
