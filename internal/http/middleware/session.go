package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/PowerMark/internal/http/util"
	"go.uber.org/zap"
)

const (
	SessionCookie = "session"
	userIDLocal   = "user_id"
)

// Session rejects requests without a valid session with 401 and exposes the
// authenticated user id to later handlers through UserID.
func Session(signer *util.SessionSigner, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c.Get(fiber.HeaderAuthorization))
		if token == "" {
			token = c.Cookies(SessionCookie)
		}
		if token == "" {
			return unauthorized(c)
		}

		userID, err := signer.Verify(token)
		if err != nil {
			logger.Debug("session rejected", zap.String("path", c.Path()), zap.Error(err))
			return unauthorized(c)
		}

		c.Locals(userIDLocal, userID)
		return c.Next()
	}
}

// UserID returns the authenticated user of the request, or "" outside Session.
func UserID(c *fiber.Ctx) string {
	if v, ok := c.Locals(userIDLocal).(string); ok {
		return v
	}
	return ""
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error": "Unauthorized",
	})
}
