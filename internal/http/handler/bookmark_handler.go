package handler

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/PowerMark/internal/app/service"
	"github.com/sifan077/PowerMark/internal/http/middleware"
	"go.uber.org/zap"
)

// BookmarkDeps groups dependencies required by bookmark handlers.
type BookmarkDeps struct {
	Logger    *zap.Logger
	Bookmarks service.BookmarkService
}

// BookmarkHandler implements the bookmark listing and capture endpoints.
type BookmarkHandler struct {
	logger    *zap.Logger
	bookmarks service.BookmarkService
}

// NewBookmarkHandler creates a bookmark handler with the provided dependencies.
func NewBookmarkHandler(deps BookmarkDeps) *BookmarkHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookmarkHandler{
		logger:    logger,
		bookmarks: deps.Bookmarks,
	}
}

// Register wires bookmark routes onto a router already guarded by a session.
func (h *BookmarkHandler) Register(router fiber.Router) {
	bookmarks := router.Group("/bookmarks")
	{
		bookmarks.Get("/", h.ListBookmarks)
		bookmarks.Post("/", h.CreateBookmark)
	}
}

// CreateBookmarkRequest represents the request body for creating a bookmark.
// A user_id field in the body is ignored.
type CreateBookmarkRequest struct {
	Title        string  `json:"title"`
	URL          string  `json:"url"`
	Description  *string `json:"description,omitempty"`
	OGImageURL   *string `json:"og_image_url,omitempty"`
	FaviconURL   *string `json:"favicon_url,omitempty"`
	MediaType    *string `json:"media_type,omitempty"`
	MediaEmbedID *string `json:"media_embed_id,omitempty"`
	CategoryID   *string `json:"category_id,omitempty"`
}

// ListBookmarks handles GET /api/bookmarks
func (h *BookmarkHandler) ListBookmarks(c *fiber.Ctx) error {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}

	userID := middleware.UserID(c)
	bookmarks, err := h.bookmarks.List(ctx, userID, service.ListInput{
		CategoryID: c.Query("category"),
		SortBy:     c.Query("sort_by"),
		SortOrder:  c.Query("sort_order"),
	})
	if err != nil {
		h.logger.Error("failed to list bookmarks", zap.Error(err), zap.String("user_id", userID))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": storageMessage(err),
		})
	}

	return c.JSON(bookmarks)
}

// CreateBookmark handles POST /api/bookmarks
func (h *BookmarkHandler) CreateBookmark(c *fiber.Ctx) error {
	var req CreateBookmarkRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}

	userID := middleware.UserID(c)
	bookmark, err := h.bookmarks.Insert(ctx, userID, service.CreateInput{
		Title:        req.Title,
		URL:          req.URL,
		Description:  deref(req.Description),
		OGImageURL:   deref(req.OGImageURL),
		FaviconURL:   deref(req.FaviconURL),
		MediaType:    deref(req.MediaType),
		MediaEmbedID: deref(req.MediaEmbedID),
		CategoryID:   deref(req.CategoryID),
	})
	if err != nil {
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": verr.Message,
				"field": verr.Field,
			})
		}
		h.logger.Error("failed to create bookmark", zap.Error(err), zap.String("user_id", userID))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": storageMessage(err),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(bookmark)
}

// storageMessage surfaces the underlying storage error without the service's
// wrapping prefix.
func storageMessage(err error) string {
	if inner := errors.Unwrap(err); inner != nil {
		return inner.Error()
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return "Failed to create bookmark"
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
