package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/PowerMark/internal/app/model"
	"go.uber.org/zap"
)

// MetadataResolver resolves a URL into metadata without ever failing.
type MetadataResolver interface {
	Resolve(ctx context.Context, targetURL string) model.ResolvedMetadata
}

// MetadataDeps groups dependencies required by the metadata handler.
type MetadataDeps struct {
	Logger   *zap.Logger
	Resolver MetadataResolver
	// Limiter guards the endpoint; optional.
	Limiter fiber.Handler
}

// MetadataHandler exposes metadata resolution to the capture clients.
type MetadataHandler struct {
	logger   *zap.Logger
	resolver MetadataResolver
	limiter  fiber.Handler
}

// NewMetadataHandler creates a metadata handler with the provided dependencies.
func NewMetadataHandler(deps MetadataDeps) *MetadataHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MetadataHandler{
		logger:   logger,
		resolver: deps.Resolver,
		limiter:  deps.Limiter,
	}
}

// Register wires the metadata route onto the provided router.
func (h *MetadataHandler) Register(router fiber.Router) {
	if h.limiter != nil {
		router.Post("/fetch-metadata", h.limiter, h.FetchMetadata)
		return
	}
	router.Post("/fetch-metadata", h.FetchMetadata)
}

// FetchMetadataRequest represents the request body for metadata resolution.
type FetchMetadataRequest struct {
	URL string `json:"url"`
}

// FetchMetadata handles POST /api/fetch-metadata. Unusable input and remote
// failures both answer 200 with an empty record.
func (h *MetadataHandler) FetchMetadata(c *fiber.Ctx) error {
	var req FetchMetadataRequest
	if err := c.BodyParser(&req); err != nil {
		h.logger.Debug("unparseable metadata request", zap.Error(err))
		return c.JSON(model.EmptyMetadata())
	}

	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}

	return c.JSON(h.resolver.Resolve(ctx, req.URL))
}
