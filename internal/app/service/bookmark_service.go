package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sifan077/PowerMark/internal/app/model"
	"github.com/sifan077/PowerMark/internal/app/repository"
	"github.com/sifan077/PowerMark/internal/app/thumbnail"
	"go.uber.org/zap"
)

var bookmarksCreated = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "powermark",
	Name:      "bookmarks_created_total",
	Help:      "Bookmarks inserted through the capture flow.",
})

// BookmarkService defines behaviour-level operations on bookmarks.
type BookmarkService interface {
	List(ctx context.Context, userID string, input ListInput) ([]model.Bookmark, error)
	Insert(ctx context.Context, userID string, input CreateInput) (*model.Bookmark, error)
}

// EventPublisher announces newly created bookmarks.
type EventPublisher interface {
	PublishCreated(ctx context.Context, bookmark *model.Bookmark) error
}

// BookmarkDeps groups the collaborators of the bookmark service.
type BookmarkDeps struct {
	Repo       repository.BookmarkRepository
	Thumbnails thumbnail.Builder
	Publisher  EventPublisher
	Logger     *zap.Logger
}

type bookmarkService struct {
	repo       repository.BookmarkRepository
	thumbnails thumbnail.Builder
	publisher  EventPublisher
	logger     *zap.Logger
}

// NewBookmarkService returns a service implementation backed by the given repository.
func NewBookmarkService(deps BookmarkDeps) BookmarkService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &bookmarkService{
		repo:       deps.Repo,
		thumbnails: deps.Thumbnails,
		publisher:  deps.Publisher,
		logger:     logger,
	}
}

// ListInput carries raw, unvalidated listing parameters.
type ListInput struct {
	CategoryID string
	SortBy     string
	SortOrder  string
}

// CreateInput is a capture candidate. UserID is deliberately absent: the
// owner always comes from the authenticated session.
type CreateInput struct {
	Title        string
	URL          string
	Description  string
	OGImageURL   string
	FaviconURL   string
	MediaType    string
	MediaEmbedID string
	CategoryID   string
}

func (s *bookmarkService) List(ctx context.Context, userID string, input ListInput) ([]model.Bookmark, error) {
	bookmarks, err := s.repo.List(ctx, userID, repository.ListOptions{
		CategoryID: strings.TrimSpace(input.CategoryID),
		Sort:       repository.NormalizeSort(input.SortBy, input.SortOrder),
	})
	if err != nil {
		return nil, fmt.Errorf("list bookmarks: %w", err)
	}
	return bookmarks, nil
}

func (s *bookmarkService) Insert(ctx context.Context, userID string, input CreateInput) (*model.Bookmark, error) {
	bookmark, optional, err := s.buildRow(userID, input)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, bookmark, optional); err != nil {
		return nil, fmt.Errorf("create bookmark: %w", err)
	}
	bookmarksCreated.Inc()

	if s.publisher != nil {
		if err := s.publisher.PublishCreated(ctx, bookmark); err != nil {
			s.logger.Warn("failed to publish bookmark event",
				zap.String("bookmark_id", bookmark.ID),
				zap.Error(err),
			)
		}
	}
	return bookmark, nil
}

// buildRow applies the sparse-write policy: optional columns are only selected
// when they carry a value, and thumbnails only together with their source.
func (s *bookmarkService) buildRow(userID string, input CreateInput) (*model.Bookmark, []string, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, nil, &ValidationError{Field: "title", Message: "Title and URL are required"}
	}
	url := strings.TrimSpace(input.URL)
	if url == "" {
		return nil, nil, &ValidationError{Field: "url", Message: "Title and URL are required"}
	}

	b := &model.Bookmark{UserID: userID, Title: title, URL: url}
	var optional []string

	if v := strings.TrimSpace(input.Description); v != "" {
		b.Description = &v
		optional = append(optional, model.ColumnDescription)
	}
	if v := strings.TrimSpace(input.OGImageURL); v != "" {
		thumb, _ := s.thumbnails.Preview(v)
		b.OGImageURL, b.OGImageURLThumb = &v, &thumb
		optional = append(optional, model.ColumnOGImageURL, model.ColumnOGImageURLThumb)
	}
	if v := strings.TrimSpace(input.FaviconURL); v != "" {
		thumb, _ := s.thumbnails.Icon(v)
		b.FaviconURL, b.FaviconURLThumb = &v, &thumb
		optional = append(optional, model.ColumnFaviconURL, model.ColumnFaviconURLThumb)
	}
	if mt := model.ParseMediaType(input.MediaType); !mt.IsDefault() {
		v := string(mt)
		b.MediaType = &v
		optional = append(optional, model.ColumnMediaType)
		if id := strings.TrimSpace(input.MediaEmbedID); id != "" {
			b.MediaEmbedID = &id
			optional = append(optional, model.ColumnMediaEmbedID)
		}
	}
	if v := strings.TrimSpace(input.CategoryID); v != "" {
		b.CategoryID = &v
		optional = append(optional, model.ColumnCategoryID)
	}

	return b, optional, nil
}
