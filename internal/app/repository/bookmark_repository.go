package repository

import (
	"context"
	"errors"
	"slices"

	"github.com/sifan077/PowerMark/internal/app/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrBookmarkNotFound signals that the requested bookmark does not exist.
	ErrBookmarkNotFound = errors.New("bookmark not found")
)

// SortField is a sortable bookmark column.
type SortField string

const (
	SortCreatedAt SortField = model.ColumnCreatedAt
	SortUpdatedAt SortField = model.ColumnUpdatedAt
	SortTitle     SortField = model.ColumnTitle
)

// SortOrder is the direction of a listing.
type SortOrder string

const (
	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

// Sort describes a validated ordering.
type Sort struct {
	Field SortField
	Order SortOrder
}

// DefaultSort is newest first.
var DefaultSort = Sort{Field: SortCreatedAt, Order: OrderDesc}

// NormalizeSort maps raw user input onto a known ordering. Unknown values fall
// back to the defaults instead of failing.
func NormalizeSort(field, order string) Sort {
	s := DefaultSort
	switch SortField(field) {
	case SortCreatedAt, SortUpdatedAt, SortTitle:
		s.Field = SortField(field)
	}
	switch SortOrder(order) {
	case OrderAsc, OrderDesc:
		s.Order = SortOrder(order)
	}
	return s
}

// ListOptions narrows and orders a listing.
type ListOptions struct {
	CategoryID string
	Sort       Sort
}

// requiredColumns are always written on insert; everything else is opt-in.
var requiredColumns = []string{
	model.ColumnID,
	model.ColumnUserID,
	model.ColumnTitle,
	model.ColumnURL,
	model.ColumnCreatedAt,
	model.ColumnUpdatedAt,
}

// BookmarkRepository defines the data access contract for bookmarks.
type BookmarkRepository interface {
	// Create inserts bookmark writing only the required columns plus the given
	// optional ones, then reloads the stored row.
	Create(ctx context.Context, bookmark *model.Bookmark, optional []string) error
	GetByID(ctx context.Context, userID, id string) (*model.Bookmark, error)
	List(ctx context.Context, userID string, opts ListOptions) ([]model.Bookmark, error)
}

type bookmarkRepository struct {
	db *gorm.DB
}

// NewBookmarkRepository returns a GORM-backed BookmarkRepository.
func NewBookmarkRepository(db *gorm.DB) BookmarkRepository {
	return &bookmarkRepository{db: db}
}

func (r *bookmarkRepository) Create(ctx context.Context, bookmark *model.Bookmark, optional []string) error {
	columns := slices.Concat(requiredColumns, optional)
	if err := r.db.WithContext(ctx).Select(columns).Create(bookmark).Error; err != nil {
		return err
	}

	stored, err := r.GetByID(ctx, bookmark.UserID, bookmark.ID)
	if err != nil {
		return err
	}
	*bookmark = *stored
	return nil
}

func (r *bookmarkRepository) GetByID(ctx context.Context, userID, id string) (*model.Bookmark, error) {
	var bookmark model.Bookmark
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&bookmark).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookmarkNotFound
		}
		return nil, err
	}
	return &bookmark, nil
}

func (r *bookmarkRepository) List(ctx context.Context, userID string, opts ListOptions) ([]model.Bookmark, error) {
	sort := NormalizeSort(string(opts.Sort.Field), string(opts.Sort.Order))

	query := r.db.WithContext(ctx).
		Preload("Category", "user_id = ?", userID).
		Where("user_id = ?", userID)

	if opts.CategoryID != "" {
		query = query.Where("category_id = ?", opts.CategoryID)
	}

	result := []model.Bookmark{}
	if err := query.
		Order(clause.OrderByColumn{Column: clause.Column{Name: string(sort.Field)}, Desc: sort.Order == OrderDesc}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: model.ColumnID}}).
		Find(&result).Error; err != nil {
		return nil, err
	}

	return result, nil
}
