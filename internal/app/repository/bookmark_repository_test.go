package repository

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/sifan077/PowerMark/internal/app/model"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:                                   logger.Discard,
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// a single connection keeps the in-memory database alive and shared
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(&model.Category{}, &model.Bookmark{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func strPtr(s string) *string { return &s }

func TestBookmarkRepository_CreateIsSparse(t *testing.T) {
	db := newTestDB(t)
	repo := NewBookmarkRepository(db)
	ctx := context.Background()

	b := &model.Bookmark{
		UserID: "user-1",
		Title:  "Example",
		URL:    "https://example.com",
		// not selected below, must not reach the row
		Description: strPtr("ignored"),
		OGImageURL:  strPtr("https://example.com/og.png"),
	}
	if err := repo.Create(ctx, b, []string{model.ColumnOGImageURL}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if b.ID == "" {
		t.Fatal("expected generated id")
	}
	if b.CreatedAt.IsZero() || b.UpdatedAt.IsZero() {
		t.Error("expected server timestamps")
	}
	if b.Description != nil {
		t.Errorf("description = %q, want omitted", *b.Description)
	}
	if b.OGImageURL == nil || *b.OGImageURL != "https://example.com/og.png" {
		t.Errorf("og image not stored: %v", b.OGImageURL)
	}
}

func TestBookmarkRepository_ListScopesFiltersAndSorts(t *testing.T) {
	db := newTestDB(t)
	repo := NewBookmarkRepository(db)
	ctx := context.Background()

	if err := db.Create(&model.Category{ID: "cat-1", UserID: "user-1", Title: "Reading"}).Error; err != nil {
		t.Fatalf("seed category: %v", err)
	}

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	seed := []model.Bookmark{
		{ID: "b1", UserID: "user-1", Title: "Charlie", URL: "https://c.example", CreatedAt: base, UpdatedAt: base.Add(3 * time.Hour)},
		{ID: "b2", UserID: "user-1", Title: "Alpha", URL: "https://a.example", CategoryID: strPtr("cat-1"), CreatedAt: base.Add(time.Hour), UpdatedAt: base.Add(time.Hour)},
		{ID: "b3", UserID: "user-1", Title: "Bravo", URL: "https://b.example", CreatedAt: base.Add(2 * time.Hour), UpdatedAt: base.Add(2 * time.Hour)},
		{ID: "b4", UserID: "user-2", Title: "Other", URL: "https://o.example", CreatedAt: base.Add(4 * time.Hour), UpdatedAt: base},
	}
	for i := range seed {
		if err := db.Create(&seed[i]).Error; err != nil {
			t.Fatalf("seed bookmark: %v", err)
		}
	}

	tests := []struct {
		name string
		opts ListOptions
		want []string
	}{
		{"default newest first", ListOptions{}, []string{"b3", "b2", "b1"}},
		{"title ascending", ListOptions{Sort: Sort{Field: SortTitle, Order: OrderAsc}}, []string{"b2", "b3", "b1"}},
		{"updated descending", ListOptions{Sort: Sort{Field: SortUpdatedAt, Order: OrderDesc}}, []string{"b1", "b3", "b2"}},
		{"unknown field falls back", ListOptions{Sort: Sort{Field: "price", Order: "sideways"}}, []string{"b3", "b2", "b1"}},
		{"category filter", ListOptions{CategoryID: "cat-1"}, []string{"b2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.List(ctx, "user-1", tt.opts)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d bookmarks, want %d", len(got), len(tt.want))
			}
			for i, id := range tt.want {
				if got[i].ID != id {
					t.Errorf("position %d = %s, want %s", i, got[i].ID, id)
				}
			}
		})
	}

	got, err := repo.List(ctx, "user-1", ListOptions{CategoryID: "cat-1"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if got[0].Category == nil || got[0].Category.Title != "Reading" {
		t.Errorf("expected joined category, got %+v", got[0].Category)
	}

	all, _ := repo.List(ctx, "user-1", ListOptions{})
	for _, b := range all {
		if b.ID == "b1" && b.Category != nil {
			t.Errorf("uncategorized bookmark has category %+v", b.Category)
		}
	}
}

func TestBookmarkRepository_GetByIDScopedToOwner(t *testing.T) {
	db := newTestDB(t)
	repo := NewBookmarkRepository(db)
	ctx := context.Background()

	b := &model.Bookmark{UserID: "owner", Title: "T", URL: "https://t.example"}
	if err := repo.Create(ctx, b, nil); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := repo.GetByID(ctx, "intruder", b.ID); err != ErrBookmarkNotFound {
		t.Fatalf("expected ErrBookmarkNotFound, got %v", err)
	}
}

func TestNormalizeSort(t *testing.T) {
	tests := []struct {
		field, order string
		want         Sort
	}{
		{"", "", DefaultSort},
		{"price", "desc", DefaultSort},
		{"created_at", "up", DefaultSort},
		{"title", "asc", Sort{Field: SortTitle, Order: OrderAsc}},
		{"updated_at", "", Sort{Field: SortUpdatedAt, Order: OrderDesc}},
	}
	for _, tt := range tests {
		if got := NormalizeSort(tt.field, tt.order); got != tt.want {
			t.Errorf("NormalizeSort(%q, %q) = %+v, want %+v", tt.field, tt.order, got, tt.want)
		}
	}
}
