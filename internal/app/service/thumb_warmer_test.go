package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/sifan077/PowerMark/internal/app/model"
)

func TestThumbWarmer_Warm(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.URL.RequestURI())
		mu.Unlock()
		w.Header().Set("Content-Type", "image/webp")
		_, _ = w.Write([]byte("RIFF"))
	}))
	defer srv.Close()

	warmer := NewThumbWarmer(nil, nil, srv.URL+"/")
	event := model.BookmarkCreatedEvent{
		BookmarkID: "b1",
		ThumbURLs: []string{
			"/api/image-proxy?url=https%3A%2F%2Fx.com%2Fa.png&w=300&fmt=webp&q=75",
			"/api/image-proxy?url=https%3A%2F%2Fx.com%2Ffavicon.ico&w=32&fmt=webp&q=75",
		},
	}

	if err := warmer.Warm(context.Background(), event); err != nil {
		t.Fatalf("Warm returned error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 || seen[0] != event.ThumbURLs[0] || seen[1] != event.ThumbURLs[1] {
		t.Errorf("proxy saw %v", seen)
	}
}

func TestThumbWarmer_WarmFailsOnClientError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	warmer := NewThumbWarmer(nil, nil, srv.URL)
	err := warmer.Warm(context.Background(), model.BookmarkCreatedEvent{ThumbURLs: []string{"/api/image-proxy?url=x"}})
	if err == nil {
		t.Fatal("expected error for 400 response")
	}
}

func TestThumbURLs(t *testing.T) {
	og := "/api/image-proxy?url=a"
	b := &model.Bookmark{OGImageURLThumb: &og}
	if got := thumbURLs(b); len(got) != 1 || got[0] != og {
		t.Errorf("thumbURLs() = %v", got)
	}
	if got := thumbURLs(&model.Bookmark{}); len(got) != 0 {
		t.Errorf("expected no thumbs, got %v", got)
	}
}
