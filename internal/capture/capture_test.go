package capture

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sifan077/PowerMark/internal/app/model"
	"github.com/sifan077/PowerMark/internal/capture/apiclient"
)

type fakeAPI struct {
	listFn   func(ctx context.Context, params apiclient.ListParams) ([]model.Bookmark, error)
	fetchFn  func(ctx context.Context, targetURL string) (model.ResolvedMetadata, error)
	createFn func(ctx context.Context, req apiclient.CreateBookmarkRequest) (*model.Bookmark, error)
}

func (f *fakeAPI) ListBookmarks(ctx context.Context, params apiclient.ListParams) ([]model.Bookmark, error) {
	if f.listFn == nil {
		return nil, nil
	}
	return f.listFn(ctx, params)
}

func (f *fakeAPI) FetchMetadata(ctx context.Context, targetURL string) (model.ResolvedMetadata, error) {
	if f.fetchFn == nil {
		return model.EmptyMetadata(), nil
	}
	return f.fetchFn(ctx, targetURL)
}

func (f *fakeAPI) CreateBookmark(ctx context.Context, req apiclient.CreateBookmarkRequest) (*model.Bookmark, error) {
	if f.createFn == nil {
		return &model.Bookmark{ID: "b1", Title: req.Title, URL: req.URL}, nil
	}
	return f.createFn(ctx, req)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func TestMerge_KeepsUserTextAndOverwritesMedia(t *testing.T) {
	d := Draft{Title: "My Note", URL: "https://example.com", OGImageURL: "https://old/img.png"}
	md := model.ResolvedMetadata{
		Title:       "Page",
		Description: "D",
		OGImageURL:  "https://example.com/img.png",
		MediaType:   model.MediaDefault,
	}

	got := Merge(d, md)

	if got.Title != "My Note" {
		t.Errorf("title = %q, want My Note", got.Title)
	}
	if got.Description != "D" {
		t.Errorf("description = %q, want D", got.Description)
	}
	if got.OGImageURL != "https://example.com/img.png" {
		t.Errorf("og image = %q", got.OGImageURL)
	}
	if got.FaviconURL != "" {
		t.Errorf("favicon = %q, want empty", got.FaviconURL)
	}
	if d.OGImageURL != "https://old/img.png" {
		t.Errorf("Merge mutated its input")
	}

	blank := Merge(Draft{Title: "   ", Description: "\t", URL: "https://example.com"}, md)
	if blank.Title != "Page" || blank.Description != "D" {
		t.Errorf("whitespace-only text should be replaced, got title=%q description=%q", blank.Title, blank.Description)
	}
	if err := blank.Validate(); err != nil {
		t.Errorf("Validate after merge: %v", err)
	}
}

func TestDraft_CandidateOmitsEmptyAndDefault(t *testing.T) {
	req := Draft{Title: " T ", URL: "https://x.com", MediaType: model.MediaDefault, MediaEmbedID: "ignored"}.Candidate()
	if req.Title != "T" || req.URL != "https://x.com" {
		t.Errorf("req = %+v", req)
	}
	if req.Description != nil || req.OGImageURL != nil || req.MediaType != nil || req.MediaEmbedID != nil {
		t.Errorf("optional fields should be nil: %+v", req)
	}

	req = Draft{Title: "V", URL: "https://youtu.be/dQw4w9WgXcQ", MediaType: model.MediaYouTube, MediaEmbedID: "dQw4w9WgXcQ"}.Candidate()
	if deref(req.MediaType) != "youtube" || deref(req.MediaEmbedID) != "dQw4w9WgXcQ" {
		t.Errorf("media = %v/%v", deref(req.MediaType), deref(req.MediaEmbedID))
	}
}

func TestWebCoordinator_LastURLWins(t *testing.T) {
	const urlA, urlB = "https://a.example.com", "https://b.example.com"

	started := map[string]chan struct{}{urlA: make(chan struct{}), urlB: make(chan struct{})}
	release := map[string]chan struct{}{urlA: make(chan struct{}), urlB: make(chan struct{})}

	api := &fakeAPI{
		fetchFn: func(ctx context.Context, targetURL string) (model.ResolvedMetadata, error) {
			close(started[targetURL])
			<-release[targetURL]
			return model.ResolvedMetadata{Title: "title of " + targetURL, MediaType: model.MediaDefault}, nil
		},
	}
	w := NewWebCoordinator(WebOptions{API: api, Debounce: time.Millisecond})

	w.SetURL(urlA)
	<-started[urlA]
	w.SetURL(urlB)
	<-started[urlB]

	close(release[urlB])
	close(release[urlA])
	w.Wait()

	d := w.Draft()
	if d.URL != urlB {
		t.Errorf("url = %q, want %q", d.URL, urlB)
	}
	if d.Title != "title of "+urlB {
		t.Errorf("title = %q, stale result from A was applied", d.Title)
	}
}

func TestWebCoordinator_DebounceCoalescesEdits(t *testing.T) {
	var mu sync.Mutex
	var fetched []string
	api := &fakeAPI{
		fetchFn: func(ctx context.Context, targetURL string) (model.ResolvedMetadata, error) {
			mu.Lock()
			fetched = append(fetched, targetURL)
			mu.Unlock()
			return model.EmptyMetadata(), nil
		},
	}
	w := NewWebCoordinator(WebOptions{API: api, Debounce: 100 * time.Millisecond})

	w.SetURL("https://e")
	w.SetURL("https://ex")
	w.SetURL("https://example.com")
	w.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(fetched) != 1 || fetched[0] != "https://example.com" {
		t.Fatalf("fetched = %v, want only the last URL", fetched)
	}
}

func TestWebCoordinator_InvalidURLIsSkipped(t *testing.T) {
	var calls atomic.Int32
	api := &fakeAPI{
		fetchFn: func(ctx context.Context, targetURL string) (model.ResolvedMetadata, error) {
			calls.Add(1)
			return model.EmptyMetadata(), nil
		},
	}
	w := NewWebCoordinator(WebOptions{API: api, Debounce: time.Millisecond})

	w.SetURL("not a url")
	w.Wait()

	if calls.Load() != 0 {
		t.Fatalf("fetch called %d times for an invalid URL", calls.Load())
	}
	if w.Draft().URL != "not a url" {
		t.Errorf("url edit should still be recorded")
	}
}

func TestWebCoordinator_FetchFailureLeavesDraft(t *testing.T) {
	api := &fakeAPI{
		fetchFn: func(ctx context.Context, targetURL string) (model.ResolvedMetadata, error) {
			return model.ResolvedMetadata{}, apiclient.ErrTransport
		},
	}
	w := NewWebCoordinator(WebOptions{API: api, Debounce: time.Millisecond})
	w.SetTitle("Mine")
	w.SetURL("https://example.com")
	w.Wait()

	d := w.Draft()
	if d.Title != "Mine" || d.OGImageURL != "" {
		t.Errorf("draft = %+v", d)
	}
}

func TestWebCoordinator_MergesIntoUserEdits(t *testing.T) {
	var changes atomic.Int32
	api := &fakeAPI{
		fetchFn: func(ctx context.Context, targetURL string) (model.ResolvedMetadata, error) {
			return model.ResolvedMetadata{
				Title:       "Page",
				Description: "D",
				OGImageURL:  "https://example.com/img.png",
				MediaType:   model.MediaDefault,
			}, nil
		},
	}
	w := NewWebCoordinator(WebOptions{
		API:      api,
		Debounce: time.Millisecond,
		OnChange: func(Draft) { changes.Add(1) },
	})

	w.SetTitle("My Note")
	w.SetURL("https://example.com")
	w.Wait()

	d := w.Draft()
	if d.Title != "My Note" || d.Description != "D" || d.OGImageURL != "https://example.com/img.png" {
		t.Errorf("draft = %+v", d)
	}
	if changes.Load() != 1 {
		t.Errorf("OnChange called %d times, want 1", changes.Load())
	}
}

func TestWebCoordinator_Submit(t *testing.T) {
	t.Run("incomplete draft is rejected locally", func(t *testing.T) {
		api := &fakeAPI{
			createFn: func(ctx context.Context, req apiclient.CreateBookmarkRequest) (*model.Bookmark, error) {
				t.Fatal("create should not be called")
				return nil, nil
			},
		}
		w := NewWebCoordinator(WebOptions{API: api})
		w.SetTitle("only a title")

		if _, err := w.Submit(context.Background()); !errors.Is(err, ErrIncomplete) {
			t.Fatalf("err = %v, want ErrIncomplete", err)
		}
		w.Close()
	})

	t.Run("failure keeps the draft", func(t *testing.T) {
		api := &fakeAPI{
			createFn: func(ctx context.Context, req apiclient.CreateBookmarkRequest) (*model.Bookmark, error) {
				return nil, &apiclient.APIError{Status: 500, Message: "boom"}
			},
		}
		w := NewWebCoordinator(WebOptions{API: api, Debounce: time.Hour})
		w.SetTitle("T")
		w.SetURL("https://example.com")

		if _, err := w.Submit(context.Background()); err == nil {
			t.Fatal("expected error")
		}
		if d := w.Draft(); d.Title != "T" || d.URL != "https://example.com" {
			t.Errorf("draft lost after failure: %+v", d)
		}
		w.Close()
	})

	t.Run("success resets the form", func(t *testing.T) {
		var sent apiclient.CreateBookmarkRequest
		var saved atomic.Bool
		api := &fakeAPI{
			createFn: func(ctx context.Context, req apiclient.CreateBookmarkRequest) (*model.Bookmark, error) {
				sent = req
				return &model.Bookmark{ID: "b1"}, nil
			},
		}
		w := NewWebCoordinator(WebOptions{
			API:      api,
			Debounce: time.Hour,
			OnSaved:  func(*model.Bookmark) { saved.Store(true) },
		})
		w.SetTitle("T")
		w.SetDescription("D")
		w.SetURL("https://example.com")

		b, err := w.Submit(context.Background())
		if err != nil {
			t.Fatalf("Submit: %v", err)
		}
		if b.ID != "b1" || !saved.Load() {
			t.Errorf("bookmark = %+v, saved = %v", b, saved.Load())
		}
		if sent.Title != "T" || deref(sent.Description) != "D" {
			t.Errorf("sent = %+v", sent)
		}
		if d := w.Draft(); d.Title != "" || d.URL != "" {
			t.Errorf("draft not reset: %+v", d)
		}
		w.Close()
	})
}

func staticTab(u string) TabSource {
	return TabSourceFunc(func(context.Context) (string, error) { return u, nil })
}

func TestExtensionCoordinator_LoginRequired(t *testing.T) {
	api := &fakeAPI{
		listFn: func(ctx context.Context, params apiclient.ListParams) ([]model.Bookmark, error) {
			return nil, apiclient.ErrUnauthorized
		},
		fetchFn: func(ctx context.Context, targetURL string) (model.ResolvedMetadata, error) {
			t.Fatal("metadata should not be fetched without a session")
			return model.ResolvedMetadata{}, nil
		},
	}
	e := NewExtensionCoordinator(api, staticTab("https://example.com"), nil)

	if err := e.Open(context.Background()); !errors.Is(err, ErrLoginRequired) {
		t.Fatalf("err = %v, want ErrLoginRequired", err)
	}
	if e.State() != StateLoginRequired {
		t.Errorf("state = %s", e.State())
	}
	if _, err := e.Save(context.Background()); !errors.Is(err, ErrNotReady) {
		t.Errorf("save err = %v, want ErrNotReady", err)
	}
}

func TestExtensionCoordinator_NoTab(t *testing.T) {
	tabs := TabSourceFunc(func(context.Context) (string, error) { return "", errors.New("no tab") })
	e := NewExtensionCoordinator(&fakeAPI{}, tabs, nil)

	if err := e.Open(context.Background()); !errors.Is(err, ErrNoTab) {
		t.Fatalf("err = %v, want ErrNoTab", err)
	}
	if e.State() != StateError {
		t.Errorf("state = %s", e.State())
	}
}

func TestExtensionCoordinator_PreviewFallbacksAndNotes(t *testing.T) {
	var sent apiclient.CreateBookmarkRequest
	api := &fakeAPI{
		fetchFn: func(ctx context.Context, targetURL string) (model.ResolvedMetadata, error) {
			return model.ResolvedMetadata{}, apiclient.ErrTransport
		},
		createFn: func(ctx context.Context, req apiclient.CreateBookmarkRequest) (*model.Bookmark, error) {
			sent = req
			return &model.Bookmark{ID: "b1"}, nil
		},
	}
	e := NewExtensionCoordinator(api, staticTab("https://example.com/a/b"), nil)

	if err := e.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	p := e.Preview()
	if p.Title != "example.com" {
		t.Errorf("title = %q, want host fallback", p.Title)
	}
	if p.Description != NoDescription {
		t.Errorf("description = %q", p.Description)
	}

	e.SetNotes("read later")
	if _, err := e.Save(context.Background()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if sent.URL != "https://example.com/a/b" || sent.Title != "example.com" || deref(sent.Description) != "read later" {
		t.Errorf("sent = %+v", sent)
	}
	if sent.OGImageURL != nil || sent.MediaType != nil {
		t.Errorf("extension should only send url, title and description: %+v", sent)
	}
	if e.State() != StateSaved {
		t.Errorf("state = %s", e.State())
	}
}

func TestExtensionCoordinator_SaveFailureAllowsRetry(t *testing.T) {
	var attempts atomic.Int32
	var sent apiclient.CreateBookmarkRequest
	api := &fakeAPI{
		fetchFn: func(ctx context.Context, targetURL string) (model.ResolvedMetadata, error) {
			return model.ResolvedMetadata{Title: "Example", Description: "Resolved", MediaType: model.MediaDefault}, nil
		},
		createFn: func(ctx context.Context, req apiclient.CreateBookmarkRequest) (*model.Bookmark, error) {
			if attempts.Add(1) == 1 {
				return nil, &apiclient.APIError{Status: 500, Message: "duplicate key"}
			}
			sent = req
			return &model.Bookmark{ID: "b1"}, nil
		},
	}
	e := NewExtensionCoordinator(api, staticTab("https://example.com"), nil)
	if err := e.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}

	if _, err := e.Save(context.Background()); err == nil {
		t.Fatal("expected first save to fail")
	}
	if e.State() != StateForm || e.SaveError() != "duplicate key" {
		t.Errorf("state = %s, save error = %q", e.State(), e.SaveError())
	}

	if _, err := e.Save(context.Background()); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if deref(sent.Description) != "Resolved" || sent.Title != "Example" {
		t.Errorf("sent = %+v", sent)
	}
	if e.State() != StateSaved {
		t.Errorf("state = %s", e.State())
	}
}
