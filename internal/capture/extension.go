package capture

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"

	"github.com/sifan077/PowerMark/internal/app/model"
	"github.com/sifan077/PowerMark/internal/capture/apiclient"
	"go.uber.org/zap"
)

// NoDescription is shown when neither the page nor the user supplied one.
const NoDescription = "No description available."

var (
	// ErrNoTab means the host could not tell which page to capture.
	ErrNoTab = errors.New("Could not get current tab URL.")
	// ErrLoginRequired means the auth probe was rejected.
	ErrLoginRequired = errors.New("login required")
	// ErrNotReady is returned by Save outside of the form state.
	ErrNotReady = errors.New("capture is not ready to save")
)

// State is the extension popup state.
type State string

const (
	StateLoading       State = "loading"
	StateLoginRequired State = "login_required"
	StateForm          State = "form"
	StateSaving        State = "saving"
	StateSaved         State = "saved"
	StateError         State = "error"
)

// TabSource yields the URL of the page being captured.
type TabSource interface {
	ActiveTabURL(ctx context.Context) (string, error)
}

// TabSourceFunc adapts a function to TabSource.
type TabSourceFunc func(ctx context.Context) (string, error)

func (f TabSourceFunc) ActiveTabURL(ctx context.Context) (string, error) {
	return f(ctx)
}

// ExtensionAPI is the part of the API the extension needs.
type ExtensionAPI interface {
	ListBookmarks(ctx context.Context, params apiclient.ListParams) ([]model.Bookmark, error)
	FetchMetadata(ctx context.Context, targetURL string) (model.ResolvedMetadata, error)
	CreateBookmark(ctx context.Context, req apiclient.CreateBookmarkRequest) (*model.Bookmark, error)
}

// Preview is what the popup shows before saving.
type Preview struct {
	URL          string
	Title        string
	Description  string
	OGImageURL   string
	FaviconURL   string
	MediaType    model.MediaType
	MediaEmbedID string
}

// ExtensionCoordinator captures a single page: it reads the tab URL, checks
// the session, resolves once and saves with optional notes.
type ExtensionCoordinator struct {
	api    ExtensionAPI
	tabs   TabSource
	logger *zap.Logger

	mu      sync.Mutex
	state   State
	draft   Draft
	preview Preview
	notes   string
	saveErr string
}

// NewExtensionCoordinator returns a coordinator in the loading state.
func NewExtensionCoordinator(api ExtensionAPI, tabs TabSource, logger *zap.Logger) *ExtensionCoordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExtensionCoordinator{
		api:    api,
		tabs:   tabs,
		logger: logger,
		state:  StateLoading,
	}
}

// Open runs the popup start sequence. It returns ErrLoginRequired when the
// session is rejected and ErrNoTab when the tab URL is unavailable.
func (e *ExtensionCoordinator) Open(ctx context.Context) error {
	e.setState(StateLoading)

	tabURL, err := e.tabs.ActiveTabURL(ctx)
	if err != nil || strings.TrimSpace(tabURL) == "" {
		e.logger.Warn("active tab url unavailable", zap.Error(err))
		e.setState(StateError)
		return ErrNoTab
	}

	if _, err := e.api.ListBookmarks(ctx, apiclient.ListParams{}); err != nil {
		if errors.Is(err, apiclient.ErrUnauthorized) {
			e.setState(StateLoginRequired)
			return ErrLoginRequired
		}
		e.logger.Warn("auth probe failed", zap.Error(err))
		e.setState(StateError)
		return err
	}

	md, err := e.api.FetchMetadata(ctx, tabURL)
	if err != nil {
		e.logger.Debug("metadata fetch failed, continuing with empty record", zap.Error(err))
		md = model.EmptyMetadata()
	}

	draft := Merge(Draft{URL: tabURL}, md)
	if strings.TrimSpace(draft.Title) == "" {
		draft.Title = hostOf(tabURL)
	}

	e.mu.Lock()
	e.draft = draft
	e.preview = previewOf(draft)
	e.state = StateForm
	e.mu.Unlock()
	return nil
}

// SetNotes records the user's notes. Non-empty notes replace the description on save.
func (e *ExtensionCoordinator) SetNotes(notes string) {
	e.mu.Lock()
	e.notes = notes
	e.mu.Unlock()
}

// Save sends the bookmark. A failure returns to the form with the server message.
func (e *ExtensionCoordinator) Save(ctx context.Context) (*model.Bookmark, error) {
	e.mu.Lock()
	if e.state != StateForm {
		e.mu.Unlock()
		return nil, ErrNotReady
	}
	e.state = StateSaving
	e.saveErr = ""
	d := Draft{URL: e.draft.URL, Title: e.draft.Title, Description: e.draft.Description}
	if notes := strings.TrimSpace(e.notes); notes != "" {
		d = d.WithDescription(notes)
	}
	e.mu.Unlock()

	bookmark, err := e.api.CreateBookmark(ctx, d.Candidate())

	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		e.state = StateForm
		e.saveErr = saveMessage(err)
		return nil, err
	}
	e.state = StateSaved
	return bookmark, nil
}

// State returns the current state.
func (e *ExtensionCoordinator) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Preview returns what the popup displays.
func (e *ExtensionCoordinator) Preview() Preview {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.preview
}

// SaveError is the message of the last failed save, if any.
func (e *ExtensionCoordinator) SaveError() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.saveErr
}

func (e *ExtensionCoordinator) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

func previewOf(d Draft) Preview {
	p := Preview{
		URL:          d.URL,
		Title:        d.Title,
		Description:  d.Description,
		OGImageURL:   d.OGImageURL,
		FaviconURL:   d.FaviconURL,
		MediaType:    d.MediaType,
		MediaEmbedID: d.MediaEmbedID,
	}
	if strings.TrimSpace(p.Description) == "" {
		p.Description = NoDescription
	}
	return p
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	return u.Host
}

func saveMessage(err error) string {
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	if errors.Is(err, apiclient.ErrUnauthorized) {
		return "Unauthorized"
	}
	return "Failed to save bookmark"
}
