package capture

import (
	"context"
	"sync"
	"time"

	"github.com/sifan077/PowerMark/internal/app/model"
	"github.com/sifan077/PowerMark/internal/capture/apiclient"
	"github.com/sifan077/PowerMark/internal/metadata"
	"go.uber.org/zap"
)

// DefaultDebounce is how long the URL must stay unchanged before resolving.
const DefaultDebounce = 500 * time.Millisecond

// WebAPI is the part of the API the web form needs.
type WebAPI interface {
	FetchMetadata(ctx context.Context, targetURL string) (model.ResolvedMetadata, error)
	CreateBookmark(ctx context.Context, req apiclient.CreateBookmarkRequest) (*model.Bookmark, error)
}

// WebOptions configures a WebCoordinator.
type WebOptions struct {
	API      WebAPI
	Debounce time.Duration
	Logger   *zap.Logger
	// OnChange, when set, is called with the new draft after a merge or reset.
	OnChange func(Draft)
	// OnSaved, when set, is called after a successful submit.
	OnSaved func(*model.Bookmark)
}

// WebCoordinator owns the web capture form. Each URL edit restarts a debounce
// timer; when it fires the URL is resolved and the result merged, unless a
// newer edit happened in the meantime.
type WebCoordinator struct {
	api      WebAPI
	debounce time.Duration
	logger   *zap.Logger
	onChange func(Draft)
	onSaved  func(*model.Bookmark)

	mu      sync.Mutex
	draft   Draft
	seq     uint64
	pending *time.Timer
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewWebCoordinator returns a coordinator with an empty draft.
func NewWebCoordinator(opts WebOptions) *WebCoordinator {
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &WebCoordinator{
		api:      opts.API,
		debounce: debounce,
		logger:   logger,
		onChange: opts.OnChange,
		onSaved:  opts.OnSaved,
		draft:    Draft{MediaType: model.MediaDefault},
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Draft returns the current draft.
func (w *WebCoordinator) Draft() Draft {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.draft
}

// SetURL records a URL edit and schedules its resolution.
func (w *WebCoordinator) SetURL(raw string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.draft = w.draft.WithURL(raw)
	w.seq++
	w.stopPendingLocked()

	seq := w.seq
	w.wg.Add(1)
	w.pending = time.AfterFunc(w.debounce, func() {
		defer w.wg.Done()
		w.resolve(seq, raw)
	})
}

// SetTitle records a title edit. It never triggers resolution.
func (w *WebCoordinator) SetTitle(title string) {
	w.mu.Lock()
	w.draft = w.draft.WithTitle(title)
	w.mu.Unlock()
}

// SetDescription records a description edit.
func (w *WebCoordinator) SetDescription(desc string) {
	w.mu.Lock()
	w.draft = w.draft.WithDescription(desc)
	w.mu.Unlock()
}

func (w *WebCoordinator) resolve(seq uint64, raw string) {
	if _, ok := metadata.ValidURL(raw); !ok {
		return
	}
	if !w.current(seq) {
		return
	}

	md, err := w.api.FetchMetadata(w.ctx, raw)
	if err != nil {
		w.logger.Debug("metadata fetch failed", zap.String("url", raw), zap.Error(err))
		return
	}

	w.mu.Lock()
	if seq != w.seq {
		w.mu.Unlock()
		w.logger.Debug("discarding stale metadata", zap.String("url", raw))
		return
	}
	w.draft = Merge(w.draft, md)
	d := w.draft
	w.mu.Unlock()

	w.notify(d)
}

func (w *WebCoordinator) current(seq uint64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return seq == w.seq
}

// Submit validates and saves the draft. On success the form is reset and
// any in-flight resolution is discarded; on failure the draft is kept.
func (w *WebCoordinator) Submit(ctx context.Context) (*model.Bookmark, error) {
	d := w.Draft()
	if err := d.Validate(); err != nil {
		return nil, err
	}

	bookmark, err := w.api.CreateBookmark(ctx, d.Candidate())
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	w.seq++
	w.stopPendingLocked()
	w.draft = Draft{MediaType: model.MediaDefault}
	reset := w.draft
	w.mu.Unlock()

	w.notify(reset)
	if w.onSaved != nil {
		w.onSaved(bookmark)
	}
	return bookmark, nil
}

// Close cancels pending work and waits for in-flight resolutions to finish.
func (w *WebCoordinator) Close() {
	w.mu.Lock()
	w.seq++
	w.stopPendingLocked()
	w.mu.Unlock()

	w.cancel()
	w.wg.Wait()
}

// Wait blocks until scheduled and in-flight resolutions have finished.
func (w *WebCoordinator) Wait() {
	w.wg.Wait()
}

func (w *WebCoordinator) stopPendingLocked() {
	if w.pending != nil && w.pending.Stop() {
		w.wg.Done()
	}
	w.pending = nil
}

func (w *WebCoordinator) notify(d Draft) {
	if w.onChange != nil {
		w.onChange(d)
	}
}
