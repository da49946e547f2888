// Package metadata turns an arbitrary URL into a normalized ResolvedMetadata
// record. Resolution is best effort: every failure degrades to empty fields.
package metadata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/sifan077/PowerMark/internal/app/model"
	"github.com/sifan077/PowerMark/internal/infra/logger"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
)

const (
	defaultTimeout      = 8 * time.Second
	defaultMaxBodyBytes = 2 << 20
	defaultUserAgent    = "PowerMarkBot/1.0 (+metadata)"
)

var (
	errNotHTML       = errors.New("response is not html")
	errPrivateTarget = errors.New("target resolves to a non-public address")
)

// Options tunes a Resolver.
type Options struct {
	Timeout      time.Duration
	RetryMax     int
	UserAgent    string
	MaxBodyBytes int64
	Logger       *zap.Logger
	Cache        Cache
	// BlockPrivate refuses to dial loopback, private and link-local addresses.
	BlockPrivate bool
}

// Resolver fetches remote pages and extracts their metadata.
type Resolver struct {
	client       *retryablehttp.Client
	timeout      time.Duration
	userAgent    string
	maxBodyBytes int64
	logger       *zap.Logger
	cache        Cache
}

// NewResolver builds a Resolver with a bounded, retrying HTTP client.
func NewResolver(opts Options) *Resolver {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	client := retryablehttp.NewClient()
	client.RetryMax = max(opts.RetryMax, 0)
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = time.Second
	client.Logger = logger.NewLeveled(log.Named("fetch"))
	client.HTTPClient.Timeout = timeout
	if opts.BlockPrivate {
		transport := cleanhttp.DefaultPooledTransport()
		transport.DialContext = (&net.Dialer{
			Timeout:   timeout,
			KeepAlive: 30 * time.Second,
			Control:   refusePrivate,
		}).DialContext
		client.HTTPClient.Transport = transport
	}

	return &Resolver{
		client:       client,
		timeout:      timeout,
		userAgent:    ua,
		maxBodyBytes: maxBody,
		logger:       log,
		cache:        opts.Cache,
	}
}

// ValidURL reports whether raw is a well-formed absolute http(s) URL.
func ValidURL(raw string) (*url.URL, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, false
	}
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return nil, false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, false
	}
	return u, true
}

// Resolve never fails. An invalid URL or a failed fetch yields the empty record.
// Media is detected from the URL itself, but only once the page was fetched.
func (r *Resolver) Resolve(ctx context.Context, targetURL string) model.ResolvedMetadata {
	target, ok := ValidURL(targetURL)
	if !ok {
		observeOutcome(outcomeInvalidURL)
		return model.EmptyMetadata()
	}

	key := target.String()
	if r.cache != nil {
		if md, hit := r.cache.Get(ctx, key); hit {
			observeOutcome(outcomeCacheHit)
			return md
		}
	}

	p, err := r.fetch(ctx, target)
	if err != nil {
		outcome := outcomeFetchError
		if errors.Is(err, errNotHTML) {
			outcome = outcomeNotHTML
		}
		observeOutcome(outcome)
		r.logger.Debug("metadata resolution degraded",
			zap.String("url", key),
			zap.String("outcome", outcome),
			zap.Error(err),
		)
		return model.EmptyMetadata()
	}

	md := model.EmptyMetadata()
	md.MediaType, md.MediaEmbedID = DetectMedia(target)
	md.Title = firstOf(p, titleChain...)
	md.Description = firstOf(p, descriptionChain...)
	md.OGImageURL = firstOf(p, imageChain...)
	md.FaviconURL = firstOf(p, iconChain...)
	observeOutcome(outcomeResolved)

	if r.cache != nil {
		r.cache.Set(ctx, key, md)
	}
	return md
}

func (r *Resolver) fetch(ctx context.Context, target *url.URL) (*page, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	defer func() { fetchDuration.Observe(time.Since(start).Seconds()) }()

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", r.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.5")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch page: unexpected status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		mediaType, _, err := mime.ParseMediaType(ct)
		if err != nil || !strings.Contains(mediaType, "html") {
			return nil, fmt.Errorf("%w: %s", errNotHTML, ct)
		}
	}

	body := io.Reader(io.LimitReader(resp.Body, r.maxBodyBytes))
	if utf8Body, err := charset.NewReader(body, resp.Header.Get("Content-Type")); err == nil {
		body = utf8Body
	}

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	base := target
	if resp.Request != nil && resp.Request.URL != nil {
		base = resp.Request.URL
	}
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if ref, err := url.Parse(strings.TrimSpace(href)); err == nil {
			base = base.ResolveReference(ref)
		}
	}

	return &page{doc: doc, base: base}, nil
}

func refusePrivate(network, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	ip := net.ParseIP(host)
	if ip == nil || ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
		return fmt.Errorf("%w: %s", errPrivateTarget, host)
	}
	return nil
}
