// Package thumbnail derives image-proxy URLs for bookmark imagery.
// Nothing here touches the network; the proxy does the resizing.
package thumbnail

import (
	"net/url"
	"strconv"
	"strings"
)

const (
	// DefaultProxyPath is the relative endpoint of the resizing proxy.
	DefaultProxyPath = "/api/image-proxy"
	// Format is the fixed target encoding requested from the proxy.
	Format = "webp"

	PreviewWidth   = 300
	PreviewQuality = 75
	IconWidth      = 32
	IconQuality    = 75
)

// Builder produces proxy-relative thumbnail URLs.
type Builder struct {
	proxyPath string
}

// NewBuilder returns a Builder for the given proxy path, or DefaultProxyPath when empty.
func NewBuilder(proxyPath string) Builder {
	proxyPath = strings.TrimSpace(proxyPath)
	if proxyPath == "" {
		proxyPath = DefaultProxyPath
	}
	return Builder{proxyPath: proxyPath}
}

// Build returns the thumbnail URL for source. It returns ("", false) when source
// is empty so no thumbnail is ever fabricated for a missing image. Identical
// inputs always produce the identical string.
func (b Builder) Build(source string, width, quality int) (string, bool) {
	if source == "" {
		return "", false
	}
	if width < 1 {
		width = 1
	}
	quality = min(max(quality, 1), 100)

	// Parameter order is part of the proxy cache key, so it is written by hand
	// rather than through url.Values.Encode which sorts keys.
	var sb strings.Builder
	sb.Grow(len(b.proxyPath) + len(source) + 32)
	sb.WriteString(b.proxyPath)
	sb.WriteString("?url=")
	sb.WriteString(url.QueryEscape(source))
	sb.WriteString("&w=")
	sb.WriteString(strconv.Itoa(width))
	sb.WriteString("&fmt=")
	sb.WriteString(Format)
	sb.WriteString("&q=")
	sb.WriteString(strconv.Itoa(quality))
	return sb.String(), true
}

// Preview derives the preview-image thumbnail.
func (b Builder) Preview(source string) (string, bool) {
	return b.Build(source, PreviewWidth, PreviewQuality)
}

// Icon derives the site-icon thumbnail.
func (b Builder) Icon(source string) (string, bool) {
	return b.Build(source, IconWidth, IconQuality)
}

// Build uses the default proxy path.
func Build(source string, width, quality int) (string, bool) {
	return NewBuilder("").Build(source, width, quality)
}
