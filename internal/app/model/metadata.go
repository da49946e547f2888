package model

import "strings"

// MediaType identifies an embeddable media provider.
type MediaType string

const (
	MediaDefault MediaType = "default"
	MediaYouTube MediaType = "youtube"
	MediaVimeo   MediaType = "vimeo"
)

// IsDefault reports whether m carries no provider. The empty string counts as default.
func (m MediaType) IsDefault() bool {
	return m == "" || m == MediaDefault
}

// ParseMediaType maps s onto a known provider, ignoring case and surrounding
// space. Anything unrecognised is MediaDefault.
func ParseMediaType(s string) MediaType {
	switch mt := MediaType(strings.ToLower(strings.TrimSpace(s))); mt {
	case MediaYouTube, MediaVimeo:
		return mt
	default:
		return MediaDefault
	}
}

// ResolvedMetadata is the normalized result of resolving a remote URL.
// Empty strings mean "not found"; it is never persisted as-is.
type ResolvedMetadata struct {
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	OGImageURL   string    `json:"og_image_url"`
	FaviconURL   string    `json:"favicon_url"`
	MediaType    MediaType `json:"media_type"`
	MediaEmbedID string    `json:"media_embed_id"`
}

// EmptyMetadata is the record returned when nothing could be resolved.
func EmptyMetadata() ResolvedMetadata {
	return ResolvedMetadata{MediaType: MediaDefault}
}

// IsEmpty reports whether nothing at all was resolved.
func (m ResolvedMetadata) IsEmpty() bool {
	return m.Title == "" && m.Description == "" && m.OGImageURL == "" &&
		m.FaviconURL == "" && m.MediaType.IsDefault() && m.MediaEmbedID == ""
}
