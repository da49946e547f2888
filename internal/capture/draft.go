// Package capture drives the two ways a bookmark gets captured: the web form,
// which resolves metadata as the user types a URL, and the extension popup,
// which resolves the active tab once and saves it.
package capture

import (
	"errors"
	"strings"

	"github.com/sifan077/PowerMark/internal/app/model"
	"github.com/sifan077/PowerMark/internal/capture/apiclient"
)

// ErrIncomplete is returned when a draft lacks a title or URL.
var ErrIncomplete = errors.New("Title and URL are required")

// Draft is the in-progress candidate bookmark. It is a value: every edit
// returns a new Draft.
type Draft struct {
	Title        string
	URL          string
	Description  string
	OGImageURL   string
	FaviconURL   string
	MediaType    model.MediaType
	MediaEmbedID string
}

// WithURL returns d with its URL replaced.
func (d Draft) WithURL(u string) Draft {
	d.URL = u
	return d
}

// WithTitle returns d with its title replaced.
func (d Draft) WithTitle(title string) Draft {
	d.Title = title
	return d
}

// WithDescription returns d with its description replaced.
func (d Draft) WithDescription(desc string) Draft {
	d.Description = desc
	return d
}

// Merge folds resolved metadata into d. User text wins: title and description
// are only filled when the draft has none, whitespace counting as none. Image, icon and media are always
// taken from the resolution.
func Merge(d Draft, md model.ResolvedMetadata) Draft {
	if strings.TrimSpace(d.Title) == "" {
		d.Title = md.Title
	}
	if strings.TrimSpace(d.Description) == "" {
		d.Description = md.Description
	}
	d.OGImageURL = md.OGImageURL
	d.FaviconURL = md.FaviconURL
	d.MediaType = md.MediaType
	if d.MediaType == "" {
		d.MediaType = model.MediaDefault
	}
	d.MediaEmbedID = md.MediaEmbedID
	return d
}

// Validate checks the fields the server requires.
func (d Draft) Validate() error {
	if strings.TrimSpace(d.Title) == "" || strings.TrimSpace(d.URL) == "" {
		return ErrIncomplete
	}
	return nil
}

// Candidate converts d into a create request. Empty optional fields and the
// default media type are left out of the body.
func (d Draft) Candidate() apiclient.CreateBookmarkRequest {
	req := apiclient.CreateBookmarkRequest{
		Title: strings.TrimSpace(d.Title),
		URL:   strings.TrimSpace(d.URL),
	}
	req.Description = optional(d.Description)
	req.OGImageURL = optional(d.OGImageURL)
	req.FaviconURL = optional(d.FaviconURL)
	if !d.MediaType.IsDefault() {
		req.MediaType = optional(string(d.MediaType))
		req.MediaEmbedID = optional(d.MediaEmbedID)
	}
	return req
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
