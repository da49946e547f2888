package metadata

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/sifan077/PowerMark/internal/app/model"
)

var (
	youTubeIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
	vimeoIDPattern   = regexp.MustCompile(`^[0-9]+$`)
)

// DetectMedia matches u against known embeddable providers. It only looks at
// the URL itself, never at page content.
func DetectMedia(u *url.URL) (model.MediaType, string) {
	if u == nil {
		return model.MediaDefault, ""
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	switch host {
	case "youtube.com", "m.youtube.com", "music.youtube.com", "youtube-nocookie.com":
		if id := youTubeIDFromPath(u); id != "" {
			return model.MediaYouTube, id
		}
	case "youtu.be":
		if id := firstSegment(u.Path); youTubeIDPattern.MatchString(id) {
			return model.MediaYouTube, id
		}
	case "vimeo.com", "player.vimeo.com":
		for _, seg := range strings.Split(strings.Trim(u.Path, "/"), "/") {
			if vimeoIDPattern.MatchString(seg) {
				return model.MediaVimeo, seg
			}
		}
	}

	return model.MediaDefault, ""
}

func youTubeIDFromPath(u *url.URL) string {
	path := strings.TrimSuffix(u.Path, "/")
	if path == "/watch" {
		if v := u.Query().Get("v"); youTubeIDPattern.MatchString(v) {
			return v
		}
		return ""
	}

	for _, prefix := range []string{"/embed/", "/shorts/", "/live/", "/v/"} {
		if rest, ok := strings.CutPrefix(path, prefix); ok {
			if id := firstSegment(rest); youTubeIDPattern.MatchString(id) {
				return id
			}
		}
	}
	return ""
}

func firstSegment(p string) string {
	p = strings.TrimPrefix(p, "/")
	if i := strings.IndexByte(p, '/'); i >= 0 {
		return p[:i]
	}
	return p
}
