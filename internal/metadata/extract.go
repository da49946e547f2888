package metadata

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// page is a parsed remote document plus the URL relative references resolve against.
type page struct {
	doc  *goquery.Document
	base *url.URL
}

// extractor returns a candidate value for one field, or false when it has none.
type extractor func(p *page) (string, bool)

// firstOf runs extractors in priority order and returns the first hit.
func firstOf(p *page, chain ...extractor) string {
	for _, extract := range chain {
		if v, ok := extract(p); ok {
			return v
		}
	}
	return ""
}

var (
	titleChain = []extractor{
		metaProperty("og:title"),
		metaName("twitter:title"),
		metaName("title"),
		documentTitle,
	}

	descriptionChain = []extractor{
		metaProperty("og:description"),
		metaName("description"),
		metaName("twitter:description"),
	}

	imageChain = []extractor{
		absolute(metaProperty("og:image")),
		absolute(metaProperty("og:image:url")),
		absolute(metaProperty("og:image:secure_url")),
		absolute(metaName("twitter:image")),
		absolute(metaName("twitter:image:src")),
		absolute(linkRel("image_src")),
		absolute(firstPlausibleImage),
	}

	iconChain = []extractor{
		absolute(linkRel("icon")),
		absolute(linkRel("shortcut icon")),
		absolute(linkRel("apple-touch-icon")),
		absolute(linkRel("apple-touch-icon-precomposed")),
		defaultFavicon,
	}
)

func metaProperty(property string) extractor {
	return func(p *page) (string, bool) {
		return metaContent(p.doc, "property", property)
	}
}

func metaName(name string) extractor {
	return func(p *page) (string, bool) {
		return metaContent(p.doc, "name", name)
	}
}

func metaContent(doc *goquery.Document, attr, key string) (string, bool) {
	var value string
	doc.Find("meta").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		v, ok := s.Attr(attr)
		if !ok || !strings.EqualFold(strings.TrimSpace(v), key) {
			return true
		}
		value = normalizeText(s.AttrOr("content", ""))
		return value == ""
	})
	return value, value != ""
}

func documentTitle(p *page) (string, bool) {
	title := normalizeText(p.doc.Find("head title").First().Text())
	if title == "" {
		title = normalizeText(p.doc.Find("title").First().Text())
	}
	return title, title != ""
}

// linkRel matches <link rel> values as whitespace separated token lists, so
// "shortcut icon" matches both rel="shortcut icon" and rel="icon shortcut".
func linkRel(rel string) extractor {
	want := strings.Fields(strings.ToLower(rel))
	return func(p *page) (string, bool) {
		var href string
		p.doc.Find("link[rel][href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if !sameTokens(strings.Fields(strings.ToLower(s.AttrOr("rel", ""))), want) {
				return true
			}
			href = strings.TrimSpace(s.AttrOr("href", ""))
			return href == ""
		})
		return href, href != ""
	}
}

func sameTokens(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for _, w := range want {
		found := false
		for _, g := range got {
			if g == w {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// firstPlausibleImage skips inline data, vector art and tracking pixels.
func firstPlausibleImage(p *page) (string, bool) {
	var src string
	p.doc.Find("img").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		candidate := strings.TrimSpace(s.AttrOr("src", ""))
		if candidate == "" {
			candidate = strings.TrimSpace(s.AttrOr("data-src", ""))
		}
		if candidate == "" || strings.HasPrefix(strings.ToLower(candidate), "data:") {
			return true
		}
		if strings.HasSuffix(strings.ToLower(strings.SplitN(candidate, "?", 2)[0]), ".svg") {
			return true
		}
		if tinyDimension(s.AttrOr("width", "")) || tinyDimension(s.AttrOr("height", "")) {
			return true
		}
		src = candidate
		return false
	})
	return src, src != ""
}

func tinyDimension(v string) bool {
	n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimSpace(v), "px"))
	return err == nil && n <= 2
}

func defaultFavicon(p *page) (string, bool) {
	if p.base == nil || p.base.Host == "" {
		return "", false
	}
	u := url.URL{Scheme: p.base.Scheme, Host: p.base.Host, Path: "/favicon.ico"}
	return u.String(), true
}

// absolute resolves the wrapped extractor's result against the page URL and
// drops anything that is not http(s).
func absolute(next extractor) extractor {
	return func(p *page) (string, bool) {
		raw, ok := next(p)
		if !ok {
			return "", false
		}
		ref, err := url.Parse(raw)
		if err != nil {
			return "", false
		}
		if p.base != nil {
			ref = p.base.ResolveReference(ref)
		}
		if ref.Scheme != "http" && ref.Scheme != "https" {
			return "", false
		}
		return ref.String(), true
	}
}

func normalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
