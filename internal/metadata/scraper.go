// Package metadata extracts page metadata for new bookmarks. Extraction never
// fails from the caller's point of view: any fetch or parse problem yields
// empty metadata.
package metadata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"linkly/internal/models"
)

const (
	maxBodyBytes = 2 << 20
	userAgent    = "LinklyBot/1.0 (+https://linkly.app)"
)

var errNotHTML = errors.New("response is not html")

type Extractor interface {
	Extract(ctx context.Context, pageURL string) models.BookmarkMetadata
}

// Scraper fetches the page and reads its head section.
type Scraper struct {
	client *http.Client
	logger *slog.Logger
}

func NewScraper(timeout time.Duration, logger *slog.Logger) *Scraper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scraper{
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

func (s *Scraper) Extract(ctx context.Context, pageURL string) models.BookmarkMetadata {
	meta, err := s.fetch(ctx, pageURL)
	if err != nil {
		s.logger.WarnContext(ctx, "metadata fetch failed", "url", pageURL, "error", err)
		return models.BookmarkMetadata{}
	}
	return meta
}

func (s *Scraper) fetch(ctx context.Context, pageURL string) (models.BookmarkMetadata, error) {
	base, err := url.Parse(pageURL)
	if err != nil || (base.Scheme != "http" && base.Scheme != "https") {
		return models.BookmarkMetadata{}, fmt.Errorf("unsupported url %q", pageURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return models.BookmarkMetadata{}, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := s.client.Do(req)
	if err != nil {
		return models.BookmarkMetadata{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return models.BookmarkMetadata{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		mediaType, _, err := mime.ParseMediaType(ct)
		if err != nil || (mediaType != "text/html" && mediaType != "application/xhtml+xml") {
			return models.BookmarkMetadata{}, errNotHTML
		}
	}

	// The final URL after redirects is the base for relative links.
	if resp.Request != nil && resp.Request.URL != nil {
		base = resp.Request.URL
	}
	return Parse(io.LimitReader(resp.Body, maxBodyBytes), base)
}

// Parse reads metadata from an HTML document. Relative icon and image links
// are resolved against base.
func Parse(r io.Reader, base *url.URL) (models.BookmarkMetadata, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return models.BookmarkMetadata{}, err
	}

	var meta models.BookmarkMetadata
	var docTitle, iconHref string
	named := map[string]string{}
	og := map[string]string{}

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "html":
				meta.Lang = strings.TrimSpace(attr(n, "lang"))
			case "title":
				if docTitle == "" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
					docTitle = strings.TrimSpace(n.FirstChild.Data)
				}
			case "meta":
				content := strings.TrimSpace(attr(n, "content"))
				if content == "" {
					break
				}
				if prop := strings.ToLower(attr(n, "property")); strings.HasPrefix(prop, "og:") {
					if _, seen := og[prop[3:]]; !seen {
						og[prop[3:]] = content
					}
				} else if prop != "" {
					named[prop] = content
				}
				if name := strings.ToLower(attr(n, "name")); name != "" {
					if _, seen := named[name]; !seen {
						named[name] = content
					}
				}
			case "link":
				if iconHref == "" && isIconRel(attr(n, "rel")) {
					iconHref = strings.TrimSpace(attr(n, "href"))
				}
			case "body":
				// Metadata lives in the head; skipping the body keeps large pages cheap.
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	meta.Title = firstNonEmpty(og["title"], named["twitter:title"], docTitle)
	meta.Description = firstNonEmpty(og["description"], named["description"], named["twitter:description"])
	meta.SiteName = firstNonEmpty(og["site_name"], named["application-name"])
	meta.Author = firstNonEmpty(named["author"], named["article:author"])
	meta.Image = resolve(base, firstNonEmpty(og["image"], named["twitter:image"]))
	if iconHref != "" {
		meta.Favicon = resolve(base, iconHref)
	} else if base != nil && base.Host != "" {
		meta.Favicon = base.Scheme + "://" + base.Host + "/favicon.ico"
	}
	if len(og) > 0 {
		meta.OG = og
	}
	return meta, nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func isIconRel(rel string) bool {
	for _, part := range strings.Fields(strings.ToLower(rel)) {
		if part == "icon" {
			return true
		}
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func resolve(base *url.URL, ref string) string {
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if base == nil {
		return u.String()
	}
	return base.ResolveReference(u).String()
}
