// Package pagemeta extracts meme-name metadata from the handful of image
// hosting sites that publish it. Lookups are best-effort: any network or
// parse failure yields an empty name, never an error.
package pagemeta

import (
	"context"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/net/html"

	"github.com/janitorbot/janitor/engine"
)

var (
	qkmeImagePath   = regexp.MustCompile(`.+/(.+?)\.jpg$`)
	generatorPaths  = []*regexp.Regexp{regexp.MustCompile(`/instance/(\d+)$`), regexp.MustCompile(`(\d+)\.jpg$`)}
	generatorRankRe = regexp.MustCompile(`#\d+ (.+)$`)
	trollTitleRe    = regexp.MustCompile(`^.+?\| (.+?) \|.+?$`)
)

// Fetcher implements engine.MemeNameFetcher against the live sites.
type Fetcher struct {
	Logger    *slog.Logger
	Client    *http.Client
	UserAgent string
}

var _ engine.MemeNameFetcher = (*Fetcher)(nil)

// NewFetcher returns a Fetcher with retrying transport. Page fetches are
// idempotent reads, so retries are safe here.
func NewFetcher(logger *slog.Logger, userAgent string) *Fetcher {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.Logger = nil
	return &Fetcher{
		Logger:    logger,
		Client:    rc.StandardClient(),
		UserAgent: userAgent,
	}
}

// MemeName resolves the submission to a metadata page for its host and
// scrapes the meme name out of it. Unknown hosts and all failures return "".
func (f *Fetcher) MemeName(ctx context.Context, sub *engine.Submission) (string, error) {
	pageURL := metadataURL(sub.Domain, sub.URL)
	if pageURL == "" {
		return "", nil
	}

	root, err := f.fetchPage(ctx, pageURL)
	if err != nil {
		f.Logger.Debug("meme name page fetch failed", "url", pageURL, "err", err)
		return "", nil
	}
	return extractName(sub.Domain, root), nil
}

// metadataURL maps a submission's host and URL to the page carrying the meme
// name, or "" for hosts without one.
func metadataURL(domain, url string) string {
	switch {
	case domain == "quickmeme.com" || domain == "qkme.me" || domain == "troll.me":
		return url
	case strings.HasSuffix(domain, ".qkme.me"):
		// direct image links redirect through the short id
		if m := qkmeImagePath.FindStringSubmatch(url); m != nil {
			return "http://qkme.me/" + m[1]
		}
	case strings.HasSuffix(domain, "memegenerator.net"):
		for _, re := range generatorPaths {
			if m := re.FindStringSubmatch(url); m != nil {
				return "http://memegenerator.net/instance/" + m[1]
			}
		}
	}
	return ""
}

func (f *Fetcher) fetchPage(ctx context.Context, url string) (*html.Node, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.UserAgent)
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return html.Parse(resp.Body)
}

func extractName(domain string, root *html.Node) string {
	switch {
	case domain == "quickmeme.com" || domain == "qkme.me" || strings.HasSuffix(domain, ".qkme.me"):
		if n := findByAttr(root, "id", "meme_name"); n != nil {
			return strings.TrimSpace(nodeText(n))
		}
	case strings.HasSuffix(domain, "memegenerator.net"):
		if n := findByAttr(root, "class", "rank"); n != nil {
			if m := generatorRankRe.FindStringSubmatch(strings.TrimSpace(nodeText(n))); m != nil {
				return m[1]
			}
		}
	case domain == "troll.me":
		if n := findElement(root, "title"); n != nil {
			if m := trollTitleRe.FindStringSubmatch(strings.TrimSpace(nodeText(n))); m != nil {
				return m[1]
			}
		}
	}
	return ""
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

// findByAttr walks the tree for the first element carrying the attribute
// value. For class attributes any listed class counts.
func findByAttr(n *html.Node, key, value string) *html.Node {
	if n.Type == html.ElementNode {
		for _, attr := range n.Attr {
			if attr.Key != key {
				continue
			}
			if attr.Val == value {
				return n
			}
			if key == "class" {
				for _, c := range strings.Fields(attr.Val) {
					if c == value {
						return n
					}
				}
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findByAttr(c, key, value); found != nil {
			return found
		}
	}
	return nil
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
