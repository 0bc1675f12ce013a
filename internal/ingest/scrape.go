package ingest

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"docqa/internal/domain"
)

// maxPageBytes bounds how much of a web page is read.
const maxPageBytes = 5 << 20

var (
	scriptPattern = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	stylePattern  = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	tagPattern    = regexp.MustCompile(`(?s)<[^>]+>`)
	titlePattern  = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	spacePattern  = regexp.MustCompile(`\s+`)
)

// Page is the readable content of a web page.
type Page struct {
	URL     string
	Title   string
	Content string
}

// Scraper fetches a web page and extracts its readable text.
type Scraper interface {
	Scrape(ctx context.Context, rawURL string) (Page, error)
}

// HTTPScraper fetches pages directly and strips markup.
type HTTPScraper struct {
	Client *http.Client
}

func NewHTTPScraper(timeout time.Duration) *HTTPScraper {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPScraper{Client: &http.Client{Timeout: timeout}}
}

// ValidURL reports whether s is an absolute http or https URL.
func ValidURL(s string) bool {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func (s *HTTPScraper) Scrape(ctx context.Context, rawURL string) (Page, error) {
	if !ValidURL(rawURL) {
		return Page{}, fmt.Errorf("invalid url %q", rawURL)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Page{}, err
	}
	req.Header.Set("User-Agent", "docqa/1.0")
	resp, err := s.Client.Do(req)
	if err != nil {
		return Page{}, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return Page{}, fmt.Errorf("fetch %s: %s", rawURL, resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return Page{}, fmt.Errorf("read %s: %w", rawURL, err)
	}

	raw := string(body)
	title := ""
	if m := titlePattern.FindStringSubmatch(raw); m != nil {
		title = strings.TrimSpace(html.UnescapeString(spacePattern.ReplaceAllString(m[1], " ")))
	}
	if title == "" {
		title = hostTitle(rawURL)
	}
	return Page{URL: rawURL, Title: title, Content: htmlToText(raw)}, nil
}

// FromURL scrapes rawURL into a document. A page without text is an error.
func FromURL(ctx context.Context, s Scraper, rawURL string) (domain.Document, error) {
	page, err := s.Scrape(ctx, rawURL)
	if err != nil {
		return domain.Document{}, err
	}
	if strings.TrimSpace(page.Content) == "" {
		return domain.Document{}, fmt.Errorf("%s: %w", rawURL, domain.ErrEmptyDocument)
	}
	return domain.Document{
		ID:        uuid.NewString(),
		Name:      page.Title,
		Kind:      domain.KindURL,
		Text:      page.Content,
		URL:       page.URL,
		PageCount: 1,
		Size:      int64(len(page.Content)),
		CreatedAt: time.Now(),
	}, nil
}

func htmlToText(s string) string {
	s = scriptPattern.ReplaceAllString(s, "")
	s = stylePattern.ReplaceAllString(s, "")
	s = tagPattern.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	return strings.TrimSpace(spacePattern.ReplaceAllString(s, " "))
}

func hostTitle(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "Web Page"
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}
