// internal/scraper/scraper.go
package scraper

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"insight-agent/internal/common/config"
	apperrors "insight-agent/internal/common/errors"
	"insight-agent/internal/common/logger"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

// maxBodyBytes caps how much HTML is read from the upstream page.
const maxBodyBytes = 5 << 20

var (
	reWhitespace = regexp.MustCompile(`\s+`)
	reEmail      = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	rePhone      = regexp.MustCompile(`(\(?\+?\d{1,3}\)?[\s.-]?)?\(?\d{3}\)?[\s.-]?\d{3}[\s.-]?\d{4}`)

	// content-bearing container candidates, most specific first
	reContentClass = regexp.MustCompile(`(?i)content|main|post`)

	socialPatterns = map[string]*regexp.Regexp{
		"linkedin":  regexp.MustCompile(`(?i)https?://(www\.)?linkedin\.com/company/[a-zA-Z0-9_-]+`),
		"twitter":   regexp.MustCompile(`(?i)https?://(www\.)?(twitter|x)\.com/[a-zA-Z0-9_]+`),
		"facebook":  regexp.MustCompile(`(?i)https?://(www\.)?facebook\.com/[a-zA-Z0-9_.-]+`),
		"instagram": regexp.MustCompile(`(?i)https?://(www\.)?instagram\.com/[a-zA-Z0-9_.]+`),
	}
)

// Scraper retrieves and normalizes homepage content. It applies a fetch
// timeout and a redirect bound and never retries; retry policy belongs to
// the caller.
type Scraper struct {
	cfg    config.ScraperConfig
	client *http.Client
	logger logger.Logger
}

func New(cfg config.ScraperConfig, log logger.Logger) *Scraper {
	maxRedirects := cfg.MaxRedirects
	return &Scraper{
		cfg: cfg,
		client: &http.Client{
			Timeout: config.GetDuration(cfg.Timeout),
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
		logger: log.WithFields(map[string]interface{}{"component": "scraper"}),
	}
}

// Fetch downloads the homepage at rawURL and extracts its visible text,
// metadata, and contact details.
func (s *Scraper) Fetch(ctx context.Context, rawURL string) (*PageContent, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || !parsed.IsAbs() {
		return nil, apperrors.NewInvalidInputError(fmt.Sprintf("url must be absolute: %q", rawURL))
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, apperrors.NewInvalidInputError(fmt.Sprintf("unsupported scheme %q", parsed.Scheme))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return nil, apperrors.NewFetchFailedError(rawURL, err)
	}
	req.Header.Set("User-Agent", s.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn("fetch failed", map[string]interface{}{"url": rawURL, "error": err.Error()})
		return nil, apperrors.NewFetchFailedError(rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperrors.NewFetchStatusError(rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, apperrors.NewFetchFailedError(rawURL, err)
	}

	content, err := s.extract(parsed, body)
	if err != nil {
		return nil, err
	}

	s.logger.Info("scraped homepage", map[string]interface{}{
		"url":   rawURL,
		"chars": len(content.Text),
	})
	return content, nil
}

func (s *Scraper) extract(pageURL *url.URL, body []byte) (*PageContent, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.NewFetchFailedError(pageURL.String(), err)
	}

	title := normalizeText(doc.Find("title").First().Text())
	description, _ := doc.Find(`meta[name="description"]`).First().Attr("content")
	description = normalizeText(description)

	// Full text before decomposition, used for contact-info scanning.
	rawText := doc.Find("body").Text()

	doc.Find("script, style, nav, footer, header, aside, form, noscript, iframe").Remove()

	text := blockText(findMainContent(doc))
	if text == "" {
		// goquery found no content-bearing blocks; let readability take a
		// pass at the original document.
		if article, rerr := readability.FromReader(bytes.NewReader(body), pageURL); rerr == nil {
			text = normalizeText(article.TextContent)
		}
	}
	if text == "" {
		text = normalizeText(doc.Find("body").Text())
	}
	if text == "" {
		return nil, apperrors.NewContentUnusableError(pageURL.String())
	}

	return &PageContent{
		URL:         pageURL.String(),
		Title:       title,
		Description: description,
		Text:        text,
		Emails:      uniqueMatches(reEmail, rawText),
		Phones:      uniqueMatches(rePhone, rawText),
		SocialLinks: socialLinks(string(body)),
	}, nil
}

// findMainContent prefers the page's semantic content container and falls
// back to the whole body.
func findMainContent(doc *goquery.Document) *goquery.Selection {
	if sel := doc.Find("main").First(); sel.Length() > 0 {
		return sel
	}
	if sel := doc.Find("article").First(); sel.Length() > 0 {
		return sel
	}
	var byClass *goquery.Selection
	doc.Find("div[class]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		class, _ := s.Attr("class")
		if reContentClass.MatchString(class) {
			byClass = s
			return false
		}
		return true
	})
	if byClass != nil {
		return byClass
	}
	return doc.Find("body")
}

// blockText collects titles, headings, paragraphs, and list items as
// newline-separated normalized lines.
func blockText(sel *goquery.Selection) string {
	if sel == nil || sel.Length() == 0 {
		return ""
	}
	var parts []string
	sel.Find("h1, h2, h3, h4, h5, h6, p, li").Each(func(_ int, s *goquery.Selection) {
		if t := normalizeText(s.Text()); t != "" {
			parts = append(parts, t)
		}
	})
	return strings.Join(parts, "\n")
}

func normalizeText(text string) string {
	text = reWhitespace.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

func uniqueMatches(re *regexp.Regexp, text string) []string {
	seen := map[string]bool{}
	var out []string
	for _, m := range re.FindAllString(text, -1) {
		m = strings.TrimSpace(m)
		if m != "" && !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	sort.Strings(out)
	return out
}

func socialLinks(html string) map[string]string {
	links := map[string]string{}
	for platform, re := range socialPatterns {
		if m := re.FindString(html); m != "" {
			links[platform] = m
		}
	}
	return links
}
