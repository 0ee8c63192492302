// internal/scraper/models.go
package scraper

// PageContent is the normalized, markup-free view of a homepage.
type PageContent struct {
	URL         string            `json:"url"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Text        string            `json:"text"`
	Emails      []string          `json:"emails"`
	Phones      []string          `json:"phones"`
	SocialLinks map[string]string `json:"social_links"`
}
