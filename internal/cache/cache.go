// internal/cache/cache.go
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"insight-agent/internal/common/config"
	"insight-agent/internal/common/logger"
	"insight-agent/internal/common/metrics"
	"insight-agent/internal/models"
	"insight-agent/internal/scraper"

	"github.com/redis/go-redis/v9"
)

// Store is the shared TTL key/value service backing the cache. Expiry is
// enforced by the store itself; this package keeps no TTL bookkeeping of
// its own.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
}

// Cache memoizes fetched page content and completed analysis results.
// Concurrent writers for the same key are acceptable: the value is a
// deterministic function of the key, so last writer wins.
type Cache struct {
	store       Store
	contentTTL  time.Duration
	analysisTTL time.Duration
	logger      logger.Logger
}

func New(store Store, cfg config.CacheConfig, log logger.Logger) *Cache {
	return &Cache{
		store:       store,
		contentTTL:  config.GetDuration(cfg.ContentTTL),
		analysisTTL: config.GetDuration(cfg.AnalysisTTL),
		logger:      log.WithFields(map[string]interface{}{"component": "cache"}),
	}
}

// GetContent returns cached page content for the URL, or nil on a miss.
func (c *Cache) GetContent(ctx context.Context, rawURL string) *scraper.PageContent {
	var content scraper.PageContent
	if !c.get(ctx, ContentKey(rawURL), &content) {
		return nil
	}
	metrics.CacheHits.WithLabelValues("content").Inc()
	return &content
}

func (c *Cache) PutContent(ctx context.Context, rawURL string, content *scraper.PageContent) {
	c.put(ctx, ContentKey(rawURL), content, c.contentTTL)
}

// GetAnalysis returns the cached result for the URL and question set, or
// nil on a miss. A hit is returned exactly as stored so repeated requests
// within the TTL are bit-identical.
func (c *Cache) GetAnalysis(ctx context.Context, rawURL string, questions []string) *models.AnalysisResult {
	var result models.AnalysisResult
	if !c.get(ctx, AnalysisKey(rawURL, questions), &result) {
		return nil
	}
	metrics.CacheHits.WithLabelValues("analysis").Inc()
	return &result
}

func (c *Cache) PutAnalysis(ctx context.Context, rawURL string, questions []string, result *models.AnalysisResult) {
	c.put(ctx, AnalysisKey(rawURL, questions), result, c.analysisTTL)
}

func (c *Cache) get(ctx context.Context, key string, out interface{}) bool {
	val, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("cache read failed", map[string]interface{}{"key": key, "error": err.Error()})
		}
		return false
	}
	if err := json.Unmarshal([]byte(val), out); err != nil {
		c.logger.Warn("cache entry corrupt", map[string]interface{}{"key": key, "error": err.Error()})
		return false
	}
	return true
}

func (c *Cache) put(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Error("cache marshal failed", map[string]interface{}{"key": key, "error": err.Error()})
		return
	}
	if err := c.store.Set(ctx, key, data, ttl); err != nil {
		// A failed write only loses memoization, never correctness.
		c.logger.Warn("cache write failed", map[string]interface{}{"key": key, "error": err.Error()})
	}
}

// ==========================
// Key Derivation
// ==========================

// ContentKey keys scraped page content by normalized URL.
func ContentKey(rawURL string) string {
	return "content:" + NormalizeURL(rawURL)
}

// AnalysisKey keys analysis results by normalized URL plus the sorted
// question set, so different question sets never collide and identical
// sets (in any order) hit the same entry.
func AnalysisKey(rawURL string, questions []string) string {
	if len(questions) == 0 {
		return "analysis:" + NormalizeURL(rawURL) + ":none"
	}
	sorted := append([]string(nil), questions...)
	sort.Strings(sorted)
	sum := sha256.Sum256([]byte(strings.Join(sorted, "\n")))
	return fmt.Sprintf("analysis:%s:%x", NormalizeURL(rawURL), sum[:16])
}

// NormalizeURL lower-cases scheme and host, drops default ports and
// fragments, and trims the trailing slash. Invalid URLs pass through
// unchanged; they fail input validation before reaching the cache.
func NormalizeURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	parsed.Scheme = strings.ToLower(parsed.Scheme)
	host := strings.ToLower(parsed.Hostname())
	if port := parsed.Port(); port != "" &&
		!(parsed.Scheme == "http" && port == "80") &&
		!(parsed.Scheme == "https" && port == "443") {
		host = host + ":" + port
	}
	parsed.Host = host
	parsed.Fragment = ""
	parsed.Path = strings.TrimSuffix(parsed.Path, "/")
	return parsed.String()
}
