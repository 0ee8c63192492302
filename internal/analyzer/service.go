// internal/analyzer/service.go
package analyzer

import (
	"context"
	"net/url"
	"strings"
	"time"

	apperrors "insight-agent/internal/common/errors"
	"insight-agent/internal/common/logger"
	"insight-agent/internal/common/metrics"
	"insight-agent/internal/llm"
	"insight-agent/internal/models"
	"insight-agent/internal/ratelimit"
	"insight-agent/internal/scraper"

	"github.com/google/uuid"
)

// Collaborator contracts, defined where they are consumed so tests can
// substitute in-memory fakes.

// Fetcher retrieves normalized homepage content.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*scraper.PageContent, error)
}

// Completer dispatches a prompt to the model backend chain.
type Completer interface {
	Complete(ctx context.Context, prompt llm.Prompt) (string, error)
}

// ResultCache memoizes fetched content and analysis results.
type ResultCache interface {
	GetContent(ctx context.Context, rawURL string) *scraper.PageContent
	PutContent(ctx context.Context, rawURL string, content *scraper.PageContent)
	GetAnalysis(ctx context.Context, rawURL string, questions []string) *models.AnalysisResult
	PutAnalysis(ctx context.Context, rawURL string, questions []string, result *models.AnalysisResult)
}

// Admitter checks one request against a per-identity budget.
type Admitter interface {
	Allow(ctx context.Context, identity string) ratelimit.Decision
}

// Service orchestrates the analysis pipeline. Per request the stages run
// strictly in order: rate check, cache check, fetch on miss, prompt
// build, model call, validate, cache write, respond. Once the model call
// succeeds the request always completes, degrading to sentinel-filled
// fields instead of failing.
type Service struct {
	fetcher        Fetcher
	gateway        Completer
	cache          ResultCache
	analyzeLimiter Admitter
	chatLimiter    Admitter
	prompts        *llm.PromptBuilder
	validator      *Validator
	deadline       time.Duration
	logger         logger.Logger
}

// Deps carries the injected collaborators.
type Deps struct {
	Fetcher        Fetcher
	Gateway        Completer
	Cache          ResultCache
	AnalyzeLimiter Admitter
	ChatLimiter    Admitter
	Prompts        *llm.PromptBuilder
	// Deadline bounds one whole request: fetch plus model budget.
	Deadline time.Duration
}

func NewService(deps Deps, log logger.Logger) *Service {
	return &Service{
		fetcher:        deps.Fetcher,
		gateway:        deps.Gateway,
		cache:          deps.Cache,
		analyzeLimiter: deps.AnalyzeLimiter,
		chatLimiter:    deps.ChatLimiter,
		prompts:        deps.Prompts,
		validator:      NewValidator(log),
		deadline:       deps.Deadline,
		logger:         log.WithFields(map[string]interface{}{"component": "analyzer"}),
	}
}

// Analyze scrapes the homepage, runs the structured extraction, and
// returns business insights plus answers to the caller's questions.
func (s *Service) Analyze(ctx context.Context, identity string, req *models.AnalysisRequest) (*models.AnalysisResult, error) {
	start := time.Now()
	log := s.logger.WithFields(map[string]interface{}{
		"requestId": uuid.NewString(),
		"operation": "analyze",
		"url":       req.URL,
	})

	if err := validateURL(req.URL); err != nil {
		metrics.RequestsTotal.WithLabelValues("analyze", "invalid").Inc()
		return nil, err
	}

	if decision := s.analyzeLimiter.Allow(ctx, identity); !decision.Allowed {
		metrics.RequestsTotal.WithLabelValues("analyze", "rate_limited").Inc()
		return nil, apperrors.NewRateLimitExceededError(decision.RetryAfter)
	}

	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	if cached := s.cache.GetAnalysis(ctx, req.URL, req.Questions); cached != nil {
		log.Info("analysis served from cache", nil)
		metrics.RequestsTotal.WithLabelValues("analyze", "cache_hit").Inc()
		return cached, nil
	}

	content, err := s.getContent(ctx, req.URL)
	if err != nil {
		metrics.RequestsTotal.WithLabelValues("analyze", "fetch_error").Inc()
		return nil, err
	}

	prompt := s.prompts.Analysis(content, req.Questions)
	raw, err := s.gateway.Complete(ctx, prompt)
	if err != nil {
		metrics.RequestsTotal.WithLabelValues("analyze", "backend_error").Inc()
		return nil, err
	}

	info, answers, degraded := s.validator.ParseAnalysis(raw, req.Questions)
	info.ContactInfo = contactInfo(content)

	result := &models.AnalysisResult{
		URL:               req.URL,
		AnalysisTimestamp: time.Now().UTC().Format(time.RFC3339),
		CompanyInfo:       info,
		ExtractedAnswers:  answers,
		Degraded:          degraded,
	}

	s.cache.PutAnalysis(ctx, req.URL, req.Questions, result)

	log.Info("analysis completed", map[string]interface{}{
		"questions":  len(req.Questions),
		"degraded":   degraded,
		"durationMs": time.Since(start).Milliseconds(),
	})
	metrics.RequestsTotal.WithLabelValues("analyze", "ok").Inc()
	metrics.RequestDuration.WithLabelValues("analyze").Observe(time.Since(start).Seconds())
	return result, nil
}

// Chat answers a follow-up question grounded in the same page content
// and the caller-supplied conversation history.
func (s *Service) Chat(ctx context.Context, identity string, req *models.ChatRequest) (*models.ChatResult, error) {
	start := time.Now()
	log := s.logger.WithFields(map[string]interface{}{
		"requestId": uuid.NewString(),
		"operation": "chat",
		"url":       req.URL,
	})

	if err := validateURL(req.URL); err != nil {
		metrics.RequestsTotal.WithLabelValues("chat", "invalid").Inc()
		return nil, err
	}
	if strings.TrimSpace(req.Query) == "" {
		metrics.RequestsTotal.WithLabelValues("chat", "invalid").Inc()
		return nil, apperrors.NewInvalidInputError("query must not be empty")
	}

	if decision := s.chatLimiter.Allow(ctx, identity); !decision.Allowed {
		metrics.RequestsTotal.WithLabelValues("chat", "rate_limited").Inc()
		return nil, apperrors.NewRateLimitExceededError(decision.RetryAfter)
	}

	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	content, err := s.getContent(ctx, req.URL)
	if err != nil {
		metrics.RequestsTotal.WithLabelValues("chat", "fetch_error").Inc()
		return nil, err
	}

	prompt := s.prompts.Chat(content, req.ConversationHistory, req.Query)
	response, err := s.gateway.Complete(ctx, prompt)
	if err != nil {
		metrics.RequestsTotal.WithLabelValues("chat", "backend_error").Inc()
		return nil, err
	}

	sources := []string{"homepage_content"}
	if len(req.ConversationHistory) > 0 {
		sources = append(sources, "conversation_history")
	}

	log.Info("chat completed", map[string]interface{}{
		"historyTurns": len(req.ConversationHistory),
		"durationMs":   time.Since(start).Milliseconds(),
	})
	metrics.RequestsTotal.WithLabelValues("chat", "ok").Inc()
	metrics.RequestDuration.WithLabelValues("chat").Observe(time.Since(start).Seconds())

	return &models.ChatResult{
		URL:            req.URL,
		UserQuery:      req.Query,
		AgentResponse:  strings.TrimSpace(response),
		ContextSources: sources,
	}, nil
}

// getContent serves page content from the cache, fetching and caching on
// a miss. Fetch failures write nothing.
func (s *Service) getContent(ctx context.Context, rawURL string) (*scraper.PageContent, error) {
	if cached := s.cache.GetContent(ctx, rawURL); cached != nil {
		return cached, nil
	}
	content, err := s.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	s.cache.PutContent(ctx, rawURL, content)
	return content, nil
}

func (s *Service) withDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.deadline <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.deadline)
}

func validateURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil || !parsed.IsAbs() || parsed.Host == "" {
		return apperrors.NewInvalidInputError("url must be an absolute HTTP(S) URL")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return apperrors.NewInvalidInputError("url scheme must be http or https")
	}
	return nil
}

// contactInfo builds the contact block from scraped data directly; this
// is more reliable than asking the model for it.
func contactInfo(content *scraper.PageContent) models.ContactInfo {
	info := models.ContactInfo{
		Email:       models.Sentinel,
		Phone:       models.Sentinel,
		SocialMedia: map[string]string{},
	}
	if len(content.Emails) > 0 {
		info.Email = content.Emails[0]
	}
	if len(content.Phones) > 0 {
		info.Phone = content.Phones[0]
	}
	if content.SocialLinks != nil {
		info.SocialMedia = content.SocialLinks
	}
	return info
}
