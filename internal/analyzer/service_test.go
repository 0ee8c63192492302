// internal/analyzer/service_test.go
package analyzer

import (
	"context"
	"errors"
	"testing"
	"time"

	"insight-agent/internal/cache"
	"insight-agent/internal/common/config"
	"insight-agent/internal/common/database"
	apperrors "insight-agent/internal/common/errors"
	"insight-agent/internal/common/logger"
	"insight-agent/internal/llm"
	"insight-agent/internal/models"
	"insight-agent/internal/ratelimit"
	"insight-agent/internal/scraper"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

type stubFetcher struct {
	content *scraper.PageContent
	err     error
	calls   int
}

func (f *stubFetcher) Fetch(ctx context.Context, rawURL string) (*scraper.PageContent, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.content, nil
}

type stubCompleter struct {
	response string
	err      error
	calls    int
}

func (c *stubCompleter) Complete(ctx context.Context, prompt llm.Prompt) (string, error) {
	c.calls++
	if c.err != nil {
		return "", c.err
	}
	return c.response, nil
}

type stubAdmitter struct {
	decision ratelimit.Decision
}

func (a *stubAdmitter) Allow(ctx context.Context, identity string) ratelimit.Decision {
	return a.decision
}

func allowAll() *stubAdmitter {
	return &stubAdmitter{decision: ratelimit.Decision{Allowed: true, Remaining: 4}}
}

func denyAll(retryAfter time.Duration) *stubAdmitter {
	return &stubAdmitter{decision: ratelimit.Decision{Allowed: false, RetryAfter: retryAfter}}
}

func testPage() *scraper.PageContent {
	return &scraper.PageContent{
		URL:         "https://acme.example",
		Title:       "Acme Corp",
		Description: "Everything store",
		Text:        "We build industrial-grade anvils and rockets.",
		Emails:      []string{"sales@acme.example"},
		Phones:      []string{"+1 555 123 4567"},
		SocialLinks: map[string]string{"linkedin": "https://linkedin.com/company/acme-corp"},
	}
}

const modelAnalysisJSON = `{
	"industry": "Manufacturing",
	"company_size": "Medium (50-200 employees)",
	"location": "Toledo, OH, USA",
	"core_products_services": ["Anvils", "Rockets"],
	"unique_selling_proposition": "Industrial-grade hardware for every coyote.",
	"target_audience": "Small to Medium Businesses (SMBs)",
	"extracted_answers": [
		{"question": "What do they sell?", "answer": "Anvils and rockets"}
	]
}`

type testEnv struct {
	service   *Service
	fetcher   *stubFetcher
	completer *stubCompleter
}

func newTestService(t *testing.T, fetcher *stubFetcher, completer *stubCompleter, analyze, chat Admitter) *testEnv {
	mr := miniredis.RunT(t)
	client := &database.RedisClient{Client: redis.NewClient(&redis.Options{Addr: mr.Addr()})}
	t.Cleanup(func() { client.Close() })

	log := logger.NewTestLogger(t)
	store := cache.New(client, config.CacheConfig{ContentTTL: 600000, AnalysisTTL: 1800000}, log)

	service := NewService(Deps{
		Fetcher:        fetcher,
		Gateway:        completer,
		Cache:          store,
		AnalyzeLimiter: analyze,
		ChatLimiter:    chat,
		Prompts:        llm.NewPromptBuilder(16000, 10),
		Deadline:       30 * time.Second,
	}, log)

	return &testEnv{service: service, fetcher: fetcher, completer: completer}
}

// ==========================
// Analyze Pipeline Tests
// ==========================

func TestService_AnalyzeSuccess(t *testing.T) {
	env := newTestService(t,
		&stubFetcher{content: testPage()},
		&stubCompleter{response: modelAnalysisJSON},
		allowAll(), allowAll())

	req := &models.AnalysisRequest{
		URL:       "https://acme.example",
		Questions: []string{"What do they sell?"},
	}
	result, err := env.service.Analyze(context.Background(), "caller-a", req)
	require.NoError(t, err)

	assert.Equal(t, "https://acme.example", result.URL)
	assert.False(t, result.Degraded)
	assert.Equal(t, "Manufacturing", result.CompanyInfo.Industry)
	assert.Equal(t, []string{"Anvils", "Rockets"}, result.CompanyInfo.CoreProductsServices)

	require.Len(t, result.ExtractedAnswers, 1)
	assert.Equal(t, "Anvils and rockets", result.ExtractedAnswers[0].Answer)

	_, err = time.Parse(time.RFC3339, result.AnalysisTimestamp)
	assert.NoError(t, err, "timestamp must be RFC3339")
}

func TestService_AnalyzeDerivesContactInfoFromPage(t *testing.T) {
	env := newTestService(t,
		&stubFetcher{content: testPage()},
		&stubCompleter{response: modelAnalysisJSON},
		allowAll(), allowAll())

	result, err := env.service.Analyze(context.Background(), "caller-a",
		&models.AnalysisRequest{URL: "https://acme.example"})
	require.NoError(t, err)

	assert.Equal(t, "sales@acme.example", result.CompanyInfo.ContactInfo.Email)
	assert.Equal(t, "+1 555 123 4567", result.CompanyInfo.ContactInfo.Phone)
	assert.Equal(t, "https://linkedin.com/company/acme-corp",
		result.CompanyInfo.ContactInfo.SocialMedia["linkedin"])
}

func TestService_AnalyzeCachedResultSkipsPipeline(t *testing.T) {
	env := newTestService(t,
		&stubFetcher{content: testPage()},
		&stubCompleter{response: modelAnalysisJSON},
		allowAll(), allowAll())

	req := &models.AnalysisRequest{URL: "https://acme.example", Questions: []string{"q?"}}
	ctx := context.Background()

	first, err := env.service.Analyze(ctx, "caller-a", req)
	require.NoError(t, err)

	second, err := env.service.Analyze(ctx, "caller-a", req)
	require.NoError(t, err)

	assert.Equal(t, 1, env.fetcher.calls, "cache hit must not refetch")
	assert.Equal(t, 1, env.completer.calls, "cache hit must not call the model")
	assert.Equal(t, first, second, "repeated requests inside the TTL are identical")
}

func TestService_AnalyzeRateLimited(t *testing.T) {
	env := newTestService(t,
		&stubFetcher{content: testPage()},
		&stubCompleter{response: modelAnalysisJSON},
		denyAll(30*time.Second), allowAll())

	_, err := env.service.Analyze(context.Background(), "caller-a",
		&models.AnalysisRequest{URL: "https://acme.example"})
	require.Error(t, err)

	stdErr := apperrors.AsStandard(err)
	assert.Equal(t, apperrors.ErrCodeRateLimitExceeded, stdErr.Code)
	assert.Equal(t, 31, stdErr.RetryAfterSeconds())
	assert.Equal(t, 0, env.fetcher.calls, "rejected requests never reach the fetch stage")
}

func TestService_AnalyzeInvalidURL(t *testing.T) {
	env := newTestService(t,
		&stubFetcher{content: testPage()},
		&stubCompleter{response: modelAnalysisJSON},
		allowAll(), allowAll())

	for _, bad := range []string{"", "not a url", "ftp://acme.example"} {
		_, err := env.service.Analyze(context.Background(), "caller-a",
			&models.AnalysisRequest{URL: bad})
		require.Error(t, err, "url %q", bad)
		assert.Equal(t, apperrors.ErrCodeInvalidInput, apperrors.AsStandard(err).Code)
	}
}

func TestService_AnalyzeFetchFailureIsNotCached(t *testing.T) {
	fetcher := &stubFetcher{err: apperrors.NewFetchStatusError("https://acme.example", 503)}
	env := newTestService(t, fetcher,
		&stubCompleter{response: modelAnalysisJSON},
		allowAll(), allowAll())

	req := &models.AnalysisRequest{URL: "https://acme.example"}
	ctx := context.Background()

	_, err := env.service.Analyze(ctx, "caller-a", req)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeFetchFailed, apperrors.AsStandard(err).Code)

	_, err = env.service.Analyze(ctx, "caller-a", req)
	require.Error(t, err)
	assert.Equal(t, 2, fetcher.calls, "failed fetches leave no cache entry behind")
	assert.Equal(t, 0, env.completer.calls)
}

func TestService_AnalyzeBackendFailure(t *testing.T) {
	env := newTestService(t,
		&stubFetcher{content: testPage()},
		&stubCompleter{err: apperrors.NewBackendUnavailableError(errors.New("all down"))},
		allowAll(), allowAll())

	_, err := env.service.Analyze(context.Background(), "caller-a",
		&models.AnalysisRequest{URL: "https://acme.example"})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeBackendUnavailable, apperrors.AsStandard(err).Code)
}

func TestService_AnalyzeAbsorbsMalformedModelOutput(t *testing.T) {
	env := newTestService(t,
		&stubFetcher{content: testPage()},
		&stubCompleter{response: "Sorry, I ate the JSON."},
		allowAll(), allowAll())

	result, err := env.service.Analyze(context.Background(), "caller-a",
		&models.AnalysisRequest{URL: "https://acme.example", Questions: []string{"q?"}})
	require.NoError(t, err, "malformed model output degrades, never fails")

	assert.True(t, result.Degraded)
	assert.Equal(t, models.Sentinel, result.CompanyInfo.Industry)
	require.Len(t, result.ExtractedAnswers, 1)
	assert.Equal(t, models.Sentinel, result.ExtractedAnswers[0].Answer)
	assert.Equal(t, "sales@acme.example", result.CompanyInfo.ContactInfo.Email,
		"scraped contact details survive a degraded model response")
}

// ==========================
// Chat Pipeline Tests
// ==========================

func TestService_ChatSuccess(t *testing.T) {
	env := newTestService(t,
		&stubFetcher{content: testPage()},
		&stubCompleter{response: "They sell anvils and rockets."},
		allowAll(), allowAll())

	result, err := env.service.Chat(context.Background(), "caller-a", &models.ChatRequest{
		URL:   "https://acme.example",
		Query: "What do they sell?",
	})
	require.NoError(t, err)

	assert.Equal(t, "What do they sell?", result.UserQuery)
	assert.Equal(t, "They sell anvils and rockets.", result.AgentResponse)
	assert.Equal(t, []string{"homepage_content"}, result.ContextSources)
}

func TestService_ChatReportsHistorySource(t *testing.T) {
	env := newTestService(t,
		&stubFetcher{content: testPage()},
		&stubCompleter{response: "Yes."},
		allowAll(), allowAll())

	result, err := env.service.Chat(context.Background(), "caller-a", &models.ChatRequest{
		URL:   "https://acme.example",
		Query: "And rockets too?",
		ConversationHistory: []models.Turn{
			{UserQuery: "Do they sell anvils?", AgentResponse: "They do."},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"homepage_content", "conversation_history"}, result.ContextSources)
}

func TestService_ChatRejectsEmptyQuery(t *testing.T) {
	env := newTestService(t,
		&stubFetcher{content: testPage()},
		&stubCompleter{response: "x"},
		allowAll(), allowAll())

	_, err := env.service.Chat(context.Background(), "caller-a", &models.ChatRequest{
		URL:   "https://acme.example",
		Query: "   ",
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeInvalidInput, apperrors.AsStandard(err).Code)
}

func TestService_ChatReusesCachedContent(t *testing.T) {
	env := newTestService(t,
		&stubFetcher{content: testPage()},
		&stubCompleter{response: modelAnalysisJSON},
		allowAll(), allowAll())
	ctx := context.Background()

	_, err := env.service.Analyze(ctx, "caller-a",
		&models.AnalysisRequest{URL: "https://acme.example"})
	require.NoError(t, err)

	_, err = env.service.Chat(ctx, "caller-a", &models.ChatRequest{
		URL:   "https://acme.example",
		Query: "Anything else?",
	})
	require.NoError(t, err)

	assert.Equal(t, 1, env.fetcher.calls, "chat reuses content fetched for analysis")
}

func TestService_ChatRateLimitedIndependently(t *testing.T) {
	env := newTestService(t,
		&stubFetcher{content: testPage()},
		&stubCompleter{response: "x"},
		denyAll(time.Minute), allowAll())

	_, err := env.service.Chat(context.Background(), "caller-a", &models.ChatRequest{
		URL:   "https://acme.example",
		Query: "hello",
	})
	require.NoError(t, err, "the analyze budget must not throttle chat")
}
