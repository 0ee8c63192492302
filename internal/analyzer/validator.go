// internal/analyzer/validator.go
package analyzer

import (
	"encoding/json"
	"strings"

	"insight-agent/internal/common/logger"
	"insight-agent/internal/common/metrics"
	"insight-agent/internal/models"

	"github.com/xeipuuv/gojsonschema"
)

// companyInfoSchema is the contract the model is instructed to follow.
// Validation failures never fail the request; they mark fields for
// sentinel substitution.
const companyInfoSchema = `{
	"type": "object",
	"required": [
		"industry",
		"company_size",
		"location",
		"core_products_services",
		"unique_selling_proposition",
		"target_audience"
	],
	"properties": {
		"industry": {"type": "string"},
		"company_size": {"type": "string"},
		"location": {"type": "string"},
		"core_products_services": {"type": "array", "items": {"type": "string"}},
		"unique_selling_proposition": {"type": "string"},
		"target_audience": {"type": "string"},
		"extracted_answers": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"question": {"type": "string"},
					"answer": {"type": "string"}
				}
			}
		}
	}
}`

// Extractor recovers a structured block from free-form model output. The
// recovery rules are heuristic, so they live behind this strategy
// interface rather than inside the validator.
type Extractor interface {
	Extract(raw string) (string, bool)
}

// Validator parses raw model text into the fixed result shape. Malformed
// output is an expected, recoverable condition: the validator never
// returns an error, it degrades.
type Validator struct {
	extractor Extractor
	schema    *gojsonschema.Schema
	logger    logger.Logger
}

func NewValidator(log logger.Logger) *Validator {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(companyInfoSchema))
	if err != nil {
		// The schema is a compile-time constant; this cannot happen for a
		// well-formed build.
		panic("analyzer: invalid company info schema: " + err.Error())
	}
	return &Validator{
		extractor: FencedJSONExtractor{},
		schema:    schema,
		logger:    log.WithFields(map[string]interface{}{"component": "validator"}),
	}
}

// ParseAnalysis turns raw model text into CompanyInfo plus answers
// reconciled against the input question order. degraded reports that the
// output could not be fully parsed and sentinel substitution occurred.
func (v *Validator) ParseAnalysis(raw string, questions []string) (models.CompanyInfo, []models.ExtractedAnswer, bool) {
	parsed, ok := v.parseObject(raw)
	if !ok {
		v.logger.Warn("model output unparseable, serving sentinel result", map[string]interface{}{
			"rawLength": len(raw),
		})
		metrics.ExtractionDegraded.Inc()
		return models.NewCompanyInfo(), sentinelAnswers(questions), true
	}

	degraded := false
	if result, err := v.schema.Validate(gojsonschema.NewGoLoader(parsed)); err != nil || !result.Valid() {
		degraded = true
	}

	info := models.NewCompanyInfo()
	info.Industry = stringField(parsed, "industry")
	info.CompanySize = stringField(parsed, "company_size")
	info.Location = stringField(parsed, "location")
	info.CoreProductsServices = stringListField(parsed, "core_products_services")
	info.UniqueSellingProposition = stringField(parsed, "unique_selling_proposition")
	info.TargetAudience = stringField(parsed, "target_audience")

	answers := reconcileAnswers(questions, answersField(parsed))
	if len(questions) > 0 && rawAnswerMissing(parsed) {
		degraded = true
	}

	if degraded {
		metrics.ExtractionDegraded.Inc()
	}
	return info, answers, degraded
}

// parseObject tries a strict parse first, then the bounded best-effort
// extraction.
func (v *Validator) parseObject(raw string) (map[string]interface{}, bool) {
	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &parsed); err == nil {
		return parsed, true
	}

	candidate, ok := v.extractor.Extract(raw)
	if !ok {
		return nil, false
	}
	if err := json.Unmarshal([]byte(candidate), &parsed); err != nil {
		return nil, false
	}
	return parsed, true
}

// ==========================
// Field Helpers
// ==========================

func stringField(m map[string]interface{}, key string) string {
	if s, ok := m[key].(string); ok {
		if t := strings.TrimSpace(s); t != "" {
			return t
		}
	}
	return models.Sentinel
}

func stringListField(m map[string]interface{}, key string) []string {
	items, ok := m[key].([]interface{})
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			if t := strings.TrimSpace(s); t != "" {
				out = append(out, t)
			}
		}
	}
	return out
}

func answersField(m map[string]interface{}) []models.ExtractedAnswer {
	items, ok := m["extracted_answers"].([]interface{})
	if !ok {
		return nil
	}
	var out []models.ExtractedAnswer
	for _, item := range items {
		entry, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		q, _ := entry["question"].(string)
		a, _ := entry["answer"].(string)
		if strings.TrimSpace(q) == "" && strings.TrimSpace(a) == "" {
			continue
		}
		out = append(out, models.ExtractedAnswer{Question: q, Answer: strings.TrimSpace(a)})
	}
	return out
}

func rawAnswerMissing(m map[string]interface{}) bool {
	_, ok := m["extracted_answers"].([]interface{})
	return !ok
}

func sentinelAnswers(questions []string) []models.ExtractedAnswer {
	out := make([]models.ExtractedAnswer, len(questions))
	for i, q := range questions {
		out[i] = models.ExtractedAnswer{Question: q, Answer: models.Sentinel}
	}
	return out
}

// reconcileAnswers maps the model's answers back onto the input question
// order: exact text match first, then normalized match, then position.
// Questions the model skipped get the sentinel answer.
func reconcileAnswers(questions []string, raw []models.ExtractedAnswer) []models.ExtractedAnswer {
	out := make([]models.ExtractedAnswer, len(questions))
	used := make([]bool, len(raw))

	match := func(q string, normalize bool) int {
		for i, a := range raw {
			if used[i] {
				continue
			}
			candidate := a.Question
			target := q
			if normalize {
				candidate = normalizeQuestion(candidate)
				target = normalizeQuestion(target)
			}
			if candidate == target {
				return i
			}
		}
		return -1
	}

	for qi, q := range questions {
		idx := match(q, false)
		if idx < 0 {
			idx = match(q, true)
		}
		if idx >= 0 {
			used[idx] = true
			out[qi] = models.ExtractedAnswer{Question: q, Answer: raw[idx].Answer}
			if out[qi].Answer == "" {
				out[qi].Answer = models.Sentinel
			}
		}
	}

	// Positional fallback for anything still unmatched, consuming leftover
	// answers in order.
	next := 0
	for qi := range out {
		if out[qi].Question != "" {
			continue
		}
		answer := models.Sentinel
		for next < len(raw) {
			if !used[next] {
				used[next] = true
				if raw[next].Answer != "" {
					answer = raw[next].Answer
				}
				next++
				break
			}
			next++
		}
		out[qi] = models.ExtractedAnswer{Question: questions[qi], Answer: answer}
	}

	return out
}

func normalizeQuestion(q string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(q), "?.! ")
	return strings.Join(strings.Fields(strings.ToLower(trimmed)), " ")
}
