// internal/models/analysis.go
package models

// Sentinel marks a field the model could not populate. It is always
// emitted in place of the value, never omitted and never null.
const Sentinel = "N/A"

// AnalysisRequest is the body of POST /analyze.
type AnalysisRequest struct {
	URL       string   `json:"url"`
	Questions []string `json:"questions,omitempty"`
}

// CompanyInfo is the fixed-shape business profile extracted from a
// homepage. Every field is always present; unknown strings carry the
// sentinel and unknown lists are empty.
type CompanyInfo struct {
	Industry                 string      `json:"industry"`
	CompanySize              string      `json:"company_size"`
	Location                 string      `json:"location"`
	CoreProductsServices     []string    `json:"core_products_services"`
	UniqueSellingProposition string      `json:"unique_selling_proposition"`
	TargetAudience           string      `json:"target_audience"`
	ContactInfo              ContactInfo `json:"contact_info"`
}

// ContactInfo is derived from the scraped page text directly, not from
// the model.
type ContactInfo struct {
	Email       string            `json:"email"`
	Phone       string            `json:"phone"`
	SocialMedia map[string]string `json:"social_media"`
}

// NewCompanyInfo returns a CompanyInfo with every field set to its
// sentinel/empty value.
func NewCompanyInfo() CompanyInfo {
	return CompanyInfo{
		Industry:                 Sentinel,
		CompanySize:              Sentinel,
		Location:                 Sentinel,
		CoreProductsServices:     []string{},
		UniqueSellingProposition: Sentinel,
		TargetAudience:           Sentinel,
		ContactInfo: ContactInfo{
			Email:       Sentinel,
			Phone:       Sentinel,
			SocialMedia: map[string]string{},
		},
	}
}

// ExtractedAnswer pairs an input question with the model's answer, in
// the order the questions were supplied.
type ExtractedAnswer struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// AnalysisResult is the body of a successful /analyze response.
type AnalysisResult struct {
	URL               string            `json:"url"`
	AnalysisTimestamp string            `json:"analysis_timestamp"`
	CompanyInfo       CompanyInfo       `json:"company_info"`
	ExtractedAnswers  []ExtractedAnswer `json:"extracted_answers"`
	Degraded          bool              `json:"degraded,omitempty"`
}
