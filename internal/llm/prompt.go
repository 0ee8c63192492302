// internal/llm/prompt.go
package llm

import (
	"fmt"
	"strings"

	"insight-agent/internal/models"
	"insight-agent/internal/scraper"
)

// analysisSystemPrompt forces the model into returning a clean JSON
// object matching the CompanyInfo shape, with the sentinel for anything
// it cannot find.
const analysisSystemPrompt = `You are an expert business analyst AI. Your task is to analyze the content from a company's homepage and extract key business information.
Respond ONLY with a single, valid JSON object. Do not include any text, explanations, or markdown formatting before or after the JSON.
The JSON object must strictly follow this structure:
{
  "industry": "A specific industry category (e.g., 'Financial Technology', 'E-commerce', 'Healthcare SaaS') or 'N/A' if not found.",
  "company_size": "An estimated size (e.g., 'Startup (1-10 employees)', 'Medium (50-200 employees)', 'Large Enterprise (>1000 employees)') or 'N/A' if not found.",
  "location": "The primary headquarters or location (e.g., 'San Francisco, CA, USA') or 'N/A' if not found.",
  "core_products_services": ["A list of the main products or services offered."],
  "unique_selling_proposition": "A concise, one-sentence summary of what makes the company unique.",
  "target_audience": "A description of the primary customer demographic (e.g., 'Small to Medium Businesses (SMBs)', 'Individual Consumers', 'Large Enterprises')."
}
Every key must be present. If information for a field is not available in the provided text, use "N/A" for strings and an empty list [] for arrays. Never omit a key and never use null.`

const chatSystemPrompt = `You are a helpful and conversational AI agent. Your purpose is to answer questions about a company based on the content of their website.
Use the 'Website Content Context' and the 'Conversation History' to provide a comprehensive answer to the 'User's Latest Query'.
Be conversational and clear. If the information is not present in the provided context, state that you cannot find the answer on the homepage.`

// PromptBuilder assembles schema-constrained instructions from page
// content, questions, and conversation history.
type PromptBuilder struct {
	maxContentChars int
	historyTurns    int
}

func NewPromptBuilder(maxContentChars, historyTurns int) *PromptBuilder {
	return &PromptBuilder{
		maxContentChars: maxContentChars,
		historyTurns:    historyTurns,
	}
}

// Analysis builds the structured-extraction prompt. When questions are
// supplied the model is asked for an extracted_answers array answered in
// the same order.
func (b *PromptBuilder) Analysis(content *scraper.PageContent, questions []string) Prompt {
	system := analysisSystemPrompt
	if len(questions) > 0 {
		var sb strings.Builder
		sb.WriteString(system)
		sb.WriteString("\nAdditionally, the JSON object must contain a key \"extracted_answers\": an array of objects {\"question\": string, \"answer\": string}, answering each of the following questions in this exact order using only the provided text. If the answer is not in the text, set the answer to \"N/A\".\n")
		for i, q := range questions {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, q)
		}
		system = sb.String()
	}

	return Prompt{
		Messages: []Message{
			{Role: RoleSystem, Content: system},
			{Role: RoleUser, Content: b.contextText(content)},
		},
		JSONMode: true,
	}
}

// Chat builds the follow-up prompt: page context, bounded history oldest
// first, then the new query.
func (b *PromptBuilder) Chat(content *scraper.PageContent, history []models.Turn, query string) Prompt {
	messages := []Message{
		{Role: RoleSystem, Content: chatSystemPrompt},
		{Role: RoleSystem, Content: "Website Content Context:\n" + b.contextText(content)},
	}

	if bounded := b.boundHistory(history); len(bounded) > 0 {
		var sb strings.Builder
		sb.WriteString("Conversation History:\n")
		for _, turn := range bounded {
			fmt.Fprintf(&sb, "User: %s\nAI: %s\n", turn.UserQuery, turn.AgentResponse)
		}
		messages = append(messages, Message{Role: RoleSystem, Content: sb.String()})
	}

	messages = append(messages, Message{Role: RoleUser, Content: "User's Latest Query: " + query})

	return Prompt{Messages: messages}
}

// boundHistory keeps only the most recent historyTurns turns; older turns
// are dropped.
func (b *PromptBuilder) boundHistory(history []models.Turn) []models.Turn {
	if b.historyTurns <= 0 || len(history) <= b.historyTurns {
		return history
	}
	return history[len(history)-b.historyTurns:]
}

func (b *PromptBuilder) contextText(content *scraper.PageContent) string {
	return fmt.Sprintf("Title: %s\nMeta Description: %s\n\n--- Website Content ---\n%s",
		content.Title, content.Description, b.truncate(content.Text))
}

// truncate keeps the leading maxContentChars runes of the normalized
// text. The cut point is deterministic: rune boundaries, no heuristics.
func (b *PromptBuilder) truncate(text string) string {
	if b.maxContentChars <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= b.maxContentChars {
		return text
	}
	return string(runes[:b.maxContentChars])
}
