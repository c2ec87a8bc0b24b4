// Package extractor turns noisy missing-person HTML into validated records
// via an LLM, with bounded retry on transient extraction failure.
package extractor

import (
	"strings"

	"github.com/overwatch/retrace/internal/logger"
)

const systemPrompt = `You are a data extraction specialist. Your task is to extract missing person information from webpage content.

Rules:
1. Return ONLY a valid JSON array (no markdown, no extra text)
2. Extract ONLY complete records with name, age, gender, location, and date
3. Skip incomplete records
4. Return an empty array if no valid records are found
5. Do NOT invent data
6. Do NOT write to any database`

const recordSchemaDescription = `Each record in the array must match this schema:
{
  "name": "string",
  "age": number,
  "gender": "male|female|other",
  "last_seen_date": "ISO 8601 datetime string",
  "last_known_location": "string",
  "status": "missing|found",
  "description": "string or null",
  "photo_url": "string or null",
  "contact_name": "string or null",
  "contact_phone": "string or null"
}`

// BuildExtractionPrompt creates the prompt for one extraction attempt.
// sourceState is a contextual hint only; it never appears in the
// machine-checked output.
func BuildExtractionPrompt(content, sourceState string, maxContentSize int) string {
	var prompt strings.Builder

	prompt.WriteString("Extract missing person records from the following webpage content.\n\n")
	prompt.WriteString(recordSchemaDescription)
	prompt.WriteString("\n\nDate handling:\n")
	prompt.WriteString("- Source dates use day-first formats: DD-MM-YYYY, DD/MM/YYYY, DD MMM YYYY\n")
	prompt.WriteString("- Standardize gender to male, female, or other\n")

	if sourceState != "" {
		prompt.WriteString("\nThe content was published by authorities in ")
		prompt.WriteString(sourceState)
		prompt.WriteString("; use this only as context for place names.\n")
	}

	prompt.WriteString("\n## Webpage Content\n")
	prompt.WriteString("```\n")
	prompt.WriteString(truncateContent(content, maxContentSize))
	prompt.WriteString("\n```\n")

	return prompt.String()
}

// GetSystemPrompt returns the system prompt for extraction.
func GetSystemPrompt() string {
	return systemPrompt
}

// truncateContent limits content size to avoid token limits.
// maxLen of 0 means no limit.
func truncateContent(content string, maxLen int) string {
	if maxLen <= 0 || len(content) <= maxLen {
		return content
	}
	logger.Warn("content truncated due to length",
		"original_bytes", len(content),
		"max_bytes", maxLen,
		"truncated_bytes", len(content)-maxLen)
	return content[:maxLen] + "\n\n[Content truncated due to length...]"
}
