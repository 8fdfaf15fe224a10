package llm

import (
	"strings"
	"unicode/utf8"
)

// DefaultMaxInputChars bounds the document text sent to the model.
const DefaultMaxInputChars = 15000

const reportPromptHead = `Analyze this document and return a JSON object with these fields:
- purposeAndScope: Main purpose and scope (1-2 sentences)
- summary: Comprehensive summary (3-4 sentences)
- highlights: Array of 4-6 key points
- issues: Problems or concerns identified. Format as numbered list (1-5) where each item has the issue description followed by "Basis:" with specific section references and explanations. Include line breaks between items.
- recommendations: Actionable next steps. Format as numbered list (1-5) where each item has the recommendation followed by "Basis:" with specific justification and section references. Include line breaks between items.

Document:
`

const reportPromptTail = `

IMPORTANT: For issues and recommendations, format each item as:
1. [Issue/Recommendation description]
Basis: [Detailed explanation with section references]

2. [Next item description]
Basis: [Detailed explanation with section references]

Return only valid JSON with the exact field names above.`

// Truncate returns at most max runes of s.
func Truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}

// BuildReportPrompt embeds the (already truncated) document text into the
// five-field report instruction.
func BuildReportPrompt(text string) string {
	var b strings.Builder
	b.Grow(len(reportPromptHead) + len(text) + len(reportPromptTail))
	b.WriteString(reportPromptHead)
	b.WriteString(text)
	b.WriteString(reportPromptTail)
	return b.String()
}
