package search

import (
	"fmt"
	"strings"

	"github.com/apantall-runway/ai-chatbot/internal/stream"
)

// BuildSummaryPrompt composes the single prompt handed to the summarizer:
// every source enumerated with its 1-based index and url, followed by the
// original queries and an instruction to cite sources by index.
func BuildSummaryPrompt(queries []string, sources []stream.Source) string {
	var b strings.Builder
	b.WriteString("You are a research assistant. Use the numbered web sources below to answer the user's queries.\n\n")
	for i, s := range sources {
		fmt.Fprintf(&b, "Source %d (%s):\n%s", i+1, s.URL, s.Content)
		if i < len(sources)-1 {
			b.WriteString("\n\n")
		}
	}
	b.WriteString("\n\nQueries:\n")
	for _, q := range queries {
		fmt.Fprintf(&b, "- %s\n", q)
	}
	b.WriteString("\nWrite a concise answer to the queries based only on the sources above. Cite sources by their index, e.g. [1]. If the sources disagree, say so.")
	return b.String()
}
