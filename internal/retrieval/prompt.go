package retrieval

import (
	"fmt"
	"strings"

	"github.com/descode/descode-backend/internal/domain"
	"github.com/descode/descode-backend/internal/llm"
)

// HistoryWindow is the number of trailing chat messages included in the
// assembled context.
const HistoryWindow = 10

const (
	externalAllowed   = "You may also use credible external internet sources as complements."
	externalForbidden = "Do not use external sources beyond these documents."
	formatInstruction = "IMPORTANT: Format your responses in Markdown (use headings, lists, bold, italic, and code blocks when relevant) so the frontend can render them nicely."
)

// Assemble builds the ordered role-tagged context for one completion call:
// a single system segment (introduction, labeled document excerpts, the
// external-knowledge clause selected by allowExternal, and a formatting
// instruction) followed by the last HistoryWindow messages of the chat in
// chronological order. The just-persisted user message is expected to be the
// final element of history.
//
// An empty excerpt set still produces a valid system segment.
func Assemble(excerpts []Excerpt, allowExternal bool, history []domain.Message) []llm.ChatMessage {
	labeled := make([]string, 0, len(excerpts))
	for _, ex := range excerpts {
		labeled = append(labeled, fmt.Sprintf("COP Document %q (Relevant Section):\n%s\n", ex.DocumentName, ex.Text))
	}

	clause := externalForbidden
	if allowExternal {
		clause = externalAllowed
	}

	system := fmt.Sprintf(
		"You are DesCode AI Assistant. Use the following Codes of Practice as primary sources for blueprint validation:\n\n%s\n\n%s\n\n%s",
		strings.Join(labeled, "\n---\n"),
		clause,
		formatInstruction,
	)

	if len(history) > HistoryWindow {
		history = history[len(history)-HistoryWindow:]
	}

	out := make([]llm.ChatMessage, 0, len(history)+1)
	out = append(out, llm.ChatMessage{Role: llm.RoleSystem, Content: system})
	for _, m := range history {
		role := llm.RoleAssistant
		if m.Role == domain.RoleUser {
			role = llm.RoleUser
		}
		out = append(out, llm.ChatMessage{Role: role, Content: m.Content})
	}
	return out
}
