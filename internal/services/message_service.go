// Package services – MessageService
//
// This file implements MessageService, the application-level component that
// owns the lifecycle of chat messages and assistant replies. It validates
// inputs, checks chat ownership, enforces the first-message attachment rule
// and duplicate-message protection, grounds the reply in the active Code of
// Practice documents via the retrieval pipeline, calls the completion
// provider exactly once per turn, and persists the user/assistant message
// pair.
//
// Failure semantics: the user message is persisted before the upstream
// completion call, so a provider failure never loses the user's input. The
// provider error is returned classified (see the llm package) for the handler
// layer to map onto HTTP responses.
//
// Optional enhancement: it also auto-generates a chat title from the first
// user prompt when the chat still has a default/empty title.
//
// Observability: all public methods are OpenTelemetry-instrumented; spans
// include chat/user identifiers and pagination parameters where applicable.

package services

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/descode/descode-backend/internal/domain"
	"github.com/descode/descode-backend/internal/llm"
	"github.com/descode/descode-backend/internal/repo"
	"github.com/descode/descode-backend/internal/retrieval"
	"github.com/descode/descode-backend/internal/spam"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	// default titles we consider “placeholder” and eligible for auto-generation
	defaultTitleNew      = "New Chat"
	defaultTitleUntitled = "Untitled"
)

// ExcerptRetriever produces ranked document excerpts for a query. It is
// satisfied by *retrieval.Retriever; a narrow interface keeps the service
// testable without a live embedding provider.
type ExcerptRetriever interface {
	Retrieve(ctx context.Context, query string) []retrieval.Excerpt
}

// MessageService coordinates message persistence and grounded answers.
type MessageService struct {
	DB        *gorm.DB
	Retriever ExcerptRetriever
	Completer llm.Completer
	Spam      spam.Tracker

	// Optional guards
	MaxPromptRunes int

	// Title generation config
	TitleLocale language.Tag
	TitleMaxLen int
}

// Turn holds the two messages produced by one successful Send call: the
// persisted user message and the assistant reply generated for it.
type Turn struct {
	User      *domain.Message
	Assistant *domain.Message
}

// Send runs one full conversation turn: it validates the input, verifies chat
// ownership, enforces the attachment rule for the opening message and the
// duplicate-message tracker, persists the user message, retrieves grounding
// excerpts, calls the completion provider once, and persists the assistant
// reply. On success it returns both persisted messages as a Turn.
//
// Ordering is deliberate: validation failures happen before any row is
// written or any provider is called, while a completion failure leaves the
// already-persisted user message in place and surfaces the classified
// provider error.
func (s *MessageService) Send(ctx context.Context, userID, chatID, text string, attachments []string) (*Turn, error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "Send",
		trace.WithAttributes(
			attribute.String("chat.id", chatID),
			attribute.String("user.id", userID),
			attribute.Int("attachments", len(attachments)),
		),
	)
	defer span.End()

	// Normalize & validate input
	text = strings.TrimSpace(text)
	if text == "" && len(attachments) == 0 {
		return nil, ErrEmptyMessage
	}
	if s.MaxPromptRunes > 0 && utf8.RuneCountInString(text) > s.MaxPromptRunes {
		return nil, ErrTooLong
	}

	// Ensure the chat exists and belongs to the user
	chat, err := repo.GetChat(ctx, s.DB, chatID, userID)
	if err != nil {
		return nil, ErrChatNotFound
	}

	// The opening message of a chat must carry the blueprint file.
	existing, err := repo.CountMessages(s.DB.WithContext(ctx), chatID)
	if err != nil {
		return nil, err
	}
	if existing == 0 && len(attachments) == 0 {
		return nil, ErrFirstMessageAttachment
	}

	// Duplicate-message protection: reject before any persistence, then
	// record the accepted message.
	if s.Spam != nil && text != "" {
		if s.Spam.IsOverLimit(userID, text) {
			return nil, ErrSpamDetected
		}
		s.Spam.Record(userID, text)
	}

	// Persist the user message; from here on the turn is visible in history
	// even if the provider call below fails.
	userMsg, err := repo.CreateMessage(s.DB.WithContext(ctx), chatID, domain.RoleUser, text, attachments)
	if err != nil {
		return nil, err
	}
	_ = repo.TouchLastMessage(ctx, s.DB, chatID, userMsg.CreatedAt)

	// Auto-title if placeholder
	if s.shouldAutoTitle(chat.Title) {
		seed := text
		if seed == "" && len(attachments) > 0 {
			seed = attachments[0]
		}
		if gen := s.generateTitleFromPrompt(seed); gen != "" {
			gen = s.clipTitle(gen)
			if uerr := s.DB.WithContext(ctx).Model(&domain.Chat{}).Where("id = ?", chatID).Update("title", gen).Error; uerr == nil {
				chat.Title = gen
			}
		}
	}

	// Ground the reply: retrieval is best-effort and never fails the turn.
	query := text
	if query == "" {
		query = strings.Join(attachments, " ")
	}
	excerpts := []retrieval.Excerpt{}
	if s.Retriever != nil {
		excerpts = s.Retriever.Retrieve(ctx, query)
	}

	history, err := repo.LastMessages(s.DB.WithContext(ctx), chatID, retrieval.HistoryWindow)
	if err != nil {
		return nil, err
	}

	prompt := retrieval.Assemble(excerpts, chat.AllowExternal, history)

	reply, err := s.Completer.Complete(ctx, prompt)
	if err != nil {
		// User message stays; surface the classified provider error.
		return nil, err
	}

	assistantMsg, err := repo.CreateMessage(s.DB.WithContext(ctx), chatID, domain.RoleAssistant, reply, nil)
	if err != nil {
		return nil, err
	}
	_ = repo.TouchLastMessage(ctx, s.DB, chatID, assistantMsg.CreatedAt)

	return &Turn{User: userMsg, Assistant: assistantMsg}, nil
}

// ListPage returns paginated messages for a chat owned by the user.
func (s *MessageService) ListPage(ctx context.Context, userID, chatID string, page, pageSize int) ([]domain.Message, int64, error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.String("chat.id", chatID),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	// Ensure chat exists and belongs to the user
	if _, err := repo.GetChat(ctx, s.DB, chatID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, ErrChatNotFound
		}
		return nil, 0, err
	}

	total, err := repo.CountMessages(s.DB.WithContext(ctx), chatID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Message{}, 0, nil
	}

	items, err := repo.ListMessagesPage(s.DB.WithContext(ctx), chatID, offset, pageSize)
	return items, total, err
}

// List returns the full conversation for a chat owned by the user, oldest
// first.
func (s *MessageService) List(ctx context.Context, userID, chatID string) ([]domain.Message, error) {
	if _, err := repo.GetChat(ctx, s.DB, chatID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChatNotFound
		}
		return nil, err
	}
	return repo.ListMessages(s.DB.WithContext(ctx), chatID, 0)
}

// shouldAutoTitle reports whether the current title is a placeholder.
func (s *MessageService) shouldAutoTitle(current string) bool {
	t := strings.TrimSpace(strings.ToLower(current))
	return t == "" || t == strings.ToLower(defaultTitleNew) || t == strings.ToLower(defaultTitleUntitled)
}

// generateTitleFromPrompt derives a concise title from the prompt.
func (s *MessageService) generateTitleFromPrompt(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return ""
	}
	toks := titleWordRE.FindAllString(strings.ToLower(prompt), -1)
	if len(toks) == 0 {
		return ""
	}

	titleCaser := cases.Title(s.TitleLocaleOrDefault())
	out := make([]string, 0, 8)

	for _, w := range toks {
		if _, skip := titleStopWords[w]; skip {
			continue
		}
		out = append(out, titleCaser.String(w))
		if len(out) >= 8 {
			break
		}
	}
	if len(out) == 0 {
		return ""
	}
	return strings.Join(out, " ")
}

// clipTitle truncates a generated title to the configured maximum rune length.
func (s *MessageService) clipTitle(title string) string {
	max := s.TitleMaxLen
	if max <= 0 {
		max = 60
	}
	if utf8.RuneCountInString(title) > max {
		return string([]rune(title)[:max])
	}
	return title
}

// TitleLocaleOrDefault returns the configured locale for casing or English if unset.
func (s *MessageService) TitleLocaleOrDefault() language.Tag {
	if s.TitleLocale == language.Und {
		return language.English
	}
	return s.TitleLocale
}

// --- Title generation helpers ---

// Extract Unicode letters with optional trailing numbers (e.g., "unit12").
var titleWordRE = regexp.MustCompile(`[\p{L}]+[\p{N}]*`)

// Minimal English stop-words set for compact titles.
var titleStopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "of": {}, "to": {}, "in": {},
	"is": {}, "are": {}, "for": {}, "on": {}, "with": {}, "by": {}, "from": {},
	"at": {}, "as": {}, "that": {}, "this": {}, "it": {}, "be": {}, "was": {}, "were": {},
}
