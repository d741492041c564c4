// Message HTTP handlers.
//
// This file exposes REST endpoints for chat messages:
//   - POST /chats/{id}/messages   (append a user message and create assistant reply)
//   - GET  /chats/{id}/messages   (list paginated messages for a chat)
//
// Handlers are transport-thin:
//   - validate & normalize inputs (including newline and length constraints)
//   - store uploaded attachment files and pass their references to the service
//   - delegate to application services (MessageService)
//   - implement conditional responses (ETag) and idempotency semantics
//   - map classified AI-provider failures onto upstream_* error codes
//
// Posting accepts either multipart/form-data ("text" field plus zero or more
// "files" parts) or a plain JSON body {"text": "..."}; the first message of a
// chat must include at least one file.
//
// Idempotency:
// If the client supplies an Idempotency-Key header and a previous successful
// result exists for (user, chat, key), the handler returns that recorded
// assistant message and sets `Idempotency-Replayed: true`.
package handlers

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/descode/descode-backend/internal/domain"
	"github.com/descode/descode-backend/internal/http/middleware"
	"github.com/descode/descode-backend/internal/llm"
	"github.com/descode/descode-backend/internal/repo"
	"github.com/descode/descode-backend/internal/services"
)

//
// DTOs
//

// PostMessageRequest is the JSON payload for sending a user message without
// attachments. Multipart requests use the "text" form field instead.
type PostMessageRequest struct {
	// Text is the user message. May be empty only when files are attached.
	Text string `json:"text" example:"Does the stairwell in sheet A-201 meet the minimum clearance?"`
}

// PostMessageResponse is the JSON envelope for a completed conversation turn.
type PostMessageResponse struct {
	// User is the persisted user message for this turn. It is omitted on
	// idempotent replays, which only record the assistant reply.
	User *domain.Message `json:"user,omitempty"`
	// Assistant is the reply generated for the user message.
	Assistant *domain.Message `json:"assistant"`
}

// ListMessagesResponse contains a page of chat messages and pagination metadata.
type ListMessagesResponse struct {
	Messages   []domain.Message `json:"messages"`
	Pagination Pagination       `json:"pagination"`
}

//
// Helpers
//

// nlCollapseRE collapses runs of 3+ newlines to two, preserving paragraphs.
var nlCollapseRE = regexp.MustCompile(`\n{3,}`)

// sanitizeContent normalizes user text for consistent downstream behavior:
//   - converts CRLF/CR to LF,
//   - collapses runs of 3+ LFs to exactly two (paragraph separation),
//   - trims surrounding whitespace.
func sanitizeContent(raw string) string {
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = nlCollapseRE.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// discoverMaxPromptRunes inspects the concrete MessageService for a configured
// prompt-length limit. If unavailable, it returns a conservative fallback.
func discoverMaxPromptRunes(msgSvc MessageService) int {
	const fallback = 4000
	if ms, ok := msgSvc.(*services.MessageService); ok {
		if ms.MaxPromptRunes > 0 {
			return ms.MaxPromptRunes
		}
	}
	return fallback
}

// readMessageInput extracts the message text and attachment file headers from
// either a multipart form or a JSON body.
func readMessageInput(c *gin.Context) (text string, files []*multipart.FileHeader, ok bool) {
	ct := c.ContentType()
	if strings.HasPrefix(ct, "multipart/form-data") {
		form, err := c.MultipartForm()
		if err != nil {
			return "", nil, false
		}
		text = c.PostForm("text")
		if form != nil {
			files = form.File["files"]
		}
		return text, files, true
	}

	var req PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return "", nil, false
	}
	return req.Text, nil, true
}

// storeAttachments writes uploaded files through the upload store and returns
// their opaque references. Any failure aborts the whole request; a partial
// attachment set would silently change what grounds the assistant.
func (h *Handlers) storeAttachments(files []*multipart.FileHeader) ([]string, error) {
	if len(files) == 0 {
		return nil, nil
	}
	refs := make([]string, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		ref, err := h.uploads.Save(fh.Filename, f)
		f.Close()
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// failUpstream maps a classified AI-provider error onto an HTTP response.
// Rate limiting propagates as 429 so clients back off; everything else is a
// 502 with a code that tells the client which upstream failure mode occurred.
func failUpstream(c *gin.Context, err error) {
	switch llm.KindOf(err) {
	case llm.KindUnauthorized:
		fail(c, http.StatusBadGateway, ErrCodeUpstreamUnauthorized, "the AI provider rejected this service's credentials")
	case llm.KindRateLimited:
		fail(c, http.StatusTooManyRequests, ErrCodeUpstreamRateLimited, "the AI provider is rate limiting requests, try again shortly")
	case llm.KindNetwork:
		fail(c, http.StatusBadGateway, ErrCodeUpstreamUnreachable, "could not reach the AI provider")
	default:
		fail(c, http.StatusBadGateway, ErrCodeUpstreamError, "the AI provider failed to produce a reply")
	}
}

//
// Handlers
//

// PostMessage godoc
// @ID          postMessage
// @Summary     Send a message and get assistant reply
// @Description Appends a user message to the chat and generates an assistant
// @Description reply grounded in the active Code of Practice documents.
// @Description Accepts multipart/form-data (text + files) or JSON. The first
// @Description message of a chat must include at least one file.
// @Description Supports idempotency via the Idempotency-Key header (same key → same result).
// @Tags        Messages
// @Accept      mpfd
// @Accept      json
// @Produce     json
//
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries (UUID recommended)"
// @Param       id               path    string  true  "Chat ID (UUID)"  format(uuid)
// @Param       text             formData string false "User message text"
// @Param       files            formData file   false "Attachment files"
//
// @Success     200  {object}  handlers.PostMessageResponse  "Created user/assistant message pair"
// @Failure     400  {object}  handlers.ErrorResponse        "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse        "Chat not found"
// @Failure     429  {object}  handlers.ErrorResponse        "Spam or upstream rate limit"
// @Failure     502  {object}  handlers.ErrorResponse        "Upstream AI provider failure"
// @Failure     500  {object}  handlers.ErrorResponse        "Internal error"
// @Router      /chats/{id}/messages [post]
func (h *Handlers) PostMessage(c *gin.Context) {
	ctx := c.Request.Context()
	chatID := c.Param("id")

	if _, err := uuid.Parse(chatID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "chat id must be a UUID")
		return
	}

	rawText, files, okInput := readMessageInput(c)
	if !okInput {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return
	}

	// Sanitize + early size cap to fail fast at the edge.
	text := sanitizeContent(rawText)
	maxRunes := discoverMaxPromptRunes(h.msgSvc)
	if maxRunes > 0 && utf8.RuneCountInString(text) > maxRunes {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, fmt.Sprintf("text too long: max %d runes", maxRunes))
		return
	}
	if text == "" && len(files) == 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "text or files required")
		return
	}

	currentUser := userID(c)

	// Idempotency (replay path). When the validator middleware ran and saw
	// no stored result, the record fetch below would come up empty too, so
	// skip it outside of replays.
	idemKey, validated := idempotencyKey(c)
	if idemKey != "" && (!validated || middleware.IsReplay(c)) {
		if svc, okSvc := h.msgSvc.(*services.MessageService); okSvc && svc.DB != nil {
			if rec, err := repo.GetIdempotency(ctx, svc.DB, currentUser, chatID, idemKey, time.Now().UTC()); err == nil && rec != nil {
				if prev, err2 := repo.GetMessage(svc.DB, rec.MessageID); err2 == nil {
					c.Header("Idempotency-Replayed", "true")
					ok(c, http.StatusOK, PostMessageResponse{Assistant: prev})
					return
				}
			}
		}
	}

	attachments, err := h.storeAttachments(files)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeUploadFailed, err.Error())
		return
	}

	// Normal processing (service has a second guard for length).
	turn, err := h.msgSvc.Send(ctx, currentUser, chatID, text, attachments)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrChatNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "chat not found")
		case errors.Is(err, services.ErrTooLong):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, fmt.Sprintf("text too long: max %d runes", maxRunes))
		case errors.Is(err, services.ErrEmptyMessage):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "text or files required")
		case errors.Is(err, services.ErrFirstMessageAttachment):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "the first message of a chat must include a file")
		case errors.Is(err, services.ErrSpamDetected):
			fail(c, http.StatusTooManyRequests, ErrCodeSpamDetected, err.Error())
		case isUpstreamErr(err):
			failUpstream(c, err)
		default:
			fail(c, http.StatusInternalServerError, ErrCodeAnswerFailed, err.Error())
		}
		return
	}

	// Idempotency (store path) – best effort.
	if idemKey != "" {
		if svc, ok := h.msgSvc.(*services.MessageService); ok && svc.DB != nil {
			ttl := 24 * time.Hour
			_, _ = repo.CreateIdempotency(ctx, svc.DB, currentUser, chatID, idemKey, turn.Assistant.ID, http.StatusOK, ttl)
		}
	}

	ok(c, http.StatusOK, PostMessageResponse{User: turn.User, Assistant: turn.Assistant})
}

// ListMessages godoc
// @ID          listMessages
// @Summary     List messages in a chat
// @Description Returns a paginated list of messages for the given chat,
// @Description oldest first. Supports weak ETag via If-None-Match.
// @Tags        Messages
// @Produce     json
//
// @Param       id         path   string  true  "Chat ID (UUID)"  format(uuid)
// @Param       page       query  int     false "Page number"     minimum(1) default(1)
// @Param       page_size  query  int     false "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListMessagesResponse
// @Success     304  {string} string "Not Modified"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Chat not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /chats/{id}/messages [get]
func (h *Handlers) ListMessages(c *gin.Context) {
	ctx := c.Request.Context()
	chatID := c.Param("id")

	if _, err := uuid.Parse(chatID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "chat id must be a UUID")
		return
	}

	// ETag pre-check (best effort).
	var db *gorm.DB
	if svc, ok := h.msgSvc.(*services.MessageService); ok {
		db = svc.DB
	}
	if db != nil {
		count, maxTS, err := repo.MessagesStats(ctx, db, chatID)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"messages:%s:%d:%d"`, chatID, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	page, pageSize := clampPagination(c)

	items, total, err := h.msgSvc.ListPage(ctx, userID(c), chatID, page, pageSize)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrChatNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "chat not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		}
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListMessagesResponse{
		Messages: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// isUpstreamErr reports whether err originated from the AI provider client.
func isUpstreamErr(err error) bool {
	var lerr *llm.Error
	return errors.As(err, &lerr)
}

// idempotencyKey extracts the idempotency key for this request. It prefers
// the validated key stashed by middleware.IdempotencyValidator; when the
// validator is not installed (routers assembled without it), it falls back to
// reading the raw header. validated reports which source served the key.
func idempotencyKey(c *gin.Context) (key string, validated bool) {
	if k, ok := middleware.GetIdempotencyKey(c); ok {
		return k, true
	}
	if v := strings.TrimSpace(c.GetHeader(middleware.HeaderIdempotencyKey)); v != "" {
		return v, false
	}
	return "", false
}
