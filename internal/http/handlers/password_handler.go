// Password HTTP handlers.
//
// Two convenience endpoints used by the signup form:
//   - GET  /password-suggestion  (local random generator)
//   - POST /ai/password          (AI-generated password of a requested length)
package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/descode/descode-backend/internal/llm"
	"github.com/descode/descode-backend/internal/utils"
)

// PasswordSuggestionResponse carries one generated password candidate.
type PasswordSuggestionResponse struct {
	Password string `json:"password"`
}

// SuggestPassword godoc
// @ID          suggestPassword
// @Summary     Suggest a random password
// @Description Returns a randomly generated 12-character password containing
// @Description at least one uppercase letter and one digit.
// @Tags        Utilities
// @Produce     json
//
// @Success     200  {object} handlers.PasswordSuggestionResponse
// @Router      /password-suggestion [get]
func (h *Handlers) SuggestPassword(c *gin.Context) {
	ok(c, http.StatusOK, PasswordSuggestionResponse{Password: utils.SuggestPassword(12)})
}

// AIPasswordRequest is the JSON payload for the AI-assisted generator.
type AIPasswordRequest struct {
	// Length is the requested password length; defaults to 10, capped at 64.
	Length int `json:"length" example:"10"`
}

const (
	aiPasswordDefaultLen = 10
	aiPasswordMaxLen     = 64
)

// GenerateAIPassword godoc
// @ID          generateAIPassword
// @Summary     Generate a password with the AI provider
// @Description Asks the AI provider for a secure random password of the
// @Description requested length (one uppercase letter, one lowercase letter,
// @Description one number, and one symbol guaranteed by the prompt).
// @Tags        Utilities
// @Accept      json
// @Produce     json
//
// @Param       request  body  handlers.AIPasswordRequest  false "Desired length"
//
// @Success     200  {object} handlers.PasswordSuggestionResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     429  {object} handlers.ErrorResponse "Upstream rate limit"
// @Failure     502  {object} handlers.ErrorResponse "Upstream AI provider failure"
// @Router      /ai/password [post]
func (h *Handlers) GenerateAIPassword(c *gin.Context) {
	var req AIPasswordRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
			return
		}
	}
	length := req.Length
	if length <= 0 {
		length = aiPasswordDefaultLen
	}
	if length > aiPasswordMaxLen {
		length = aiPasswordMaxLen
	}

	if h.ai == nil {
		fail(c, http.StatusServiceUnavailable, ErrCodeUpstreamUnreachable, "no AI provider configured")
		return
	}

	prompt := []llm.ChatMessage{
		{Role: llm.RoleSystem, Content: "You are a password generator."},
		{Role: llm.RoleUser, Content: fmt.Sprintf(
			"Generate a secure, random password with at least one uppercase letter, one lowercase letter, one number, and one symbol. Length: %d. Only output the password.",
			length,
		)},
	}

	pw, err := h.ai.Complete(c.Request.Context(), prompt)
	if err != nil {
		failUpstream(c, err)
		return
	}
	pw = strings.TrimSpace(pw)
	if pw == "" {
		fail(c, http.StatusBadGateway, ErrCodeUpstreamError, "the AI provider returned an empty password")
		return
	}
	ok(c, http.StatusOK, PasswordSuggestionResponse{Password: pw})
}
