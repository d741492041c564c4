package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode"

	"github.com/gin-gonic/gin"

	"github.com/descode/descode-backend/internal/llm"
)

func TestSuggestPassword(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := New(stubChatSvc{}, stubMsgSvc{}, stubDocSvc{}, &stubUploader{}, nil)
	r := gin.New()
	r.GET("/password-suggestion", h.SuggestPassword)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/password-suggestion", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("suggest -> %d", w.Code)
	}

	var resp PasswordSuggestionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len([]rune(resp.Password)) != 12 {
		t.Fatalf("expected 12 runes, got %q", resp.Password)
	}
	var hasUpper, hasDigit bool
	for _, r := range resp.Password {
		hasUpper = hasUpper || unicode.IsUpper(r)
		hasDigit = hasDigit || unicode.IsDigit(r)
	}
	if !hasUpper || !hasDigit {
		t.Fatalf("password must contain an uppercase letter and a digit: %q", resp.Password)
	}
}

func newAIPasswordRouter(comp *testCompleter) *gin.Engine {
	var ai llm.Completer
	if comp != nil {
		ai = comp
	}
	h := New(stubChatSvc{}, stubMsgSvc{}, stubDocSvc{}, &stubUploader{}, ai)
	r := gin.New()
	r.POST("/ai/password", h.GenerateAIPassword)
	return r
}

func postAIPassword(r *gin.Engine, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(http.MethodPost, "/ai/password", http.NoBody)
	} else {
		req = httptest.NewRequest(http.MethodPost, "/ai/password", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	r.ServeHTTP(w, req)
	return w
}

func TestGenerateAIPassword(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("default length in prompt", func(t *testing.T) {
		comp := &testCompleter{reply: "  Xk9!mQw2#a  "}
		r := newAIPasswordRouter(comp)

		w := postAIPassword(r, "")
		if w.Code != http.StatusOK {
			t.Fatalf("generate -> %d body=%s", w.Code, w.Body.String())
		}
		var resp PasswordSuggestionResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("json: %v", err)
		}
		if resp.Password != "Xk9!mQw2#a" {
			t.Fatalf("reply not trimmed: %q", resp.Password)
		}
		if len(comp.last) != 2 || comp.last[0].Role != llm.RoleSystem {
			t.Fatalf("unexpected prompt shape: %+v", comp.last)
		}
		if !strings.Contains(comp.last[1].Content, "Length: 10") {
			t.Fatalf("default length missing from prompt: %q", comp.last[1].Content)
		}
	})

	t.Run("requested length is clamped", func(t *testing.T) {
		comp := &testCompleter{reply: "pw"}
		r := newAIPasswordRouter(comp)

		if w := postAIPassword(r, `{"length":24}`); w.Code != http.StatusOK {
			t.Fatalf("generate -> %d", w.Code)
		}
		if !strings.Contains(comp.last[1].Content, "Length: 24") {
			t.Fatalf("requested length missing from prompt: %q", comp.last[1].Content)
		}

		if w := postAIPassword(r, `{"length":9000}`); w.Code != http.StatusOK {
			t.Fatalf("generate -> %d", w.Code)
		}
		if !strings.Contains(comp.last[1].Content, "Length: 64") {
			t.Fatalf("length not capped: %q", comp.last[1].Content)
		}
	})

	t.Run("bad body", func(t *testing.T) {
		comp := &testCompleter{reply: "pw"}
		r := newAIPasswordRouter(comp)

		w := postAIPassword(r, `{"length":`)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("bad body -> %d", w.Code)
		}
		if comp.calls != 0 {
			t.Fatalf("provider must not be called on bad input")
		}
	})

	t.Run("no provider configured", func(t *testing.T) {
		r := newAIPasswordRouter(nil)
		if w := postAIPassword(r, ""); w.Code != http.StatusServiceUnavailable {
			t.Fatalf("missing provider -> %d", w.Code)
		}
	})

	t.Run("provider failures map to upstream codes", func(t *testing.T) {
		comp := &testCompleter{err: &llm.Error{Kind: llm.KindRateLimited, Err: errors.New("429")}}
		r := newAIPasswordRouter(comp)

		w := postAIPassword(r, "")
		if w.Code != http.StatusTooManyRequests {
			t.Fatalf("rate limited -> %d", w.Code)
		}
		var resp ErrorResponse
		_ = json.Unmarshal(w.Body.Bytes(), &resp)
		if resp.Code != ErrCodeUpstreamRateLimited {
			t.Fatalf("code = %q", resp.Code)
		}
	})

	t.Run("empty reply is an upstream error", func(t *testing.T) {
		comp := &testCompleter{reply: "   "}
		r := newAIPasswordRouter(comp)

		w := postAIPassword(r, "")
		if w.Code != http.StatusBadGateway {
			t.Fatalf("empty reply -> %d", w.Code)
		}
		var resp ErrorResponse
		_ = json.Unmarshal(w.Body.Bytes(), &resp)
		if resp.Code != ErrCodeUpstreamError {
			t.Fatalf("code = %q", resp.Code)
		}
	})
}
