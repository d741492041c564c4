// Document HTTP handlers.
//
// This file exposes REST endpoints for managing the Code of Practice
// documents that ground assistant answers:
//   - POST   /documents        (upload, admin only)
//   - GET    /documents        (list active documents)
//   - GET    /documents/{id}   (fetch one)
//   - PUT    /documents/{id}/file  (replace file in place, admin only)
//   - DELETE /documents/{id}   (soft delete, admin only)
//
// Mutating endpoints take multipart/form-data with a single "file" part.
// Handlers are transport-thin: authorization (the admin claim) is read from
// the request context but enforced in the service layer, so the rule holds
// for every caller of the service and not just this transport.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/descode/descode-backend/internal/domain"
	"github.com/descode/descode-backend/internal/http/middleware"
	"github.com/descode/descode-backend/internal/services"
)

// ListDocumentsResponse wraps the active document collection.
type ListDocumentsResponse struct {
	Documents []domain.Document `json:"documents"`
}

// UploadDocument godoc
// @ID          uploadDocument
// @Summary     Upload a new document
// @Description Registers a new Code of Practice document (admin only). The
// @Description document becomes part of the grounding corpus immediately.
// @Tags        Documents
// @Accept      mpfd
// @Produce     json
//
// @Param       name  formData  string  false "Display name (defaults to the file name)"
// @Param       file  formData  file    true  "Document file"
//
// @Success     201  {object} domain.Document
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     403  {object} handlers.ErrorResponse "Admin only"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /documents [post]
func (h *Handlers) UploadDocument(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "file required")
		return
	}
	name := c.PostForm("name")
	if name == "" {
		name = fh.Filename
	}

	f, err := fh.Open()
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "could not read file")
		return
	}
	defer f.Close()

	doc, err := h.docSvc.Upload(c.Request.Context(), userID(c), middleware.IsAdmin(c), name, f)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrForbidden):
			fail(c, http.StatusForbidden, ErrCodeForbidden, err.Error())
		case errors.Is(err, services.ErrEmptyDocument):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		default:
			fail(c, http.StatusInternalServerError, ErrCodeUploadFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusCreated, doc)
}

// ListDocuments godoc
// @ID          listDocuments
// @Summary     List active documents
// @Description Returns all documents currently grounding assistant answers.
// @Tags        Documents
// @Produce     json
//
// @Success     200  {object} handlers.ListDocumentsResponse
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /documents [get]
func (h *Handlers) ListDocuments(c *gin.Context) {
	docs, err := h.docSvc.List(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ListDocumentsResponse{Documents: docs})
}

// GetDocument godoc
// @ID          getDocument
// @Summary     Fetch a document
// @Description Returns a single active document's metadata.
// @Tags        Documents
// @Produce     json
//
// @Param       id  path  string  true  "Document ID (UUID)"  format(uuid)
//
// @Success     200  {object} domain.Document
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Document not found"
// @Router      /documents/{id} [get]
func (h *Handlers) GetDocument(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "document id must be a UUID")
		return
	}

	doc, err := h.docSvc.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrDocumentNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "document not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, doc)
}

// ReplaceDocument godoc
// @ID          replaceDocument
// @Summary     Replace a document's file
// @Description Swaps the file behind an existing document while keeping its
// @Description ID, so chats that referenced it keep working (admin only).
// @Tags        Documents
// @Accept      mpfd
// @Produce     json
//
// @Param       id    path      string  true  "Document ID (UUID)"  format(uuid)
// @Param       file  formData  file    true  "Replacement file"
//
// @Success     200  {object} domain.Document
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     403  {object} handlers.ErrorResponse "Admin only"
// @Failure     404  {object} handlers.ErrorResponse "Document not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /documents/{id}/file [put]
func (h *Handlers) ReplaceDocument(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "document id must be a UUID")
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "file required")
		return
	}
	f, err := fh.Open()
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "could not read file")
		return
	}
	defer f.Close()

	doc, err := h.docSvc.Replace(c.Request.Context(), userID(c), middleware.IsAdmin(c), id, f)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrForbidden):
			fail(c, http.StatusForbidden, ErrCodeForbidden, err.Error())
		case errors.Is(err, services.ErrDocumentNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "document not found")
		case errors.Is(err, services.ErrEmptyDocument):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		default:
			fail(c, http.StatusInternalServerError, ErrCodeUploadFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, doc)
}

// DeleteDocument godoc
// @ID          deleteDocument
// @Summary     Delete a document
// @Description Soft-deletes a document so it stops grounding new answers;
// @Description existing chat history is unaffected (admin only).
// @Tags        Documents
// @Produce     json
//
// @Param       id  path  string  true  "Document ID (UUID)"  format(uuid)
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     403  {object} handlers.ErrorResponse "Admin only"
// @Failure     404  {object} handlers.ErrorResponse "Document not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /documents/{id} [delete]
func (h *Handlers) DeleteDocument(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "document id must be a UUID")
		return
	}

	if err := h.docSvc.Delete(c.Request.Context(), userID(c), middleware.IsAdmin(c), id); err != nil {
		switch {
		case errors.Is(err, services.ErrForbidden):
			fail(c, http.StatusForbidden, ErrCodeForbidden, err.Error())
		case errors.Is(err, services.ErrDocumentNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "document not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	noContent(c)
}
