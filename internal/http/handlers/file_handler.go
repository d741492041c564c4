// Standalone file upload handler.
//
// POST /files accepts a single multipart "file" part, stores it through the
// upload store, and returns the opaque stored reference. Chat messages accept
// attachments inline, so this endpoint mainly serves clients that stage files
// before composing a message.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// UploadFileResponse carries the stored reference of an uploaded file.
type UploadFileResponse struct {
	// Filename is the opaque reference under which the file was stored.
	Filename string `json:"filename"`
}

// UploadFile godoc
// @ID          uploadFile
// @Summary     Upload a file
// @Description Stores a single uploaded file and returns its stored reference.
// @Tags        Files
// @Accept      mpfd
// @Produce     json
//
// @Param       file  formData  file  true "File to upload"
//
// @Success     201  {object} handlers.UploadFileResponse
// @Failure     400  {object} handlers.ErrorResponse "No file uploaded"
// @Failure     500  {object} handlers.ErrorResponse "Storage failure"
// @Router      /files [post]
func (h *Handlers) UploadFile(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "no file uploaded")
		return
	}

	f, err := fh.Open()
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeUploadFailed, err.Error())
		return
	}
	defer f.Close()

	ref, err := h.uploads.Save(fh.Filename, f)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeUploadFailed, err.Error())
		return
	}
	ok(c, http.StatusCreated, UploadFileResponse{Filename: ref})
}
