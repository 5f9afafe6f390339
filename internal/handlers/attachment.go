// internal/handlers/attachment.go
package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/javajoker/storefront-backend/internal/i18n"
	"github.com/javajoker/storefront-backend/internal/services"
	"github.com/javajoker/storefront-backend/internal/utils"
)

// SessionHeader groups uploads made by one admin editing session.
const SessionHeader = "X-Session-ID"

type AttachmentHandler struct {
	attachmentService *services.AttachmentService
}

func NewAttachmentHandler(attachmentService *services.AttachmentService) *AttachmentHandler {
	return &AttachmentHandler{
		attachmentService: attachmentService,
	}
}

// POST /admin/attachments
func (h *AttachmentHandler) Store(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	upload := services.UploadedImage{SessionID: c.GetHeader(SessionHeader)}
	if upload.SessionID == "" {
		upload.SessionID = uuid.NewString()
	}

	file, header, err := c.Request.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		// An empty upload is reported as a missing image by the service.
	case err != nil:
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyFileUploadFailed), map[string][]string{"image": {err.Error()}})
		return
	default:
		defer file.Close()
		upload.FileName = header.Filename
		// One byte past the limit is enough to reject the file.
		limit := h.attachmentService.MaxSizeKB()*1024 + 1
		upload.Data, err = io.ReadAll(io.LimitReader(file, limit))
		if err != nil {
			utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyFileUploadFailed), map[string][]string{"image": {err.Error()}})
			return
		}
	}

	attachment, err := h.attachmentService.Store(c.Request.Context(), upload)
	if err != nil {
		utils.HandleServiceError(c, err, "attachment")
		return
	}

	utils.CreatedResponse(c, attachment)
}

// DELETE /admin/attachments/:id
func (h *AttachmentHandler) Destroy(c *gin.Context) {
	id, ok := paramID(c, "attachment")
	if !ok {
		return
	}

	if err := h.attachmentService.Destroy(c.Request.Context(), id); err != nil {
		utils.HandleServiceError(c, err, "attachment")
		return
	}

	utils.NoContentResponse(c)
}
