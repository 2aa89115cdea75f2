package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/sandeepkv93/siteops-service/internal/http/response"
	"github.com/sandeepkv93/siteops-service/internal/observability"
	"github.com/sandeepkv93/siteops-service/internal/service"
)

type UploadHandler struct {
	uploads *service.UploadService
	logger  *slog.Logger
}

func NewUploadHandler(uploads *service.UploadService, logger *slog.Logger) *UploadHandler {
	return &UploadHandler{uploads: uploads, logger: logger}
}

func (h *UploadHandler) Presign(w http.ResponseWriter, r *http.Request) {
	var in service.UploadRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	req, err := h.uploads.Presign(r.Context(), in)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, req)
}

// Delete takes the key from a JSON body, or from ?key= for clients that
// cannot send a DELETE body.
func (h *UploadHandler) Delete(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimSpace(r.URL.Query().Get("key"))
	if key == "" {
		var in struct {
			Key string `json:"key"`
		}
		if err := decodeJSON(r, &in); err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		key = in.Key
	}
	if err := h.uploads.Delete(r.Context(), key); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	observability.Audit(r, "upload.delete", "key", key)
	response.JSON(w, r, http.StatusOK, map[string]bool{"deleted": true})
}

func (h *UploadHandler) AttachmentURL(w http.ResponseWriter, r *http.Request) {
	wuID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	attID, err := pathID(r, "attachmentID")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	req, err := h.uploads.AttachmentURL(r.Context(), wuID, attID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, req)
}
