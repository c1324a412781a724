package documents

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/openhire/hire/internal/auth"
)

// HTTPHandler exposes document upload and download endpoints.
type HTTPHandler struct {
	Service *DocumentService
}

func NewHTTPHandler(service *DocumentService) *HTTPHandler {
	return &HTTPHandler{Service: service}
}

// Upload handles POST /api/documents multipart requests. Form fields:
// file (required), entityType, entityId (required), kind (optional).
func (h *HTTPHandler) Upload(w http.ResponseWriter, r *http.Request) {
	// Max memory 32MB
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, `{"error": "failed to parse form"}`, http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, `{"error": "file is required"}`, http.StatusBadRequest)
		return
	}
	defer file.Close()

	in := UploadInput{
		Filename:   header.Filename,
		Reader:     file,
		Size:       header.Size,
		MimeType:   header.Header.Get("Content-Type"),
		Kind:       ParseDocumentKind(r.FormValue("kind")),
		EntityType: r.FormValue("entityType"),
		EntityID:   r.FormValue("entityId"),
	}
	if actor := auth.GetActorContext(r.Context()); actor != nil {
		in.UploadedBy = actor.ID
	}

	doc, err := h.Service.Upload(r.Context(), in)
	if err != nil {
		slog.ErrorContext(r.Context(), "document upload failed", "error", err)
		http.Error(w, `{"error": "upload failed"}`, http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(doc); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}

// Download handles GET /api/documents/{key}.
func (h *HTTPHandler) Download(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if key == "" {
		http.Error(w, `{"error": "key is required"}`, http.StatusBadRequest)
		return
	}

	reader, contentType, err := h.Service.Download(r.Context(), key)
	if err != nil {
		http.Error(w, `{"error": "document not found"}`, http.StatusNotFound)
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", contentType)
	if _, err := io.Copy(w, reader); err != nil {
		slog.ErrorContext(r.Context(), "failed to stream document", "key", key, "error", err)
	}
}
