package chat

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ziadkadry99/gemchat/internal/audit"
)

// multipartOverhead is allowed on top of the file size limit for the
// other form fields and boundaries.
const multipartOverhead = 1 << 20

type chatRequest struct {
	Prompt string `json:"prompt"`
}

// RegisterRoutes mounts POST /api/chat and POST /api/upload.
func RegisterRoutes(r chi.Router, svc *Service) {
	r.Post("/api/chat", handleChat(svc))
	r.Post("/api/upload", handleUpload(svc))
}

func handleChat(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}

		reply, err := svc.Chat(r.Context(), req.Prompt)
		if err != nil {
			writeError(w, audit.KindChat, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"output": reply.Output})
	}
}

func handleUpload(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store := svc.Uploads(); store != nil && store.MaxBytes() > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, store.MaxBytes()+multipartOverhead)
		}

		var (
			src      io.Reader // nil when no file was sent
			original string
		)
		f, header, err := r.FormFile("file")
		switch {
		case err == nil:
			defer f.Close()
			src, original = f, header.Filename
		case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		default:
			writeError(w, audit.KindUpload, err)
			return
		}

		reply, err := svc.Upload(r.Context(), r.FormValue("prompt"), original, src)
		if err != nil {
			writeError(w, audit.KindUpload, err)
			return
		}
		writeJSON(w, http.StatusOK, reply)
	}
}

func writeError(w http.ResponseWriter, kind audit.Kind, err error) {
	status, msg := httpStatus(kind, err)
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
