package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
)

func (s *Server) tokenPath(platform string) string {
	return filepath.Join(s.TokenDir, platform+".token")
}

func (s *Server) handleGetToken(w http.ResponseWriter, r *http.Request) {
	platform := chi.URLParam(r, "platform")
	data, err := os.ReadFile(s.tokenPath(platform))
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]string{"token": ""})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": string(data)})
}

func (s *Server) handleSaveToken(w http.ResponseWriter, r *http.Request) {
	platform := chi.URLParam(r, "platform")
	var body struct {
		Token string `json:"token"`
	}
	defer r.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "message": "could not read body"})
		return
	}
	if err := json.Unmarshal(raw, &body); err != nil || body.Token == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "message": "missing token"})
		return
	}
	if err := os.MkdirAll(s.TokenDir, 0o700); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "error", "message": err.Error()})
		return
	}
	if err := os.WriteFile(s.tokenPath(platform), []byte(body.Token), 0o600); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "error", "message": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
