package handlers

import (
	"log/slog"
	"net/http"

	"github.com/jwebster45206/druid-of-peace/pkg/content"
)

// ContentHandler serves the loaded content library so clients can show
// names and descriptions for the IDs in a game.
// GET /v1/content
type ContentHandler struct {
	lib    *content.Library
	logger *slog.Logger
}

func NewContentHandler(lib *content.Library, logger *slog.Logger) *ContentHandler {
	return &ContentHandler{lib: lib, logger: logger}
}

func (h *ContentHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Only GET is supported.")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, h.lib)
}
