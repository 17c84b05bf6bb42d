package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/classbrief/classbrief/internal/ai"
	"github.com/classbrief/classbrief/internal/extract"
)

// POST /api/notes/preview  { "content": "..." } — generate notes from pasted
// text without creating an upload job.
func NotesPreviewHandler(gen ai.Generator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Content string `json:"content"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad json")
			return
		}
		content := strings.TrimSpace(req.Content)
		if len(content) < extract.MinTextLen {
			writeError(w, http.StatusUnprocessableEntity, extract.ErrTextTooShort.Error())
			return
		}
		notes, err := ai.GenerateNotes(r.Context(), gen, content)
		if err != nil {
			status := http.StatusBadGateway
			if !errors.Is(err, ai.ErrGenerationFailed) && !errors.Is(err, ai.ErrMalformedResponse) {
				status = http.StatusInternalServerError
			}
			writeError(w, status, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, notes)
	}
}
