package http

import (
	"net/http"
	"strconv"

	"github.com/classbrief/classbrief/internal/audit"
	authmw "github.com/classbrief/classbrief/internal/auth/middleware"
)

// GET /api/logs?action=&status=&page=&limit= — the teacher's own activity,
// newest first.
func LogsHandler(logs *audit.MongoLog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := authmw.IdentityFromContext(r.Context())
		if id == nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		q := r.URL.Query()
		page, _ := strconv.Atoi(q.Get("page"))
		limit, _ := strconv.Atoi(q.Get("limit"))

		entries, total, err := logs.List(r.Context(), audit.ListOpts{
			Teacher: id.UserID,
			Action:  q.Get("action"),
			Status:  q.Get("status"),
			Limit:   limit,
			Page:    page,
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if entries == nil {
			entries = []audit.Entry{}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"logs":  entries,
			"total": total,
		})
	}
}
