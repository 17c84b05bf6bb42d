package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/classbrief/classbrief/internal/auth"
	authmw "github.com/classbrief/classbrief/internal/auth/middleware"
	"github.com/classbrief/classbrief/internal/classroom"
	"github.com/classbrief/classbrief/internal/upload"
)

// classroomToken resolves the Google access token the Classroom calls run
// under. Local-only accounts have none.
func classroomToken(r *http.Request, teachers *auth.TeacherStore) (string, *authmw.Identity, error) {
	id := authmw.IdentityFromContext(r.Context())
	if id == nil {
		return "", nil, errors.New("unauthorized")
	}
	teacher, err := teachers.FindByID(r.Context(), id.UserID)
	if err != nil {
		return "", id, err
	}
	if teacher.AccessToken == "" {
		return "", id, errors.New("google account required")
	}
	return teacher.AccessToken, id, nil
}

// GET /api/classroom/courses
func ListCoursesHandler(pub *classroom.Publisher, teachers *auth.TeacherStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, id, err := classroomToken(r, teachers)
		if err != nil {
			writeError(w, http.StatusForbidden, err.Error())
			return
		}
		courses, err := pub.ListCourses(r.Context(), token, id.UserID)
		if err != nil {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		if courses == nil {
			courses = []classroom.Course{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"courses": courses})
	}
}

// POST /api/classroom/{uploadID}/post  { "courseId": "...", "dueDate": "2026-09-15" }
// courseId overrides the one recorded at upload time; dueDate is optional.
func PostToClassroomHandler(pub *classroom.Publisher, svc *upload.Service, teachers *auth.TeacherStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, id, err := classroomToken(r, teachers)
		if err != nil {
			writeError(w, http.StatusForbidden, err.Error())
			return
		}

		var req struct {
			CourseID string `json:"courseId"`
			DueDate  string `json:"dueDate"`
		}
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&req)
		}

		job, err := svc.Get(r.Context(), id.UserID, chi.URLParam(r, "uploadID"))
		if errors.Is(err, upload.ErrNotFound) {
			writeError(w, http.StatusNotFound, "upload not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if job.Status != upload.StatusCompleted {
			writeError(w, http.StatusConflict, "upload is not completed")
			return
		}
		if req.CourseID != "" {
			job.CourseID = req.CourseID
		}
		if job.CourseID == "" {
			writeError(w, http.StatusBadRequest, "courseId required")
			return
		}

		var due *time.Time
		if req.DueDate != "" {
			d, err := time.Parse("2006-01-02", req.DueDate)
			if err != nil {
				writeError(w, http.StatusBadRequest, "bad dueDate, want YYYY-MM-DD")
				return
			}
			due = &d
		}

		res, err := pub.Publish(r.Context(), token, job, due)
		if err != nil {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}
