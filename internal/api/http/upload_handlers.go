package http

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/classbrief/classbrief/internal/ai"
	authmw "github.com/classbrief/classbrief/internal/auth/middleware"
	"github.com/classbrief/classbrief/internal/extract"
	"github.com/classbrief/classbrief/internal/upload"
)

// POST /api/uploads — multipart form with "file" and "classroomId". The whole
// pipeline runs in the request; the response carries the finished job or the
// failed one plus the step that broke.
func UploadHandler(svc *upload.Service, maxBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := authmw.IdentityFromContext(r.Context())
		if id == nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		f, header, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "file required")
			return
		}
		defer f.Close()
		content, err := io.ReadAll(f)
		if err != nil {
			writeError(w, http.StatusBadRequest, "read file: "+err.Error())
			return
		}

		// classroomId is the wire name; courseId is accepted as an alias.
		courseID := r.FormValue("classroomId")
		if courseID == "" {
			courseID = r.FormValue("courseId")
		}

		job, err := svc.Process(r.Context(), upload.ProcessInput{
			TeacherID:   id.UserID,
			CourseID:    courseID,
			FileName:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Content:     content,
		})
		if err != nil {
			status := statusForPipelineError(err)
			body := map[string]any{"error": err.Error()}
			if job.ID != "" {
				body["upload"] = job
			}
			writeJSON(w, status, body)
			return
		}
		writeJSON(w, http.StatusCreated, job)
	}
}

func statusForPipelineError(err error) int {
	switch {
	case errors.Is(err, extract.ErrUnsupportedType):
		return http.StatusBadRequest
	case errors.Is(err, extract.ErrTextTooShort):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ai.ErrGenerationFailed), errors.Is(err, ai.ErrMalformedResponse):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// GET /api/uploads
func ListUploadsHandler(svc *upload.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := authmw.IdentityFromContext(r.Context())
		if id == nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		jobs, err := svc.List(r.Context(), id.UserID, limit, offset)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if jobs == nil {
			jobs = []upload.Job{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"uploads": jobs})
	}
}

// GET /api/uploads/{uploadID}
func GetUploadHandler(svc *upload.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := authmw.IdentityFromContext(r.Context())
		if id == nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
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
		writeJSON(w, http.StatusOK, job)
	}
}
