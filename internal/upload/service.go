package upload

import (
	"bytes"
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/classbrief/classbrief/internal/ai"
	"github.com/classbrief/classbrief/internal/audit"
	"github.com/classbrief/classbrief/internal/extract"
	"github.com/classbrief/classbrief/internal/storage"
)

// Service runs the upload pipeline within one request: classify the file,
// stash the bytes, extract text, generate notes and questions, persist the
// outcome. There is no background queue; everything here is synchronous.
type Service struct {
	store Store
	gen   ai.Generator
	blobs storage.BlobStore
	audit audit.Sink
	log   *zap.Logger
}

func NewService(store Store, gen ai.Generator, blobs storage.BlobStore, sink audit.Sink, log *zap.Logger) *Service {
	return &Service{store: store, gen: gen, blobs: blobs, audit: sink, log: log}
}

type ProcessInput struct {
	TeacherID   string
	CourseID    string
	FileName    string
	ContentType string
	Content     []byte
}

// Process handles one uploaded file end to end. On extraction or generation
// failure the returned Job is in failed state and the cause is also returned
// so the transport layer can report which step broke. An unsupported file is
// rejected before any job is created.
func (s *Service) Process(ctx context.Context, in ProcessInput) (Job, error) {
	kind := extract.DetectKind(in.FileName, in.ContentType)
	if kind == extract.KindUnknown {
		s.audit.Record(ctx, audit.Entry{
			Teacher:  in.TeacherID,
			CourseID: in.CourseID,
			Action:   audit.ActionFileUpload,
			Status:   audit.StatusFailure,
			Error:    extract.ErrUnsupportedType.Error(),
			Metadata: map[string]any{"fileName": in.FileName, "contentType": in.ContentType},
		})
		return Job{}, extract.ErrUnsupportedType
	}

	key := fmt.Sprintf("uploads/%s/%s_%s", in.TeacherID, uuid.NewString(), in.FileName)
	if _, err := s.blobs.Put(key, bytes.NewReader(in.Content)); err != nil {
		// The stored copy only backs the Classroom link; processing can
		// continue without it.
		s.log.Warn("store source file", zap.String("key", key), zap.Error(err))
		key = ""
	}

	job, err := s.store.Create(ctx, Job{
		Teacher:  in.TeacherID,
		CourseID: in.CourseID,
		FileKey:  key,
		FileName: in.FileName,
		FileType: string(kind),
	})
	if err != nil {
		return Job{}, fmt.Errorf("create upload: %w", err)
	}
	s.audit.Record(ctx, audit.Entry{
		Teacher:  in.TeacherID,
		CourseID: in.CourseID,
		Action:   audit.ActionFileUpload,
		Status:   audit.StatusSuccess,
		Metadata: map[string]any{"uploadId": job.ID, "fileType": job.FileType},
	})

	text, err := extract.MeaningfulText(in.Content, kind)
	if err != nil {
		return s.fail(ctx, job, err)
	}

	notesDoc, err := ai.GenerateNotes(ctx, s.gen, text)
	if err != nil {
		return s.fail(ctx, job, err)
	}
	questions, err := ai.GenerateQuestions(ctx, s.gen, text)
	if err != nil {
		return s.fail(ctx, job, err)
	}

	notes := notesDoc.RenderText()
	if err := s.store.Complete(ctx, job.ID, notes, notesDoc, questions); err != nil {
		return Job{}, fmt.Errorf("complete upload: %w", err)
	}
	job.Status = StatusCompleted
	job.Notes = notes
	job.NotesDoc = notesDoc
	job.Questions = questions

	s.audit.Record(ctx, audit.Entry{
		Teacher:  in.TeacherID,
		CourseID: in.CourseID,
		Action:   audit.ActionAIProcessing,
		Status:   audit.StatusSuccess,
		Metadata: map[string]any{"uploadId": job.ID, "questionCount": len(questions)},
	})
	s.log.Info("upload processed",
		zap.String("uploadId", job.ID),
		zap.String("fileType", job.FileType),
		zap.Int("questions", len(questions)))
	return job, nil
}

// fail finalizes the job and reports the cause. The audit write is
// best-effort and the original error is always the one returned.
func (s *Service) fail(ctx context.Context, job Job, cause error) (Job, error) {
	if err := s.store.Fail(ctx, job.ID, cause.Error()); err != nil {
		s.log.Warn("mark upload failed", zap.String("uploadId", job.ID), zap.Error(err))
	}
	s.audit.Record(ctx, audit.Entry{
		Teacher:  job.Teacher,
		CourseID: job.CourseID,
		Action:   audit.ActionAIProcessing,
		Status:   audit.StatusFailure,
		Error:    cause.Error(),
		Metadata: map[string]any{"uploadId": job.ID},
	})
	job.Status = StatusFailed
	job.Error = cause.Error()
	return job, cause
}

// Get returns one of the teacher's own uploads.
func (s *Service) Get(ctx context.Context, teacherID, id string) (Job, error) {
	job, err := s.store.Get(ctx, id)
	if err != nil {
		return Job{}, err
	}
	if job.Teacher != teacherID {
		return Job{}, ErrNotFound
	}
	return job, nil
}

// List returns the teacher's uploads, newest first.
func (s *Service) List(ctx context.Context, teacherID string, limit, offset int) ([]Job, error) {
	return s.store.List(ctx, ListOpts{Teacher: teacherID, Limit: limit, Offset: offset})
}
