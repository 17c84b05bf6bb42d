package upload

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"go.uber.org/zap"

	"github.com/classbrief/classbrief/internal/ai"
	"github.com/classbrief/classbrief/internal/audit"
	"github.com/classbrief/classbrief/internal/extract"
)

/* ---- in-memory fakes ---- */

type fakeStore struct {
	jobs map[string]Job
	seq  int
}

func newFakeStore() *fakeStore { return &fakeStore{jobs: map[string]Job{}} }

func (s *fakeStore) Create(_ context.Context, job Job) (Job, error) {
	s.seq++
	job.ID = fmt.Sprintf("job-%d", s.seq)
	job.Status = StatusProcessing
	s.jobs[job.ID] = job
	return job, nil
}

func (s *fakeStore) Get(_ context.Context, id string) (Job, error) {
	job, ok := s.jobs[id]
	if !ok {
		return Job{}, ErrNotFound
	}
	return job, nil
}

func (s *fakeStore) List(_ context.Context, opts ListOpts) ([]Job, error) {
	var out []Job
	for _, j := range s.jobs {
		if j.Teacher == opts.Teacher {
			out = append(out, j)
		}
	}
	return out, nil
}

func (s *fakeStore) Complete(_ context.Context, id, notes string, notesDoc *ai.StructuredNotes, questions []ai.QuizQuestion) error {
	job, ok := s.jobs[id]
	if !ok {
		return ErrNotFound
	}
	if job.Status != StatusProcessing {
		return ErrFinalized
	}
	job.Status = StatusCompleted
	job.Notes = notes
	job.NotesDoc = notesDoc
	job.Questions = questions
	s.jobs[id] = job
	return nil
}

func (s *fakeStore) Fail(_ context.Context, id, msg string) error {
	job, ok := s.jobs[id]
	if !ok {
		return ErrNotFound
	}
	if job.Status != StatusProcessing {
		return ErrFinalized
	}
	job.Status = StatusFailed
	job.Error = msg
	s.jobs[id] = job
	return nil
}

func (s *fakeStore) ClaimPost(_ context.Context, id string, a Artifact) (bool, error) {
	job, ok := s.jobs[id]
	if !ok {
		return false, ErrNotFound
	}
	switch a {
	case ArtifactNotes:
		if job.Posted.Notes {
			return false, nil
		}
		job.Posted.Notes = true
	case ArtifactQuestions:
		if job.Posted.Questions {
			return false, nil
		}
		job.Posted.Questions = true
	}
	s.jobs[id] = job
	return true, nil
}

func (s *fakeStore) RecordPostID(_ context.Context, id string, a Artifact, postID string) error {
	job, ok := s.jobs[id]
	if !ok {
		return ErrNotFound
	}
	if a == ArtifactNotes {
		job.Posted.NotesPostID = postID
	} else {
		job.Posted.QuestionsPostID = postID
	}
	s.jobs[id] = job
	return nil
}

func (s *fakeStore) ReleasePost(_ context.Context, id string, a Artifact) error {
	job, ok := s.jobs[id]
	if !ok {
		return ErrNotFound
	}
	if a == ArtifactNotes {
		job.Posted.Notes = false
		job.Posted.NotesPostID = ""
	} else {
		job.Posted.Questions = false
		job.Posted.QuestionsPostID = ""
	}
	s.jobs[id] = job
	return nil
}

type fakeGen struct {
	notesJSON string
	quizText  string
	jsonErr   error
	textErr   error
}

func (f *fakeGen) GenerateJSON(context.Context, string) (string, error) {
	return f.notesJSON, f.jsonErr
}

func (f *fakeGen) GenerateText(context.Context, string) (string, error) {
	return f.quizText, f.textErr
}

type fakeBlobs struct {
	data map[string][]byte
	err  error
}

func newFakeBlobs() *fakeBlobs { return &fakeBlobs{data: map[string][]byte{}} }

func (b *fakeBlobs) Put(key string, r io.Reader) (string, error) {
	if b.err != nil {
		return "", b.err
	}
	buf, _ := io.ReadAll(r)
	b.data[key] = buf
	return key, nil
}

func (b *fakeBlobs) Get(key string) (io.ReadCloser, error) {
	buf, ok := b.data[key]
	if !ok {
		return nil, errors.New("not found")
	}
	return io.NopCloser(bytes.NewReader(buf)), nil
}

type fakeSink struct{ entries []audit.Entry }

func (s *fakeSink) Record(_ context.Context, e audit.Entry) { s.entries = append(s.entries, e) }

func (s *fakeSink) last() audit.Entry {
	if len(s.entries) == 0 {
		return audit.Entry{}
	}
	return s.entries[len(s.entries)-1]
}

/* ---- fixtures ---- */

const notesJSON = `{"title":"T","sections":[{"heading":"H","bullets":["b1","b2"]}],"key_terms":["k"],"summary":"s","flashcards":[{"question":"q","answer":"a"}]}`

const quizText = `Question: What is T?
A) One
B) Two
C) Three
D) Four
Correct Answer: A
Explanation: Because one.
`

// pptxWith builds a one-slide pptx whose slide text is body.
func pptxWith(t *testing.T, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("ppt/slides/slide1.xml")
	if err != nil {
		t.Fatal(err)
	}
	fmt.Fprintf(w, "<p:sld><a:t>%s</a:t></p:sld>", body)
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func newTestService(store Store, gen ai.Generator, blobs *fakeBlobs, sink *fakeSink) *Service {
	return NewService(store, gen, blobs, sink, zap.NewNop())
}

/* ---- tests ---- */

func TestProcess_completes(t *testing.T) {
	store := newFakeStore()
	sink := &fakeSink{}
	blobs := newFakeBlobs()
	svc := newTestService(store, &fakeGen{notesJSON: notesJSON, quizText: quizText}, blobs, sink)

	job, err := svc.Process(context.Background(), ProcessInput{
		TeacherID: "t1", CourseID: "c1",
		FileName: "deck.pptx",
		Content:  pptxWith(t, "a long enough slide body"),
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if job.Status != StatusCompleted {
		t.Errorf("status = %s", job.Status)
	}
	if job.Notes == "" || job.NotesDoc == nil {
		t.Error("notes not populated")
	}
	if len(job.Questions) != 1 {
		t.Errorf("got %d questions", len(job.Questions))
	}
	if job.FileType != "pptx" {
		t.Errorf("fileType = %s", job.FileType)
	}
	if job.FileKey == "" {
		t.Error("file key not set")
	}
	if _, ok := blobs.data[job.FileKey]; !ok {
		t.Error("source bytes not stored")
	}
	last := sink.last()
	if last.Action != audit.ActionAIProcessing || last.Status != audit.StatusSuccess {
		t.Errorf("last audit entry = %+v", last)
	}
}

func TestProcess_unsupportedKind(t *testing.T) {
	store := newFakeStore()
	sink := &fakeSink{}
	svc := newTestService(store, &fakeGen{}, newFakeBlobs(), sink)

	_, err := svc.Process(context.Background(), ProcessInput{
		TeacherID: "t1", FileName: "notes.docx", Content: []byte("x"),
	})
	if !errors.Is(err, extract.ErrUnsupportedType) {
		t.Fatalf("err = %v", err)
	}
	if len(store.jobs) != 0 {
		t.Error("job created for unsupported file")
	}
	if sink.last().Status != audit.StatusFailure {
		t.Error("failure not audited")
	}
}

func TestProcess_extractionFailure(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeGen{notesJSON: notesJSON, quizText: quizText}, newFakeBlobs(), &fakeSink{})

	job, err := svc.Process(context.Background(), ProcessInput{
		TeacherID: "t1", FileName: "deck.pptx",
		Content: pptxWith(t, "tiny"), // under the length gate
	})
	if !errors.Is(err, extract.ErrTextTooShort) {
		t.Fatalf("err = %v", err)
	}
	if job.Status != StatusFailed {
		t.Errorf("status = %s", job.Status)
	}
	if job.Error == "" {
		t.Error("failed job has no error message")
	}
	stored := store.jobs[job.ID]
	if stored.Notes != "" || len(stored.Questions) != 0 {
		t.Error("failed job persisted partial artifacts")
	}
}

func TestProcess_generationFailure(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeGen{jsonErr: errors.New("quota")}, newFakeBlobs(), &fakeSink{})

	job, err := svc.Process(context.Background(), ProcessInput{
		TeacherID: "t1", FileName: "deck.pptx",
		Content: pptxWith(t, "a long enough slide body"),
	})
	if !errors.Is(err, ai.ErrGenerationFailed) {
		t.Fatalf("err = %v", err)
	}
	if job.Status != StatusFailed {
		t.Errorf("status = %s", job.Status)
	}
}

func TestProcess_malformedResponse(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeGen{notesJSON: "not json at all"}, newFakeBlobs(), &fakeSink{})

	_, err := svc.Process(context.Background(), ProcessInput{
		TeacherID: "t1", FileName: "deck.pptx",
		Content: pptxWith(t, "a long enough slide body"),
	})
	if !errors.Is(err, ai.ErrMalformedResponse) {
		t.Fatalf("err = %v, want ErrMalformedResponse", err)
	}
	if errors.Is(err, ai.ErrGenerationFailed) {
		t.Error("malformed response must stay distinct from generation failure")
	}
}

func TestProcess_blobFailureIsNotFatal(t *testing.T) {
	store := newFakeStore()
	blobs := newFakeBlobs()
	blobs.err = errors.New("disk full")
	svc := newTestService(store, &fakeGen{notesJSON: notesJSON, quizText: quizText}, blobs, &fakeSink{})

	job, err := svc.Process(context.Background(), ProcessInput{
		TeacherID: "t1", FileName: "deck.pptx",
		Content: pptxWith(t, "a long enough slide body"),
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if job.Status != StatusCompleted {
		t.Errorf("status = %s", job.Status)
	}
	if job.FileKey != "" {
		t.Error("file key should be empty when the blob write failed")
	}
}

func TestGet_ownerCheck(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeGen{}, newFakeBlobs(), &fakeSink{})
	created, _ := store.Create(context.Background(), Job{Teacher: "t1", FileName: "a.pdf"})

	if _, err := svc.Get(context.Background(), "t1", created.ID); err != nil {
		t.Errorf("owner read: %v", err)
	}
	if _, err := svc.Get(context.Background(), "t2", created.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("foreign read: err = %v, want ErrNotFound", err)
	}
}

func TestFakeStore_claimCycle(t *testing.T) {
	// The fake mirrors the store's claim contract: a claim is exclusive until
	// released, and a release makes the artifact claimable again.
	store := newFakeStore()
	ctx := context.Background()
	job, _ := store.Create(ctx, Job{Teacher: "t1"})

	won, err := store.ClaimPost(ctx, job.ID, ArtifactNotes)
	if err != nil || !won {
		t.Fatalf("first claim: won=%v err=%v", won, err)
	}
	if won, _ := store.ClaimPost(ctx, job.ID, ArtifactNotes); won {
		t.Error("second claim won while the first was held")
	}
	if won, _ := store.ClaimPost(ctx, job.ID, ArtifactQuestions); !won {
		t.Error("questions claim blocked by notes claim")
	}

	if err := store.ReleasePost(ctx, job.ID, ArtifactNotes); err != nil {
		t.Fatal(err)
	}
	if won, _ := store.ClaimPost(ctx, job.ID, ArtifactNotes); !won {
		t.Error("released artifact not claimable again")
	}
	if err := store.RecordPostID(ctx, job.ID, ArtifactNotes, "m1"); err != nil {
		t.Fatal(err)
	}
	if got := store.jobs[job.ID].Posted.NotesPostID; got != "m1" {
		t.Errorf("notes post id = %q", got)
	}
}

func TestFakeStore_terminalStates(t *testing.T) {
	// The fake mirrors the store contract the service relies on.
	store := newFakeStore()
	ctx := context.Background()
	job, _ := store.Create(ctx, Job{Teacher: "t1"})
	if err := store.Fail(ctx, job.ID, "boom"); err != nil {
		t.Fatal(err)
	}
	if err := store.Complete(ctx, job.ID, "n", nil, nil); !errors.Is(err, ErrFinalized) {
		t.Errorf("Complete after Fail: err = %v, want ErrFinalized", err)
	}
	if got := store.jobs[job.ID].Status; got != StatusFailed {
		t.Errorf("status = %s, want failed", got)
	}
}
