// Package classroom pushes generated artifacts to Google Classroom: notes as
// a course-work material and questions as an assignment. The two postings are
// independent failure domains tracked by separate flags on the upload job.
package classroom

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	api "google.golang.org/api/classroom/v1"
	"google.golang.org/api/option"

	"github.com/classbrief/classbrief/internal/audit"
	"github.com/classbrief/classbrief/internal/upload"
)

// JobStore is the slice of the upload store the publisher needs: the
// claim cycle around each external post.
type JobStore interface {
	ClaimPost(ctx context.Context, id string, a upload.Artifact) (bool, error)
	RecordPostID(ctx context.Context, id string, a upload.Artifact, postID string) error
	ReleasePost(ctx context.Context, id string, a upload.Artifact) error
}

type Publisher struct {
	jobs      JobStore
	audit     audit.Sink
	log       *zap.Logger
	publicURL string
	opts      []option.ClientOption // extra client options, used by tests
}

func NewPublisher(jobs JobStore, sink audit.Sink, log *zap.Logger, publicURL string, opts ...option.ClientOption) *Publisher {
	return &Publisher{jobs: jobs, audit: sink, log: log, publicURL: strings.TrimRight(publicURL, "/"), opts: opts}
}

// PublishResult reports the per-artifact outcome. A false boolean with a
// non-empty job flag means the artifact was already posted earlier.
type PublishResult struct {
	NotesPosted     bool   `json:"notesPosted"`
	QuestionsPosted bool   `json:"questionsPosted"`
	NotesPostID     string `json:"notesPostId,omitempty"`
	QuestionsPostID string `json:"questionsPostId,omitempty"`
}

func (p *Publisher) service(ctx context.Context, accessToken string) (*api.Service, error) {
	opts := append([]option.ClientOption{
		option.WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})),
	}, p.opts...)
	return api.NewService(ctx, opts...)
}

// Publish posts the job's pending artifacts to its course. Only completed
// jobs are publishable. Each artifact is claimed in the store before its API
// call, so concurrent publishes of the same upload cannot double-post; a
// failure of one artifact never aborts the other, and failures come back as
// false booleans, not as an error.
func (p *Publisher) Publish(ctx context.Context, accessToken string, job upload.Job, due *time.Time) (PublishResult, error) {
	if job.Status != upload.StatusCompleted {
		return PublishResult{}, fmt.Errorf("upload %s is not completed", job.ID)
	}
	svc, err := p.service(ctx, accessToken)
	if err != nil {
		return PublishResult{}, fmt.Errorf("classroom client: %w", err)
	}

	res := PublishResult{
		NotesPosted:     job.Posted.Notes,
		QuestionsPosted: job.Posted.Questions,
		NotesPostID:     job.Posted.NotesPostID,
		QuestionsPostID: job.Posted.QuestionsPostID,
	}

	if job.Notes != "" && !job.Posted.Notes {
		if postID, ok := p.claimAndPost(ctx, job, upload.ArtifactNotes, func() (string, error) {
			return p.postNotes(ctx, svc, job)
		}); ok {
			res.NotesPosted = true
			res.NotesPostID = postID
		}
	}

	if len(job.Questions) > 0 && !job.Posted.Questions {
		if postID, ok := p.claimAndPost(ctx, job, upload.ArtifactQuestions, func() (string, error) {
			return p.postQuestions(ctx, svc, job, due)
		}); ok {
			res.QuestionsPosted = true
			res.QuestionsPostID = postID
		}
	}

	status := audit.StatusSuccess
	if !res.NotesPosted && !res.QuestionsPosted {
		status = audit.StatusFailure
	}
	p.audit.Record(ctx, audit.Entry{
		Teacher:  job.Teacher,
		CourseID: job.CourseID,
		Action:   audit.ActionPostToClassroom,
		Status:   status,
		Metadata: map[string]any{
			"uploadId":        job.ID,
			"notesPosted":     res.NotesPosted,
			"questionsPosted": res.QuestionsPosted,
		},
	})
	return res, nil
}

// claimAndPost takes the store claim first, calls the Classroom API only when
// the claim was won, and releases the claim if the API call failed. A lost
// claim means another publish holds the artifact; no second post is made.
func (p *Publisher) claimAndPost(ctx context.Context, job upload.Job, a upload.Artifact, post func() (string, error)) (string, bool) {
	won, err := p.jobs.ClaimPost(ctx, job.ID, a)
	if err != nil {
		p.log.Warn("claim post", zap.String("uploadId", job.ID), zap.String("artifact", string(a)), zap.Error(err))
		return "", false
	}
	if !won {
		return "", false
	}
	postID, err := post()
	if err != nil {
		p.log.Warn("post to classroom", zap.String("uploadId", job.ID), zap.String("artifact", string(a)), zap.Error(err))
		if rerr := p.jobs.ReleasePost(ctx, job.ID, a); rerr != nil {
			p.log.Warn("release post claim", zap.String("uploadId", job.ID), zap.String("artifact", string(a)), zap.Error(rerr))
		}
		return "", false
	}
	if err := p.jobs.RecordPostID(ctx, job.ID, a, postID); err != nil {
		p.log.Warn("record post id", zap.String("uploadId", job.ID), zap.String("artifact", string(a)), zap.Error(err))
	}
	return postID, true
}

func (p *Publisher) postNotes(ctx context.Context, svc *api.Service, job upload.Job) (string, error) {
	material := &api.CourseWorkMaterial{
		Title:       "Notes: " + job.FileName,
		Description: job.Notes,
		Materials:   p.linkMaterials(job),
		State:       "PUBLISHED",
	}
	created, err := svc.Courses.CourseWorkMaterials.Create(job.CourseID, material).Context(ctx).Do()
	if err != nil {
		return "", err
	}
	return created.Id, nil
}

func (p *Publisher) postQuestions(ctx context.Context, svc *api.Service, job upload.Job, due *time.Time) (string, error) {
	work := &api.CourseWork{
		Title:       "Quiz: " + job.FileName,
		Description: questionsText(job),
		Materials:   p.linkMaterials(job),
		WorkType:    "ASSIGNMENT",
		State:       "PUBLISHED",
		// 2 points per question
		MaxPoints:                  float64(2 * len(job.Questions)),
		SubmissionModificationMode: "MODIFIABLE_UNTIL_TURNED_IN",
	}
	if due != nil {
		work.DueDate = &api.Date{
			Year:  int64(due.Year()),
			Month: int64(due.Month()),
			Day:   int64(due.Day()),
		}
		// Due at end of the chosen day.
		work.DueTime = &api.TimeOfDay{Hours: 23, Minutes: 59}
	}
	created, err := svc.Courses.CourseWork.Create(job.CourseID, work).Context(ctx).Do()
	if err != nil {
		return "", err
	}
	return created.Id, nil
}

func (p *Publisher) linkMaterials(job upload.Job) []*api.Material {
	if job.FileKey == "" || p.publicURL == "" {
		return nil
	}
	return []*api.Material{{
		Link: &api.Link{
			Url:   p.publicURL + "/assets/" + job.FileKey,
			Title: job.FileName,
		},
	}}
}

func questionsText(job upload.Job) string {
	var b strings.Builder
	b.WriteString("AI-generated quiz questions based on the uploaded material.\n\n")
	for i, q := range job.Questions {
		fmt.Fprintf(&b, "%d. %s\n", i+1, q.Question)
		for j, opt := range q.Options {
			fmt.Fprintf(&b, "   %c) %s\n", 'A'+j, opt)
		}
	}
	return strings.TrimSpace(b.String())
}
