package upload

import (
	"context"
	"errors"

	"github.com/classbrief/classbrief/internal/ai"
)

var (
	ErrNotFound  = errors.New("upload not found")
	ErrFinalized = errors.New("upload already finalized")
)

type ListOpts struct {
	Teacher string
	Limit   int
	Offset  int
}

// Store persists upload jobs. Completed and failed are terminal: no Store
// operation transitions a job out of them.
type Store interface {
	// Create persists a new job in processing state and returns it with its
	// assigned ID and timestamps.
	Create(ctx context.Context, job Job) (Job, error)
	Get(ctx context.Context, id string) (Job, error)
	List(ctx context.Context, opts ListOpts) ([]Job, error)

	// Complete transitions processing -> completed, storing the generated
	// artifacts. Returns ErrFinalized if the job is already terminal.
	Complete(ctx context.Context, id, notes string, notesDoc *ai.StructuredNotes, questions []ai.QuizQuestion) error
	// Fail transitions processing -> failed with an error message.
	Fail(ctx context.Context, id, msg string) error

	// ClaimPost test-and-sets the artifact's posted flag. The bool reports
	// whether this call won the claim; false means another publish holds or
	// completed it. Claims are taken before the external post so two
	// concurrent publishes cannot both call the Classroom API.
	ClaimPost(ctx context.Context, id string, a Artifact) (bool, error)
	// RecordPostID stores the external post id once the post succeeded.
	RecordPostID(ctx context.Context, id string, a Artifact, postID string) error
	// ReleasePost rolls a claim back after the external post failed, so a
	// later publish can retry the artifact.
	ReleasePost(ctx context.Context, id string, a Artifact) error
}
