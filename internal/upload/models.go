package upload

import (
	"time"

	"github.com/classbrief/classbrief/internal/ai"
)

type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Artifact identifies one of the two independently published outputs.
type Artifact string

const (
	ArtifactNotes     Artifact = "notes"
	ArtifactQuestions Artifact = "questions"
)

// PublishState tracks the two independent Classroom postings. A flag goes
// true when a publish claims the artifact; it only returns to false when
// that publish releases a claim whose external post failed.
type PublishState struct {
	Notes           bool   `bson:"notes" json:"notes"`
	Questions       bool   `bson:"questions" json:"questions"`
	NotesPostID     string `bson:"notesPostId,omitempty" json:"notesPostId,omitempty"`
	QuestionsPostID string `bson:"questionsPostId,omitempty" json:"questionsPostId,omitempty"`
}

// Job is one uploaded document and everything derived from it.
//
// status=completed implies extraction and generation both succeeded;
// status=failed implies Error is set and Notes/Questions stay empty.
type Job struct {
	ID        string              `bson:"_id" json:"id"`
	Teacher   string              `bson:"teacher" json:"teacher"`
	CourseID  string              `bson:"courseId" json:"courseId"`
	FileKey   string              `bson:"fileKey,omitempty" json:"fileKey,omitempty"`
	FileName  string              `bson:"fileName" json:"fileName"`
	FileType  string              `bson:"fileType" json:"fileType"` // pdf|ppt|pptx
	Notes     string              `bson:"notes" json:"notes"`
	NotesDoc  *ai.StructuredNotes `bson:"notesDoc,omitempty" json:"notesDoc,omitempty"`
	Questions []ai.QuizQuestion   `bson:"questions" json:"questions"`
	Posted    PublishState        `bson:"postedToClassroom" json:"postedToClassroom"`
	Status    Status              `bson:"status" json:"status"`
	Error     string              `bson:"error,omitempty" json:"error,omitempty"`
	CreatedAt time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time           `bson:"updatedAt" json:"updatedAt"`
}
