// Package audit records what the application did on behalf of a teacher.
// Entries are written on every externally observable success or failure and
// never read back by the core pipeline; the dashboard lists them.
package audit

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

const (
	ActionFileUpload      = "file_upload"
	ActionAIProcessing    = "ai_processing"
	ActionPostToClassroom = "post_to_classroom"
	ActionClassroomFetch  = "classroom_fetch"
	ActionAuthLogin       = "auth_login"
	ActionAuthSignup      = "auth_signup"
)

type Entry struct {
	ID        string         `bson:"_id" json:"id"`
	Teacher   string         `bson:"teacher" json:"teacher"`
	CourseID  string         `bson:"courseId,omitempty" json:"courseId,omitempty"`
	Action    string         `bson:"action" json:"action"`
	Status    Status         `bson:"status" json:"status"`
	Error     string         `bson:"error,omitempty" json:"error,omitempty"`
	Metadata  map[string]any `bson:"metadata,omitempty" json:"metadata,omitempty"`
	CreatedAt time.Time      `bson:"createdAt" json:"createdAt"`
}

// Sink is what producers write to.
type Sink interface {
	Record(ctx context.Context, e Entry)
}

type ListOpts struct {
	Teacher string
	Action  string
	Status  string
	Limit   int
	Page    int // 1-based
}

type MongoLog struct {
	coll *mongo.Collection
	log  *zap.Logger
}

func NewMongoLog(db *mongo.Database, log *zap.Logger) *MongoLog {
	return &MongoLog{coll: db.Collection("audit_logs"), log: log}
}

// Record appends an entry best-effort. A logging failure must never mask the
// error being reported, so it is logged and swallowed here.
func (l *MongoLog) Record(ctx context.Context, e Entry) {
	e.ID = primitive.NewObjectID().Hex()
	e.CreatedAt = time.Now().UTC()
	if _, err := l.coll.InsertOne(ctx, e); err != nil {
		l.log.Warn("audit append failed",
			zap.String("action", e.Action),
			zap.Error(err))
	}
}

// List returns a page of entries for one teacher, newest first, plus the
// total count for pagination.
func (l *MongoLog) List(ctx context.Context, opts ListOpts) ([]Entry, int64, error) {
	filter := bson.M{"teacher": opts.Teacher}
	if opts.Action != "" {
		filter["action"] = opts.Action
	}
	if opts.Status != "" {
		filter["status"] = opts.Status
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	page := opts.Page
	if page <= 0 {
		page = 1
	}

	total, err := l.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	cur, err := l.coll.Find(ctx, filter,
		options.Find().
			SetSort(bson.D{{Key: "createdAt", Value: -1}}).
			SetLimit(int64(limit)).
			SetSkip(int64((page-1)*limit)))
	if err != nil {
		return nil, 0, err
	}
	var entries []Entry
	if err := cur.All(ctx, &entries); err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}
