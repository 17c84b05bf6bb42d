package upload

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/classbrief/classbrief/internal/ai"
)

type MongoStore struct {
	coll *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{coll: db.Collection("uploads")}
}

func (s *MongoStore) Create(ctx context.Context, job Job) (Job, error) {
	now := time.Now().UTC()
	job.ID = primitive.NewObjectID().Hex()
	job.Status = StatusProcessing
	job.Notes = ""
	job.NotesDoc = nil
	job.Questions = nil
	job.Posted = PublishState{}
	job.Error = ""
	job.CreatedAt = now
	job.UpdatedAt = now
	if _, err := s.coll.InsertOne(ctx, job); err != nil {
		return Job{}, fmt.Errorf("insert upload: %w", err)
	}
	return job, nil
}

func (s *MongoStore) Get(ctx context.Context, id string) (Job, error) {
	var job Job
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&job)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Job{}, ErrNotFound
	}
	if err != nil {
		return Job{}, fmt.Errorf("get upload: %w", err)
	}
	return job, nil
}

func (s *MongoStore) List(ctx context.Context, opts ListOpts) ([]Job, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	cur, err := s.coll.Find(ctx, bson.M{"teacher": opts.Teacher},
		options.Find().
			SetSort(bson.D{{Key: "createdAt", Value: -1}}).
			SetLimit(int64(limit)).
			SetSkip(int64(opts.Offset)))
	if err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}
	var jobs []Job
	if err := cur.All(ctx, &jobs); err != nil {
		return nil, fmt.Errorf("decode uploads: %w", err)
	}
	return jobs, nil
}

func (s *MongoStore) Complete(ctx context.Context, id, notes string, notesDoc *ai.StructuredNotes, questions []ai.QuizQuestion) error {
	return s.finalize(ctx, id, bson.M{
		"status":    StatusCompleted,
		"notes":     notes,
		"notesDoc":  notesDoc,
		"questions": questions,
		"updatedAt": time.Now().UTC(),
	})
}

func (s *MongoStore) Fail(ctx context.Context, id, msg string) error {
	return s.finalize(ctx, id, bson.M{
		"status":    StatusFailed,
		"error":     msg,
		"updatedAt": time.Now().UTC(),
	})
}

// finalize only matches jobs still in processing, so terminal states are
// never overwritten.
func (s *MongoStore) finalize(ctx context.Context, id string, set bson.M) error {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": id, "status": StatusProcessing},
		bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("finalize upload: %w", err)
	}
	if res.MatchedCount == 0 {
		if _, err := s.Get(ctx, id); err != nil {
			return err
		}
		return ErrFinalized
	}
	return nil
}

func flagField(a Artifact) string { return "postedToClassroom." + string(a) }

func postIDField(a Artifact) string {
	if a == ArtifactNotes {
		return "postedToClassroom.notesPostId"
	}
	return "postedToClassroom.questionsPostId"
}

// ClaimPost is a test-and-set on the posted flag: the filter requires the
// flag to still be false, so concurrent publishes cannot both claim it.
func (s *MongoStore) ClaimPost(ctx context.Context, id string, a Artifact) (bool, error) {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": id, flagField(a): false},
		bson.M{"$set": bson.M{
			flagField(a): true,
			"updatedAt":  time.Now().UTC(),
		}})
	if err != nil {
		return false, fmt.Errorf("claim post: %w", err)
	}
	return res.ModifiedCount == 1, nil
}

func (s *MongoStore) RecordPostID(ctx context.Context, id string, a Artifact, postID string) error {
	_, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			postIDField(a): postID,
			"updatedAt":    time.Now().UTC(),
		}})
	if err != nil {
		return fmt.Errorf("record post id: %w", err)
	}
	return nil
}

func (s *MongoStore) ReleasePost(ctx context.Context, id string, a Artifact) error {
	_, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			flagField(a): false,
			"updatedAt":  time.Now().UTC(),
		}})
	if err != nil {
		return fmt.Errorf("release post: %w", err)
	}
	return nil
}
