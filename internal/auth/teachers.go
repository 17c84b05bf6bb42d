package auth

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/oauth2"
)

var (
	ErrTeacherNotFound = errors.New("teacher not found")
	ErrDuplicateEmail  = errors.New("email already registered")
)

// Teacher is an account. Google-authenticated accounts carry the Google
// subject plus the OAuth tokens the Classroom calls run under; local
// accounts carry a password hash instead.
type Teacher struct {
	ID           string    `bson:"_id" json:"id"`
	Email        string    `bson:"email" json:"email"`
	Name         string    `bson:"name,omitempty" json:"name,omitempty"`
	Picture      string    `bson:"picture,omitempty" json:"picture,omitempty"`
	GoogleID     string    `bson:"googleId,omitempty" json:"-"`
	PasswordHash string    `bson:"passwordHash,omitempty" json:"-"`
	AccessToken  string    `bson:"accessToken,omitempty" json:"-"`
	RefreshToken string    `bson:"refreshToken,omitempty" json:"-"`
	TokenExpiry  time.Time `bson:"tokenExpiry,omitempty" json:"-"`
	Role         string    `bson:"role" json:"role"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt" json:"updatedAt"`
}

// GoogleProfile is what the verified id_token tells us about the account.
type GoogleProfile struct {
	Sub     string
	Email   string
	Name    string
	Picture string
}

type TeacherStore struct {
	coll *mongo.Collection
}

func NewTeacherStore(db *mongo.Database) *TeacherStore {
	return &TeacherStore{coll: db.Collection("teachers")}
}

func (s *TeacherStore) FindByID(ctx context.Context, id string) (Teacher, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *TeacherStore) FindByEmail(ctx context.Context, email string) (Teacher, error) {
	return s.findOne(ctx, bson.M{"email": email})
}

func (s *TeacherStore) findOne(ctx context.Context, filter bson.M) (Teacher, error) {
	var t Teacher
	err := s.coll.FindOne(ctx, filter).Decode(&t)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Teacher{}, ErrTeacherNotFound
	}
	if err != nil {
		return Teacher{}, err
	}
	return t, nil
}

// UpsertGoogle creates or refreshes the account for a verified Google login
// and records the OAuth tokens for later Classroom calls. An empty refresh
// token never clears a stored one; Google only sends it on first consent.
func (s *TeacherStore) UpsertGoogle(ctx context.Context, profile GoogleProfile, tok *oauth2.Token) (Teacher, error) {
	now := time.Now().UTC()
	set := bson.M{
		"email":       profile.Email,
		"name":        profile.Name,
		"picture":     profile.Picture,
		"googleId":    profile.Sub,
		"accessToken": tok.AccessToken,
		"tokenExpiry": tok.Expiry,
		"updatedAt":   now,
	}
	if tok.RefreshToken != "" {
		set["refreshToken"] = tok.RefreshToken
	}
	update := bson.M{
		"$set":         set,
		"$setOnInsert": bson.M{"_id": "google|" + profile.Sub, "role": "teacher", "createdAt": now},
	}
	after := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var t Teacher
	if err := s.coll.FindOneAndUpdate(ctx, bson.M{"googleId": profile.Sub}, update, after).Decode(&t); err != nil {
		return Teacher{}, err
	}
	return t, nil
}

// CreateLocal registers a password account. The unique email index turns a
// double signup into ErrDuplicateEmail.
func (s *TeacherStore) CreateLocal(ctx context.Context, id, email, name, passwordHash string) (Teacher, error) {
	now := time.Now().UTC()
	t := Teacher{
		ID:           id,
		Email:        email,
		Name:         name,
		PasswordHash: passwordHash,
		Role:         "teacher",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := s.coll.InsertOne(ctx, t); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return Teacher{}, ErrDuplicateEmail
		}
		return Teacher{}, err
	}
	return t, nil
}
