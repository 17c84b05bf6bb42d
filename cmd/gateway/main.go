package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/classbrief/classbrief/internal/ai"
	api "github.com/classbrief/classbrief/internal/api/http"
	"github.com/classbrief/classbrief/internal/audit"
	"github.com/classbrief/classbrief/internal/auth"
	authmw "github.com/classbrief/classbrief/internal/auth/middleware"
	"github.com/classbrief/classbrief/internal/classroom"
	"github.com/classbrief/classbrief/internal/config"
	"github.com/classbrief/classbrief/internal/db"
	"github.com/classbrief/classbrief/internal/rbac"
	"github.com/classbrief/classbrief/internal/storage"
	"github.com/classbrief/classbrief/internal/upload"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()

	logger, err := newLogger(cfg.Debug)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	database, err := db.Open(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		logger.Fatal("mongo open", zap.Error(err))
	}

	bs, err := storage.NewFSStore(cfg.BlobBasePath)
	if err != nil {
		logger.Fatal("blob store", zap.Error(err))
	}

	gen, err := ai.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.NotesModel, cfg.QuizModel)
	if err != nil {
		logger.Fatal("gemini client", zap.Error(err))
	}

	auditLog := audit.NewMongoLog(database, logger)
	teachers := auth.NewTeacherStore(database)
	uploads := upload.NewMongoStore(database)
	uploadSvc := upload.NewService(uploads, gen, bs, auditLog, logger)
	publisher := classroom.NewPublisher(uploads, auditLog, logger, cfg.PublicURL)
	authSvc := authmw.NewAuthService(cfg.AuthHMACSecret)

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Auth surface (public)
	r.Get("/api/auth/google/login", auth.GoogleLoginHandler(cfg))
	r.Get("/api/auth/google/callback", auth.GoogleCallbackHandler(authSvc, teachers, auditLog, cfg))
	if cfg.EnableLocalAuth {
		r.Post("/api/auth/signup", auth.SignupHandler(authSvc, teachers, auditLog))
		r.Post("/api/auth/login", auth.LocalLoginHandler(authSvc, teachers, auditLog))
	}

	// Protected API (JWT → role in context → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(authmw.JWTMiddleware(authSvc))

		pr.With(rbac.Require("upload:create")).
			Post("/api/uploads", api.UploadHandler(uploadSvc, cfg.MaxUploadBytes))
		pr.With(rbac.Require("upload:view")).
			Get("/api/uploads", api.ListUploadsHandler(uploadSvc))
		pr.With(rbac.Require("upload:view")).
			Get("/api/uploads/{uploadID}", api.GetUploadHandler(uploadSvc))

		pr.With(rbac.Require("notes:preview")).
			Post("/api/notes/preview", api.NotesPreviewHandler(gen))

		pr.With(rbac.Require("classroom:list")).
			Get("/api/classroom/courses", api.ListCoursesHandler(publisher, teachers))
		pr.With(rbac.Require("classroom:post")).
			Post("/api/classroom/{uploadID}/post", api.PostToClassroomHandler(publisher, uploadSvc, teachers))

		pr.With(rbac.Require("logs:view")).
			Get("/api/logs", api.LogsHandler(auditLog))

		pr.Route("/assets", func(ar chi.Router) {
			api.MountAssets(ar, bs)
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		pctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := database.Client().Ping(pctx, nil); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(200)
	})

	logger.Info("listening", zap.String("addr", cfg.HTTPAddr), zap.String("db", cfg.MongoDB))
	if err := http.ListenAndServe(cfg.HTTPAddr, r); err != nil {
		logger.Fatal("serve", zap.Error(err))
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
