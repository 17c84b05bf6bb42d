package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	HTTPAddr  string
	PublicURL string

	MongoURI string
	MongoDB  string

	AuthHMACSecret string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURI  string // e.g., PUBLIC_URL + "/api/auth/google/callback"
	GoogleAllowedHD    string // optional: restrict to one workspace domain

	GeminiAPIKey    string
	NotesModel      string
	QuizModel       string
	BlobBasePath    string
	MaxUploadBytes  int64
	CORSOrigins     []string
	EnableLocalAuth bool
	Debug           bool
}

func FromEnv() Config {
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	pub := os.Getenv("PUBLIC_URL")
	return Config{
		HTTPAddr:  addr,
		PublicURL: pub,

		MongoURI: envOr("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDB:  envOr("MONGODB_DB", "classbrief"),

		AuthHMACSecret: envOr("AUTH_HMAC_SECRET", "dev-secret-change-me"),

		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURI:  envOr("GOOGLE_REDIRECT_URI", strings.TrimSuffix(pub, "/")+"/api/auth/google/callback"),
		GoogleAllowedHD:    os.Getenv("GOOGLE_ALLOWED_HD"),

		GeminiAPIKey:   os.Getenv("GEMINI_API_KEY"),
		NotesModel:     envOr("GEMINI_NOTES_MODEL", "gemini-1.5-flash"),
		QuizModel:      envOr("GEMINI_QUIZ_MODEL", "gemini-1.5-flash"),
		BlobBasePath:   envOr("BLOB_BASE_PATH", "./data"),
		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 25<<20),

		CORSOrigins:     csvOr("CORS_ORIGINS", "http://localhost:3000"),
		EnableLocalAuth: envBool("ENABLE_LOCAL_AUTH", true),
		Debug:           envBool("DEBUG", false),
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}

func envInt64(k string, def int64) int64 {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
