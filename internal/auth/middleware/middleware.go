package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/classbrief/classbrief/internal/rbac"
)

type AuthService struct{ hmac []byte }

func NewAuthService(secret string) *AuthService { return &AuthService{hmac: []byte(secret)} }

type Claims struct {
	Sub      string `json:"sub"`
	Email    string `json:"email"`
	GoogleID string `json:"googleId,omitempty"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Identity is the authenticated principal attached to the request context.
type Identity struct {
	UserID   string
	Email    string
	GoogleID string
	Role     string
}

func (a *AuthService) IssueJWT(id Identity) (string, error) {
	now := time.Now()
	claims := &Claims{
		Sub:      id.UserID,
		Email:    id.Email,
		GoogleID: id.GoogleID,
		Role:     id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "classbrief",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(8 * time.Hour)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(a.hmac)
}

func (a *AuthService) Parse(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return a.hmac, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, err
	}
	c, _ := token.Claims.(*Claims)
	return c, nil
}

// identityFromClaims is the single place token claims become an Identity.
// Subject, email, and provider id must all be present; a token missing any
// of them identifies nobody and is discarded whole, never partially honored.
// Local accounts carry their own account id as the provider id.
func identityFromClaims(c *Claims) *Identity {
	if c == nil || c.Sub == "" || c.Email == "" || c.GoogleID == "" {
		return nil
	}
	role := c.Role
	if role == "" {
		role = "teacher"
	}
	return &Identity{UserID: c.Sub, Email: c.Email, GoogleID: c.GoogleID, Role: role}
}

// JWTMiddleware rejects requests without a valid bearer token and attaches
// the identity and its role to the context.
func JWTMiddleware(a *AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if !strings.HasPrefix(h, "Bearer ") {
				http.Error(w, "missing bearer", http.StatusUnauthorized)
				return
			}
			claims, err := a.Parse(strings.TrimPrefix(h, "Bearer "))
			if err != nil {
				http.Error(w, "bad token", http.StatusUnauthorized)
				return
			}
			id := identityFromClaims(claims)
			if id == nil {
				http.Error(w, "bad token", http.StatusUnauthorized)
				return
			}
			ctx := WithIdentity(r.Context(), id)
			ctx = rbac.WithRole(ctx, id.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
