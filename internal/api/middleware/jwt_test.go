package middleware

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"curatehub.io/curatehub/internal/access"
	"curatehub.io/curatehub/internal/domain"
	"curatehub.io/curatehub/internal/pkg/logger"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	if err := logger.Init("error", "console"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

var testSigningKey = []byte("0123456789abcdef0123456789abcdef")

func testJWTConfig(expiresIn time.Duration) JWTConfig {
	return JWTConfig{SigningKey: testSigningKey, Issuer: "curatehub-test", ExpiresIn: expiresIn}
}

func principalRecorder(t *testing.T) (*gin.Engine, *access.Principal) {
	t.Helper()
	var seen access.Principal
	router := gin.New()
	router.Use(JWTAuth(testSigningKey))
	router.GET("/whoami", func(c *gin.Context) {
		seen = PrincipalFromGin(c)
		c.Status(http.StatusOK)
	})
	return router, &seen
}

func TestJWTAuthValidToken(t *testing.T) {
	user := &domain.User{ID: "u-1", Username: "alice", Role: domain.RoleModerator}
	token, expiresAt, err := GenerateToken(testJWTConfig(time.Hour), user)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	router, seen := principalRecorder(t)
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u-1", seen.ID)
	assert.Equal(t, "alice", seen.Username)
	assert.Equal(t, domain.RoleModerator, seen.Role)
}

func TestJWTAuthMissingHeaderIsAnonymous(t *testing.T) {
	router, seen := principalRecorder(t)
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	// No header means anonymous, not a transport-level rejection.
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, seen.Anonymous())
}

func TestJWTAuthRejectsBadTokens(t *testing.T) {
	expired, _, err := GenerateToken(testJWTConfig(-time.Minute), &domain.User{ID: "u-1", Username: "alice", Role: domain.RoleUser})
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{"malformed header", "Token abc"},
		{"garbage token", "Bearer not.a.jwt"},
		{"expired token", "Bearer " + expired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, _ := principalRecorder(t)
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			req.Header.Set("Authorization", tt.header)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestJWTAuthRejectsWrongKey(t *testing.T) {
	otherKey := JWTConfig{SigningKey: []byte("ffffffffffffffffffffffffffffffff"), Issuer: "x", ExpiresIn: time.Hour}
	token, _, err := GenerateToken(otherKey, &domain.User{ID: "u-1", Username: "alice", Role: domain.RoleAdmin})
	require.NoError(t, err)

	router, _ := principalRecorder(t)
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequestIDPropagation(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	var got string
	router.GET("/", func(c *gin.Context) {
		got = GetRequestID(c.Request.Context())
		c.Status(http.StatusOK)
	})

	// Generated when absent.
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, got)
	assert.Equal(t, got, w.Header().Get(RequestIDHeader))

	// Preserved when supplied.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "rid-123")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "rid-123", got)
	assert.Equal(t, "rid-123", w.Header().Get(RequestIDHeader))
}
