package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/read", AuthMiddleware(), func(c *gin.Context) {
		c.String(http.StatusOK, ActorFromContext(c.Request.Context()))
	})
	r.POST("/write", AuthMiddleware(), RequireRole(RoleAdmin, RoleStaff), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	r := newAuthRouter()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/read", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/read", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, err := GenerateToken("17", RoleStaff)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/read", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "17", w.Body.String())
}

func TestRequireRole(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	r := newAuthRouter()

	renter, err := GenerateToken("5", RoleRenter)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/write", nil)
	req.Header.Set("Authorization", "Bearer "+renter)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	admin, err := GenerateToken("1", RoleAdmin)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodPost, "/write", nil)
	req.Header.Set("Authorization", "Bearer "+admin)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestGenerateTokenRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := GenerateToken("1", RoleAdmin)
	assert.Error(t, err)
	assert.NotEmpty(t, GenerateJWTSecret())
}

func TestValidation(t *testing.T) {
	assert.True(t, ValidatePhone("+880 1711-223344"))
	assert.False(t, ValidatePhone("0123"))
	assert.Equal(t, "+8801711223344", NormalizePhone("+880 (1711) 223-344"))
	assert.True(t, ValidateEmail("renter@example.com"))
	assert.False(t, ValidateEmail(""))
}
