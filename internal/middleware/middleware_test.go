package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-webinar/live-engine/internal/auth"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(jwtService *auth.JWTService) *gin.Engine {
	r := gin.New()
	r.Use(CORS("http://console.local"))
	r.GET("/me", JWT(jwtService), func(c *gin.Context) {
		id, _ := UserID(c)
		c.String(http.StatusOK, id.String())
	})
	r.GET("/host", JWT(jwtService), RequireRole(auth.HostRoles...), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func do(r http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Origin", "http://console.local")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTMiddleware(t *testing.T) {
	svc := auth.NewJWTService("secret", 1)
	r := newRouter(svc)
	id := uuid.New()
	token, err := svc.Generate(id, auth.RoleAttendee)
	require.NoError(t, err)

	w := do(r, http.MethodGet, "/me", token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, id.String(), w.Body.String())
	assert.Equal(t, "http://console.local", w.Header().Get("Access-Control-Allow-Origin"))

	w = do(r, http.MethodGet, "/me", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = do(r, http.MethodGet, "/me", "garbage")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRole(t *testing.T) {
	svc := auth.NewJWTService("secret", 1)
	r := newRouter(svc)

	attendee, _ := svc.Generate(uuid.New(), auth.RoleAttendee)
	speaker, _ := svc.Generate(uuid.New(), auth.RoleSpeaker)

	assert.Equal(t, http.StatusForbidden, do(r, http.MethodGet, "/host", attendee).Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/host", speaker).Code)
}

func TestCORSPreflight(t *testing.T) {
	r := newRouter(auth.NewJWTService("secret", 1))
	r.OPTIONS("/me", func(c *gin.Context) {})
	w := do(r, http.MethodOptions, "/me", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
}
