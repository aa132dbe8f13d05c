package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/trainwise/backend/internal/app/service/accounts"
	"github.com/trainwise/backend/pkg/config"
	types "github.com/trainwise/backend/pkg/types"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func newTestIssuer(t *testing.T) *accounts.TokenIssuer {
	t.Helper()
	cfg := &config.Config{}
	cfg.JWT.Secret = "unit-test-secret"
	cfg.JWT.TTLHours = 1
	return accounts.NewTokenIssuer(cfg)
}

func newAuthedRouter(tokens *accounts.TokenIssuer, roles ...types.Role) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	g := r.Group("/", AuthMiddleware(tokens))
	if len(roles) > 0 {
		g = g.Group("/", RequireRole(roles...))
	}
	g.GET("/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": AuthUserID(c), "role": AuthRole(c)})
	})
	return r
}

func TestAuthMiddlewareAcceptsValidToken(t *testing.T) {
	tokens := newTestIssuer(t)
	r := newAuthedRouter(tokens)

	token, err := tokens.Issue("user-1", types.RoleMember)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "user-1")
}

func TestAuthMiddlewareRejectsMissingHeader(t *testing.T) {
	r := newAuthedRouter(newTestIssuer(t))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddlewareRejectsMalformedToken(t *testing.T) {
	r := newAuthedRouter(newTestIssuer(t))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer not.a.token")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRoleGatesByRole(t *testing.T) {
	tokens := newTestIssuer(t)
	r := newAuthedRouter(tokens, types.RoleAdmin)

	memberToken, err := tokens.Issue("user-1", types.RoleMember)
	require.NoError(t, err)
	adminToken, err := tokens.Issue("user-2", types.RoleAdmin)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+memberToken)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
}
