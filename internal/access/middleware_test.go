package access

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkravets/travelbooking/internal/domain"
)

type stubRoleSource struct {
	roles map[string]string
}

func (s stubRoleSource) SessionRole(ctx context.Context, subject string) (string, bool, error) {
	role, ok := s.roles[subject]
	return role, ok, nil
}

func signToken(t *testing.T, secret []byte, subject, role string) string {
	t.Helper()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)
	return token
}

func setPrincipal(p domain.Principal) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(principalKey, p)
	}
}

func TestRequireRole_RedirectsAnonymous(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	protectedRan := false
	router.GET("/dashboard",
		setPrincipal(domain.Principal{}),
		RequireRole("/unauthorized", "admin"),
		func(c *gin.Context) { protectedRan = true },
	)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/dashboard", nil))

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/unauthorized", w.Header().Get("Location"))
	assert.False(t, protectedRan, "protected handler must never run on denial")
}

func TestRequireRole_AllowsMember(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	router.GET("/dashboard",
		setPrincipal(domain.Principal{Subject: "u1", Role: "user"}),
		RequireRole("/unauthorized", "user", "admin"),
		func(c *gin.Context) { c.Status(http.StatusOK) },
	)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/dashboard", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthenticate_ResolvesPrincipal(t *testing.T) {
	gin.SetMode(gin.TestMode)
	secret := []byte("test-secret")
	router := gin.New()

	var got domain.Principal
	router.GET("/me", Authenticate(secret, nil), func(c *gin.Context) {
		got = CurrentPrincipal(c)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, secret, "u1", "user"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u1", got.Subject)
	assert.Equal(t, "user", got.Role)
}

func TestAuthenticate_RejectsBadToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/me", Authenticate([]byte("test-secret"), nil), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthenticate_RevokedSessionWinsOverClaim(t *testing.T) {
	gin.SetMode(gin.TestMode)
	secret := []byte("test-secret")
	// the session was revoked after the token was issued: an entry exists
	// and holds the empty role
	roles := stubRoleSource{roles: map[string]string{"u1": ""}}

	router := gin.New()
	var got domain.Principal
	router.GET("/me", Authenticate(secret, roles), func(c *gin.Context) {
		got = CurrentPrincipal(c)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, secret, "u1", "admin"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.False(t, got.Authenticated())
}

func TestAuthenticate_NoSessionEntryKeepsClaimRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	secret := []byte("test-secret")
	// nothing has written a session entry for this subject; the token
	// claim must stand and the protected route must be reachable
	roles := stubRoleSource{roles: map[string]string{}}

	router := gin.New()
	router.GET("/admin",
		Authenticate(secret, roles),
		RequireRole("/unauthorized", "admin"),
		func(c *gin.Context) { c.Status(http.StatusOK) },
	)

	req := httptest.NewRequest("GET", "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, secret, "u1", "admin"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Location"))
}
