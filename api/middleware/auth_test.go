package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/pricing-engine/pkg/auth"
	"github.com/angelmondragon/pricing-engine/pkg/config"
	"github.com/angelmondragon/pricing-engine/pkg/enums"
)

func testVerifier(t *testing.T, secret string) *auth.Verifier {
	t.Helper()
	v, err := auth.NewVerifier(config.JWTConfig{Secret: secret, Issuer: "issuer", ExpirationMinutes: 10})
	require.NoError(t, err)
	return v
}

func mintTestToken(t *testing.T, v *auth.Verifier, role enums.AdminRole) string {
	t.Helper()
	token, err := v.Issue(time.Now(), auth.Actor{UserID: uuid.New(), Role: role})
	require.NoError(t, err)
	return token
}

func okHandler(status int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	})
}

func TestAuthRejectsBadCredentials(t *testing.T) {
	v := testVerifier(t, "secret")
	foreign := mintTestToken(t, testVerifier(t, "other"), enums.AdminRolePricingAdmin)

	cases := map[string]string{
		"missing":        "",
		"wrong scheme":   "Basic dXNlcjpwYXNz",
		"empty bearer":   "Bearer   ",
		"garbage":        "Bearer invalid",
		"foreign secret": "Bearer " + foreign,
	}
	for name, header := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		resp := httptest.NewRecorder()
		Auth(v, nil)(okHandler(http.StatusOK)).ServeHTTP(resp, req)
		assert.Equal(t, http.StatusUnauthorized, resp.Code, name)
	}
}

func TestAuthWithoutVerifier(t *testing.T) {
	resp := httptest.NewRecorder()
	Auth(nil, nil)(okHandler(http.StatusOK)).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
}

func TestAuthStoresActor(t *testing.T) {
	v := testVerifier(t, "secret")
	token := mintTestToken(t, v, enums.AdminRolePricingAdmin)

	var actor auth.Actor
	var found bool
	handler := Auth(v, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, found = ActorFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	require.True(t, found)
	assert.NotEqual(t, uuid.Nil, actor.UserID)
	assert.Equal(t, enums.AdminRolePricingAdmin, actor.Role)
}

func TestRequireRole(t *testing.T) {
	v := testVerifier(t, "secret")
	protected := Auth(v, nil)(RequireRole(nil, enums.AdminRolePricingAdmin)(okHandler(http.StatusNoContent)))

	tests := []struct {
		name string
		role enums.AdminRole
		want int
	}{
		{"admin", enums.AdminRolePricingAdmin, http.StatusNoContent},
		{"viewer", enums.AdminRolePricingViewer, http.StatusForbidden},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/rules", nil)
		req.Header.Set("Authorization", "Bearer "+mintTestToken(t, v, tt.role))
		resp := httptest.NewRecorder()
		protected.ServeHTTP(resp, req)
		assert.Equal(t, tt.want, resp.Code, tt.name)
	}
}

func TestRequireRoleWithoutActor(t *testing.T) {
	handler := RequireRole(nil, enums.AdminRolePricingAdmin, enums.AdminRolePricingViewer)(okHandler(http.StatusOK))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}
