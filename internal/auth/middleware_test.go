package auth

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func serve(handler http.Handler, method, path, token string) int {
	return serveRecorded(handler, method, path, token).Code
}

func serveRecorded(handler http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	return resp
}

func TestAuthMiddleware_NoToken(t *testing.T) {
	handler := NewMiddleware([]byte("test-secret"), NewDefaultPolicy(nil, nil)).Wrap(okHandler)
	assert.Equal(t, http.StatusUnauthorized, serve(handler, http.MethodPost, "/api/v1/admin/spot/backfill", ""))
}

func TestAuthMiddleware_PublicRoutes(t *testing.T) {
	handler := NewMiddleware([]byte("test-secret"), NewDefaultPolicy([]string{"/metrics"}, nil)).Wrap(okHandler)
	assert.Equal(t, http.StatusOK, serve(handler, http.MethodGet, "/api/v1/spot/averages", ""))
	assert.Equal(t, http.StatusOK, serve(handler, http.MethodPost, "/api/v1/contracts/c1/cost", ""))
	assert.Equal(t, http.StatusOK, serve(handler, http.MethodGet, "/api/v1/comparison.xlsx", ""))
	assert.Equal(t, http.StatusOK, serve(handler, http.MethodGet, "/metrics", ""))
}

func TestAuthMiddleware_RoleLadder(t *testing.T) {
	secret := []byte("test-secret")
	handler := NewMiddleware(secret, NewDefaultPolicy(nil, nil)).Wrap(okHandler)

	viewer := mustToken(t, secret, RoleViewer)
	operator := mustToken(t, secret, RoleOperator)
	admin := mustToken(t, secret, RoleAdmin)

	assert.Equal(t, http.StatusForbidden, serve(handler, http.MethodPost, "/api/v1/spot/averages/calculate", viewer))
	assert.Equal(t, http.StatusOK, serve(handler, http.MethodPost, "/api/v1/spot/averages/calculate", operator))
	assert.Equal(t, http.StatusForbidden, serve(handler, http.MethodPost, "/api/v1/admin/catalog/sync", operator))
	assert.Equal(t, http.StatusOK, serve(handler, http.MethodPost, "/api/v1/admin/catalog/sync", admin))
}

func TestAuthMiddleware_ExplainsRejection(t *testing.T) {
	secret := []byte("test-secret")
	handler := NewMiddleware(secret, NewDefaultPolicy(nil, nil)).Wrap(okHandler)

	resp := serveRecorded(handler, http.MethodPost, "/api/v1/admin/catalog/sync", "")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Contains(t, resp.Body.String(), ErrMissingToken.Error())

	resp = serveRecorded(handler, http.MethodPost, "/api/v1/spot/averages/calculate", mustToken(t, secret, RoleViewer))
	assert.Equal(t, http.StatusForbidden, resp.Code)
	assert.Contains(t, resp.Body.String(), "operator role required to recalculate spot averages")

	resp = serveRecorded(handler, http.MethodGet, "/api/v1/spot/hours", mustToken(t, secret, RoleViewer))
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestPolicy_RuleFor(t *testing.T) {
	policy := NewDefaultPolicy([]string{"/healthz"}, []string{"/ingest/"})
	rule, ok := policy.RuleFor(httptest.NewRequest(http.MethodPost, "/api/v1/admin/spot/backfill", nil))
	require.True(t, ok)
	assert.Equal(t, RoleAdmin, rule.Role)

	rule, ok = policy.RuleFor(httptest.NewRequest(http.MethodDelete, "/api/v1/spot/hours", nil))
	require.True(t, ok)
	assert.Equal(t, RoleOperator, rule.Role)

	_, ok = policy.RuleFor(httptest.NewRequest(http.MethodPost, "/api/v1/estimate", nil))
	assert.False(t, ok)
	assert.True(t, policy.IsExempt(httptest.NewRequest(http.MethodPost, "/ingest/spot-prices", nil)))
}

func TestAuthMiddleware_RejectsWrongSecret(t *testing.T) {
	handler := NewMiddleware([]byte("test-secret"), NewDefaultPolicy(nil, nil)).Wrap(okHandler)
	token := mustToken(t, []byte("other-secret"), RoleAdmin)
	assert.Equal(t, http.StatusUnauthorized, serve(handler, http.MethodPost, "/api/v1/admin/catalog/sync", token))
}

func TestAuthMiddleware_StoresIdentity(t *testing.T) {
	secret := []byte("test-secret")
	var gotRole Role
	var gotSubject string
	handler := NewMiddleware(secret, NewDefaultPolicy(nil, nil)).Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRole = RoleFromContext(r.Context())
		gotSubject = SubjectFromContext(r.Context())
	}))
	serve(handler, http.MethodPost, "/api/v1/admin/spot/backfill", mustToken(t, secret, RoleAdmin))
	assert.Equal(t, RoleAdmin, gotRole)
	assert.Equal(t, "user-1", gotSubject)
}

func TestParseJWT_RequiresExpiry(t *testing.T) {
	secret := []byte("test-secret")
	token, err := IssueJWT(secret, "user-1", RoleViewer, time.Hour)
	require.NoError(t, err)
	claims, err := ParseJWT(token, secret)
	require.NoError(t, err)
	assert.Equal(t, "viewer", claims.Role)

	expired, err := IssueJWT(secret, "user-1", RoleViewer, -time.Minute)
	require.NoError(t, err)
	_, err = ParseJWT(expired, secret)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = ParseJWT("", secret)
	require.ErrorIs(t, err, ErrMissingToken)
	_, err = IssueJWT(secret, "user-1", Role("root"), time.Hour)
	require.ErrorIs(t, err, ErrUnknownRole)
}

func TestIngestAuth(t *testing.T) {
	secret := []byte("ingest-secret")
	now := time.Unix(1_700_000_000, 0)
	mw := NewIngestAuthMiddleware(secret, 5*time.Minute)
	mw.now = func() time.Time { return now }
	var gotBody string
	handler := mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)
		w.WriteHeader(http.StatusAccepted)
	}))

	body := `{"region":"FI","prices":[]}`
	send := func(ts int64, signature string) int {
		req := httptest.NewRequest(http.MethodPost, "/ingest/spot-prices", strings.NewReader(body))
		req.Header.Set(HeaderIngestTimestamp, strconv.FormatInt(ts, 10))
		req.Header.Set(HeaderIngestSignature, signature)
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		return resp.Code
	}

	ts := now.Unix()
	assert.Equal(t, http.StatusAccepted, send(ts, SignIngest(secret, strconv.FormatInt(ts, 10), []byte(body))))
	assert.Equal(t, body, gotBody)
	assert.Equal(t, http.StatusUnauthorized, send(ts, "deadbeef"))

	old := now.Add(-time.Hour).Unix()
	assert.Equal(t, http.StatusUnauthorized, send(old, SignIngest(secret, strconv.FormatInt(old, 10), []byte(body))))
}

func mustToken(t *testing.T, secret []byte, role Role) string {
	t.Helper()
	token, err := IssueJWT(secret, "user-1", role, time.Hour)
	require.NoError(t, err)
	return token
}
