package audit

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"electricity-compare/internal/auth"
)

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest("POST", "/api/v1/admin/catalog/sync", nil)
	req.RemoteAddr = "10.0.0.9:5555"
	assert.Equal(t, "10.0.0.9", ClientIP(req))

	req.Header.Set("X-Real-IP", "10.0.0.2")
	assert.Equal(t, "10.0.0.2", ClientIP(req))

	req.Header.Set("X-Forwarded-For", "192.0.2.1, 10.0.0.1")
	assert.Equal(t, "192.0.2.1", ClientIP(req))
}

func TestFromRequest(t *testing.T) {
	req := httptest.NewRequest("POST", "/api/v1/admin/spot/backfill", nil)
	req.RemoteAddr = "10.0.0.9:5555"
	req.Header.Set("User-Agent", "pricectl")
	req = req.WithContext(auth.WithIdentity(context.Background(), auth.RoleAdmin, "ops@example.com"))

	entry := FromRequest(req, "spot.backfill", "region", "FI", map[string]string{"from": "2024-01-01"})
	assert.Equal(t, "ops@example.com", entry.Actor)
	assert.Equal(t, "admin", entry.Role)
	assert.Equal(t, "10.0.0.9", entry.IP)
	assert.Equal(t, "pricectl", entry.UserAgent)
	assert.JSONEq(t, `{"from":"2024-01-01"}`, string(entry.Metadata))
}

func TestDigestAndID(t *testing.T) {
	assert.Empty(t, DigestJSON(nil))
	assert.Len(t, DigestJSON([]byte(`{}`)), 64)
	assert.True(t, strings.HasPrefix(NewID(), "audit-"))
	assert.NotEqual(t, NewID(), NewID())
}

func TestRepository_NilDB(t *testing.T) {
	assert.Nil(t, NewRepository(nil))
	var repo *Repository
	assert.Error(t, repo.Log(context.Background(), Entry{}))
}
