package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/parley-social/parley/gate"
	"github.com/parley-social/parley/models"
	"github.com/parley-social/parley/util/cliutil"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSecretSource struct {
	payload []byte
	err     error
}

func (s *stubSecretSource) FetchSecretPayload(ctx context.Context, ref string) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.payload, nil
}

func testServer(t *testing.T) *Server {
	db, err := cliutil.SetupDatabase("sqlite://:memory:", 1)
	require.NoError(t, err)

	srv, err := NewServer(db, gate.NewMemKVStore(1000, time.Hour), &stubSecretSource{payload: []byte(`["bot@parley.social"]`)}, Config{
		Logger:             slog.New(slog.NewTextHandler(io.Discard, nil)),
		AdminPassword:      "hunter2",
		AllowlistSecretRef: "kv/automation-allowlist",
	})
	require.NoError(t, err)

	fixtures := []any{
		&models.User{ID: 1, Handle: "alice", Email: "alice@example.com", UserType: models.UserTypeHuman},
		&models.User{ID: 7, Handle: "parley-ops", Email: "ops@parley.social", UserType: models.UserTypeHuman, SystemOwner: true},
		&models.User{ID: 42, Handle: "helper-bot", Email: "bot@parley.social", UserType: models.UserTypeAgent},
		&models.Agent{ID: 42, OwnerID: 7, DisplayName: "Helper"},
		&models.User{ID: 43, Handle: "hobby-bot", Email: "hobby@example.com", UserType: models.UserTypeAgent},
		&models.Agent{ID: 43, OwnerID: 1, DisplayName: "Hobby"},
	}
	for _, f := range fixtures {
		require.NoError(t, db.Create(f).Error)
	}
	return srv
}

func doRequest(srv *Server, method, path, body string, hdrs map[string]string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for k, v := range hdrs {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestCapabilities(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	srv := testServer(t)

	// unauthenticated
	rec := doRequest(srv, http.MethodGet, "/api/me/capabilities", "", nil)
	assert.Equal(http.StatusUnauthorized, rec.Code)

	// system agent on the allowlist
	rec = doRequest(srv, http.MethodGet, "/api/me/capabilities", "", map[string]string{
		authIDHeader:   "42",
		authTypeHeader: "agent",
	})
	require.Equal(http.StatusOK, rec.Code)
	var caps CapabilitiesResponse
	require.NoError(json.Unmarshal(rec.Body.Bytes(), &caps))
	assert.True(caps.PrivilegedAutomation)
	assert.True(caps.SystemAgent)

	// ordinary human
	rec = doRequest(srv, http.MethodGet, "/api/me/capabilities", "", map[string]string{
		authIDHeader:   "1",
		authTypeHeader: "human",
	})
	require.Equal(http.StatusOK, rec.Code)
	caps = CapabilitiesResponse{}
	require.NoError(json.Unmarshal(rec.Body.Bytes(), &caps))
	assert.False(caps.PrivilegedAutomation)
	assert.False(caps.SystemAgent)

	// agent owned by a regular account
	rec = doRequest(srv, http.MethodGet, "/api/me/capabilities", "", map[string]string{
		authIDHeader:   "43",
		authTypeHeader: "agent",
	})
	require.Equal(http.StatusOK, rec.Code)
	caps = CapabilitiesResponse{}
	require.NoError(json.Unmarshal(rec.Body.Bytes(), &caps))
	assert.False(caps.SystemAgent)
}

func TestAdminAuth(t *testing.T) {
	assert := assert.New(t)
	srv := testServer(t)

	rec := doRequest(srv, http.MethodPost, "/admin/caches/reset", "", nil)
	assert.Equal(http.StatusForbidden, rec.Code)

	rec = doRequest(srv, http.MethodPost, "/admin/caches/reset", "", map[string]string{
		"Authorization": "Bearer wrong",
	})
	assert.Equal(http.StatusForbidden, rec.Code)

	rec = doRequest(srv, http.MethodPost, "/admin/caches/reset", "", map[string]string{
		"Authorization": "Bearer hunter2",
	})
	assert.Equal(http.StatusOK, rec.Code)
}

func TestAdminBlockIP(t *testing.T) {
	assert := assert.New(t)
	srv := testServer(t)
	admin := map[string]string{"Authorization": "Bearer hunter2"}

	rec := doRequest(srv, http.MethodPost, "/admin/ip/block", `{}`, admin)
	assert.Equal(http.StatusBadRequest, rec.Code)

	rec = doRequest(srv, http.MethodPost, "/admin/ip/block", `{"address": "9.9.9.9", "ttlSeconds": 3600}`, admin)
	assert.Equal(http.StatusOK, rec.Code)

	// the blocked caller now gets a 404 everywhere
	rec = doRequest(srv, http.MethodGet, "/_health", "", map[string]string{
		echo.HeaderXRealIP: "9.9.9.9",
	})
	assert.Equal(http.StatusNotFound, rec.Code)

	rec = doRequest(srv, http.MethodGet, "/_health", "", map[string]string{
		echo.HeaderXRealIP: "8.8.8.8",
	})
	assert.Equal(http.StatusOK, rec.Code)
}
