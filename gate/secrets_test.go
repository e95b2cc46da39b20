package gate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPSecretSource(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer dummy-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.URL.Path != "/v1/secrets/kv%2Fautomation-allowlist" && r.URL.Path != "/v1/secrets/kv/automation-allowlist" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`["a@b.com"]`))
	}))
	defer ts.Close()

	src := NewHTTPSecretSource(ts.URL, "dummy-token", nil)

	payload, err := src.FetchSecretPayload(ctx, "kv/automation-allowlist")
	require.NoError(err)
	assert.Equal(`["a@b.com"]`, string(payload))

	_, err = src.FetchSecretPayload(ctx, "kv/no-such-secret")
	assert.Error(err)
}
