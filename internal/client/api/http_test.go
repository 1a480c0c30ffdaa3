package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/upass-project/upass/internal/common"
	"github.com/upass-project/upass/internal/cryptox"
)

func testSeed() []byte {
	seed := make([]byte, 32)
	for i := range seed {
		seed[i] = byte(i + 1)
	}
	return seed
}

func fixedClock(t *testing.T, unix int64) {
	t.Helper()
	orig := nowUnix
	nowUnix = func() int64 { return unix }
	t.Cleanup(func() { nowUnix = orig })
}

func TestRetrieve_SignedRequestShape(t *testing.T) {
	fixedClock(t, 1700000000)
	seed := testSeed()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/vaults/alice/retrieve", r.URL.Path)

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		assert.Equal(t, cryptox.PublicIdentity(seed), req["public_key"])
		assert.Equal(t, base64.StdEncoding.EncodeToString(seed), req["signing_key"])
		assert.EqualValues(t, 1700000000, req["timestamp"])
		assert.True(t, cryptox.VerifySignature(
			cryptox.RetrieveMessage(1700000000), seed, req["signature"].(string)))
		// Retrieve carries no blob and no create flag.
		assert.NotContains(t, req, "vault_blob")
		assert.NotContains(t, req, "create_if_missing")

		json.NewEncoder(w).Encode(map[string]string{"vault_blob": "BLOB"})
	}))
	defer srv.Close()

	blob, err := NewHTTPClient(srv.URL, 0).Retrieve(context.Background(), "alice", seed)
	require.NoError(t, err)
	assert.Equal(t, "BLOB", blob)
}

func TestSave_SignedRequestShape(t *testing.T) {
	fixedClock(t, 1700000123)
	seed := testSeed()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/vaults/alice", r.URL.Path)

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		assert.Equal(t, "BLOB", req["vault_blob"])
		assert.Equal(t, false, req["create_if_missing"])
		assert.True(t, cryptox.VerifySignature(
			cryptox.SaveMessage("BLOB", 1700000123), seed, req["signature"].(string)))

		json.NewEncoder(w).Encode(map[string]bool{"success": true})
	}))
	defer srv.Close()

	err := NewHTTPClient(srv.URL, 0).Save(context.Background(), "alice", seed, "BLOB", false)
	require.NoError(t, err)
}

func TestDelete_SignedRequestShape(t *testing.T) {
	fixedClock(t, 1700000999)
	seed := testSeed()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/vaults/alice/delete", r.URL.Path)

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, cryptox.VerifySignature(
			cryptox.DeleteMessage(1700000999), seed, req["signature"].(string)))

		json.NewEncoder(w).Encode(map[string]bool{"success": true})
	}))
	defer srv.Close()

	err := NewHTTPClient(srv.URL, 0).Delete(context.Background(), "alice", seed)
	require.NoError(t, err)
}

func TestExistsAndHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
		case "/vaults/alice/exists":
			json.NewEncoder(w).Encode(map[string]bool{"exists": true})
		case "/vaults/bob/exists":
			json.NewEncoder(w).Encode(map[string]bool{"exists": false})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, 0)
	require.NoError(t, c.Health(context.Background()))

	exists, err := c.Exists(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = c.Exists(context.Background(), "bob")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestStatusCodeMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{400, common.ErrValidation},
		{401, common.ErrUnauthorized},
		{404, common.ErrNotFound},
		{409, common.ErrConflict},
		{429, common.ErrRateLimited},
		{500, common.ErrServer},
		{418, common.ErrNetwork},
	}

	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
			json.NewEncoder(w).Encode(map[string]string{"error": "boom"})
		}))

		err := NewHTTPClient(srv.URL, 0).Health(context.Background())
		srv.Close()

		require.Error(t, err, "status %d", tt.status)
		assert.ErrorIs(t, err, tt.want, "status %d", tt.status)

		var se *ServerError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, tt.status, se.Status)
		assert.Equal(t, "boom", se.Message)
	}
}

func TestTransportFailureIsNetworkError(t *testing.T) {
	c := NewHTTPClient("http://127.0.0.1:1", 100*time.Millisecond)
	err := c.Health(context.Background())
	assert.ErrorIs(t, err, common.ErrNetwork)
}

func TestServerIdentity(t *testing.T) {
	assert.Equal(t, "example.com:443", NewHTTPClient("https://example.com/", 0).ServerIdentity())
	assert.Equal(t, "example.com:8000", NewHTTPClient("http://example.com:8000", 0).ServerIdentity())
	assert.Equal(t, "example.com:80", NewHTTPClient("http://example.com", 0).ServerIdentity())
}
