package testutil

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeServerHealth(t *testing.T) {
	f := NewFakeServer(t)

	resp, err := http.Get(f.URL + "/api/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	f.Lock()
	f.Healthy = false
	f.Unlock()

	resp, err = http.Get(f.URL + "/api/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, 2, f.Calls("GET /api/health"))
}

func TestFakeServerCORSPreflight(t *testing.T) {
	f := NewFakeServer(t)

	req, err := http.NewRequest(http.MethodOptions, f.URL+"/api/room/list", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestFakeServerRequiresToken(t *testing.T) {
	f := NewFakeServer(t)
	f.AddUser("a@example.com", "pw", "A")
	access, _ := f.IssueTokens("a@example.com")

	req, err := http.NewRequest(http.MethodGet, f.URL+"/api/auth/me", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req.Header.Set("Authorization", "Bearer "+access)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
