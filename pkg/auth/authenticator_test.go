package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/andreweacott/central-client/pkg/central"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewCloudHTTPClient_AttachesBearerToken tests the session adds the Authorization header
func TestNewCloudHTTPClient_AttachesBearerToken(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client, err := NewCloudHTTPClient(context.Background(), central.ClientConfig{AccessToken: "secret-token"}, 5*time.Second)
	require.NoError(t, err)

	resp, err := client.Get(server.URL)
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, "Bearer secret-token", gotAuth)
}

// TestNewCloudHTTPClient_RequiresToken tests that a missing token is rejected
func TestNewCloudHTTPClient_RequiresToken(t *testing.T) {
	client, err := NewCloudHTTPClient(context.Background(), central.ClientConfig{}, time.Second)

	assert.Nil(t, client)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "access token is required")
}

// TestNewCloudRequester tests the requester reaches the gateway with the token
func TestNewCloudRequester(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rapids/v1/ssid_allow", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ssids":[]}`))
	}))
	defer server.Close()

	requester, err := NewCloudRequester(context.Background(), central.ClientConfig{BaseURL: server.URL, AccessToken: "tok"}, 5*time.Second)
	require.NoError(t, err)

	resp, err := requester.Do(context.Background(), central.Request{Endpoint: "ssid_allow", Path: "/rapids/v1/ssid_allow"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"ssids":[]}`, string(resp.Payload))
}

// TestNewCloudRequester_RequiresBaseURL tests that a missing base URL is rejected
func TestNewCloudRequester_RequiresBaseURL(t *testing.T) {
	_, err := NewCloudRequester(context.Background(), central.ClientConfig{AccessToken: "tok"}, time.Second)

	assert.Error(t, err)
}

// TestNewDeviceHTTPClient_NoAuthorization tests device calls carry no credentials
func TestNewDeviceHTTPClient_NoAuthorization(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	// Self-signed test certificate, so verification is off
	client := NewDeviceHTTPClient(false, 5*time.Second)
	resp, err := client.Get(server.URL)
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

// TestNewDeviceHTTPClient_VerifiesTLS tests that verification rejects an untrusted certificate
func TestNewDeviceHTTPClient_VerifiesTLS(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewDeviceHTTPClient(true, 5*time.Second)
	_, err := client.Get(server.URL)

	assert.Error(t, err)
}
