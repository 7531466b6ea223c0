package ipapihttp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClient_Locate_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/json/8.8.8.8", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"success","country":"United States","city":"Ashburn","lat":39.03,"lon":-77.5}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	loc, err := c.Locate(context.Background(), "8.8.8.8")
	require.NoError(t, err)
	require.Equal(t, "United States", loc.Country)
	require.Equal(t, "Ashburn", loc.City)
	require.InDelta(t, 39.03, loc.Latitude, 0.001)
}

func TestClient_Locate_FailStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"fail","message":"reserved range"}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	loc, err := c.Locate(context.Background(), "8.8.8.8")
	require.Error(t, err)
	require.Equal(t, "Unknown", loc.Country)
}

func TestClient_Locate_SkipsPrivateAndUnknown(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	c := New(srv.URL)
	for _, ip := range []string{"", "unknown", "127.0.0.1", "192.168.1.10", "10.0.0.2", "::1"} {
		loc, err := c.Locate(context.Background(), ip)
		require.NoError(t, err)
		require.Equal(t, "Unknown", loc.Country)
	}
	require.False(t, called)
}
