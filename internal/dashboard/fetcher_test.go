package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"verdant/internal/external"
	"verdant/internal/types"
)

func newTestFetcher(url string) *HTTPFetcher {
	base := external.NewBaseClient(&http.Client{Timeout: 2 * time.Second}, "hazard-info-test", external.NoRetry(), "Verdant-Test/1.0")
	return NewHTTPFetcher(base, url+"/")
}

func TestHTTPFetcher_Success(t *testing.T) {
	var got types.HazardInfoRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/hazard-info", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"text":"Example."}`))
	}))
	defer srv.Close()

	req := types.HazardInfoRequest{CountyName: "Harris", StateAbbr: "TX", Hazard: "Flood"}
	text, err := newTestFetcher(srv.URL).Fetch(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "Example.", text)
	assert.Equal(t, req, got)
}

func TestHTTPFetcher_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"server error", http.StatusInternalServerError, `{"error":"quota"}`, "upstream returned 500"},
		{"client error", http.StatusBadRequest, `{"error":"bad"}`, "status 400"},
		{"bad json", http.StatusOK, `<html>`, "decoding hazard info response"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := newTestFetcher(srv.URL).Fetch(context.Background(), types.HazardInfoRequest{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestHTTPFetcher_MissingTextIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	text, err := newTestFetcher(srv.URL).Fetch(context.Background(), types.HazardInfoRequest{})
	require.NoError(t, err)
	assert.Empty(t, text)
}
