package simplybook_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/nextslot/internal/adapter/driven/simplybook"
	"github.com/ericfisherdev/nextslot/internal/domain/model"
)

var (
	testCreds = model.Credentials{Company: "acme", Login: "admin", Secret: "s3cret", APIKey: "key-123"}
	authNow   = time.Date(2025, 6, 9, 8, 0, 0, 0, time.UTC)
)

func fixedNow() time.Time { return authNow }

// authServer serves handler at path and records decoded request bodies.
func authServer(t *testing.T, path string, handler func(w http.ResponseWriter, body map[string]any)) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("POST "+path, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		handler(w, body)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestRESTAuthenticator_Success(t *testing.T) {
	var got map[string]any
	srv := authServer(t, "/admin/auth", func(w http.ResponseWriter, body map[string]any) {
		got = body
		_, _ = io.WriteString(w, `{"token":"abc","expires":"2025-06-09T09:00:00Z"}`)
	})
	auth, err := simplybook.NewRESTAuthenticator(srv.Client(), srv.URL, testCreds, simplybook.WithAuthClock(fixedNow))
	require.NoError(t, err)

	session, err := auth.Authenticate(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "abc", session.Token)
	assert.True(t, session.ExpiresAt.Equal(time.Date(2025, 6, 9, 9, 0, 0, 0, time.UTC)))
	assert.Equal(t, map[string]any{"company": "acme", "login": "admin", "password": "s3cret"}, got)
}

func TestRESTAuthenticator_ExpiryFormats(t *testing.T) {
	want := time.Date(2025, 6, 9, 9, 30, 0, 0, time.UTC)
	tests := map[string]string{
		"rfc3339":      `"2025-06-09T09:30:00Z"`,
		"space layout": `"2025-06-09 09:30:00"`,
		"unix number":  `1749461400`,
		"unix string":  `"1749461400"`,
	}
	for name, expires := range tests {
		t.Run(name, func(t *testing.T) {
			srv := authServer(t, "/admin/auth", func(w http.ResponseWriter, _ map[string]any) {
				_, _ = io.WriteString(w, `{"token":"abc","expires":`+expires+`}`)
			})
			auth, err := simplybook.NewRESTAuthenticator(srv.Client(), srv.URL, testCreds)
			require.NoError(t, err)

			session, err := auth.Authenticate(context.Background())

			require.NoError(t, err)
			assert.True(t, session.ExpiresAt.Equal(want), "got %s", session.ExpiresAt)
		})
	}
}

func TestRESTAuthenticator_MissingExpiryUsesLifetime(t *testing.T) {
	srv := authServer(t, "/admin/auth", func(w http.ResponseWriter, _ map[string]any) {
		_, _ = io.WriteString(w, `{"token":"abc"}`)
	})
	auth, err := simplybook.NewRESTAuthenticator(srv.Client(), srv.URL, testCreds,
		simplybook.WithAuthClock(fixedNow),
		simplybook.WithTokenLifetime(30*time.Minute),
	)
	require.NoError(t, err)

	session, err := auth.Authenticate(context.Background())

	require.NoError(t, err)
	assert.Equal(t, authNow.Add(30*time.Minute), session.ExpiresAt)
}

func TestRESTAuthenticator_Rejected(t *testing.T) {
	srv := authServer(t, "/admin/auth", func(w http.ResponseWriter, _ map[string]any) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"message":"bad credentials"}`)
	})
	auth, err := simplybook.NewRESTAuthenticator(srv.Client(), srv.URL, testCreds)
	require.NoError(t, err)

	_, err = auth.Authenticate(context.Background())

	var authErr *model.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, http.StatusUnauthorized, authErr.Status)
	assert.Contains(t, authErr.Body, "bad credentials")
	assert.NotContains(t, err.Error(), "s3cret")
}

func TestRESTAuthenticator_NoToken(t *testing.T) {
	srv := authServer(t, "/admin/auth", func(w http.ResponseWriter, _ map[string]any) {
		_, _ = io.WriteString(w, `{"expires":"2025-06-09T09:00:00Z"}`)
	})
	auth, err := simplybook.NewRESTAuthenticator(srv.Client(), srv.URL, testCreds)
	require.NoError(t, err)

	_, err = auth.Authenticate(context.Background())

	require.ErrorIs(t, err, model.ErrNoToken)
	assert.True(t, model.IsFatal(err))
}

func TestRESTAuthenticator_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})
	auth, err := simplybook.NewRESTAuthenticator(srv.Client(), srv.URL, testCreds,
		simplybook.WithAuthTimeout(50*time.Millisecond),
	)
	require.NoError(t, err)

	_, err = auth.Authenticate(context.Background())

	var authErr *model.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Zero(t, authErr.Status)
}

func TestNewRESTAuthenticator_RejectsRelativeURL(t *testing.T) {
	_, err := simplybook.NewRESTAuthenticator(nil, "/not/absolute", testCreds)
	assert.Error(t, err)
}

func TestRPCAuthenticator_Success(t *testing.T) {
	var got map[string]any
	srv := authServer(t, "/login", func(w http.ResponseWriter, body map[string]any) {
		got = body
		_, _ = io.WriteString(w, `{"jsonrpc":"2.0","result":"rpc-token","id":1}`)
	})
	auth, err := simplybook.NewRPCAuthenticator(srv.Client(), srv.URL, testCreds, simplybook.WithAuthClock(fixedNow))
	require.NoError(t, err)

	session, err := auth.Authenticate(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "rpc-token", session.Token)
	assert.Equal(t, authNow.Add(simplybook.DefaultTokenLifetime), session.ExpiresAt)
	assert.Equal(t, "getToken", got["method"])
	assert.Equal(t, map[string]any{"company": "acme", "api_key": "key-123"}, got["params"])
}

func TestRPCAuthenticator_ErrorEnvelope(t *testing.T) {
	srv := authServer(t, "/login", func(w http.ResponseWriter, _ map[string]any) {
		_, _ = io.WriteString(w, `{"jsonrpc":"2.0","error":{"code":-32001,"message":"Invalid api key"},"id":1}`)
	})
	auth, err := simplybook.NewRPCAuthenticator(srv.Client(), srv.URL, testCreds)
	require.NoError(t, err)

	_, err = auth.Authenticate(context.Background())

	var authErr *model.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Contains(t, err.Error(), "Invalid api key")
}

func TestRPCAuthenticator_EmptyResult(t *testing.T) {
	srv := authServer(t, "/login", func(w http.ResponseWriter, _ map[string]any) {
		_, _ = io.WriteString(w, `{"jsonrpc":"2.0","result":null,"id":1}`)
	})
	auth, err := simplybook.NewRPCAuthenticator(srv.Client(), srv.URL, testCreds)
	require.NoError(t, err)

	_, err = auth.Authenticate(context.Background())

	require.ErrorIs(t, err, model.ErrNoToken)
}
