package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dalanapp/dalan-go/internal/conf"
	"github.com/dalanapp/dalan-go/internal/errors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	settings := &conf.Settings{}
	settings.Auth.URL = server.URL
	settings.Auth.APIKey = "test-api-key"

	client, err := NewClient(settings)
	require.NoError(t, err)
	return client
}

func TestUserFromToken(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/user", r.URL.Path)
		assert.Equal(t, "Bearer good-token", r.Header.Get("Authorization"))
		assert.Equal(t, "test-api-key", r.Header.Get("apikey"))
		_ = json.NewEncoder(w).Encode(User{ID: "user-1", Email: "road@example.com"})
	})

	user, err := client.UserFromToken(context.Background(), "good-token")
	require.NoError(t, err)
	assert.Equal(t, "user-1", user.ID)
	assert.Equal(t, "road@example.com", user.Email)
}

func TestUserFromTokenRejected(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.UserFromToken(context.Background(), "bad-token")
	require.Error(t, err)

	var enhanced *errors.EnhancedError
	require.True(t, errors.As(err, &enhanced))
	assert.Equal(t, errors.CategoryAuth, enhanced.Category)
}

func TestUserFromTokenCaches(t *testing.T) {
	var calls atomic.Int64
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_ = json.NewEncoder(w).Encode(User{ID: "user-1"})
	})

	for i := 0; i < 3; i++ {
		_, err := client.UserFromToken(context.Background(), "good-token")
		require.NoError(t, err)
	}
	assert.Equal(t, int64(1), calls.Load())

	client.ClearCache()
	_, err := client.UserFromToken(context.Background(), "good-token")
	require.NoError(t, err)
	assert.Equal(t, int64(2), calls.Load())
}

func TestUserFromTokenEmpty(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("identity service must not be called for empty tokens")
	})

	_, err := client.UserFromToken(context.Background(), "")
	require.Error(t, err)
}

func TestStaticProvider(t *testing.T) {
	provider := NewStaticProvider(map[string]*User{
		"token-a": {ID: "user-a"},
	})

	user, err := provider.UserFromToken(context.Background(), "token-a")
	require.NoError(t, err)
	assert.Equal(t, "user-a", user.ID)

	_, err = provider.UserFromToken(context.Background(), "token-b")
	require.Error(t, err)
}

func TestMiddleware(t *testing.T) {
	provider := NewStaticProvider(map[string]*User{
		"token-a": {ID: "user-a"},
	})

	e := echo.New()
	handler := Middleware(provider)(func(c echo.Context) error {
		user := CurrentUser(c)
		require.NotNil(t, user)
		return c.String(http.StatusOK, user.ID)
	})

	testCases := []struct {
		name           string
		header         string
		expectedStatus int
	}{
		{"valid token", "Bearer token-a", http.StatusOK},
		{"unknown token", "Bearer token-z", http.StatusUnauthorized},
		{"missing header", "", http.StatusUnauthorized},
		{"malformed header", "token-a", http.StatusUnauthorized},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/entries", http.NoBody)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			err := handler(c)
			if tc.expectedStatus == http.StatusOK {
				require.NoError(t, err)
				assert.Equal(t, "user-a", rec.Body.String())
				return
			}

			var httpErr *echo.HTTPError
			require.ErrorAs(t, err, &httpErr)
			assert.Equal(t, tc.expectedStatus, httpErr.Code)
		})
	}
}
