package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/dalanapp/dalan-go/internal/conf"
	"github.com/dalanapp/dalan-go/internal/errors"
	"github.com/dalanapp/dalan-go/internal/logging"
)

var logger *slog.Logger

func init() {
	var err error
	logFilePath := filepath.Join("logs", "auth.log")
	logger, _, err = logging.NewFileLogger(logFilePath, "auth", slog.LevelInfo)
	if err != nil {
		logger = logging.ForService("auth")
	}
}

// Client resolves tokens against a Supabase style identity endpoint
// (GET {url}/auth/v1/user with the token as a bearer credential).
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	cache      *cache.Cache
}

// NewClient builds a Client from settings. The cache TTL falls back to
// DefaultCacheTTL when unset.
func NewClient(settings *conf.Settings) (*Client, error) {
	if settings.Auth.URL == "" {
		return nil, errors.Newf("auth service URL is required").
			Component("auth").
			Category(errors.CategoryConfiguration).
			Build()
	}

	ttl := settings.Auth.CacheTTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}

	logger.Info("auth client initialized",
		"url", settings.Auth.URL,
		"cache_ttl", ttl)

	return &Client{
		baseURL:    settings.Auth.URL,
		apiKey:     settings.Auth.APIKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		cache:      cache.New(ttl, ttl*2),
	}, nil
}

func (c *Client) UserFromToken(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, unauthorized("empty bearer token")
	}

	if cached, found := c.cache.Get(token); found {
		if user, ok := cached.(*User); ok {
			return user, nil
		}
	}

	user, err := c.fetchUser(ctx, token)
	if err != nil {
		return nil, err
	}

	c.cache.Set(token, user, cache.DefaultExpiration)
	return user, nil
}

func (c *Client) fetchUser(ctx context.Context, token string) (*User, error) {
	url := fmt.Sprintf("%s/auth/v1/user", c.baseURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.New(err).
			Component("auth").
			Category(errors.CategoryNetwork).
			Context("url", url).
			Build()
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Error("identity service request failed", "error", err, "url", url)
		return nil, errors.New(err).
			Component("auth").
			Category(errors.CategoryNetwork).
			Context("url", url).
			Build()
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.New(err).
			Component("auth").
			Category(errors.CategoryNetwork).
			Context("url", url).
			Build()
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, unauthorized("token rejected by identity service")
	}
	if resp.StatusCode != http.StatusOK {
		logger.Error("identity service error",
			"status_code", resp.StatusCode,
			"url", url)
		return nil, errors.Newf("identity service returned status %d", resp.StatusCode).
			Component("auth").
			Category(errors.CategoryNetwork).
			Context("status_code", resp.StatusCode).
			Build()
	}

	var user User
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, errors.New(err).
			Component("auth").
			Category(errors.CategoryNetwork).
			Context("url", url).
			Build()
	}
	if user.ID == "" {
		return nil, unauthorized("identity service returned no user id")
	}

	return &user, nil
}

// ClearCache drops all cached token resolutions.
func (c *Client) ClearCache() {
	c.cache.Flush()
}

func unauthorized(msg string) error {
	return errors.Newf("%s", msg).
		Component("auth").
		Category(errors.CategoryAuth).
		Build()
}
