// Package reddit is the snapshot-fetching boundary: an OAuth2
// password-grant client that pulls one listing page of a user's recent
// posts and comments, or probes username availability. It never touches
// watch state.
package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"snoowatch/internal/watch"
	logx "snoowatch/pkg/logx"
)

const (
	defaultBaseURL   = "https://oauth.reddit.com"
	defaultAuthURL   = "https://www.reddit.com/api/v1/access_token"
	defaultUserAgent = "snoowatch/1.0 (reddit activity watcher)"
	defaultTimeout   = 15 * time.Second
)

type Config struct {
	ClientID     string
	ClientSecret string
	Username     string
	Password     string

	UserAgent      string
	PageLimit      int
	RequestTimeout time.Duration
	RatePerSec     int

	// BaseURL/AuthURL default to the public API; tests point them at a
	// local server.
	BaseURL string
	AuthURL string
}

type Client struct {
	cfg     Config
	client  *http.Client
	limiter *rate.Limiter
	log     logx.Logger

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

func New(cfg Config, log logx.Logger) *Client {
	if strings.TrimSpace(cfg.UserAgent) == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.PageLimit <= 0 {
		cfg.PageLimit = 25
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultTimeout
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 1
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if strings.TrimSpace(cfg.AuthURL) == "" {
		cfg.AuthURL = defaultAuthURL
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Client{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.RequestTimeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec),
		log:     log,
	}
}

// Authenticate eagerly fetches a token so credential problems surface at
// startup instead of on the first target.
func (c *Client) Authenticate(ctx context.Context) error {
	_, err := c.ensureToken(ctx)
	return err
}

func (c *Client) ensureToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("username", c.cfg.Username)
	form.Set("password", c.cfg.Password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.AuthURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.cfg.ClientID, c.cfg.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("reddit auth: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", &APIError{StatusCode: resp.StatusCode, Message: "token request failed"}
	}

	var tok struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
		Error       string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("reddit auth: decode token: %w", err)
	}
	if tok.Error != "" || tok.AccessToken == "" {
		return "", fmt.Errorf("reddit auth: rejected credentials (%s)", tok.Error)
	}

	c.token = tok.AccessToken
	// Refresh a minute early.
	ttl := time.Duration(tok.ExpiresIn) * time.Second
	if ttl <= time.Minute {
		ttl = 2 * time.Minute
	}
	c.tokenExpiry = time.Now().Add(ttl - time.Minute)
	c.log.Debug("authenticated with reddit", logx.String("user", c.cfg.Username))
	return c.token, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	token, err := c.ensureToken(ctx)
	if err != nil {
		return err
	}

	u := c.cfg.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("reddit get %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &APIError{StatusCode: resp.StatusCode, Message: "GET " + path}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("reddit get %s: decode: %w", path, err)
	}
	return nil
}

// Activity returns one page each of the user's newest posts and comments.
// Order is not guaranteed; the diff engine sorts.
func (c *Client) Activity(ctx context.Context, username string) ([]watch.Item, error) {
	posts, err := c.listUserSection(ctx, username, "submitted")
	if err != nil {
		return nil, err
	}
	comments, err := c.listUserSection(ctx, username, "comments")
	if err != nil {
		return nil, err
	}
	return append(posts, comments...), nil
}

func (c *Client) listUserSection(ctx context.Context, username, section string) ([]watch.Item, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(c.cfg.PageLimit))
	q.Set("sort", "new")
	q.Set("raw_json", "1")

	var env listingEnvelope
	path := "/user/" + url.PathEscape(username) + "/" + section
	if err := c.get(ctx, path, q, &env); err != nil {
		return nil, err
	}

	items := make([]watch.Item, 0, len(env.Data.Children))
	for _, child := range env.Data.Children {
		it, ok := child.item()
		if !ok {
			continue
		}
		items = append(items, it)
	}
	return items, nil
}

// UsernameAvailable probes whether the username is free to register.
func (c *Client) UsernameAvailable(ctx context.Context, username string) (bool, error) {
	q := url.Values{}
	q.Set("user", username)

	var available bool
	if err := c.get(ctx, "/api/username_available.json", q, &available); err != nil {
		return false, err
	}
	return available, nil
}
