// Package reddit is a minimal client for the parts of the reddit API the
// moderation engine needs: session login, moderation listings, item
// mutations, and account lookups.
package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-querystring/query"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"
)

var ErrLoginRequired = fmt.Errorf("reddit: not logged in")

// Client talks to the reddit API as a single logged-in account. Reads go
// through a retrying transport; mutations are single-shot because the write
// endpoints are not idempotent.
type Client struct {
	Logger    *slog.Logger
	BaseURL   string
	UserAgent string

	read    *http.Client
	write   *http.Client
	limiter *rate.Limiter

	modhash  string
	username string
}

func NewClient(logger *slog.Logger, userAgent string) *Client {
	jar, _ := cookiejar.New(nil)

	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.Logger = nil
	rc.HTTPClient.Jar = jar
	rc.HTTPClient.Timeout = 30 * time.Second

	return &Client{
		Logger:    logger,
		BaseURL:   "https://www.reddit.com",
		UserAgent: userAgent,
		read:      rc.StandardClient(),
		write:     &http.Client{Jar: jar, Timeout: 30 * time.Second},
		// the API allows one request every two seconds for scripted clients
		limiter: rate.NewLimiter(rate.Every(2*time.Second), 1),
	}
}

// apiError is the "errors" array inside an api_type=json response envelope.
type apiError [][]any

func (e apiError) Error() string {
	parts := make([]string, 0, len(e))
	for _, tuple := range e {
		strs := make([]string, 0, len(tuple))
		for _, v := range tuple {
			if s, ok := v.(string); ok {
				strs = append(strs, s)
			}
		}
		parts = append(parts, strings.Join(strs, ": "))
	}
	return "reddit api error: " + strings.Join(parts, "; ")
}

type jsonEnvelope struct {
	JSON struct {
		Errors apiError        `json:"errors"`
		Data   json.RawMessage `json:"data"`
	} `json:"json"`
}

// Login establishes a session and captures the modhash required on every
// mutation. It must be called before any other method.
func (c *Client) Login(ctx context.Context, username, password string) error {
	form := url.Values{}
	form.Set("user", username)
	form.Set("passwd", password)
	form.Set("rem", "true")
	form.Set("api_type", "json")

	var out struct {
		JSON struct {
			Errors apiError `json:"errors"`
			Data   struct {
				Modhash string `json:"modhash"`
			} `json:"data"`
		} `json:"json"`
	}
	if err := c.postRaw(ctx, "/api/login/"+url.PathEscape(username), form, &out); err != nil {
		return fmt.Errorf("logging in as %s: %w", username, err)
	}
	if len(out.JSON.Errors) > 0 {
		return fmt.Errorf("logging in as %s: %w", username, out.JSON.Errors)
	}
	if out.JSON.Data.Modhash == "" {
		return fmt.Errorf("logging in as %s: no modhash in response", username)
	}
	c.modhash = out.JSON.Data.Modhash
	c.username = username
	c.Logger.Info("logged in to reddit", "username", username)
	return nil
}

// Username returns the logged-in account name, or "".
func (c *Client) Username() string {
	return c.username
}

// getJSON performs a rate-limited GET of path, encoding params (a
// url-tagged struct) into the query string and decoding the body into out.
func (c *Client) getJSON(ctx context.Context, path string, params any, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	u := c.BaseURL + path
	if params != nil {
		vals, err := query.Values(params)
		if err != nil {
			return fmt.Errorf("encoding query params: %w", err)
		}
		if enc := vals.Encode(); enc != "" {
			u += "?" + enc
		}
	}
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", c.UserAgent)
	resp, err := c.read.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return &StatusError{Path: path, Code: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}

// post performs a rate-limited, single-shot mutation with the session
// modhash attached, and surfaces any api_type=json errors.
func (c *Client) post(ctx context.Context, path string, form url.Values) error {
	var out jsonEnvelope
	if err := c.postEnvelope(ctx, path, form, &out); err != nil {
		return err
	}
	return nil
}

func (c *Client) postEnvelope(ctx context.Context, path string, form url.Values, out *jsonEnvelope) error {
	if c.modhash == "" {
		return ErrLoginRequired
	}
	form.Set("uh", c.modhash)
	form.Set("api_type", "json")
	if err := c.postRaw(ctx, path, form, out); err != nil {
		return err
	}
	if len(out.JSON.Errors) > 0 {
		return fmt.Errorf("POST %s: %w", path, out.JSON.Errors)
	}
	return nil
}

func (c *Client) postRaw(ctx context.Context, path string, form url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := c.write.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return &StatusError{Path: path, Code: resp.StatusCode}
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}

// StatusError is a non-200 API response.
type StatusError struct {
	Path string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("reddit: %s returned status %d", e.Path, e.Code)
}
