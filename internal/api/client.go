// Package api talks to the task and wellness backend over JSON/HTTP.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/sadopc/nexus/internal/model"
	"golang.org/x/oauth2"
)

// ErrUnauthorized is returned for any 401. The credential is no longer valid
// and the session must end.
var ErrUnauthorized = errors.New("unauthorized")

// StatusError is a non-2xx answer other than 401.
type StatusError struct {
	Code   int
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("backend returned %d %s", e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("backend returned %d: %s", e.Code, e.Detail)
}

// NotFound reports whether the backend said the resource does not exist.
func (e *StatusError) NotFound() bool { return e.Code == http.StatusNotFound }

const defaultTimeout = 30 * time.Second

type Client struct {
	base           *url.URL
	http           *http.Client
	log            *log.Logger
	onUnauthorized func()
}

type Option func(*Client)

// WithTimeout bounds every request, on top of the per-call context.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithUnauthorized registers the hook fired on every 401.
func WithUnauthorized(fn func()) Option { return func(c *Client) { c.onUnauthorized = fn } }

// WithTransport replaces the base transport under the bearer token.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		if t, ok := c.http.Transport.(*oauth2.Transport); ok {
			t.Base = rt
			return
		}
		c.http.Transport = rt
	}
}

// New returns a client for the backend rooted at baseURL. A non-empty token
// is sent as a bearer credential on every request.
func New(baseURL, token string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse api url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("parse api url: unsupported scheme %q", u.Scheme)
	}

	hc := &http.Client{Timeout: defaultTimeout}
	if token != "" {
		src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
		hc.Transport = &oauth2.Transport{Source: src, Base: http.DefaultTransport}
	}

	c := &Client{base: u, http: hc, log: log.New(io.Discard)}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.base
	u.Path = c.base.Path + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// do sends one request and decodes a 2xx JSON body into out, if non-nil.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	reqID := uuid.NewString()
	req.Header.Set("X-Request-ID", reqID)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("request failed", "method", method, "path", path, "id", reqID, "err", err)
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	c.log.Debug("request", "method", method, "path", path, "status", resp.StatusCode, "id", reqID, "took", time.Since(start))

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		if c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		return fmt.Errorf("%s %s: %w", method, path, ErrUnauthorized)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("%s %s: %w", method, path, readStatusError(resp))
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// readStatusError decodes a {"detail": ...} body. Validation failures carry a
// list of objects as the detail; those are flattened to their messages.
func readStatusError(resp *http.Response) *StatusError {
	se := &StatusError{Code: resp.StatusCode}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil || len(raw) == 0 {
		return se
	}
	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	if json.Unmarshal(raw, &body) != nil || len(body.Detail) == 0 {
		se.Detail = strings.TrimSpace(string(raw))
		return se
	}
	var s string
	if json.Unmarshal(body.Detail, &s) == nil {
		se.Detail = s
		return se
	}
	var items []struct {
		Msg string `json:"msg"`
	}
	if json.Unmarshal(body.Detail, &items) == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if it.Msg != "" {
				msgs = append(msgs, it.Msg)
			}
		}
		se.Detail = strings.Join(msgs, "; ")
		return se
	}
	se.Detail = string(body.Detail)
	return se
}

// ==================== Tasks ====================

func (c *Client) ListTasks(ctx context.Context, filter model.Filter) ([]model.Task, error) {
	q := url.Values{}
	if filter != "" && filter != model.FilterAll {
		q.Set("status", string(filter))
	}
	var wire []taskJSON
	if err := c.do(ctx, http.MethodGet, "/tasks", q, nil, &wire); err != nil {
		return nil, err
	}
	tasks := make([]model.Task, 0, len(wire))
	for _, w := range wire {
		t, err := w.task()
		if err != nil {
			return nil, fmt.Errorf("list tasks: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

func (c *Client) CreateTask(ctx context.Context, d model.Draft) (model.Task, error) {
	var w taskJSON
	if err := c.do(ctx, http.MethodPost, "/tasks", nil, newDraftJSON(d), &w); err != nil {
		return model.Task{}, err
	}
	return w.task()
}

func (c *Client) UpdateTask(ctx context.Context, id string, p model.Patch) (model.Task, error) {
	if p.Empty() {
		return model.Task{}, errors.New("update task: empty patch")
	}
	var w taskJSON
	if err := c.do(ctx, http.MethodPut, "/tasks/"+url.PathEscape(id), nil, newPatchJSON(p), &w); err != nil {
		return model.Task{}, err
	}
	return w.task()
}

func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/tasks/"+url.PathEscape(id), nil, nil, nil)
}

// ReorderTasks assigns order = index to every id.
func (c *Client) ReorderTasks(ctx context.Context, ids []string) error {
	if ids == nil {
		ids = []string{}
	}
	return c.do(ctx, http.MethodPut, "/tasks/reorder/batch", nil, reorderJSON{TaskIDs: ids}, nil)
}

// ==================== Pomodoro ====================

func (c *Client) RecordPomodoro(ctx context.Context, d time.Duration) (model.PomodoroSession, error) {
	var w pomodoroJSON
	if err := c.do(ctx, http.MethodPost, "/wellness/pomodoro", nil, newCompleteJSON(d), &w); err != nil {
		return model.PomodoroSession{}, err
	}
	return w.session(), nil
}

// ListPomodoros returns the most recent sessions, newest first.
func (c *Client) ListPomodoros(ctx context.Context) ([]model.PomodoroSession, error) {
	var wire []pomodoroJSON
	if err := c.do(ctx, http.MethodGet, "/wellness/pomodoro", nil, nil, &wire); err != nil {
		return nil, err
	}
	out := make([]model.PomodoroSession, len(wire))
	for i, w := range wire {
		out[i] = w.session()
	}
	return out, nil
}
