// Package rest talks to a hosted Postgres through its PostgREST table API,
// the way the project's web client does.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/conorfennell/lessonseed/internal/domain"
	"github.com/conorfennell/lessonseed/internal/storage"
)

const apiPath = "rest/v1"

// Client is a storage.Store over the hosted table API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	tables  storage.Tables
}

var _ storage.Store = (*Client)(nil)

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// New returns a client for the project at baseURL. apiKey is sent both as the
// apikey header and as the bearer token; a service-role key bypasses row-level
// security.
func New(baseURL, apiKey string, tables storage.Tables, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid store URL %q", baseURL)
	}
	if apiKey == "" {
		return nil, errors.New("missing API key")
	}
	if err := tables.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 30 * time.Second},
		tables:  tables,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Close is a no-op; the HTTP client holds no per-store resources.
func (c *Client) Close() error {
	return nil
}

// APIError is a non-2xx response from the table API.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "table API returned %d", e.Status)
	if e.Code != "" {
		fmt.Fprintf(&b, " (%s)", e.Code)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	}
	if e.Details != "" {
		fmt.Fprintf(&b, " [%s]", e.Details)
	}
	if e.Hint != "" {
		fmt.Fprintf(&b, " hint: %s", e.Hint)
	}
	return b.String()
}

// FindCourseID returns the id of the first course with the language code.
func (c *Client) FindCourseID(ctx context.Context, languageCode string) (string, error) {
	q := url.Values{}
	q.Set("select", "id")
	q.Set("language_code", "eq."+languageCode)
	q.Set("limit", "1")

	id, err := c.selectID(ctx, c.tables.Courses, q)
	if err != nil {
		return "", fmt.Errorf("failed to find course by language code %s: %w", languageCode, err)
	}
	return id, nil
}

// FindLessonID returns the id of the lesson at lessonNumber in a course.
func (c *Client) FindLessonID(ctx context.Context, courseID string, lessonNumber int) (string, error) {
	q := url.Values{}
	q.Set("select", "id")
	q.Set("course_id", "eq."+courseID)
	q.Set("lesson_number", "eq."+strconv.Itoa(lessonNumber))
	q.Set("limit", "1")

	id, err := c.selectID(ctx, c.tables.Lessons, q)
	if err != nil {
		return "", fmt.Errorf("failed to find lesson %d of course %s: %w", lessonNumber, courseID, err)
	}
	return id, nil
}

// InsertLesson creates one lesson row.
func (c *Client) InsertLesson(ctx context.Context, l domain.Lesson) error {
	resp, err := c.do(ctx, http.MethodPost, c.tables.Lessons, nil, l, "return=minimal")
	if err != nil {
		return fmt.Errorf("failed to insert lesson %d: %w", l.LessonNumber, err)
	}
	resp.Body.Close()
	return nil
}

// UpdateLesson overwrites the lesson with the given id.
func (c *Client) UpdateLesson(ctx context.Context, id string, l domain.Lesson) error {
	q := url.Values{}
	q.Set("id", "eq."+id)
	resp, err := c.do(ctx, http.MethodPatch, c.tables.Lessons, q, l, "return=minimal")
	if err != nil {
		return fmt.Errorf("failed to update lesson %s: %w", id, err)
	}
	resp.Body.Close()
	return nil
}

// CountRows asks the API for an exact row count of table.
func (c *Client) CountRows(ctx context.Context, table string) (int64, error) {
	if err := storage.ValidateTable(table); err != nil {
		return 0, err
	}
	q := url.Values{}
	q.Set("select", "id")
	resp, err := c.do(ctx, http.MethodHead, table, q, nil, "count=exact")
	if err != nil {
		return 0, fmt.Errorf("failed to count rows in %s: %w", table, err)
	}
	resp.Body.Close()

	n, err := parseContentRange(resp.Header.Get("Content-Range"))
	if err != nil {
		return 0, fmt.Errorf("failed to count rows in %s: %w", table, err)
	}
	return n, nil
}

// DeleteAll deletes every row whose id is not the nil UUID. The API refuses
// deletes without a filter, and no real row has that id. It returns -1 when
// the response does not report how many rows went.
func (c *Client) DeleteAll(ctx context.Context, table string) (int64, error) {
	if err := storage.ValidateTable(table); err != nil {
		return 0, err
	}
	q := url.Values{}
	q.Set("id", "neq."+storage.NilID)
	resp, err := c.do(ctx, http.MethodDelete, table, q, nil, "return=minimal,count=exact")
	if err != nil {
		return 0, fmt.Errorf("failed to delete rows from %s: %w", table, err)
	}
	resp.Body.Close()

	// The delete already succeeded; a missing total only loses the count.
	n, err := parseContentRange(resp.Header.Get("Content-Range"))
	if err != nil {
		return -1, nil
	}
	return n, nil
}

func (c *Client) selectID(ctx context.Context, table string, q url.Values) (string, error) {
	resp, err := c.do(ctx, http.MethodGet, table, q, nil, "")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var rows []map[string]any
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&rows); err != nil {
		return "", fmt.Errorf("failed to decode rows: %w", err)
	}
	if len(rows) == 0 {
		return "", nil
	}

	switch id := rows[0]["id"].(type) {
	case string:
		return id, nil
	case json.Number:
		return id.String(), nil
	case nil:
		return "", errors.New("row has no id column")
	default:
		return fmt.Sprint(id), nil
	}
}

// do sends one request and returns the response for any 2xx status. Other
// statuses are turned into an *APIError and the body is closed.
func (c *Client) do(ctx context.Context, method, table string, q url.Values, body any, prefer string) (*http.Response, error) {
	endpoint := c.baseURL + "/" + apiPath + "/" + table
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, r)
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	apiErr := &APIError{Status: resp.StatusCode}
	if b, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10)); err == nil && len(b) > 0 {
		if json.Unmarshal(b, apiErr) != nil {
			apiErr.Message = strings.TrimSpace(string(b))
		}
	}
	return nil, apiErr
}

// parseContentRange reads the total from a header such as "0-24/3573" or "*/0".
func parseContentRange(header string) (int64, error) {
	i := strings.LastIndexByte(header, '/')
	if i < 0 {
		return 0, fmt.Errorf("missing row count in Content-Range %q", header)
	}
	total := header[i+1:]
	if total == "*" {
		return 0, fmt.Errorf("row count not reported in Content-Range %q", header)
	}
	n, err := strconv.ParseInt(total, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad row count in Content-Range %q: %w", header, err)
	}
	return n, nil
}
