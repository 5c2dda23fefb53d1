// Package remote talks to the Remote Collection: a jsonplaceholder-style
// REST resource at /todos.
//
// The client is deliberately thin. It does not retry, back off or cache;
// every transport fault and every non-2xx answer comes back as a
// *schema.RemoteError and the caller decides what to do. Timeouts come from
// the caller's context or from the *http.Client passed to NewHTTPClient.
package remote

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

	"github.com/devbydijah/todolist/internal/todo/schema"
	"github.com/google/uuid"
)

// DefaultBaseURL is the public jsonplaceholder service.
const DefaultBaseURL = "https://jsonplaceholder.typicode.com"

// Client is the Remote Collection contract.
type Client interface {
	List(ctx context.Context, page, limit int) ([]schema.Todo, error)
	ListAll(ctx context.Context) ([]schema.Todo, error)
	Get(ctx context.Context, id int64) (schema.Todo, error)
	Create(ctx context.Context, todo schema.Todo) (schema.Todo, error)
	Update(ctx context.Context, id int64, todo schema.Todo) (schema.Todo, error)
	Delete(ctx context.Context, id int64) error
}

// wireTodo is the record shape on the wire. Synced never leaves the device.
type wireTodo struct {
	UserID      int64  `json:"userId,omitempty"`
	ID          int64  `json:"id,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Completed   bool   `json:"completed"`
}

func toWire(t schema.Todo) wireTodo {
	return wireTodo{UserID: t.UserID, ID: t.ID, Title: t.Title, Description: t.Description, Completed: t.Completed}
}

func (w wireTodo) todo() schema.Todo {
	return schema.Todo{ID: w.ID, Title: w.Title, Description: w.Description, Completed: w.Completed, UserID: w.UserID}
}

// HTTPClient is the REST implementation of Client.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPClient returns a client for baseURL. A nil httpClient gets a
// 15 second overall timeout.
func NewHTTPClient(baseURL string, httpClient *http.Client) *HTTPClient {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &HTTPClient{baseURL: baseURL, httpClient: httpClient}
}

// BaseURL returns the collection root without a trailing slash.
func (c *HTTPClient) BaseURL() string { return c.baseURL }

// List fetches one page. Pages start at 1.
func (c *HTTPClient) List(ctx context.Context, page, limit int) ([]schema.Todo, error) {
	q := url.Values{}
	if page > 0 {
		q.Set("_page", strconv.Itoa(page))
	}
	if limit > 0 {
		q.Set("_limit", strconv.Itoa(limit))
	}
	path := "/todos"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out []wireTodo
	if err := c.doJSON(ctx, "list", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return fromWire(out), nil
}

// ListAll fetches the whole collection.
func (c *HTTPClient) ListAll(ctx context.Context) ([]schema.Todo, error) {
	var out []wireTodo
	if err := c.doJSON(ctx, "list_all", http.MethodGet, "/todos", nil, &out); err != nil {
		return nil, err
	}
	return fromWire(out), nil
}

func (c *HTTPClient) Get(ctx context.Context, id int64) (schema.Todo, error) {
	var out wireTodo
	if err := c.doJSON(ctx, "get", http.MethodGet, todoPath(id), nil, &out); err != nil {
		return schema.Todo{}, err
	}
	return out.todo(), nil
}

// Create posts todo and returns the server's echo, including the id it
// assigned.
func (c *HTTPClient) Create(ctx context.Context, todo schema.Todo) (schema.Todo, error) {
	body := toWire(todo)
	body.ID = 0
	var out wireTodo
	if err := c.doJSON(ctx, "create", http.MethodPost, "/todos", body, &out); err != nil {
		return schema.Todo{}, err
	}
	return out.todo(), nil
}

func (c *HTTPClient) Update(ctx context.Context, id int64, todo schema.Todo) (schema.Todo, error) {
	body := toWire(todo)
	body.ID = id
	var out wireTodo
	if err := c.doJSON(ctx, "update", http.MethodPut, todoPath(id), body, &out); err != nil {
		return schema.Todo{}, err
	}
	return out.todo(), nil
}

func (c *HTTPClient) Delete(ctx context.Context, id int64) error {
	return c.doJSON(ctx, "delete", http.MethodDelete, todoPath(id), nil, nil)
}

func (c *HTTPClient) doJSON(ctx context.Context, op, method, requestPath string, body, out any) error {
	fullURL := c.baseURL + requestPath
	fail := func(status int, err error) error {
		return &schema.RemoteError{Op: op, Method: method, URL: fullURL, StatusCode: status, Err: err}
	}

	var bodyReader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fail(0, fmt.Errorf("failed to encode request: %w", err))
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
	if err != nil {
		return fail(0, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Correlation-Id", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fail(0, err)
	}
	payload, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return fail(resp.StatusCode, fmt.Errorf("failed to read response: %w", readErr))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(payload))
		if len(msg) > 200 {
			msg = msg[:200]
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return fail(resp.StatusCode, errors.New(msg))
	}
	if out == nil || len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fail(resp.StatusCode, fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}

func todoPath(id int64) string {
	return "/todos/" + strconv.FormatInt(id, 10)
}

func fromWire(in []wireTodo) []schema.Todo {
	out := make([]schema.Todo, 0, len(in))
	for _, w := range in {
		out = append(out, w.todo())
	}
	return out
}
