package client

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

	"github.com/SergeyParamoshkin/articleui/internal/model"
)

// ErrTransport wraps failures that never produced an HTTP response.
var ErrTransport = errors.New("transport error")

// APIError is a non-2xx answer from the backend.
type APIError struct {
	StatusCode int
	// Message is the "error" field of a JSON error body, if any.
	Message string
	// Body is the raw response text.
	Body string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend: %d: %s", e.StatusCode, e.Message)
	}

	return fmt.Sprintf("backend: %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// Text returns the most specific message available, or fallback.
func (e *APIError) Text(fallback string) string {
	switch {
	case e.Message != "":
		return e.Message
	case strings.TrimSpace(e.Body) != "":
		return e.Body
	default:
		return fallback
	}
}

type Client struct {
	http.Client
	Addr string
}

// Ping checks that the backend answers on /health.
func (c *Client) Ping(ctx context.Context) (string, error) {
	resp, err := c.do(ctx, http.MethodGet, "/health", "", nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	return string(body), nil
}

// ListArticles calls GET /articles?page=&limit=[&tag=].
func (c *Client) ListArticles(ctx context.Context, q model.ListQuery) (*model.ArticlePage, error) {
	v := url.Values{}
	v.Set("page", strconv.Itoa(q.Page))
	v.Set("limit", strconv.Itoa(q.Limit))
	if q.Tag != "" {
		v.Set("tag", q.Tag)
	}

	page := &model.ArticlePage{}
	if err := c.getJSON(ctx, "/articles?"+v.Encode(), page); err != nil {
		return nil, err
	}

	return page, nil
}

// GetArticle calls GET /articles/{id}.
func (c *Client) GetArticle(ctx context.Context, id string) (*model.Article, error) {
	a := &model.Article{}
	if err := c.getJSON(ctx, "/articles/"+url.PathEscape(id), a); err != nil {
		return nil, err
	}

	return a, nil
}

// ListLabels calls GET /articles/labels.
func (c *Client) ListLabels(ctx context.Context) ([]model.Label, error) {
	var list model.LabelList
	if err := c.getJSON(ctx, "/articles/labels", &list); err != nil {
		return nil, err
	}

	return list.Labels, nil
}

// UpdateArticle calls PUT /articles/{id} authenticated with token. The
// response body of a successful update is ignored.
func (c *Client) UpdateArticle(ctx context.Context, token, id string, upd model.ArticleUpdate) error {
	if upd.Tags == nil {
		upd.Tags = []string{}
	}
	payload, err := json.Marshal(upd)
	if err != nil {
		return err
	}

	resp, err := c.do(ctx, http.MethodPut, "/articles/"+url.PathEscape(id), token, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, v interface{}) error {
	resp, err := c.do(ctx, http.MethodGet, path, "", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}

	return nil
}

// do sends the request and turns non-2xx answers into *APIError.
func (c *Client) do(ctx context.Context, method, path, token string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.Addr, "/")+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", ErrTransport, method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()

		return nil, newAPIError(resp)
	}

	return resp, nil
}

func newAPIError(resp *http.Response) *APIError {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(raw)}

	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &payload) == nil {
		apiErr.Message = payload.Error
	}

	return apiErr
}
