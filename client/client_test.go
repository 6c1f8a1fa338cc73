//go:build !integration

package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SergeyParamoshkin/articleui/internal/model"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	return &Client{Addr: srv.URL}
}

func TestListArticlesQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/articles", r.URL.Path)
		assert.Equal(t, "3", r.URL.Query().Get("page"))
		assert.Equal(t, "2", r.URL.Query().Get("limit"))
		assert.Equal(t, "c++ & go", r.URL.Query().Get("tag"))
		_, _ = io.WriteString(w, `{"articles":[{"id":1,"title":"hi","author":"bob","tags":["go"]}],"total":5}`)
	})

	page, err := c.ListArticles(context.Background(), model.ListQuery{Page: 3, Limit: 2, Tag: "c++ & go"})
	require.NoError(t, err)
	require.Equal(t, 5, page.Total)
	require.Len(t, page.Articles, 1)
	require.Equal(t, model.ID("1"), page.Articles[0].ID)
}

func TestListArticlesWithoutTagOmitsParam(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, ok := r.URL.Query()["tag"]
		assert.False(t, ok)
		_, _ = io.WriteString(w, `{"total":0}`)
	})

	page, err := c.ListArticles(context.Background(), model.ListQuery{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Nil(t, page.Articles)
}

func TestUpdateArticleSendsBearer(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/articles/42", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		var body map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "t", body["title"])
		assert.Equal(t, []interface{}{}, body["tags"])
		_, _ = io.WriteString(w, `{"message":"updated"}`)
	})

	err := c.UpdateArticle(context.Background(), "tok", "42", model.ArticleUpdate{Title: "t", Body: "b"})
	require.NoError(t, err)
}

func TestAPIErrorStructured(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `{"error":"forbidden or not found"}`)
	})

	err := c.UpdateArticle(context.Background(), "tok", "1", model.ArticleUpdate{})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	require.Equal(t, "forbidden or not found", apiErr.Text("update failed"))
}

func TestAPIErrorPlainText(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	})

	_, err := c.GetArticle(context.Background(), "1")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Empty(t, apiErr.Message)
	require.Equal(t, "upstream exploded\n", apiErr.Text("load failed"))
}

func TestAPIErrorEmptyBodyFallsBack(t *testing.T) {
	e := &APIError{StatusCode: 500}
	require.Equal(t, "update failed", e.Text("update failed"))
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	c := &Client{Addr: addr}
	_, err := c.ListLabels(context.Background())
	require.ErrorIs(t, err, ErrTransport)
}

func TestListLabelsMixedShapes(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/articles/labels", r.URL.Path)
		_, _ = io.WriteString(w, `{"labels":["go",{"Name":"db"}]}`)
	})

	labels, err := c.ListLabels(context.Background())
	require.NoError(t, err)
	require.Equal(t, []model.Label{{Name: "go"}, {Name: "db"}}, labels)
}
