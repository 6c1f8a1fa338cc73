//go:build integration

package client

import (
	"context"
	"net/http"
	"os"
	"testing"

	"github.com/SergeyParamoshkin/articleui/internal/model"
)

func backendAddr() string {
	if v := os.Getenv("ARTICLEUI_BACKEND_URL"); v != "" {
		return v
	}

	return "http://localhost:3334"
}

var c = Client{
	Addr:   backendAddr(),
	Client: http.Client{},
}

func TestPing(t *testing.T) {
	if s, err := c.Ping(context.Background()); err != nil || s == "" {
		t.Fail()
	}
}

func TestListFirstPage(t *testing.T) {
	page, err := c.ListArticles(context.Background(), model.ListQuery{Page: 1, Limit: 2})
	if err != nil || page.Articles == nil {
		t.Fatalf("list: %v", err)
	}
}
