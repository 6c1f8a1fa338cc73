package articleui

//go:generate mockgen -source=backend.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"github.com/SergeyParamoshkin/articleui/internal/model"
)

// Backend is the REST API the controller renders. *client.Client
// implements it.
type Backend interface {
	ListArticles(ctx context.Context, q model.ListQuery) (*model.ArticlePage, error)
	GetArticle(ctx context.Context, id string) (*model.Article, error)
	UpdateArticle(ctx context.Context, token, id string, upd model.ArticleUpdate) error
	ListLabels(ctx context.Context) ([]model.Label, error)
}
