package articleresponse

import (
	"net/http"

	"github.com/SergeyParamoshkin/articleui/internal/articleui"
	"github.com/SergeyParamoshkin/articleui/internal/model"
)

// ListResponse is the JSON payload of the article list view.
//
// In the ListResponse object, first a Render() is called on itself,
// then on its fields; it only normalizes empty collections so clients
// always see arrays.
type ListResponse struct {
	articleui.ListView

	Labels articleui.LabelBar `json:"labels"`
	User   string             `json:"user"`
}

func NewListResponse(view articleui.ListView, labels articleui.LabelBar, user string) *ListResponse {
	return &ListResponse{ListView: view, Labels: labels, User: user}
}

func (rd *ListResponse) Render(w http.ResponseWriter, r *http.Request) error {
	if rd.Rows == nil {
		rd.Rows = []articleui.Row{}
	}
	if rd.Labels.Items == nil {
		rd.Labels.Items = []articleui.Chip{}
	}

	return nil
}

// LabelsResponse is the JSON payload of the filter bar.
type LabelsResponse struct {
	articleui.LabelBar
}

func NewLabelsResponse(bar articleui.LabelBar) *LabelsResponse {
	return &LabelsResponse{LabelBar: bar}
}

func (rd *LabelsResponse) Render(w http.ResponseWriter, r *http.Request) error {
	if rd.Items == nil {
		rd.Items = []articleui.Chip{}
	}

	return nil
}

// ArticleResponse is the backend's article detail payload.
type ArticleResponse struct {
	*model.Article
}

func NewArticleResponse(a *model.Article) *ArticleResponse {
	return &ArticleResponse{Article: a}
}

func (rd *ArticleResponse) Render(w http.ResponseWriter, r *http.Request) error {
	if rd.Tags == nil {
		rd.Tags = []string{}
	}

	return nil
}

// ArticleSummary is a list entry of the backend's list payload; bodies are
// left out.
type ArticleSummary struct {
	*model.Article

	Body string `json:"body,omitempty"`
}

// PageResponse is the backend's list payload.
type PageResponse struct {
	Articles []ArticleSummary `json:"articles"`
	Page     int              `json:"page"`
	Limit    int              `json:"limit"`
	Tag      string           `json:"tag"`
	Total    int              `json:"total"`
}

func NewPageResponse(articles []*model.Article, page, limit int, tag string, total int) *PageResponse {
	list := make([]ArticleSummary, 0, len(articles))
	for _, a := range articles {
		list = append(list, ArticleSummary{Article: a})
	}

	return &PageResponse{Articles: list, Page: page, Limit: limit, Tag: tag, Total: total}
}

func (rd *PageResponse) Render(w http.ResponseWriter, r *http.Request) error {
	for i := range rd.Articles {
		if rd.Articles[i].Tags == nil {
			rd.Articles[i].Tags = []string{}
		}
	}

	return nil
}

// LabelListResponse is the backend's label catalog payload.
type LabelListResponse struct {
	Labels []string `json:"labels"`
}

func (rd *LabelListResponse) Render(w http.ResponseWriter, r *http.Request) error {
	if rd.Labels == nil {
		rd.Labels = []string{}
	}

	return nil
}
