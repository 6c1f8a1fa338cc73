package model

import (
	"bytes"
	"encoding/json"
	"time"
)

// ID is an opaque article identifier. The backend may send it as a JSON
// number or a string; both decode to the same text form.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*id = ""

		return nil
	}

	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)

		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = ID(n.String())

	return nil
}

func (id ID) String() string {
	return string(id)
}

// Article data model as served by the backend.
type Article struct {
	ID          ID        `json:"id"`
	Title       string    `json:"title"`
	Body        string    `json:"body,omitempty"`
	Author      string    `json:"author"` // compared verbatim with the current user
	PublishedAt time.Time `json:"published_at"`
	Tags        []string  `json:"tags"`
}

// HasTag reports whether tag is attached to the article.
func (a *Article) HasTag(tag string) bool {
	for _, t := range a.Tags {
		if t == tag {
			return true
		}
	}

	return false
}

// ArticlePage is one page of the list endpoint. Articles is nil when the
// response carried no articles field at all.
type ArticlePage struct {
	Articles []Article `json:"articles"`
	Total    int       `json:"total"`
	Page     int       `json:"page,omitempty"`
	Limit    int       `json:"limit,omitempty"`
	Tag      string    `json:"tag,omitempty"`
}

// ListQuery selects a page of articles. An empty Tag means no filter.
type ListQuery struct {
	Page  int
	Limit int
	Tag   string
}

// ArticleUpdate is the body of PUT /articles/{id}.
type ArticleUpdate struct {
	Title string   `json:"title"`
	Body  string   `json:"body"`
	Tags  []string `json:"tags"`
}
