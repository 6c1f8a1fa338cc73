package article

import (
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/SergeyParamoshkin/articleui/internal/model"
)

var (
	ErrNotFound  = errors.New("article not found")
	ErrForbidden = errors.New("forbidden or not found")
)

// Store is an in-memory article table, newest first.
type Store struct {
	mu       sync.RWMutex
	articles []*model.Article
	labels   map[string]bool
	nextID   int
}

func NewStore(articles ...model.Article) *Store {
	s := &Store{labels: map[string]bool{}, nextID: 1}
	for _, a := range articles {
		s.insert(a)
	}

	return s
}

// Fixtures returns a store seeded with demo articles.
func Fixtures() *Store {
	day := func(d int) time.Time {
		return time.Date(2024, 5, d, 9, 30, 0, 0, time.UTC)
	}

	return NewStore(
		model.Article{Title: "Hi", Body: "First post.", Author: "Peter", PublishedAt: day(1), Tags: []string{"intro"}},
		model.Article{Title: "sup", Body: "Second post.", Author: "Julia", PublishedAt: day(2), Tags: []string{"go", "web"}},
		model.Article{Title: "alo", Body: "Third post.", Author: "Peter", PublishedAt: day(3)},
		model.Article{Title: "bonjour", Body: "Fourth post.", Author: "Julia", PublishedAt: day(4), Tags: []string{"go"}},
		model.Article{Title: "whats up", Body: "Fifth post.", Author: "Peter", PublishedAt: day(5), Tags: []string{"web"}},
	)
}

func (s *Store) insert(a model.Article) {
	if a.ID == "" {
		a.ID = model.ID(strconv.Itoa(s.nextID))
	}
	s.nextID++
	a.Tags = cleanTags(a.Tags)
	for _, t := range a.Tags {
		s.labels[t] = true
	}

	s.articles = append([]*model.Article{&a}, s.articles...)
}

// List returns copies of the articles in [offset, offset+limit) matching
// tag ("" for all) and the total number of matches.
func (s *Store) List(offset, limit int, tag string) ([]*model.Article, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*model.Article
	for _, a := range s.articles {
		if tag == "" || a.HasTag(tag) {
			matched = append(matched, a)
		}
	}

	total := len(matched)
	if offset >= total {
		return []*model.Article{}, total
	}
	end := offset + limit
	if end > total {
		end = total
	}

	out := make([]*model.Article, 0, end-offset)
	for _, a := range matched[offset:end] {
		out = append(out, clone(a))
	}

	return out, total
}

func (s *Store) Get(id string) (*model.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.articles {
		if a.ID.String() == id {
			return clone(a), nil
		}
	}

	return nil, ErrNotFound
}

// Update replaces title, body and tags when author owns the article.
func (s *Store) Update(id, author string, upd model.ArticleUpdate) (*model.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.articles {
		if a.ID.String() != id {
			continue
		}
		if a.Author != author {
			return nil, ErrForbidden
		}

		a.Title = upd.Title
		a.Body = upd.Body
		a.Tags = cleanTags(upd.Tags)
		for _, t := range a.Tags {
			s.labels[t] = true
		}

		return clone(a), nil
	}

	return nil, ErrForbidden
}

// Labels returns every label ever attached, ordered by name.
func (s *Store) Labels() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.labels))
	for l := range s.labels {
		out = append(out, l)
	}
	sort.Strings(out)

	return out
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}

	return out
}

func clone(a *model.Article) *model.Article {
	c := *a
	c.Tags = append([]string(nil), a.Tags...)

	return &c
}
