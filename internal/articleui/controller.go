// Package articleui holds the article list view-model: pagination, tag
// filtering, and the view/edit dialogs, synchronized with the articles REST
// backend. It produces view descriptions; rendering them is up to the
// caller.
package articleui

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/SergeyParamoshkin/articleui/internal/model"
)

const (
	DefaultUsername   = "user"
	DefaultPageSize   = 10
	DefaultTimeLayout = "2006-01-02 15:04:05"

	// NoticeSaved is shown after a successful save.
	NoticeSaved = msgSaved
)

// Config is fixed for the lifetime of a controller.
type Config struct {
	// Username decides which rows get an enabled edit control.
	Username   string
	PageSize   int
	TimeLayout string
	Location   *time.Location
}

// Controller owns the pagination and filter state of one article list.
// It is safe for concurrent use; a response is applied only if no newer
// request for the same view region was issued in the meantime.
type Controller struct {
	backend Backend
	log     *zap.SugaredLogger

	username string
	limit    int
	layout   string
	loc      *time.Location

	mu        sync.Mutex
	page      int
	total     int
	activeTag string
	list      ListView
	editable  map[string]bool
	listGen   uint64

	labels       []string
	labelsErr    string
	labelsLoaded bool

	modalGen uint64
}

// New returns a controller positioned on page 1 without a filter.
func New(backend Backend, cfg Config, log *zap.SugaredLogger) *Controller {
	if cfg.Username == "" {
		cfg.Username = DefaultUsername
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.TimeLayout == "" {
		cfg.TimeLayout = DefaultTimeLayout
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	c := &Controller{
		backend:  backend,
		log:      log.With("user", cfg.Username),
		username: cfg.Username,
		limit:    cfg.PageSize,
		layout:   cfg.TimeLayout,
		loc:      cfg.Location,
		page:     1,
		editable: map[string]bool{},
	}
	c.list = ListView{Loading: true, Page: 1, Limit: c.limit, PageInfo: c.pageInfo(1, "")}

	return c
}

func (c *Controller) Username() string {
	return c.username
}

// Snapshot returns the last applied list view.
func (c *Controller) Snapshot() ListView {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.list
}

// State returns the current page, page size, total and active filter.
func (c *Controller) State() (page, limit, total int, tag string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.page, c.limit, c.total, c.activeTag
}

// LoadPage makes tag the active filter ("" for none) and fetches the
// current page. Load failures are rendered into the view's Error and also
// returned. ErrStale means a newer load superseded this one; the returned
// view is then the last applied one.
func (c *Controller) LoadPage(ctx context.Context, tag string) (ListView, error) {
	c.mu.Lock()
	c.activeTag = tag
	c.listGen++
	gen := c.listGen
	q := model.ListQuery{Page: c.page, Limit: c.limit, Tag: tag}
	c.list.Loading = true
	c.mu.Unlock()

	c.log.Debugw("loading articles", "page", q.Page, "limit", q.Limit, "tag", q.Tag)
	res, err := c.backend.ListArticles(ctx, q)

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.listGen {
		c.log.Debugw("discarding stale article page", "page", q.Page, "tag", q.Tag)

		return c.list, ErrStale
	}

	view := ListView{
		Page:       q.Page,
		Limit:      q.Limit,
		Total:      c.total,
		ActiveTag:  tag,
		PageInfo:   c.pageInfo(q.Page, tag),
		ShowPrev:   c.list.ShowPrev,
		ShowNext:   c.list.ShowNext,
		Pagination: c.list.Pagination,
	}

	switch {
	case err != nil:
		c.log.Warnw("articles load failed", "page", q.Page, "tag", q.Tag, "error", err)
		view.Error = listErrorText(err)
	case res.Articles == nil:
		view.Empty = msgNoArticleData
	default:
		c.total = res.Total
		view.Total = res.Total
		view.Rows = c.rows(res.Articles, tag)
		if len(view.Rows) == 0 {
			view.Empty = msgNoArticles
		}

		view.ShowPrev = q.Page > 1
		view.ShowNext = !(q.Page >= TotalPages(res.Total, q.Limit) || len(res.Articles) < q.Limit)
		view.Pagination = Paginate(q.Page, res.Total, q.Limit)
	}

	c.list = view

	return view, err
}

// GoToPage loads page n keeping the active filter.
func (c *Controller) GoToPage(ctx context.Context, n int) (ListView, error) {
	if n < 1 {
		n = 1
	}

	c.mu.Lock()
	c.page = n
	tag := c.activeTag
	c.mu.Unlock()

	return c.LoadPage(ctx, tag)
}

// Next loads the following page.
func (c *Controller) Next(ctx context.Context) (ListView, error) {
	c.mu.Lock()
	c.page++
	tag := c.activeTag
	c.mu.Unlock()

	return c.LoadPage(ctx, tag)
}

// Prev loads the preceding page; on page 1 it does nothing.
func (c *Controller) Prev(ctx context.Context) (ListView, error) {
	c.mu.Lock()
	if c.page <= 1 {
		view := c.list
		c.mu.Unlock()

		return view, nil
	}
	c.page--
	tag := c.activeTag
	c.mu.Unlock()

	return c.LoadPage(ctx, tag)
}

// SelectTag resets to page 1 and applies tag as the filter.
func (c *Controller) SelectTag(ctx context.Context, tag string) (ListView, error) {
	c.mu.Lock()
	c.page = 1
	c.mu.Unlock()

	c.SetActiveFilter(tag)

	return c.LoadPage(ctx, tag)
}

// ClearFilter resets to page 1 without a filter.
func (c *Controller) ClearFilter(ctx context.Context) (ListView, error) {
	return c.SelectTag(ctx, "")
}

// SetActiveFilter marks the chips matching tag as active in both the label
// bar and the rendered rows and returns the updated label bar.
func (c *Controller) SetActiveFilter(tag string) LabelBar {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.activeTag = tag
	c.list = withActiveTag(c.list, tag)

	return c.labelBarLocked()
}

// LoadLabels fetches the label catalog and renders the filter bar.
func (c *Controller) LoadLabels(ctx context.Context) (LabelBar, error) {
	labels, err := c.backend.ListLabels(ctx)
	if err != nil {
		c.log.Warnw("labels load failed", "error", err)

		c.mu.Lock()
		defer c.mu.Unlock()
		c.labelsErr = msgLabelsFailed

		return c.labelBarLocked(), err
	}

	return c.RenderLabels(labels), nil
}

// RenderLabels replaces the label catalog and renders the filter bar.
func (c *Controller) RenderLabels(labels []model.Label) LabelBar {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.labels = labelNames(labels)
	c.labelsErr = ""
	c.labelsLoaded = true

	return c.labelBarLocked()
}

// Labels returns the current filter bar.
func (c *Controller) Labels() LabelBar {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.labelBarLocked()
}

// LabelsLoaded reports whether the label catalog was fetched successfully.
func (c *Controller) LabelsLoaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.labelsLoaded
}

func (c *Controller) labelBarLocked() LabelBar {
	if c.labelsErr != "" {
		return LabelBar{Error: c.labelsErr, ShowClear: c.activeTag != ""}
	}

	bar := labelBar(c.labels, c.activeTag)
	bar.Loading = !c.labelsLoaded

	return bar
}

// OpenView fetches the article and returns its read-only dialog.
func (c *Controller) OpenView(ctx context.Context, id string) (ArticleModal, error) {
	gen := c.nextModal()

	a, err := c.backend.GetArticle(ctx, id)
	if !c.modalCurrent(gen) {
		return ArticleModal{}, ErrStale
	}
	if err != nil {
		c.log.Warnw("article load failed", "id", id, "error", err)

		return ArticleModal{}, fmt.Errorf("%w: article %s: %v", ErrLoadFailed, id, err)
	}

	return ArticleModal{
		ID:        a.ID.String(),
		Title:     a.Title,
		Author:    a.Author,
		Published: c.formatTime(a.PublishedAt),
		Tags:      strings.Join(a.Tags, ", "),
		Body:      a.Body,
	}, nil
}

// OpenEdit returns the edit dialog of id. It fails with ErrEditDisabled,
// without touching the backend, unless the last rendered list showed an
// enabled edit control for id. The article is fetched first and the label
// checklist second; a dialog superseded in between is dropped with
// ErrStale.
func (c *Controller) OpenEdit(ctx context.Context, id string) (EditModal, error) {
	c.mu.Lock()
	if !c.editable[id] {
		c.mu.Unlock()

		return EditModal{}, ErrEditDisabled
	}
	c.modalGen++
	gen := c.modalGen
	c.mu.Unlock()

	a, err := c.backend.GetArticle(ctx, id)
	if !c.modalCurrent(gen) {
		return EditModal{}, ErrStale
	}
	if err != nil {
		c.log.Warnw("article load failed", "id", id, "error", err)

		return EditModal{}, fmt.Errorf("%w: article %s: %v", ErrLoadFailed, id, err)
	}

	published := c.formatTime(a.PublishedAt)
	m := EditModal{
		ID:       id,
		Heading:  "edit: " + a.Title,
		Meta:     "author: " + a.Author + " published: " + published,
		Title:    a.Title,
		Body:     a.Body,
		TagInput: strings.Join(a.Tags, ", "),
	}

	labels, err := c.backend.ListLabels(ctx)
	if !c.modalCurrent(gen) {
		return EditModal{}, ErrStale
	}
	if err != nil {
		c.log.Warnw("edit checklist load failed", "id", id, "error", err)

		return m, nil
	}
	m.Checklist = checklist(labelNames(labels), a)

	return m, nil
}

// CloseModal dismisses any open dialog; in-flight dialog fetches are
// discarded when they complete.
func (c *Controller) CloseModal() {
	c.nextModal()
}

// Save validates the form, updates the article with the bearer token and
// reloads the current page. Validation failures never reach the backend.
func (c *Controller) Save(ctx context.Context, token, id string, form EditForm) (ListView, error) {
	title := strings.TrimSpace(form.Title)
	body := strings.TrimSpace(form.Body)
	if title == "" || body == "" {
		return c.Snapshot(), ErrEmptyFields
	}
	if token == "" {
		return c.Snapshot(), ErrSessionExpired
	}

	upd := model.ArticleUpdate{
		Title: title,
		Body:  body,
		Tags:  MergeTags(form.TagInput, form.Checked),
	}

	c.log.Infow("saving article", "id", id, "tags", upd.Tags)
	if err := c.backend.UpdateArticle(ctx, token, id, upd); err != nil {
		c.log.Warnw("article save failed", "id", id, "error", err)

		return c.Snapshot(), fmt.Errorf("update article %s: %w", id, err)
	}

	c.CloseModal()

	c.mu.Lock()
	tag := c.activeTag
	c.mu.Unlock()

	view, err := c.LoadPage(ctx, tag)
	if err != nil {
		c.log.Debugw("reload after save", "error", err)
	}

	return view, nil
}

func (c *Controller) nextModal() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.modalGen++

	return c.modalGen
}

func (c *Controller) modalCurrent(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return gen == c.modalGen
}

// rows renders articles and records which ones are editable. Must be
// called with mu held.
func (c *Controller) rows(articles []model.Article, tag string) []Row {
	c.editable = make(map[string]bool, len(articles))
	rows := make([]Row, 0, len(articles))

	for i := range articles {
		a := &articles[i]
		id := a.ID.String()
		row := Row{
			ID:          id,
			Title:       a.Title,
			Published:   c.formatTime(a.PublishedAt),
			Tags:        make([]Chip, 0, len(a.Tags)),
			ViewEnabled: true,
			EditEnabled: a.Author == c.username,
		}
		for _, t := range a.Tags {
			row.Tags = append(row.Tags, Chip{Name: t, Tag: t, Active: tag != "" && t == tag})
		}
		c.editable[id] = row.EditEnabled
		rows = append(rows, row)
	}

	return rows
}

func (c *Controller) formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	return t.In(c.loc).Format(c.layout)
}

func (c *Controller) pageInfo(page int, tag string) string {
	info := fmt.Sprintf("page %d (%d per page)", page, c.limit)
	if tag != "" {
		info += ", tag: " + tag
	}

	return info
}

// withActiveTag copies v with chip activity recomputed for tag.
func withActiveTag(v ListView, tag string) ListView {
	v.ActiveTag = tag
	if v.Rows == nil {
		return v
	}

	rows := make([]Row, len(v.Rows))
	for i, r := range v.Rows {
		chips := make([]Chip, len(r.Tags))
		for j, ch := range r.Tags {
			ch.Active = tag != "" && ch.Tag == tag
			chips[j] = ch
		}
		r.Tags = chips
		rows[i] = r
	}
	v.Rows = rows

	return v
}
