// Package web renders the article list controller as HTML pages and JSON
// views. Every control on a page is a link or form targeting one of the
// routes registered here.
package web

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.uber.org/zap"

	"github.com/SergeyParamoshkin/articleui/internal/articleresponse"
	"github.com/SergeyParamoshkin/articleui/internal/articleui"
	"github.com/SergeyParamoshkin/articleui/internal/errresponse"
	"github.com/SergeyParamoshkin/articleui/internal/session"
)

//go:embed templates static
var embeddedFiles embed.FS

// Static serves the embedded stylesheet and login page.
func Static() http.FileSystem {
	fsys, err := fs.Sub(embeddedFiles, "static")
	if err != nil {
		panic(err)
	}

	return http.FS(fsys)
}

type Config struct {
	// DefaultUser is used when the request carries no token subject.
	DefaultUser string
	// OnLoad, if set, observes every backend-bound page operation.
	OnLoad func(ctx context.Context, op string, err error)
}

type Server struct {
	reg         *Registry
	tokens      session.Store
	tmpl        *template.Template
	defaultUser string
	onLoad      func(ctx context.Context, op string, err error)
	log         *zap.SugaredLogger
}

func NewServer(reg *Registry, tokens session.Store, cfg Config, log *zap.SugaredLogger) (*Server, error) {
	tmpl, err := template.New("page.html").
		Funcs(template.FuncMap{"filterURL": filterURL}).
		ParseFS(embeddedFiles, "templates/page.html")
	if err != nil {
		return nil, err
	}

	if cfg.DefaultUser == "" {
		cfg.DefaultUser = articleui.DefaultUsername
	}
	if cfg.OnLoad == nil {
		cfg.OnLoad = func(context.Context, string, error) {}
	}

	return &Server{
		reg:         reg,
		tokens:      tokens,
		tmpl:        tmpl,
		defaultUser: cfg.DefaultUser,
		onLoad:      cfg.OnLoad,
		log:         log,
	}, nil
}

// Register mounts the page and JSON view routes on r.
func (s *Server) Register(r chi.Router) {
	r.Route("/articles", func(r chi.Router) {
		r.Use(withSecurityHeaders)

		r.Get("/", s.handleList)
		r.Get("/page/{page}", s.handlePage)
		r.Get("/prev", s.handlePrev)
		r.Get("/next", s.handleNext)
		r.Get("/filter", s.handleFilter)
		r.Get("/filter/clear", s.handleClearFilter)

		r.Route("/{articleID}", func(r chi.Router) {
			r.Get("/view", s.handleView)
			r.Get("/edit", s.handleEdit)
			r.Post("/save", s.handleSave)
		})
	})

	r.Route("/view", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		r.Get("/articles", s.viewArticles)
		r.Get("/labels", s.viewLabels)
	})
}

// PageView is everything the page template renders.
type PageView struct {
	User   string
	List   articleui.ListView
	Labels articleui.LabelBar
	View   *articleui.ArticleModal
	Edit   *articleui.EditModal
	Alert  string
	Notice string
}

func (s *Server) controller(r *http.Request) *articleui.Controller {
	user, ok := session.SubjectFromCtx(r.Context())
	if !ok {
		user = s.defaultUser
	}

	return s.reg.Get(session.SessionID(r), user)
}

// prepare loads the label catalog and the first page when this controller
// has not shown them yet.
func (s *Server) prepare(ctx context.Context, ctrl *articleui.Controller) {
	if !ctrl.LabelsLoaded() {
		_, err := ctrl.LoadLabels(ctx)
		s.onLoad(ctx, "labels", err)
	}

	if ctrl.Snapshot().Loading {
		_, _, _, tag := ctrl.State()
		_, err := ctrl.LoadPage(ctx, tag)
		s.onLoad(ctx, "list", err)
	}
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	s.listAction(w, r, "list", func(ctrl *articleui.Controller, ctx context.Context) (articleui.ListView, error) {
		_, _, _, tag := ctrl.State()

		return ctrl.LoadPage(ctx, tag)
	})
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(chi.URLParam(r, "page"))
	if err != nil {
		http.Error(w, "invalid page", http.StatusBadRequest)

		return
	}

	s.listAction(w, r, "page", func(ctrl *articleui.Controller, ctx context.Context) (articleui.ListView, error) {
		return ctrl.GoToPage(ctx, n)
	})
}

func (s *Server) handlePrev(w http.ResponseWriter, r *http.Request) {
	s.listAction(w, r, "prev", (*articleui.Controller).Prev)
}

func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	s.listAction(w, r, "next", (*articleui.Controller).Next)
}

func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
	tag := r.URL.Query().Get("tag")

	s.listAction(w, r, "filter", func(ctrl *articleui.Controller, ctx context.Context) (articleui.ListView, error) {
		return ctrl.SelectTag(ctx, tag)
	})
}

func (s *Server) handleClearFilter(w http.ResponseWriter, r *http.Request) {
	s.listAction(w, r, "filter", (*articleui.Controller).ClearFilter)
}

type listFunc func(ctrl *articleui.Controller, ctx context.Context) (articleui.ListView, error)

func (s *Server) listAction(w http.ResponseWriter, r *http.Request, op string, fn listFunc) {
	ctx := r.Context()
	ctrl := s.controller(r)

	if !ctrl.LabelsLoaded() {
		_, err := ctrl.LoadLabels(ctx)
		s.onLoad(ctx, "labels", err)
	}

	view, err := fn(ctrl, ctx)
	s.onLoad(ctx, op, err)

	s.renderPage(w, r, PageView{User: ctrl.Username(), List: view, Labels: ctrl.Labels()})
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ctrl := s.controller(r)
	s.prepare(ctx, ctrl)

	pv := PageView{User: ctrl.Username()}

	m, err := ctrl.OpenView(ctx, chi.URLParam(r, "articleID"))
	s.onLoad(ctx, "view", err)
	switch {
	case errors.Is(err, articleui.ErrStale):
	case err != nil:
		pv.Alert = articleui.AlertText(err)
	default:
		pv.View = &m
	}

	pv.List, pv.Labels = ctrl.Snapshot(), ctrl.Labels()
	s.renderPage(w, r, pv)
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ctrl := s.controller(r)
	s.prepare(ctx, ctrl)

	pv := PageView{User: ctrl.Username()}

	m, err := ctrl.OpenEdit(ctx, chi.URLParam(r, "articleID"))
	s.onLoad(ctx, "edit", err)
	switch {
	case errors.Is(err, articleui.ErrStale):
	case err != nil:
		pv.Alert = articleui.AlertText(err)
	default:
		pv.Edit = &m
	}

	pv.List, pv.Labels = ctrl.Snapshot(), ctrl.Labels()
	s.renderPage(w, r, pv)
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ctrl := s.controller(r)
	id := chi.URLParam(r, "articleID")

	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)

		return
	}

	form := articleui.EditForm{
		Title:    r.PostForm.Get("title"),
		Body:     r.PostForm.Get("body"),
		TagInput: r.PostForm.Get("tags"),
		Checked:  r.PostForm["checked"],
	}

	token, err := s.tokens.Token(r)
	if err != nil {
		s.log.Warnw("token lookup failed", "path", r.URL.Path, "error", err)
	}

	view, err := ctrl.Save(ctx, token, id, form)
	s.onLoad(ctx, "save", err)

	pv := PageView{User: ctrl.Username(), List: view, Labels: ctrl.Labels()}
	if err != nil {
		pv.Alert = articleui.AlertText(err)
		m := editFromForm(id, form, pv.Labels)
		pv.Edit = &m
	} else {
		pv.Notice = articleui.NoticeSaved
	}

	s.renderPage(w, r, pv)
}

func (s *Server) viewArticles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ctrl := s.controller(r)
	q := r.URL.Query()

	var err error
	switch {
	case q.Has("tag"):
		_, err = ctrl.SelectTag(ctx, q.Get("tag"))
		s.onLoad(ctx, "filter", err)
	case q.Has("page"):
		n, convErr := strconv.Atoi(q.Get("page"))
		if convErr != nil {
			s.render(w, r, errresponse.ErrInvalidRequest(convErr))

			return
		}
		_, err = ctrl.GoToPage(ctx, n)
		s.onLoad(ctx, "page", err)
	}
	s.prepare(ctx, ctrl)

	s.render(w, r, articleresponse.NewListResponse(ctrl.Snapshot(), ctrl.Labels(), ctrl.Username()))
}

func (s *Server) viewLabels(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ctrl := s.controller(r)

	bar := ctrl.Labels()
	if !ctrl.LabelsLoaded() {
		var err error
		bar, err = ctrl.LoadLabels(ctx)
		s.onLoad(ctx, "labels", err)
		if err != nil {
			s.render(w, r, errresponse.ErrUpstream(bar.Error))

			return
		}
	}

	s.render(w, r, articleresponse.NewLabelsResponse(bar))
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, pv PageView) {
	var buf bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&buf, "page.html", pv); err != nil {
		s.log.Errorw("page render failed", "path", r.URL.Path, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := buf.WriteTo(w); err != nil {
		s.log.Debugw("page write failed", "path", r.URL.Path, "error", err)
	}
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, v render.Renderer) {
	if err := render.Render(w, r, v); err != nil {
		s.log.Errorw("render failed", "path", r.URL.Path, "error", err)
	}
}

// editFromForm rebuilds the edit dialog from a rejected submission so the
// user's input survives the alert.
func editFromForm(id string, form articleui.EditForm, labels articleui.LabelBar) articleui.EditModal {
	checked := make(map[string]bool, len(form.Checked))
	for _, c := range form.Checked {
		checked[c] = true
	}

	m := articleui.EditModal{
		ID:       id,
		Heading:  "edit: " + form.Title,
		Title:    form.Title,
		Body:     form.Body,
		TagInput: form.TagInput,
	}
	for _, ch := range labels.Items {
		if ch.Tag == "" {
			continue
		}
		m.Checklist = append(m.Checklist, articleui.CheckItem{Name: ch.Name, Checked: checked[ch.Name]})
	}

	return m
}

func filterURL(tag string) string {
	return "/articles/filter?tag=" + url.QueryEscape(tag)
}

func withSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'self'; base-uri 'none'; frame-ancestors 'none'")
		next.ServeHTTP(w, r)
	})
}
