// Package article is a small in-memory articles backend. It serves the same
// REST contract the article UI consumes, so the UI can run without a
// separate service.
package article

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/SergeyParamoshkin/articleui/internal/articleresponse"
	"github.com/SergeyParamoshkin/articleui/internal/errresponse"
	"github.com/SergeyParamoshkin/articleui/internal/user"
	"github.com/SergeyParamoshkin/articleui/internal/userpayload"
)

const (
	TokenCookie     = "token"
	DefaultTokenTTL = 24 * time.Hour
)

type Handler struct {
	store    *Store
	users    *user.Directory
	signKey  []byte
	tokenTTL time.Duration
	now      func() time.Time
	log      *zap.SugaredLogger
}

func NewHandler(store *Store, users *user.Directory, signKey []byte, log *zap.SugaredLogger) *Handler {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	return &Handler{
		store:    store,
		users:    users,
		signKey:  signKey,
		tokenTTL: DefaultTokenTTL,
		now:      time.Now,
		log:      log,
	}
}

// Routes returns the backend router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]string{"status": "ok"})
	})

	r.Route("/articles", func(r chi.Router) {
		r.With(paginate).Get("/", h.ListArticles)
		r.Get("/labels", h.ListLabels)

		r.Route("/{articleID}", func(r chi.Router) {
			r.Use(h.ArticleCtx)
			r.Get("/", h.GetArticle)
			r.With(h.Authenticated).Put("/", h.UpdateArticle)
		})
	})

	r.Route("/users", func(r chi.Router) {
		r.Get("/to_login", h.LoginPage)
		r.Post("/login", h.Login)
		r.With(h.Authenticated).Get("/me", h.Me)
	})

	return r
}

// ListArticles returns one page of articles, optionally narrowed by ?tag=.
func (h *Handler) ListArticles(w http.ResponseWriter, r *http.Request) {
	p := pageFromCtx(r.Context())
	tag := strings.TrimSpace(r.URL.Query().Get("tag"))

	list, total := h.store.List((p.page-1)*p.limit, p.limit, tag)
	if err := render.Render(w, r, articleresponse.NewPageResponse(list, p.page, p.limit, tag, total)); err != nil {
		h.render(w, r, errresponse.ErrRender(err))
	}
}

// GetArticle returns the specific Article. You'll notice it just
// fetches the Article right off the context, as its understood that
// if we made it this far, the Article must be on the context.
func (h *Handler) GetArticle(w http.ResponseWriter, r *http.Request) {
	a := articleFromCtx(r.Context())

	if err := render.Render(w, r, articleresponse.NewArticleResponse(a)); err != nil {
		h.render(w, r, errresponse.ErrRender(err))
	}
}

// UpdateArticle replaces title, body and tags. Only the author may do so.
func (h *Handler) UpdateArticle(w http.ResponseWriter, r *http.Request) {
	a := articleFromCtx(r.Context())

	data := &ArticleRequest{}
	if err := render.Bind(r, data); err != nil {
		h.render(w, r, errresponse.ErrInvalidRequest(err))

		return
	}

	author := authorFromCtx(r.Context())
	updated, err := h.store.Update(a.ID.String(), author, data.ArticleUpdate)
	if err != nil {
		h.log.Infow("article update refused", "id", a.ID, "user", author, "error", err)
		h.render(w, r, errresponse.ErrForbidden(ErrForbidden.Error()))

		return
	}

	h.log.Infow("article updated", "id", a.ID, "user", author)
	h.render(w, r, articleresponse.NewArticleResponse(updated))
}

// ListLabels returns the label catalog ordered by name.
func (h *Handler) ListLabels(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, &articleresponse.LabelListResponse{Labels: h.store.Labels()})
}

// Login issues a signed token for a known username. Passwords are not
// checked; the fixture directory has none. JSON requests get the
// token in the body; form posts are redirected to the article list. Both
// get the token cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	data := &LoginRequest{}
	isForm := strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded")

	var err error
	if isForm {
		err = bindForm(r, data)
	} else {
		err = render.Bind(r, data)
	}
	if err != nil {
		h.render(w, r, errresponse.ErrInvalidRequest(err))

		return
	}

	u, err := h.users.Lookup(data.Username)
	if err != nil {
		h.log.Infow("login refused", "user", data.Username)
		h.render(w, r, errresponse.ErrUnauthorized("invalid credentials"))

		return
	}

	tok, exp, err := h.issue(u.Name)
	if err != nil {
		h.log.Errorw("token signing failed", "user", u.Name, "error", err)
		h.render(w, r, errresponse.ErrRender(err))

		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     TokenCookie,
		Value:    tok,
		Path:     "/",
		Expires:  exp,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	h.log.Infow("user logged in", "user", u.Name)

	if isForm {
		http.Redirect(w, r, "/articles", http.StatusSeeOther)

		return
	}

	h.render(w, r, &TokenResponse{Token: tok})
}

// Me returns the user the bearer token was issued to.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.Lookup(authorFromCtx(r.Context()))
	if err != nil {
		h.render(w, r, errresponse.ErrNotFound)

		return
	}

	h.render(w, r, userpayload.NewUserPayloadResponse(u))
}

func bindForm(r *http.Request, data *LoginRequest) error {
	if err := r.ParseForm(); err != nil {
		return err
	}
	data.Username = r.PostForm.Get("username")
	data.Password = r.PostForm.Get("password")

	return data.Bind(r)
}

func (h *Handler) issue(user string) (string, time.Time, error) {
	if len(h.signKey) == 0 {
		return "", time.Time{}, errors.New("no signing key configured")
	}

	now := h.now()
	exp := now.Add(h.tokenTTL)
	claims := jwt.RegisteredClaims{
		Subject:   user,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}

	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.signKey)

	return tok, exp, err
}

const loginPage = `<!doctype html>
<html>
<head><meta charset="utf-8"><title>Log in</title></head>
<body>
<form method="post" action="/users/login">
<label>Username <input name="username" autofocus></label>
<label>Password <input name="password" type="password"></label>
<button type="submit">Log in</button>
</form>
</body>
</html>
`

func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write([]byte(loginPage)); err != nil {
		h.log.Errorw("write failed", "path", r.URL.Path, "error", err)
	}
}
