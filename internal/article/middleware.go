package article

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/golang-jwt/jwt/v5"

	"github.com/SergeyParamoshkin/articleui/internal/errresponse"
	"github.com/SergeyParamoshkin/articleui/internal/model"
)

type ctxKey int

const (
	articleKey ctxKey = iota
	pageKey
	authorKey
)

const (
	defaultLimit = 10
	maxLimit     = 100
)

type pageParams struct {
	page  int
	limit int
}

// ArticleCtx middleware is used to load an Article object from
// the URL parameters passed through as the request. In case
// the Article could not be found, we stop here and return a 404.
func (h *Handler) ArticleCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		article, err := h.store.Get(chi.URLParam(r, "articleID"))
		if err != nil {
			h.render(w, r, errresponse.ErrNotFound)

			return
		}

		ctx := context.WithValue(r.Context(), articleKey, article)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// paginate reads page and limit from the query string. Missing or invalid
// values fall back to page 1 and the default limit; limit is capped.
func paginate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		p := pageParams{page: 1, limit: defaultLimit}

		if n, err := strconv.Atoi(q.Get("page")); err == nil && n > 0 {
			p.page = n
		}
		if n, err := strconv.Atoi(q.Get("limit")); err == nil && n > 0 {
			p.limit = n
		}
		if p.limit > maxLimit {
			p.limit = maxLimit
		}

		ctx := context.WithValue(r.Context(), pageKey, p)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Authenticated verifies the bearer token and stores its subject as the
// request's author.
func (h *Handler) Authenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			h.render(w, r, errresponse.ErrUnauthorized("missing token"))

			return
		}

		claims := &jwt.RegisteredClaims{}
		_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
			return h.signKey, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
		if err != nil {
			msg := "invalid token"
			if errors.Is(err, jwt.ErrTokenExpired) {
				msg = "token expired"
			}
			h.render(w, r, errresponse.ErrUnauthorized(msg))

			return
		}

		ctx := context.WithValue(r.Context(), authorKey, claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if tok, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(tok)
		}

		return ""
	}

	if c, err := r.Cookie(TokenCookie); err == nil {
		return c.Value
	}

	return ""
}

func articleFromCtx(ctx context.Context) *model.Article {
	// nolint
	return ctx.Value(articleKey).(*model.Article)
}

func pageFromCtx(ctx context.Context) pageParams {
	p, ok := ctx.Value(pageKey).(pageParams)
	if !ok {
		return pageParams{page: 1, limit: defaultLimit}
	}

	return p
}

func authorFromCtx(ctx context.Context) string {
	s, _ := ctx.Value(authorKey).(string)

	return s
}

// render reports failures the way every handler here does.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, v render.Renderer) {
	if err := render.Render(w, r, v); err != nil {
		h.log.Errorw("render failed", "path", r.URL.Path, "error", err)
	}
}
