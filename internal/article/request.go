package article

import (
	"errors"
	"net/http"
	"strings"

	"github.com/SergeyParamoshkin/articleui/internal/model"
)

// ArticleRequest is the request payload for article updates.
type ArticleRequest struct {
	model.ArticleUpdate
}

func (a *ArticleRequest) Bind(r *http.Request) error {
	a.Title = strings.TrimSpace(a.Title)
	a.Body = strings.TrimSpace(a.Body)

	if a.Title == "" || a.Body == "" {
		return errors.New("title and body are required")
	}

	return nil
}

// LoginRequest is the request payload for /users/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (l *LoginRequest) Bind(r *http.Request) error {
	l.Username = strings.TrimSpace(l.Username)
	if l.Username == "" {
		return errors.New("username is required")
	}

	return nil
}

// TokenResponse is returned by a successful login.
type TokenResponse struct {
	Token string `json:"token"`
}

func (t *TokenResponse) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}
