package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/SergeyParamoshkin/articleui/internal/session"
)

// TokenSaver persists a login token for a browser session.
type TokenSaver interface {
	Save(ctx context.Context, sid, token string) error
}

// NewUserProxy forwards /users requests to the backend. When saver is not
// nil, tokens returned by a successful login are stored under the caller's
// session id.
func NewUserProxy(backend *url.URL, saver TokenSaver, log *zap.SugaredLogger) *httputil.ReverseProxy {
	p := httputil.NewSingleHostReverseProxy(backend)

	p.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		log.Warnw("users proxy failed", "path", r.URL.Path, "error", err)
		http.Error(w, "backend unavailable", http.StatusBadGateway)
	}

	if saver == nil {
		return p
	}

	p.ModifyResponse = func(resp *http.Response) error {
		req := resp.Request
		if req.Method != http.MethodPost || !strings.HasSuffix(req.URL.Path, "/users/login") {
			return nil
		}
		if resp.StatusCode/100 != 2 || !strings.Contains(resp.Header.Get("Content-Type"), "json") {
			return nil
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return err
		}
		resp.Body = io.NopCloser(bytes.NewReader(body))

		var out struct {
			Token string `json:"token"`
		}
		if err := json.Unmarshal(body, &out); err != nil || out.Token == "" {
			return nil
		}

		sid := session.SessionID(req)
		if err := saver.Save(req.Context(), sid, out.Token); err != nil {
			log.Warnw("login token not persisted", "error", err)
		}

		return nil
	}

	return p
}
