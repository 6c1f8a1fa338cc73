package web

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/SergeyParamoshkin/articleui/client"
	"github.com/SergeyParamoshkin/articleui/internal/article"
	"github.com/SergeyParamoshkin/articleui/internal/articleui"
	"github.com/SergeyParamoshkin/articleui/internal/session"
	"github.com/SergeyParamoshkin/articleui/internal/user"
)

type savedToken struct {
	sid, token string
}

type recordingSaver struct {
	mu    sync.Mutex
	saved []savedToken
}

func (s *recordingSaver) Save(_ context.Context, sid, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, savedToken{sid: sid, token: token})

	return nil
}

func (s *recordingSaver) all() []savedToken {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]savedToken(nil), s.saved...)
}

type ServerTestSuite struct {
	suite.Suite

	backend *httptest.Server
	ui      *httptest.Server
	saver   *recordingSaver
	reg     *Registry
	ops     []string
	opsMu   sync.Mutex
	browser *http.Client
}

func TestServerTestSuite(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}

func (s *ServerTestSuite) SetupTest() {
	log := zaptest.NewLogger(s.T()).Sugar()

	s.backend = httptest.NewServer(article.NewHandler(article.Fixtures(), user.Fixtures(), []byte("k"), log).Routes())
	backendURL, err := url.Parse(s.backend.URL)
	s.Require().NoError(err)

	api := &client.Client{Addr: s.backend.URL}
	s.reg = NewRegistry(func(user string) *articleui.Controller {
		return articleui.New(api, articleui.Config{Username: user, PageSize: 10, Location: time.UTC}, log)
	}, time.Hour)

	tokens := session.Chain{session.CookieStore{}}
	s.ops = nil
	srv, err := NewServer(s.reg, tokens, Config{OnLoad: func(_ context.Context, op string, _ error) {
		s.opsMu.Lock()
		s.ops = append(s.ops, op)
		s.opsMu.Unlock()
	}}, log)
	s.Require().NoError(err)

	s.saver = &recordingSaver{}
	guard := session.NewGuard(tokens, session.Config{}, log)

	r := chi.NewRouter()
	r.Use(SessionID)
	r.Mount("/users", NewUserProxy(backendURL, s.saver, log))
	r.Group(func(r chi.Router) {
		r.Use(guard.Middleware)
		srv.Register(r)
	})

	s.ui = httptest.NewServer(r)

	jar, err := cookiejar.New(nil)
	s.Require().NoError(err)
	s.browser = &http.Client{Jar: jar}
}

func (s *ServerTestSuite) TearDownTest() {
	s.ui.Close()
	s.backend.Close()
}

func (s *ServerTestSuite) login(user string) {
	resp, err := s.browser.Post(s.ui.URL+"/users/login", "application/json",
		strings.NewReader(`{"username":"`+user+`","password":"x"}`))
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Require().Equal(http.StatusOK, resp.StatusCode)
}

func (s *ServerTestSuite) get(path string) (int, string) {
	resp, err := s.browser.Get(s.ui.URL + path)
	s.Require().NoError(err)
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)

	return resp.StatusCode, string(b)
}

func (s *ServerTestSuite) save(id string, form url.Values) string {
	resp, err := s.browser.PostForm(s.ui.URL+"/articles/"+id+"/save", form)
	s.Require().NoError(err)
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)

	return string(b)
}

func (s *ServerTestSuite) TestRedirectsWithoutToken() {
	noFollow := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}

	resp, err := noFollow.Get(s.ui.URL + "/articles")
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusFound, resp.StatusCode)
	s.Equal(session.DefaultLoginPath, resp.Header.Get("Location"))
}

func (s *ServerTestSuite) TestLoginPersistsTokenForSession() {
	s.login("Peter")

	saved := s.saver.all()
	s.Require().Len(saved, 1)
	s.NotEmpty(saved[0].sid)
	s.NotEmpty(saved[0].token)

	u, _ := url.Parse(s.ui.URL)
	var sid string
	for _, c := range s.browser.Jar.Cookies(u) {
		if c.Name == session.SessionCookie {
			sid = c.Value
		}
	}
	s.Equal(sid, saved[0].sid)
}

func (s *ServerTestSuite) TestListShowsRowsAndEditControls() {
	s.login("Peter")

	code, body := s.get("/articles")
	s.Equal(http.StatusOK, code)
	s.Contains(body, "signed in as Peter")
	s.Contains(body, "whats up")
	s.Contains(body, "page 1 (10 per page)")
	s.Contains(body, `href="/articles/1/edit"`)
	s.NotContains(body, `href="/articles/2/edit"`, "Julia's article is not editable by Peter")
	s.Contains(body, `href="/articles/2/view"`)
}

func (s *ServerTestSuite) TestFilter() {
	s.login("Peter")

	_, body := s.get("/articles/filter?tag=go")
	s.Contains(body, "tag: go")
	s.Contains(body, "bonjour")
	s.NotContains(body, "whats up")
	s.Contains(body, "clear filter")

	_, body = s.get("/articles/filter/clear")
	s.Contains(body, "whats up")
	s.NotContains(body, "clear filter")
}

func (s *ServerTestSuite) TestViewModal() {
	s.login("Peter")

	_, body := s.get("/articles/2/view")
	s.Contains(body, "Second post.")
	s.Contains(body, "author: Julia")
	s.Contains(body, "tags: go, web")

	_, body = s.get("/articles/404/view")
	s.Contains(body, `role="alert">load failed<`)
}

func (s *ServerTestSuite) TestEditDisabledForOtherAuthors() {
	s.login("Peter")

	_, body := s.get("/articles/2/edit")
	s.Contains(body, articleui.ErrEditDisabled.Error())
	s.NotContains(body, `action="/articles/2/save"`)
}

func (s *ServerTestSuite) TestEditAndSave() {
	s.login("Peter")

	_, body := s.get("/articles/1/edit")
	s.Contains(body, `action="/articles/1/save"`)
	s.Contains(body, `value="intro" checked`)

	body = s.save("1", url.Values{"title": {"  "}, "body": {"x"}})
	s.Contains(body, articleui.ErrEmptyFields.Error())
	s.Contains(body, `action="/articles/1/save"`, "dialog stays open")

	body = s.save("1", url.Values{
		"title":   {"Hello again"},
		"body":    {"Edited."},
		"tags":    {"news, intro"},
		"checked": {"go"},
	})
	s.Contains(body, `role="status">saved<`)
	s.Contains(body, "Hello again")
	s.NotContains(body, `action="/articles/1/save"`)

	_, body = s.get("/articles/1/view")
	s.Contains(body, "tags: news, intro, go")
}

func (s *ServerTestSuite) TestSaveShowsBackendError() {
	s.login("Peter")
	s.get("/articles")

	// Julia's controller never offered an edit control for article 1; a
	// hand-made POST still gets refused by the backend.
	s.login("Julia")
	body := s.save("1", url.Values{"title": {"t"}, "body": {"b"}})
	s.Contains(body, "forbidden or not found")
}

func (s *ServerTestSuite) TestJSONViews() {
	s.login("Julia")

	code, body := s.get("/view/articles?tag=web")
	s.Require().Equal(http.StatusOK, code)

	var list struct {
		User      string `json:"user"`
		ActiveTag string `json:"activeTag"`
		Rows      []struct {
			ID          string `json:"id"`
			EditEnabled bool   `json:"editEnabled"`
		} `json:"rows"`
		Labels struct {
			Items []struct {
				Name   string `json:"name"`
				Active bool   `json:"active"`
			} `json:"items"`
			ShowClear bool `json:"showClear"`
		} `json:"labels"`
	}
	s.Require().NoError(json.Unmarshal([]byte(body), &list))
	s.Equal("Julia", list.User)
	s.Equal("web", list.ActiveTag)
	s.Require().Len(list.Rows, 2)
	s.Equal("5", list.Rows[0].ID)
	s.False(list.Rows[0].EditEnabled)
	s.True(list.Rows[1].EditEnabled)
	s.True(list.Labels.ShowClear)
	s.Require().NotEmpty(list.Labels.Items)
	s.Equal("All", list.Labels.Items[0].Name)

	code, body = s.get("/view/labels")
	s.Require().Equal(http.StatusOK, code)
	s.Contains(body, `"name":"intro"`)

	code, _ = s.get("/view/articles?page=x")
	s.Equal(http.StatusBadRequest, code)

	s.opsMu.Lock()
	defer s.opsMu.Unlock()
	s.Contains(s.ops, "labels")
	s.Contains(s.ops, "filter")
}

func TestRegistry(t *testing.T) {
	built := 0
	reg := NewRegistry(func(user string) *articleui.Controller {
		built++

		return articleui.New(nil, articleui.Config{Username: user}, zap.NewNop().Sugar())
	}, time.Minute)

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	reg.now = func() time.Time { return now }

	a := reg.Get("s1", "peter")
	assert.Same(t, a, reg.Get("s1", "peter"))
	assert.Equal(t, 1, built)

	b := reg.Get("s1", "julia")
	assert.NotSame(t, a, b)
	assert.Equal(t, "julia", b.Username())

	reg.Get("s2", "peter")
	assert.Equal(t, 2, reg.Len())

	now = now.Add(2 * time.Minute)
	reg.Get("s3", "peter")
	assert.Equal(t, 1, reg.Len())

	reg.Forget("s3")
	assert.Equal(t, 0, reg.Len())
}

func TestSessionIDIssuesCookieOnce(t *testing.T) {
	var seen string
	h := SessionID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = session.SessionID(r)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotEmpty(t, seen)
	require.Len(t, rec.Result().Cookies(), 1)
	assert.Equal(t, seen, rec.Result().Cookies()[0].Value)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: session.SessionCookie, Value: "abc"})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc", seen)
	assert.Empty(t, rec.Result().Cookies())
}

func TestUserProxyIgnoresOtherResponses(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"token":"abc"}`))
	}))
	defer backend.Close()

	u, err := url.Parse(backend.URL)
	require.NoError(t, err)

	saver := &recordingSaver{}
	p := NewUserProxy(u, saver, zaptest.NewLogger(t).Sugar())

	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/login", nil))
	assert.Empty(t, saver.all())

	req := httptest.NewRequest(http.MethodPost, "/users/login", strings.NewReader("{}"))
	req.AddCookie(&http.Cookie{Name: session.SessionCookie, Value: "sid-1"})
	rec = httptest.NewRecorder()
	p.ServeHTTP(rec, req)

	assert.Equal(t, `{"token":"abc"}`, rec.Body.String(), "body is passed through")
	assert.Equal(t, []savedToken{{sid: "sid-1", token: "abc"}}, saver.all())
}
