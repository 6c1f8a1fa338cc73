package article

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/SergeyParamoshkin/articleui/internal/model"
	"github.com/SergeyParamoshkin/articleui/internal/user"
)

var testKey = []byte("secret")

func newTestServer(t *testing.T) (*httptest.Server, *Handler) {
	t.Helper()

	h := NewHandler(Fixtures(), user.Fixtures(), testKey, zaptest.NewLogger(t).Sugar())
	srv := httptest.NewServer(h.Routes())
	t.Cleanup(srv.Close)

	return srv, h
}

func signed(t *testing.T, sub string, exp time.Time) string {
	t.Helper()

	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   sub,
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString(testKey)
	require.NoError(t, err)

	return tok
}

func getJSON(t *testing.T, url string, v interface{}) int {
	t.Helper()

	resp, err := http.Get(url) //nolint:gosec,noctx
	require.NoError(t, err)
	defer resp.Body.Close()

	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))

	return resp.StatusCode
}

func put(t *testing.T, url, token, body string) (int, map[string]interface{}) {
	t.Helper()

	req, err := http.NewRequest(http.MethodPut, url, strings.NewReader(body)) //nolint:noctx
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]interface{}{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))

	return resp.StatusCode, out
}

func TestListArticlesPaging(t *testing.T) {
	srv, _ := newTestServer(t)

	var page model.ArticlePage
	code := getJSON(t, srv.URL+"/articles?page=2&limit=2", &page)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 5, page.Total)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 2, page.Limit)
	require.Len(t, page.Articles, 2)
	assert.Equal(t, "alo", page.Articles[0].Title)
	assert.Empty(t, page.Articles[0].Body, "list entries carry no body")
	assert.NotNil(t, page.Articles[0].Tags)
}

func TestListArticlesTagAndBounds(t *testing.T) {
	srv, _ := newTestServer(t)

	var page model.ArticlePage
	getJSON(t, srv.URL+"/articles?tag=go&limit=1000", &page)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, maxLimit, page.Limit)
	assert.Equal(t, "go", page.Tag)

	var past model.ArticlePage
	getJSON(t, srv.URL+"/articles?page=9", &past)
	assert.Equal(t, 5, past.Total)
	assert.NotNil(t, past.Articles)
	assert.Empty(t, past.Articles)

	var junk model.ArticlePage
	getJSON(t, srv.URL+"/articles?page=x&limit=-3", &junk)
	assert.Equal(t, 1, junk.Page)
	assert.Equal(t, defaultLimit, junk.Limit)
}

func TestGetArticle(t *testing.T) {
	srv, _ := newTestServer(t)

	var a model.Article
	code := getJSON(t, srv.URL+"/articles/2", &a)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "sup", a.Title)
	assert.Equal(t, "Second post.", a.Body)
	assert.Equal(t, []string{"go", "web"}, a.Tags)

	var nf map[string]interface{}
	code = getJSON(t, srv.URL+"/articles/404", &nf)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestListLabelsSorted(t *testing.T) {
	srv, _ := newTestServer(t)

	var out struct {
		Labels []string `json:"labels"`
	}
	getJSON(t, srv.URL+"/articles/labels", &out)

	assert.Equal(t, []string{"go", "intro", "web"}, out.Labels)
}

func TestUpdateArticle(t *testing.T) {
	srv, h := newTestServer(t)
	body := `{"title":" New ","body":"text","tags":["a"," ","b"]}`

	code, _ := put(t, srv.URL+"/articles/1", "", body)
	assert.Equal(t, http.StatusUnauthorized, code)

	expired := signed(t, "Peter", time.Now().Add(-time.Minute))
	code, out := put(t, srv.URL+"/articles/1", expired, body)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "token expired", out["error"])

	code, out = put(t, srv.URL+"/articles/1", signed(t, "Julia", time.Now().Add(time.Hour)), body)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "forbidden or not found", out["error"])

	peter := signed(t, "Peter", time.Now().Add(time.Hour))
	code, _ = put(t, srv.URL+"/articles/1", peter, `{"title":"","body":"x"}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, out = put(t, srv.URL+"/articles/1", peter, body)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "New", out["title"])

	a, err := h.store.Get("1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, a.Tags)
	assert.Contains(t, h.store.Labels(), "a")
}

func TestUpdateRejectsForeignSigningKey(t *testing.T) {
	srv, _ := newTestServer(t)

	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "Peter",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("other"))
	require.NoError(t, err)

	code, out := put(t, srv.URL+"/articles/1", tok, `{"title":"t","body":"b"}`)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "invalid token", out["error"])
}

func TestLoginJSON(t *testing.T) {
	srv, h := newTestServer(t)
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return now }

	resp, err := http.Post(srv.URL+"/users/login", "application/json", //nolint:noctx
		strings.NewReader(`{"username":"Peter","password":"x"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out TokenResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.NotEmpty(t, out.Token)

	claims := jwt.MapClaims{}
	_, _, err = jwt.NewParser().ParseUnverified(out.Token, claims)
	require.NoError(t, err)
	assert.Equal(t, "Peter", claims["sub"])
	assert.EqualValues(t, now.Add(DefaultTokenTTL).Unix(), claims["exp"])

	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == TokenCookie {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.Equal(t, out.Token, cookie.Value)
}

func TestLoginForm(t *testing.T) {
	srv, _ := newTestServer(t)

	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}

	resp, err := client.PostForm(srv.URL+"/users/login", url.Values{"username": {"Julia"}})
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/articles", resp.Header.Get("Location"))

	resp2, err := client.PostForm(srv.URL+"/users/login", url.Values{"username": {"  "}})
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp2.StatusCode)
}

func TestLoginPage(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/users/to_login") //nolint:noctx
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
}

func TestLoginUnknownUser(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/users/login", "application/json", //nolint:noctx
		strings.NewReader(`{"username":"Mallory"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Empty(t, resp.Cookies())
}

func TestMe(t *testing.T) {
	srv, _ := newTestServer(t)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/users/me", nil) //nolint:noctx
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+signed(t, "Julia", time.Now().Add(time.Hour)))

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Julia", out["name"])
	assert.EqualValues(t, 200, out["id"])
	assert.Equal(t, "author", out["role"])
}
