package session

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// TokenCookie carries the bearer token set by the backend at login.
	TokenCookie = "token"
	// SessionCookie identifies a browser session in the persistent store.
	SessionCookie = "ui_sid"
)

// Store is a source of the bearer token of the requesting browser. Token
// returns "" when the store holds none.
type Store interface {
	Token(r *http.Request) (string, error)
	Remove(w http.ResponseWriter, r *http.Request) error
}

// CookieStore reads the token from a cookie.
type CookieStore struct {
	Name string
}

func (s CookieStore) name() string {
	if s.Name == "" {
		return TokenCookie
	}

	return s.Name
}

func (s CookieStore) Token(r *http.Request) (string, error) {
	c, err := r.Cookie(s.name())
	if errors.Is(err, http.ErrNoCookie) {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	v, err := url.QueryUnescape(c.Value)
	if err != nil {
		return c.Value, nil
	}

	return v, nil
}

// Remove expires the cookie in the browser.
func (s CookieStore) Remove(w http.ResponseWriter, r *http.Request) error {
	http.SetCookie(w, &http.Cookie{
		Name:    s.name(),
		Value:   "",
		Path:    "/",
		MaxAge:  -1,
		Expires: time.Unix(0, 0),
	})

	return nil
}

// kv is the part of the redis client the store needs.
type kv interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisStore keeps one token per browser session in redis, keyed by the
// session id cookie.
type RedisStore struct {
	client  kv
	prefix  string
	ttl     time.Duration
	timeout time.Duration
}

// NewRedisStore returns a store writing keys "<prefix><sid>:token" with
// the given ttl.
func NewRedisStore(client kv, prefix string, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, ttl: ttl, timeout: 3 * time.Second}
}

func (s *RedisStore) key(sid string) string {
	return s.prefix + sid + ":token"
}

func (s *RedisStore) Token(r *http.Request) (string, error) {
	sid := SessionID(r)
	if sid == "" {
		return "", nil
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	tok, err := s.client.Get(ctx, s.key(sid)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}

	return tok, err
}

func (s *RedisStore) Remove(w http.ResponseWriter, r *http.Request) error {
	sid := SessionID(r)
	if sid == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	return s.client.Del(ctx, s.key(sid)).Err()
}

// Save stores token for the browser session sid.
func (s *RedisStore) Save(ctx context.Context, sid, token string) error {
	if sid == "" {
		return errors.New("empty session id")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	return s.client.Set(ctx, s.key(sid), token, s.ttl).Err()
}

// Chain consults its stores in order and returns the first token found.
// Store errors are skipped so a broken persistent store still lets the
// cookie fallback through.
type Chain []Store

func (c Chain) Token(r *http.Request) (string, error) {
	var firstErr error
	for _, s := range c {
		tok, err := s.Token(r)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}

			continue
		}
		if tok != "" {
			return tok, nil
		}
	}

	return "", firstErr
}

// Remove drops the token from every store.
func (c Chain) Remove(w http.ResponseWriter, r *http.Request) error {
	var firstErr error
	for _, s := range c {
		if err := s.Remove(w, r); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

// SessionID returns the browser session id cookie value, or "".
func SessionID(r *http.Request) string {
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		return ""
	}

	return c.Value
}
