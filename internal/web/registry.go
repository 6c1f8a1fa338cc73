package web

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/SergeyParamoshkin/articleui/internal/articleui"
	"github.com/SergeyParamoshkin/articleui/internal/session"
)

// Factory builds a controller for username.
type Factory func(username string) *articleui.Controller

type entry struct {
	ctrl     *articleui.Controller
	user     string
	lastSeen time.Time
}

// Registry keeps one controller per browser session. A controller is
// replaced when the session's user changes and dropped after ttl of
// inactivity.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
	factory Factory
	ttl     time.Duration
	now     func() time.Time
}

func NewRegistry(factory Factory, ttl time.Duration) *Registry {
	return &Registry{
		entries: map[string]*entry{},
		factory: factory,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the controller of sid for user, creating it when needed.
func (g *Registry) Get(sid, user string) *articleui.Controller {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	g.evictLocked(now)

	e, ok := g.entries[sid]
	if !ok || e.user != user {
		e = &entry{ctrl: g.factory(user), user: user}
		g.entries[sid] = e
	}
	e.lastSeen = now

	return e.ctrl
}

// Forget drops the controller of sid.
func (g *Registry) Forget(sid string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.entries, sid)
}

func (g *Registry) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return len(g.entries)
}

func (g *Registry) evictLocked(now time.Time) {
	if g.ttl <= 0 {
		return
	}

	for sid, e := range g.entries {
		if now.Sub(e.lastSeen) > g.ttl {
			delete(g.entries, sid)
		}
	}
}

// SessionID makes sure every request carries a browser session cookie,
// issuing a fresh uuid when it has none.
func SessionID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if session.SessionID(r) == "" {
			c := &http.Cookie{
				Name:     session.SessionCookie,
				Value:    uuid.NewString(),
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			}
			http.SetCookie(w, c)
			r.AddCookie(c)
		}

		next.ServeHTTP(w, r)
	})
}
