// Package session gates pages on the expiry of the browser's bearer token.
// The token signature is not verified here; the backend checks it on every
// API call.
package session

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const DefaultLoginPath = "/users/to_login"

// DefaultSkipPrefixes are served without a token check.
var DefaultSkipPrefixes = []string{"/users", "/static/login.html", "/static/register.html", "/favicon"}

// Reason explains a guard decision.
type Reason int

const (
	ReasonValid Reason = iota
	ReasonSkipped
	ReasonNoToken
	ReasonMalformed
	ReasonNoExpiry
	ReasonExpired
)

func (r Reason) String() string {
	switch r {
	case ReasonValid:
		return "valid"
	case ReasonSkipped:
		return "skipped"
	case ReasonNoToken:
		return "no token"
	case ReasonMalformed:
		return "malformed"
	case ReasonNoExpiry:
		return "no expiry"
	case ReasonExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Decision is the outcome of checking one request.
type Decision struct {
	Reason  Reason
	Subject string
}

// Allowed reports whether the page may be served.
func (d Decision) Allowed() bool {
	return d.Reason == ReasonValid || d.Reason == ReasonSkipped
}

type Config struct {
	LoginPath    string
	SkipPrefixes []string
	// Now defaults to time.Now.
	Now func() time.Time
}

// Guard redirects requests without a live token to the login page.
type Guard struct {
	store     Store
	loginPath string
	skip      []string
	now       func() time.Time
	log       *zap.SugaredLogger
}

func NewGuard(store Store, cfg Config, log *zap.SugaredLogger) *Guard {
	if cfg.LoginPath == "" {
		cfg.LoginPath = DefaultLoginPath
	}
	if cfg.SkipPrefixes == nil {
		cfg.SkipPrefixes = DefaultSkipPrefixes
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	return &Guard{
		store:     store,
		loginPath: cfg.LoginPath,
		skip:      cfg.SkipPrefixes,
		now:       cfg.Now,
		log:       log,
	}
}

// Check inspects the request's token. It has no side effects.
func (g *Guard) Check(r *http.Request) Decision {
	path := r.URL.Path
	for _, p := range g.skip {
		if strings.HasPrefix(path, p) {
			return Decision{Reason: ReasonSkipped}
		}
	}

	tok, err := g.store.Token(r)
	if err != nil {
		g.log.Warnw("token store read failed", "path", path, "error", err)
	}
	if tok == "" {
		return Decision{Reason: ReasonNoToken}
	}

	claims, err := DecodeClaims(tok)
	if err != nil {
		return Decision{Reason: ReasonMalformed}
	}

	exp, err := Expiry(claims)
	if err != nil {
		return Decision{Reason: ReasonNoExpiry}
	}

	sub, _ := claims.GetSubject()
	if exp < g.now().Unix() {
		return Decision{Reason: ReasonExpired, Subject: sub}
	}

	return Decision{Reason: ReasonValid, Subject: sub}
}

// Middleware serves allowed requests, exposing the token subject through
// SubjectFromCtx, and redirects the rest to the login page. Expired tokens
// are removed from the store first.
func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d := g.Check(r)

		switch d.Reason {
		case ReasonSkipped:
			next.ServeHTTP(w, r)

			return
		case ReasonValid:
			ctx := r.Context()
			if d.Subject != "" {
				ctx = WithSubject(ctx, d.Subject)
			}
			next.ServeHTTP(w, r.WithContext(ctx))

			return
		case ReasonExpired:
			if err := g.store.Remove(w, r); err != nil {
				g.log.Warnw("expired token removal failed", "path", r.URL.Path, "error", err)
			}
		}

		g.log.Infow("redirecting to login", "path", r.URL.Path, "reason", d.Reason.String())
		http.Redirect(w, r, g.loginPath, http.StatusFound)
	})
}
