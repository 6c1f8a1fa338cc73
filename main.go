//
// ARTICLEUI
// =========
// A server-side rendered article list in front of an articles REST backend:
// paging, tag filtering, view and edit dialogs, and a token-expiry gate in
// front of every page.
//
// Also check routes.md for the generated docs from passing the -routes flag,
// to run yourself do: `go run . -routes`
//
// Boot the server together with the in-memory backend:
// ----------------------------------------------------
// $ ARTICLEUI_FIXTURES_ADDR=:3334 go run .
//
// Client requests:
// ----------------
// $ curl -i http://localhost:3333/articles
// HTTP/1.1 302 Found
// Location: /users/to_login
//
// $ curl -c jar -H 'Content-Type: application/json' \
//     -d '{"username":"Peter","password":"x"}' http://localhost:3333/users/login
// {"token":"eyJhbGciOiJIUzI1NiIs..."}
//
// $ curl -b jar http://localhost:3333/view/articles?tag=go
// {"rows":[{"id":"4","title":"bonjour",...}],"page":1,...}
//
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/docgen"
	"github.com/go-chi/render"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/global"
	export "go.opentelemetry.io/otel/sdk/export/metric"
	"go.opentelemetry.io/otel/sdk/metric/aggregator/histogram"
	controller "go.opentelemetry.io/otel/sdk/metric/controller/basic"
	processor "go.opentelemetry.io/otel/sdk/metric/processor/basic"
	selector "go.opentelemetry.io/otel/sdk/metric/selector/simple"

	"github.com/SergeyParamoshkin/articleui/client"
	"github.com/SergeyParamoshkin/articleui/internal/article"
	"github.com/SergeyParamoshkin/articleui/internal/articleui"
	"github.com/SergeyParamoshkin/articleui/internal/config"
	"github.com/SergeyParamoshkin/articleui/internal/session"
	"github.com/SergeyParamoshkin/articleui/internal/user"
	"github.com/SergeyParamoshkin/articleui/internal/web"
)

const ServiceName = "articleui"

type CtxKey int8

const (
	CtxKeyLogger CtxKey = iota
)

var (
	statusKey = attribute.Key("http.status_code")
	opKey     = attribute.Key("articleui.op")
	resultKey = attribute.Key("articleui.result")
)

type App struct {
	sugarLogger *zap.SugaredLogger
	config      *config.Config

	completed metric.Int64Counter
	loads     metric.Int64Counter
}

// nolint
func main() {

	// nolint
	var (
		routes     = flag.Bool("routes", config.GetEnvBool(config.EnvPrefix+"ROUTES", false), "Generate router documentation")
		configPath = flag.String("config", config.GetEnv(config.EnvPrefix+"CONFIG", "config.yaml"), "config file")
		addr       = flag.String("addr", "", "application port")
		diagPort   = flag.String("diag_addr", "", "diag port")
		backendURL = flag.String("backend", "", "articles backend url")
		fixtures   = flag.String("fixtures_addr", "", "serve the in-memory backend on this address")
	)

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}
	override(&cfg.Addr, *addr)
	override(&cfg.DiagAddr, *diagPort)
	override(&cfg.Backend.URL, *backendURL)
	override(&cfg.Fixtures.Addr, *fixtures)

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer logger.Sync() // flushes buffer, if any
	sugar := logger.Sugar()

	a := App{
		sugarLogger: sugar,
		config:      cfg,
	}
	hideErrors(sugar)

	exporterConfig := prometheus.Config{}
	c := controller.New(
		processor.New(
			selector.NewWithHistogramDistribution(
				histogram.WithExplicitBoundaries(exporterConfig.DefaultHistogramBoundaries),
			),
			export.CumulativeExportKindSelector(),
			processor.WithMemory(true),
		),
	)
	exporter, err := prometheus.New(exporterConfig, c)
	if err != nil {
		a.sugarLogger.Panicf("failed to initialize prometheus exporter %v", err)
	}
	global.SetMeterProvider(exporter.MeterProvider())

	meter := global.Meter(ServiceName)
	a.completed = metric.Must(meter).NewInt64Counter(
		"http/server/completed_count",
		metric.WithDescription("Count of completed requests, by response status"),
	)
	a.loads = metric.Must(meter).NewInt64Counter(
		"articleui/load_count",
		metric.WithDescription("Count of backend-bound page operations, by operation and result"),
	)

	backend, err := url.Parse(cfg.Backend.URL)
	if err != nil {
		a.sugarLogger.Panicf("invalid backend url %q: %v", cfg.Backend.URL, err)
	}

	if cfg.Fixtures.Addr != "" {
		h := article.NewHandler(article.Fixtures(), user.Fixtures(), []byte(cfg.Fixtures.SignKey), sugar.Named("fixtures"))
		go func() {
			a.sugarLogger.Infow("serving in-memory backend", "addr", cfg.Fixtures.Addr)
			if err := http.ListenAndServe(cfg.Fixtures.Addr, h.Routes()); err != nil {
				a.sugarLogger.Errorw(err.Error())
			}
		}()
	}

	tokens := session.Chain{}
	var saver web.TokenSaver
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := rdb.Ping(ctx).Err(); err != nil {
			a.sugarLogger.Warnw("redis unavailable, tokens fall back to cookies", "addr", cfg.Redis.Addr, "error", err)
		}
		cancel()

		store := session.NewRedisStore(rdb, cfg.Redis.Prefix, cfg.Session.TTL)
		tokens = append(tokens, store)
		saver = store
	}
	tokens = append(tokens, session.CookieStore{})

	api := &client.Client{
		Client: http.Client{Timeout: cfg.Backend.Timeout},
		Addr:   cfg.Backend.URL,
	}

	reg := web.NewRegistry(func(user string) *articleui.Controller {
		return articleui.New(api, articleui.Config{
			Username:   user,
			PageSize:   cfg.UI.PageSize,
			TimeLayout: cfg.UI.TimeLayout,
			Location:   cfg.UI.Location(),
		}, sugar.Named("articleui"))
	}, cfg.Session.TTL)

	srv, err := web.NewServer(reg, tokens, web.Config{
		DefaultUser: cfg.UI.DefaultUser,
		OnLoad:      a.recordLoad,
	}, sugar.Named("web"))
	if err != nil {
		a.sugarLogger.Panicf("failed to parse templates %v", err)
	}

	guard := session.NewGuard(tokens, session.Config{
		LoginPath:    cfg.Session.LoginPath,
		SkipPrefixes: cfg.Session.SkipPrefixes,
	}, sugar.Named("session"))

	r := chi.NewRouter()

	diagRouter := chi.NewRouter()
	diagRouter.Get("/metrics", exporter.ServeHTTP)

	r.Use(middleware.RequestID)
	r.Use(a.Logger)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(a.CountStatus)
	r.Use(web.SessionID)

	r.Get("/", http.RedirectHandler("/articles", http.StatusFound).ServeHTTP)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]string{"status": "ok"})
	})

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		logger := r.Context().Value(CtxKeyLogger).(*zap.SugaredLogger)

		status := "pong"
		if _, err := api.Ping(r.Context()); err != nil {
			logger.Warnw("backend ping failed", "error", err)
			status = "pong (backend unreachable)"
		}

		_, err := w.Write([]byte(status))
		if err != nil {
			logger.Errorw(err.Error())
		}
	})

	// Login and the login page live on the backend.
	r.Mount("/users", web.NewUserProxy(backend, saver, sugar.Named("proxy")))

	FileServer(r, "/static", web.Static())

	r.Group(func(r chi.Router) {
		r.Use(guard.Middleware)
		srv.Register(r)
	})

	// Passing -routes to the program will generate docs for the above
	// router definition.
	if *routes {
		// nolint
		fmt.Println(docgen.MarkdownRoutesDoc(r, docgen.MarkdownOpts{
			ProjectPath: "github.com/SergeyParamoshkin/articleui",
			Intro:       "Routes of the article list UI.",
		}))

		return
	}

	go func() {
		a.sugarLogger.Infow("serving ui", "addr", cfg.Addr, "backend", cfg.Backend.URL)
		err = http.ListenAndServe(cfg.Addr, r)
		if err != nil {
			a.sugarLogger.Errorw(err.Error())
		}
	}()

	err = http.ListenAndServe(cfg.DiagAddr, diagRouter)
	if err != nil {
		a.sugarLogger.Errorw(err.Error())
	}

}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func newLogger(level string) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if err := zc.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}

	return zc.Build()
}

// hideErrors keeps internal error text out of JSON responses.
func hideErrors(log *zap.SugaredLogger) {
	render.Respond = func(w http.ResponseWriter, r *http.Request, v interface{}) {
		if err, ok := v.(error); ok {

			// We set a default error status response code if one hasn't been set.
			if _, ok := r.Context().Value(render.StatusCtxKey).(int); !ok {
				w.WriteHeader(400)
			}

			log.Errorw("responding with error", "path", r.URL.Path, "error", err)

			// We change the response to not reveal the actual error message,
			// instead we can transform the message something more friendly or mapped
			// to some code / language, etc.
			render.DefaultResponder(w, r, render.M{"status": "error"})

			return
		}

		render.DefaultResponder(w, r, v)
	}
}

func FileServer(r chi.Router, path string, root http.FileSystem) {
	if strings.ContainsAny(path, "{}*") {
		panic("FileServer does not permit any URL parameters.")
	}

	if path != "/" && path[len(path)-1] != '/' {
		r.Get(path, http.RedirectHandler(path+"/", 301).ServeHTTP)
		path += "/"
	}
	path += "*"

	r.Get(path, func(w http.ResponseWriter, r *http.Request) {
		rctx := chi.RouteContext(r.Context())
		pathPrefix := strings.TrimSuffix(rctx.RoutePattern(), "/*")
		fs := http.StripPrefix(pathPrefix, http.FileServer(root))
		fs.ServeHTTP(w, r)
	})
}

func (a *App) Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := a.sugarLogger.With("request_id", middleware.GetReqID(r.Context()))
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), CtxKeyLogger, log)))
	})
}

// CountStatus counts completed requests by response status.
func (a *App) CountStatus(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		a.completed.Add(r.Context(), 1, statusKey.Int(status))
	})
}

func (a *App) recordLoad(ctx context.Context, op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}

	a.loads.Add(ctx, 1, opKey.String(op), resultKey.String(result))
}
