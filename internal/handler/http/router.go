package http

import (
	"context"
	"net/http"
	"runtime/debug"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
)

type Handlers struct {
	Health  *HealthHandler
	Menu    *MenuHandler
	Order   *OrderHandler
	User    *UserHandler
	Auth    *AuthHandler
	Payment *PaymentHandler
}

type RouterConfig struct {
	Logger         zerolog.Logger
	RequestTimeout time.Duration
	// ExposeErrorDetails adds the underlying error text to error bodies.
	ExposeErrorDetails bool
}

func NewRouter(h Handlers, cfg RouterConfig) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(hlog.NewHandler(cfg.Logger))
	router.Use(logRequestID)
	router.Use(hlog.AccessHandler(logAccess))
	router.Use(recoverJSON)
	router.Use(middleware.StripSlashes)
	router.Use(withErrorDetails(cfg.ExposeErrorDetails))
	if cfg.RequestTimeout > 0 {
		router.Use(requestDeadline(cfg.RequestTimeout))
	}

	h.Health.RegisterRoutes(router)
	router.Route("/api", func(api chi.Router) {
		h.Menu.RegisterRoutes(api)
		h.Order.RegisterRoutes(api)
		h.User.RegisterRoutes(api)
		h.Auth.RegisterRoutes(api)
		h.Payment.RegisterRoutes(api)
	})

	routes := sync.OnceValue(func() []string { return listRoutes(router) })
	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondWithJSON(w, http.StatusNotFound, RouteNotFoundResponse{
			Error:           "Route not found",
			Path:            r.URL.Path,
			AvailableRoutes: routes(),
		})
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	return router
}

func listRoutes(router chi.Routes) []string {
	var routes []string
	_ = chi.Walk(router, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		route = strings.ReplaceAll(route, "/*/", "/")
		if len(route) > 1 {
			route = strings.TrimSuffix(route, "/")
		}
		routes = append(routes, method+" "+route)
		return nil
	})
	sort.Strings(routes)
	return routes
}

func logRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := middleware.GetReqID(r.Context()); id != "" {
			logger := zerolog.Ctx(r.Context())
			logger.UpdateContext(func(c zerolog.Context) zerolog.Context {
				return c.Str("request_id", id)
			})
		}
		next.ServeHTTP(w, r)
	})
}

func logAccess(r *http.Request, status, size int, duration time.Duration) {
	hlog.FromRequest(r).Info().
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", status).
		Int("size", size).
		Dur("duration", duration).
		Msg("request handled")
}

func recoverJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rvr := recover()
			if rvr == nil {
				return
			}
			if rvr == http.ErrAbortHandler {
				panic(rvr)
			}
			hlog.FromRequest(r).Error().
				Interface("panic", rvr).
				Bytes("stack", debug.Stack()).
				Msg("Recovered from panic")
			respondWithError(w, http.StatusInternalServerError, "Internal Server Error")
		}()
		next.ServeHTTP(w, r)
	})
}

// requestDeadline bounds every request; stores see the deadline through
// the request context and handlers answer 504 once it passes.
func requestDeadline(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
