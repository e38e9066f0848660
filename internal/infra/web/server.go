package web

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"kiro-flight-backend/internal/config"
	"kiro-flight-backend/internal/infra/logging"
	"kiro-flight-backend/internal/infra/metrics"
	red "kiro-flight-backend/internal/infra/redis"
	"kiro-flight-backend/internal/usecase"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Server is the boundary adapter: it translates validated requests into
// ledger operations and ledger results into the response envelope. All
// invariants live below it.
type Server struct {
	identityUC   usecase.IdentityUseCase
	activationUC usecase.ActivationUseCase
	exchangeUC   usecase.ExchangeUseCase
	accountUC    usecase.AccountUseCase
	statsUC      usecase.StatsUseCase

	auth         *AuthManager
	limiter      red.Limiter
	rateLimits   config.RateLimitConfig
	adminToken   string
	announcement string
	log          *zerolog.Logger
}

func NewServer(
	identityUC usecase.IdentityUseCase,
	activationUC usecase.ActivationUseCase,
	exchangeUC usecase.ExchangeUseCase,
	accountUC usecase.AccountUseCase,
	statsUC usecase.StatsUseCase,
	auth *AuthManager,
	limiter red.Limiter,
	cfg *config.Config,
	logger *zerolog.Logger,
) *Server {
	return &Server{
		identityUC:   identityUC,
		activationUC: activationUC,
		exchangeUC:   exchangeUC,
		accountUC:    accountUC,
		statsUC:      statsUC,
		auth:         auth,
		limiter:      limiter,
		rateLimits:   cfg.RateLimit,
		adminToken:   cfg.Admin.Token,
		announcement: cfg.Server.Announcement,
		log:          logger,
	}
}

// Router builds the full route set. One consistent version: the public
// device API, the admin surface, and the operational endpoints.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(s.traceMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(s.metricsMiddleware)

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/user/login", s.handleLogin)
		r.Post("/user/logout", s.handleLogout)
		r.Post("/activate", s.handleActivate)
		r.Post("/google/exchange", s.exchangeHandler("google"))
		r.Post("/github/exchange", s.exchangeHandler("github"))
		r.Post("/google/token", s.tokenHandler("google"))
		r.Post("/github/token", s.tokenHandler("github"))
		r.Post("/account/hide", s.handleHideAccount)
		r.Get("/announcement", s.handleAnnouncement)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Post("/login", s.handleAdminLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.adminAuthMiddleware)
			r.Post("/create-code", s.handleCreateCode)
			r.Post("/seed-accounts", s.handleSeedAccounts)
			r.Get("/stats", s.handleStats)
			r.Get("/codes", s.handleListCodes)
			r.Get("/users", s.handleListUsers)
			r.Get("/accounts", s.handleListAccounts)
			r.Handle("/metrics", promhttp.Handler())
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, Envelope{Code: 404, Message: "route not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, Envelope{Code: 404, Message: "route not found"})
	})

	return r
}

// traceMiddleware carries the chi request id as the trace id, so every log
// line below can be correlated back to one request.
func (s *Server) traceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.WithTraceID(r.Context(), chimw.GetReqID(r.Context()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// recoverMiddleware converts panics into the envelope's 500 shape instead of
// killing the connection; the process keeps serving.
func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				l := logging.With(r.Context(), s.log)
				l.Error().Interface("panic", rec).Str("path", r.URL.Path).Msg("handler panicked")
				writeJSON(w, http.StatusInternalServerError, Envelope{Code: 500, Message: "internal server error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		path := chi.RouteContext(r.Context()).RoutePattern()
		if path == "" {
			path = "unmatched"
		}
		metrics.ObserveHTTPRequest(path, ww.Status(), float64(time.Since(start).Milliseconds()))

		logging.With(r.Context(), s.log).Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("http_request")
	})
}

// adminAuthMiddleware authenticates every administrative call: either the
// configured shared token (Bearer header or query param) or a previously
// minted session cookie.
func (s *Server) adminAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.adminToken == "" {
			s.log.Error().Msg("admin token is not configured")
			writeJSON(w, http.StatusOK, Envelope{Code: 1, Message: "permission denied"})
			return
		}
		if s.tokenMatches(r) || s.auth.VerifyRequest(r) == nil {
			next.ServeHTTP(w, r)
			return
		}
		s.log.Warn().Str("path", r.URL.Path).Msg("unauthorized admin request")
		writeJSON(w, http.StatusOK, Envelope{Code: 1, Message: "permission denied"})
	})
}

func (s *Server) tokenMatches(r *http.Request) bool {
	candidate := r.URL.Query().Get("admin_token")
	if h := r.Header.Get("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			candidate = parts[1]
		}
	}
	if candidate == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(s.adminToken)) == 1
}

// allow applies the per-device fixed-window rate limit for an operation.
// A redis failure fails open: throttling is protection, not an invariant.
func (s *Server) allow(r *http.Request, deviceID, op string, perMinute int) bool {
	ok, err := s.limiter.Allow(r.Context(), red.DeviceOpKey(deviceID, op), perMinute, time.Minute)
	if err != nil {
		s.log.Warn().Err(err).Str("op", op).Msg("rate limiter unavailable")
		return true
	}
	return ok
}
