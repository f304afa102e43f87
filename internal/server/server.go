package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dukerupert/bitematch/internal/auth"
	"github.com/dukerupert/bitematch/internal/config"
	"github.com/dukerupert/bitematch/internal/deck"
	"github.com/dukerupert/bitematch/internal/handler"
	"github.com/dukerupert/bitematch/internal/metrics"
	"github.com/dukerupert/bitematch/internal/middleware"
	"github.com/dukerupert/bitematch/internal/plan"
	"github.com/dukerupert/bitematch/internal/realtime"
	"github.com/dukerupert/bitematch/internal/store"
	ws "github.com/dukerupert/bitematch/internal/websocket"
)

// Login attempts allowed per client IP per minute.
const loginPerMinute = 10

// MealSource is the meal catalogue used by the deck and the meal endpoints.
type MealSource interface {
	deck.Source
	handler.MealSource
}

// Deps are the collaborators built by main.
type Deps struct {
	DB       *sql.DB
	Meals    MealSource
	SMS      handler.SMSSender
	Telegram handler.TextSender
	Metrics  metrics.Recorder
	Gatherer prometheus.Gatherer
}

type Server struct {
	db           *sql.DB
	cfg          *config.Config
	gateway      *auth.Gateway
	sessionStore *store.SessionStore
	registry     *deck.Registry
	hub          *realtime.Hub
	planSvc      *plan.Service
	authH        *handler.AuthHandler
	deckH        *handler.DeckHandler
	mealH        *handler.MealHandler
	planH        *handler.PlanHandler
	shoppingH    *handler.ShoppingHandler
	gatherer     prometheus.Gatherer
	rateLimiter  *middleware.RateLimiter
	logger       *slog.Logger
}

func New(cfg *config.Config, deps Deps, logger *slog.Logger) *Server {
	if deps.Metrics == nil {
		deps.Metrics = metrics.Nop{}
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}

	userStore := store.NewUserStore(deps.DB)
	sessionStore := store.NewSessionStore(deps.DB, cfg.SessionTTL)
	likeStore := store.NewLikeStore(deps.DB)
	planStore := store.NewPlanStore(deps.DB)

	hub := realtime.NewHub(logger.With("component", "realtime"))
	planSvc := plan.New(likeStore, planStore, hub, cfg.PlanCap, logger.With("component", "plan"))
	gateway := auth.NewGateway(userStore, sessionStore, logger.With("component", "auth"))

	registry := deck.NewRegistry(deck.RegistryConfig{
		Source:      deps.Meals,
		Liker:       planSvc,
		Metrics:     deps.Metrics,
		Logger:      logger.With("component", "deck"),
		SettleDelay: cfg.DeckSettleDelay,
		IdleTTL:     cfg.DeckIdleTTL,
	})

	return &Server{
		db:           deps.DB,
		cfg:          cfg,
		gateway:      gateway,
		sessionStore: sessionStore,
		registry:     registry,
		hub:          hub,
		planSvc:      planSvc,
		authH:        handler.NewAuthHandler(gateway, registry, cfg.CookieSecure, logger.With("component", "auth_handler")),
		deckH:        handler.NewDeckHandler(registry, logger.With("component", "deck_handler")),
		mealH:        handler.NewMealHandler(deps.Meals, logger.With("component", "meal_handler")),
		planH:        handler.NewPlanHandler(planSvc, cfg.PlanViewLimit, logger.With("component", "plan_handler")),
		shoppingH:    handler.NewShoppingHandler(planSvc, deps.SMS, deps.Telegram, cfg.ShoppingLimit, cfg.ShoppingLocale, logger.With("component", "shopping_handler")),
		gatherer:     deps.Gatherer,
		rateLimiter:  middleware.NewRateLimiter(loginPerMinute, loginPerMinute),
		logger:       logger,
	}
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// Registry returns the deck registry for cleanup tasks.
func (s *Server) Registry() *deck.Registry {
	return s.registry
}

// Close shuts down every deck and waits for pending like writes.
func (s *Server) Close() {
	s.registry.Close()
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes
	outerMux.HandleFunc("GET /health", s.healthHandler)
	outerMux.Handle("GET /metrics", metrics.Handler(s.gatherer))

	// Identity routes: every caller gets at least a guest session
	identityMux := http.NewServeMux()
	s.registerIdentityRoutes(identityMux)

	ensure := middleware.EnsureIdentity(s.gateway, s.cfg.CookieSecure, s.logger.With("component", "identity"))
	outerMux.Handle("/api/", ensure(identityMux))
	outerMux.Handle("/ws/", ensure(identityMux))

	httpLogger := s.logger.With("component", "http")
	return middleware.Recover(httpLogger)(middleware.RequestLogger(httpLogger)(outerMux))
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := s.db.PingContext(r.Context()); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"status": "unavailable"})
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.Handler {
	return middleware.RateLimit(s.rateLimiter, middleware.RealIP)(h)
}

func (s *Server) registerIdentityRoutes(mux *http.ServeMux) {
	// Account routes
	mux.HandleFunc("GET /api/me", s.authH.Me)
	mux.HandleFunc("POST /api/auth/register", s.authH.Register)
	mux.Handle("POST /api/auth/login", s.rateLimitedHandler(s.authH.Login))
	mux.HandleFunc("POST /api/auth/logout", s.authH.Logout)

	// Catalogue routes
	mux.HandleFunc("GET /api/categories", s.mealH.Categories)
	mux.HandleFunc("GET /api/meals/{id}", s.mealH.Get)
	mux.HandleFunc("GET /api/meals/{id}/steps", s.mealH.Steps)

	// Deck routes
	mux.HandleFunc("GET /api/deck", s.deckH.Get)
	mux.HandleFunc("PUT /api/deck/filter", s.deckH.SetFilter)
	mux.HandleFunc("POST /api/deck/pass", s.deckH.Pass)
	mux.HandleFunc("POST /api/deck/like", s.deckH.Like)
	mux.HandleFunc("DELETE /api/deck/error", s.deckH.ClearError)

	// Plan and shopping routes
	mux.HandleFunc("GET /api/likes", s.planH.Likes)
	mux.HandleFunc("GET /api/plan", s.planH.List)
	mux.HandleFunc("DELETE /api/plan/{id}", s.planH.Remove)
	mux.HandleFunc("GET /api/shopping-list", s.shoppingH.List)
	mux.HandleFunc("POST /api/shopping-list/send", s.shoppingH.Send)

	// WebSocket
	mux.HandleFunc("GET /ws/plan", ws.HandlePlan(s.planSvc, ws.Options{
		ViewLimit:      s.cfg.PlanViewLimit,
		ShoppingLimit:  s.cfg.ShoppingLimit,
		Locale:         s.cfg.ShoppingLocale,
		OriginPatterns: s.cfg.WSOriginPatterns,
	}, s.logger.With("component", "websocket")))
}
