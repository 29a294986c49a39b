package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/cafe-storefront/internal/app"
	"github.com/noah-isme/cafe-storefront/internal/auth"
	"github.com/noah-isme/cafe-storefront/internal/cart"
	"github.com/noah-isme/cafe-storefront/internal/catalog"
	"github.com/noah-isme/cafe-storefront/internal/common"
	"github.com/noah-isme/cafe-storefront/internal/config"
	"github.com/noah-isme/cafe-storefront/internal/events"
	"github.com/noah-isme/cafe-storefront/internal/geocode"
	"github.com/noah-isme/cafe-storefront/internal/health"
	"github.com/noah-isme/cafe-storefront/internal/obs"
	"github.com/noah-isme/cafe-storefront/internal/order"
	"github.com/noah-isme/cafe-storefront/internal/pricing"
	"github.com/noah-isme/cafe-storefront/internal/ratelimit"
	"github.com/noah-isme/cafe-storefront/internal/security"
	"github.com/noah-isme/cafe-storefront/internal/session"
	"github.com/noah-isme/cafe-storefront/internal/user"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(cfg.MetricsNamespace, nil)

	shutdownTracer, err := obs.InitTracer(context.Background(), obs.TracingConfig{
		ServiceName:   "cafe-storefront",
		Endpoint:      cfg.TracingEndpoint,
		Exporter:      cfg.TracingExporter,
		SamplingRatio: cfg.TracingSampleRatio,
		Environment:   cfg.AppEnv,
	})
	if err != nil {
		logger.Error().Err(err).Msg("initialise tracing")
	} else {
		defer func() {
			if err := shutdownTracer(context.Background()); err != nil {
				logger.Error().Err(err).Msg("shutdown tracer")
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise dependencies")
	}
	defer deps.Close()
	redisClient := deps.Redis

	prices := pricing.NewPolicy(cfg.FallbackPrice, logger)
	catalogService, err := catalog.NewService(catalog.ServiceConfig{
		Source: deps.Backend,
		Cache:  catalog.NewCache(redisClient, cfg.CatalogCacheTTL),
		Prices: prices,
		Logger: logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise catalog service")
	}
	catalogHandler := catalog.NewHandler(catalog.HandlerConfig{Service: catalogService})

	// Origin lets a replica skip its own events when they come back through Redis.
	origin := uuid.NewString()
	bus := &events.Bus{Notifiers: []events.Notifier{
		&events.RedisFanout{Client: redisClient, Origin: origin},
	}}
	broadcaster := events.NewBroadcaster(bus, logger)

	carts := cart.NewRegistry(cart.RegistryConfig{
		TaxRate:   decimal.NewFromFloat(cfg.TaxRate),
		Prices:    prices,
		Publisher: broadcaster,
		Logger:    logger,
		IdleTTL:   cfg.CartIdleTTL,
	})
	go carts.Run(ctx, time.Minute)

	relay := &events.Relay{
		Client:      redisClient,
		Origin:      origin,
		Broadcaster: broadcaster,
		Logger:      logger,
		Handle: func(ev events.Event) {
			if ev.Topic == events.TopicSessionClosed && ev.Key != "" {
				carts.Drop(ev.Key)
			}
		},
	}
	if err := relay.Start(ctx); err != nil {
		logger.Error().Err(err).Msg("start event relay")
	}

	sessions := session.NewStore(redisClient, cfg.SessionTTL)
	tokens, err := auth.NewTokens(auth.TokenConfig{
		Secret:   cfg.SessionSecret,
		TTL:      cfg.SessionTTL,
		Issuer:   "cafe-storefront",
		Audience: "storefront",
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise session tokens")
	}
	authService, err := auth.NewService(auth.Config{
		Backend:  deps.Backend,
		Sessions: sessions,
		Tokens:   tokens,
		Bus:      bus,
		OnClose:  carts.Drop,
		Logger:   logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise auth service")
	}
	cookies := auth.Cookies{
		Domain:   cfg.CookieDomain,
		Secure:   cfg.CookieSecure,
		SameSite: cfg.CookieSameSite,
	}
	authMiddleware := auth.Middleware{Service: authService, Cookies: cookies, Logger: logger}
	authHandler := &auth.Handler{Service: authService, Cookies: cookies}
	authLimiter, err := ratelimit.NewAuthLimiter(redisClient, cfg.AuthRateLimit, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise auth rate limiter")
	}

	cartHandler := &cart.Handler{Carts: carts, Products: catalogService}
	cartStream := &events.StreamHandler{Broadcaster: broadcaster, Counts: carts, Heartbeat: 25 * time.Second}

	geocoder := geocode.NewClient(geocode.Config{
		BaseURL:      cfg.GeocoderBaseURL,
		CountryCodes: cfg.GeocoderCountryCodes,
		Limit:        cfg.GeocoderLimit,
		UserAgent:    "cafe-storefront/1.0",
		Timeout:      cfg.BackendTimeout,
		Logger:       logger.With().Str("component", "geocoder").Logger(),
	})
	userHandler := &user.Handler{
		Service:   &user.Service{Backend: deps.Backend, Sessions: sessions, Logger: logger},
		Suggester: geocode.NewDebouncer(geocoder, cfg.GeocoderDebounce, cfg.GeocoderMinQuery),
	}
	suggestLimit := ratelimit.Handler{
		Limiter: ratelimit.Limiter{Client: redisClient, Prefix: "storefront:rl:"},
		Config: ratelimit.Config{
			Key:    ratelimit.BySession("geocode"),
			Window: time.Minute,
			Max:    cfg.GeocoderRatePerMin,
		},
		OnError: func(err error) { logger.Warn().Err(err).Msg("geocode rate limiter unavailable") },
	}

	orderHandler := &order.Handler{Service: &order.Service{
		Backend:  deps.Backend,
		Sessions: sessions,
		Carts:    carts,
		Tasks:    deps.TaskClient,
		Bus:      bus,
		Logger:   logger,
	}}
	idem := common.Idem{R: redisClient, TTL: 24 * time.Hour}

	csrf := security.CSRF{
		Enabled:       cfg.CSRFEnabled,
		SessionCookie: auth.DefaultCookieName,
		Secure:        cfg.CookieSecure,
		Domain:        cfg.CookieDomain,
	}

	var httpMetrics *obs.HTTPMetrics
	if metricsEnabled {
		httpMetrics = obs.NewHTTPMetrics(cfg.MetricsNamespace, obs.ParseBucketsCSV(cfg.MetricsBucketsMS), nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	r.Use(obs.TracingMiddleware)
	if httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(security.Headers{EnableHSTS: cfg.IsProduction()}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", security.DefaultCSRFHeader, "Idempotency-Key"},
		ExposedHeaders:   []string{auth.SessionTokenHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	if envBool("OBS_ENABLE_PPROF", !cfg.IsProduction()) {
		pprofUser := envOrDefault("SECURE_PPROF_BASIC_AUTH_USER", "")
		pprofPass := envOrDefault("SECURE_PPROF_BASIC_AUTH_PASS", "")
		r.Mount("/debug/pprof", protectPprof(newPprofMux(), pprofUser, pprofPass))
	}

	healthHandler := health.Handler{
		Checker:        health.Probes{Backend: deps.Backend, Redis: redisClient},
		BackendTimeout: envDurationMillis("HEALTH_READY_BACKEND_TIMEOUT_MS", 800),
		RedisTimeout:   envDurationMillis("HEALTH_READY_REDIS_TIMEOUT_MS", 300),
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Use(security.BodyLimit{Max: security.DefaultBodyLimit}.Middleware)
		v.Use(authMiddleware.Authenticate)
		v.Use(csrf.Middleware)

		v.Get("/products", catalogHandler.Products)
		v.Get("/products/{id}", catalogHandler.Product)

		v.Route("/auth", func(a chi.Router) {
			a.Get("/csrf", csrf.Issue)
			a.With(authLimiter.Handler).Post("/register", authHandler.Register)
			a.With(authLimiter.Handler).Post("/login", authHandler.Login)
			a.Post("/logout", authHandler.Logout)
			a.Get("/session", authHandler.Session)
			a.With(authMiddleware.RequireAuth).Get("/me", authHandler.Me)
		})

		v.Route("/cart", func(c chi.Router) {
			c.Get("/", cartHandler.Get)
			c.Delete("/", cartHandler.Clear)
			c.Get("/count", cartHandler.Count)
			c.Post("/items", cartHandler.AddItem)
			c.Delete("/rows/{ref}", cartHandler.RemoveRow)
			c.Method(http.MethodGet, "/events", cartStream)
		})

		v.With(authMiddleware.RequireAuth).Patch("/users/me", userHandler.UpdateMe)
		v.With(suggestLimit.Middleware).Get("/addresses/suggest", userHandler.Suggest)

		v.Route("/orders", func(o chi.Router) {
			o.Use(authMiddleware.RequireAuth)
			o.Get("/", orderHandler.List)
			o.Get("/summary", orderHandler.Summary)
			o.With(idem.Middleware).Post("/", orderHandler.Place)
			o.Get("/{orderID}", orderHandler.Get)
		})
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		health.SetReady(false)
		logger.Info().Msg("shutdown requested")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("graceful shutdown")
		}
	}()

	logger.Info().Str("addr", srv.Addr).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server exited unexpectedly")
	}
	logger.Info().Msg("server stopped")
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDurationMillis(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Millisecond
}

func newPprofMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", pprof.Index)
	mux.HandleFunc("/cmdline", pprof.Cmdline)
	mux.HandleFunc("/profile", pprof.Profile)
	mux.HandleFunc("/symbol", pprof.Symbol)
	mux.HandleFunc("/trace", pprof.Trace)
	mux.Handle("/allocs", pprof.Handler("allocs"))
	mux.Handle("/goroutine", pprof.Handler("goroutine"))
	mux.Handle("/heap", pprof.Handler("heap"))
	mux.Handle("/mutex", pprof.Handler("mutex"))
	return mux
}

func protectPprof(handler http.Handler, user, pass string) http.Handler {
	user = strings.TrimSpace(user)
	pass = strings.TrimSpace(pass)
	if user == "" {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 || subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", "Basic realm=restricted")
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
