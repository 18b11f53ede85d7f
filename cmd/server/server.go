// cmd/server/server.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/codr1/drivewise-admin/internal/api"
	"github.com/codr1/drivewise-admin/internal/api/activity"
	"github.com/codr1/drivewise-admin/internal/api/auth"
	"github.com/codr1/drivewise-admin/internal/api/customers"
	apidashboard "github.com/codr1/drivewise-admin/internal/api/dashboard"
	"github.com/codr1/drivewise-admin/internal/api/nav"
	"github.com/codr1/drivewise-admin/internal/api/tables"
	"github.com/codr1/drivewise-admin/internal/backend"
	"github.com/codr1/drivewise-admin/internal/cache"
	"github.com/codr1/drivewise-admin/internal/config"
	"github.com/codr1/drivewise-admin/internal/dashboard"
	"github.com/codr1/drivewise-admin/internal/db"
	"github.com/codr1/drivewise-admin/internal/metrics"
	"github.com/codr1/drivewise-admin/internal/ratelimit"
	"github.com/codr1/drivewise-admin/internal/scheduler"
	"github.com/codr1/drivewise-admin/internal/session"
)

const redisPingTimeout = 5 * time.Second

// app holds everything the server wires together.
type app struct {
	cfg       *config.Config
	database  *db.DB
	redis     *redis.Client
	sessions  *session.Manager
	limiter   *ratelimit.Limiter
	metrics   *metrics.Metrics
	scheduler *scheduler.Service

	closeOnce sync.Once
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}

	if cfg.Features.EnableMetrics {
		a.metrics = metrics.New()
	}

	if cfg.Session.Driver == config.DriverRedis || cfg.Cache.Driver == config.DriverRedis {
		a.redis = cache.NewRedisClient(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
		pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
		defer cancel()
		if err := cache.Ping(pingCtx, a.redis); err != nil {
			a.Close()
			return nil, err
		}
	}

	var sessionStore session.Store = session.NewMemoryStore()
	if cfg.Session.Driver == config.DriverRedis {
		sessionStore = session.NewRedisStore(a.redis, cfg.Redis.Prefix)
	}
	var cacheStore cache.Store = cache.NewMemoryStore()
	if cfg.Cache.Driver == config.DriverRedis {
		cacheStore = cache.NewRedisStore(a.redis, cfg.Redis.Prefix+"cache:")
	}
	a.sessions = session.NewManager(session.Options{
		CookieName: cfg.Session.CookieName,
		TTL:        cfg.Session.TTL,
		Secure:     !cfg.IsDevelopment(),
		Store:      sessionStore,
		Cache:      cacheStore,
		CacheTTL:   cfg.Cache.TTL,
	})

	database, err := db.NewFromConfig(cfg)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("open database: %w", err)
	}
	a.database = database

	a.limiter = ratelimit.New(&ratelimit.Config{
		MaxAttempts:  cfg.Login.MaxAttempts,
		Lockout:      cfg.Login.Lockout,
		MaxIPPerHour: cfg.Login.MaxIPPerHour,
	})

	a.scheduler, err = scheduler.New()
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	err = scheduler.RegisterMaintenanceJobs(a.scheduler, scheduler.Jobs{
		Sessions:      a.sessions,
		Logins:        a.limiter,
		SessionCron:   cfg.Scheduler.SessionSweep,
		Journal:       a.database,
		JournalCron:   cfg.Scheduler.JournalPrune,
		JournalRetain: cfg.Scheduler.JournalRetention,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	opts := []backend.Option{backend.WithMetrics(a.metrics)}
	if cfg.Backend.RequestTimeout > 0 {
		opts = append(opts, backend.WithTimeout(cfg.Backend.RequestTimeout))
	}
	client := backend.New(cfg.Backend.BaseURL, opts...)

	auth.InitHandlers(client, a.limiter, a.metrics)
	tables.InitHandlers(client, a.database, a.metrics, cfg.Tables.FetchLimit, cfg.Tables.PageSize)
	apidashboard.InitHandlers(dashboard.New(client, dashboard.Options{
		PhoneRegion: cfg.Dashboard.PhoneRegion,
		RecentLimit: cfg.Dashboard.RecentLimit,
		FetchLimit:  cfg.Tables.FetchLimit,
	}))
	customers.InitHandlers(client)
	activity.InitHandlers(a.database)

	return a, nil
}

// Close stops background work and releases connections. It is safe to call
// more than once.
func (a *app) Close() {
	a.closeOnce.Do(func() {
		if a.scheduler != nil {
			if err := a.scheduler.Stop(); err != nil {
				log.Error().Err(err).Msg("Failed to stop scheduler")
			}
		}
		if a.database != nil {
			if err := a.database.Close(); err != nil {
				log.Error().Err(err).Msg("Failed to close database")
			}
		}
		if a.redis != nil {
			if err := a.redis.Close(); err != nil {
				log.Error().Err(err).Msg("Failed to close Redis client")
			}
		}
	})
}

func (a *app) server() *http.Server {
	router := http.NewServeMux()

	// Setup middleware chain
	middleware := []api.Middleware{
		api.WithSession(a.sessions),
		api.WithLogging,
		api.WithRecovery,
		api.WithRequestID,
		api.WithContentType,
		api.WithCompression,
	}
	if a.cfg.App.TrustProxy {
		middleware = append(middleware, api.WithProxyHeaders)
	}
	handler := api.ChainMiddleware(router, middleware...)

	// Register routes
	registerRoutes(router, a.cfg, a.metrics)

	return &http.Server{
		Addr:         ":" + strconv.Itoa(a.cfg.App.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func registerRoutes(mux *http.ServeMux, cfg *config.Config, m *metrics.Metrics) {
	protected := func(h http.HandlerFunc) http.Handler {
		return api.RequireToken(h)
	}

	// Dashboard
	mux.Handle("GET /{$}", protected(apidashboard.HandleDashboardPage))

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	if m != nil {
		mux.Handle("GET /metrics", m.Handler())
	}

	// Auth routes
	mux.HandleFunc("GET /login", auth.HandleLoginPage)
	mux.HandleFunc("POST /login", auth.HandleLogin)
	mux.HandleFunc("POST /logout", auth.HandleLogout)

	// Table routes
	mux.Handle("GET /bookings", protected(tables.HandleBookingsPage))
	mux.Handle("GET /bookings/table", protected(tables.HandleBookingsTable))
	mux.Handle("POST /bookings/{id}/status", protected(tables.HandleBookingStatus))
	mux.Handle("GET /insurance", protected(tables.HandleInsurancePage))
	mux.Handle("GET /insurance/table", protected(tables.HandleInsuranceTable))
	mux.Handle("POST /insurance/{id}/status", protected(tables.HandleInsuranceStatus))
	mux.Handle("GET /requests", protected(tables.HandleRequestsPage))
	mux.Handle("GET /requests/table", protected(tables.HandleRequestsTable))
	mux.Handle("POST /requests/{id}/status", protected(tables.HandleRequestStatus))

	// Other pages
	mux.Handle("GET /customers", protected(customers.HandleCustomersPage))
	mux.Handle("GET /activity", protected(activity.HandleActivityPage))

	// Navigation routes
	mux.Handle("GET /api/v1/nav/menu", protected(nav.HandleMenu))
	mux.HandleFunc("GET /api/v1/nav/menu/close", nav.HandleMenuClose)

	// Static file handling
	fs := http.FileServer(http.Dir(cfg.App.StaticDir))
	mux.Handle("GET /static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Ctx(r.Context()).Debug().
			Str("path", r.URL.Path).
			Str("static_dir", cfg.App.StaticDir).
			Msg("Static file request")
		http.StripPrefix("/static/", fs).ServeHTTP(w, r)
	}))
}
