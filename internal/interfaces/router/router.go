package router

import (
	"context"
	"net/http"
	"time"

	appsvc "lamf-backend/internal/application/applications"
	colsvc "lamf-backend/internal/application/collaterals"
	custsvc "lamf-backend/internal/application/customers"
	loansvc "lamf-backend/internal/application/loans"
	prodsvc "lamf-backend/internal/application/products"
	txsvc "lamf-backend/internal/application/transactions"
	"lamf-backend/internal/config"
	"lamf-backend/internal/infrastructure/cache"
	"lamf-backend/internal/infrastructure/database"
	"lamf-backend/internal/infrastructure/metrics"
	apphandler "lamf-backend/internal/interfaces/handlers/applications"
	colhandler "lamf-backend/internal/interfaces/handlers/collaterals"
	custhandler "lamf-backend/internal/interfaces/handlers/customers"
	healthhandler "lamf-backend/internal/interfaces/handlers/health"
	loanhandler "lamf-backend/internal/interfaces/handlers/loans"
	prodhandler "lamf-backend/internal/interfaces/handlers/products"
	txhandler "lamf-backend/internal/interfaces/handlers/transactions"
	"lamf-backend/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Deps are the stores the routes are built on. DB and Rdb may be nil; the
// API routes are only mounted with a database.
type Deps struct {
	Config  *config.Config
	DB      *gorm.DB
	Rdb     *redis.Client
	Metrics *metrics.Metrics
}

// CreateApp opens the database and Redis named by cfg and builds the app.
func CreateApp(cfg *config.Config) (*fiber.App, *gorm.DB, *redis.Client, error) {
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, nil, err
		}
		rdb = redis.NewClient(opt)
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Msg("redis unreachable; health counters and NAV cache degrade")
		}
		cancel()
	}

	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		var err error
		db, err = database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
	} else {
		log.Warn().Msg("no database configured; only health routes are mounted")
	}

	app := New(Deps{Config: cfg, DB: db, Rdb: rdb, Metrics: metrics.Default()})
	return app, db, rdb, nil
}

// New registers middleware and routes.
func New(d Deps) *fiber.App {
	cfg := d.Config
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler(d.Rdb),
		EnableTrustedProxyCheck: true,
	})

	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
		DevPassword:   cfg.DevPassword,
	}))
	app.Use(middleware.Tracing())
	app.Use(middleware.HealthMarker(d.Rdb))
	app.Use(middleware.RouteLogger())
	app.Use(middleware.Metrics(d.Metrics))

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	hh := &healthhandler.Handlers{Rdb: d.Rdb, HealthAdminKey: cfg.HealthAdminKey}
	if d.DB != nil {
		if sqlDB, err := d.DB.DB(); err == nil {
			hh.DB = sqlDB
		}
	}
	app.Get("/reset", hh.Reset)
	app.Get("/health/json", hh.JSON)
	app.Get("/health/errors", hh.Errors)

	if d.DB == nil {
		return app
	}
	db := d.DB

	var navSource appsvc.NAVSource
	var navStore colsvc.NAVStore
	if d.Rdb != nil {
		navCache := cache.NewNAVCache(d.Rdb, cfg.NAVCacheTTL)
		navSource, navStore = navCache, navCache
	}

	api := app.Group("/api/v1")

	// Products
	ph := &prodhandler.Handlers{Service: &prodsvc.Service{DB: db}}
	pg := api.Group("/products")
	pg.Get("/", ph.List)
	pg.Post("/", ph.Create)
	pg.Get("/:id", ph.Get)
	pg.Patch("/:id", ph.Update)
	pg.Delete("/:id", ph.Delete)

	// Customers
	ch := &custhandler.Handlers{Service: &custsvc.Service{DB: db}}
	cg := api.Group("/customers")
	cg.Get("/", ch.List)
	cg.Post("/", ch.Create)
	cg.Get("/:id", ch.Get)
	cg.Post("/:id/verify-kyc", ch.VerifyKYC)

	// Applications; intake is rate limited per client IP
	intake := middleware.NewRateLimiter(middleware.RateLimit{
		RequestsPerMinute: cfg.IntakeRatePerMinute,
		Burst:             cfg.IntakeRateBurst,
	})
	ah := &apphandler.Handlers{Service: &appsvc.Service{DB: db, NAV: navSource, Metrics: d.Metrics}}
	ag := api.Group("/applications")
	ag.Post("/evaluate", intake.Handler(), ah.Evaluate)
	ag.Post("/", intake.Handler(), ah.Create)
	ag.Get("/", ah.List)
	ag.Get("/:id", ah.Get)
	ag.Get("/:id/events", ah.Events)
	ag.Patch("/:id/status", ah.UpdateStatus)
	ag.Post("/:id/reevaluate", ah.Reevaluate)

	// Collaterals
	colh := &colhandler.Handlers{Service: &colsvc.Service{DB: db, NAV: navStore}}
	colg := api.Group("/collaterals")
	colg.Get("/", colh.List)
	colg.Post("/nav-refresh", colh.RefreshNAV)
	colg.Get("/:id", colh.Get)
	colg.Patch("/:id/nav", colh.UpdateNAV)
	colg.Post("/:id/lien", colh.MarkLien)
	colg.Post("/:id/release", colh.ReleaseLien)
	colg.Delete("/:id", colh.Delete)

	// Loans
	loans := &loansvc.Service{DB: db}
	lh := &loanhandler.Handlers{Service: loans}
	lg := api.Group("/loans")
	lg.Post("/disburse", lh.Disburse)
	lg.Get("/", lh.List)
	lg.Get("/ltv-report", lh.LTVReport)
	lg.Get("/:id", lh.Get)
	lg.Post("/:id/accrue", lh.AccrueInterest)
	lg.Post("/:id/transactions", lh.RecordTransaction)
	lg.Patch("/:id/status", lh.UpdateStatus)

	// Transactions
	th := &txhandler.Handlers{Service: &txsvc.Service{DB: db, Loans: loans}}
	tg := api.Group("/transactions")
	tg.Get("/", th.List)
	tg.Post("/", th.Create)
	tg.Get("/:id", th.Get)

	return app
}

func Handler(app *fiber.App) http.Handler {
	return adaptor.FiberApp(app)
}
