// Command server runs the entitlement and billing API together with the
// downgrade sweeper and the change notifier.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/entitlekit/modules/billing"
	"github.com/dmitrymomot/entitlekit/pkg/broadcast"
	"github.com/dmitrymomot/entitlekit/pkg/config"
	"github.com/dmitrymomot/entitlekit/pkg/email"
	"github.com/dmitrymomot/entitlekit/pkg/handler"
	"github.com/dmitrymomot/entitlekit/pkg/httpserver"
	"github.com/dmitrymomot/entitlekit/pkg/jwt"
	"github.com/dmitrymomot/entitlekit/pkg/logger"
	"github.com/dmitrymomot/entitlekit/pkg/pg"
	"github.com/dmitrymomot/entitlekit/pkg/ratelimiter"
	"github.com/dmitrymomot/entitlekit/pkg/redis"
	"github.com/dmitrymomot/entitlekit/svc/account"
	"github.com/dmitrymomot/entitlekit/svc/coupon"
	"github.com/dmitrymomot/entitlekit/svc/entitlement"
	"github.com/dmitrymomot/entitlekit/svc/notify"
	"github.com/dmitrymomot/entitlekit/svc/payment"
	"github.com/dmitrymomot/entitlekit/svc/pgstore"
	"github.com/dmitrymomot/entitlekit/svc/plan"
	"github.com/dmitrymomot/entitlekit/svc/subscription"
	"github.com/dmitrymomot/entitlekit/svc/sweeper"
	"github.com/dmitrymomot/entitlekit/svc/usage"
)

type appConfig struct {
	Logger   logger.Config
	HTTP     httpserver.Config
	Postgres pg.Config
	Redis    redis.Config
	JWT      jwt.Config
	Email    email.Config
	Plans    plan.Config
	Payment  payment.Config
	Gateway  payment.GatewayConfig
	Stripe   payment.StripeConfig
	Paddle   payment.PaddleConfig
	Sweeper  sweeper.Config
	Notify   notify.Config
	Billing  billing.Config

	RedeemLimit ratelimiter.Config `envPrefix:"COUPON_REDEEM_"`
}

func (c appConfig) Validate() error {
	return c.Payment.Validate()
}

const changesChannel = "entitlekit:subscription_changed"

func main() {
	var cfg appConfig
	if err := config.Load(&cfg); err != nil {
		logger.New().Error("failed to load config", logger.Error(err))
		os.Exit(1)
	}

	log := logger.New(append(logger.FromConfig(cfg.Logger),
		logger.WithContextExtractors(handler.RequestIDExtractor()))...)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg appConfig, log *slog.Logger) error {
	catalog, err := plan.Load(cfg.Plans)
	if err != nil {
		return err
	}

	pool, err := pg.Connect(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	defer pool.Close()
	if cfg.Postgres.AutoMigrate {
		if err := pg.MigrateFS(ctx, pool, pgstore.Migrations, pgstore.MigrationsDir, cfg.Postgres, log); err != nil {
			return err
		}
	}
	store := pgstore.New(pool)

	checks := []httpserver.Check{{Name: "postgres", Fn: pg.Healthcheck(pool)}}

	var (
		changes      broadcast.Broadcaster[subscription.Changed]
		limiterStore ratelimiter.Store
	)
	if cfg.Redis.Enabled() {
		rdb, err := redis.Connect(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer rdb.Close()
		changes = broadcast.NewRedisBroadcaster[subscription.Changed](rdb, changesChannel, 64, log)
		limiterStore = ratelimiter.NewRedisStore(rdb, "entitlekit:ratelimit:")
		checks = append(checks, httpserver.Check{Name: "redis", Fn: redis.Healthcheck(rdb)})
	} else {
		log.Info("redis not configured, using in-process fan-out and rate limits")
		changes = broadcast.NewMemoryBroadcaster[subscription.Changed](64)
		limiterStore = ratelimiter.NewMemoryStore()
	}
	defer changes.Close()

	subs := subscription.NewService(store, store, store, catalog,
		subscription.WithLogger(log), subscription.WithBroadcaster(changes))
	ents := entitlement.NewService(store, subs, usage.NewLedger(store), entitlement.WithLogger(log))
	accounts := account.NewService(store, store, subs, catalog, account.WithLogger(log))
	coupons := coupon.NewEngine(store, store, subs, coupon.WithLogger(log))

	gateway, err := payment.NewGateway(cfg.Payment, cfg.Gateway, cfg.Stripe, cfg.Paddle, log)
	switch {
	case errors.Is(err, payment.ErrNotConfigured):
		log.Warn("payment gateway not configured, payment endpoints disabled", slog.String("provider", cfg.Payment.Provider))
		gateway = nil
	case err != nil:
		return err
	}
	reconciler := payment.NewReconciler(store, store, subs, gateway, cfg.Payment,
		payment.WithLogger(log), payment.WithDiscounts(coupons))

	sw := sweeper.New(subs, cfg.Sweeper, sweeper.WithLogger(log), sweeper.WithQuotaCheck(ents.QuotaExhausted))

	mailer, err := email.New(cfg.Email)
	if err != nil {
		return err
	}
	notifier := notify.New(accounts, mailer, cfg.Notify, notify.WithLogger(log))

	tokens, err := jwt.New(cfg.JWT)
	switch {
	case errors.Is(err, jwt.ErrMissingSigningKey):
		log.Warn("jwt signing key not configured, user endpoints disabled")
	case err != nil:
		return err
	}

	limiter, err := ratelimiter.NewBucket(limiterStore, cfg.RedeemLimit)
	if err != nil {
		return err
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Get("/health/live", httpserver.Liveness())
	r.Get("/health/ready", httpserver.Readiness(log, 2*time.Second, checks...))
	r.Mount("/", billing.Router(billing.Options{
		Config:        cfg.Billing,
		Tokens:        tokens,
		Subscriptions: subs,
		Entitlements:  ents,
		Payments:      reconciler,
		Coupons:       coupons,
		Accounts:      accounts,
		Sweeper:       sw,
		RedeemLimiter: limiter,
		Logger:        log,
	}))

	server := httpserver.NewFromConfig(cfg.HTTP, httpserver.WithLogger(log))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sw.Run(ctx) })
	g.Go(func() error { return notifier.Run(ctx, changes) })
	g.Go(func() error { return server.Run(ctx, r) })
	return g.Wait()
}
