package app

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	limiter "github.com/ulule/limiter/v3"

	"github.com/noah-isme/toko-pricing/internal/cache"
	"github.com/noah-isme/toko-pricing/internal/checkout"
	"github.com/noah-isme/toko-pricing/internal/config"
	"github.com/noah-isme/toko-pricing/internal/giftcard"
	"github.com/noah-isme/toko-pricing/internal/lock"
	"github.com/noah-isme/toko-pricing/internal/obs"
	"github.com/noah-isme/toko-pricing/internal/pricing"
	"github.com/noah-isme/toko-pricing/internal/promo"
	"github.com/noah-isme/toko-pricing/internal/ratelimit"
	"github.com/noah-isme/toko-pricing/internal/reconcile"
	"github.com/noah-isme/toko-pricing/internal/store"
)

const reportLockTTL = 2 * time.Minute

// Dependencies holds the shared clients used by the API and worker processes.
type Dependencies struct {
	Config       *config.Config
	Logger       zerolog.Logger
	DB           *pgxpool.Pool
	Redis        *redis.Client
	Store        *store.Queries
	Tasks        *asynq.Client
	LimiterStore limiter.Store
}

// Services are the domain services built on top of Dependencies.
type Services struct {
	Promos    *promo.Service
	Cards     *giftcard.Service
	Checkout  *checkout.Service
	Reconcile *reconcile.Service
	PromoRate *limiter.Limiter
}

// New connects to Postgres and Redis. Close must be called to release them.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Dependencies, error) {
	if cfg == nil {
		return nil, errors.New("app: config required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse database url")
	}
	poolCfg.ConnConfig.Tracer = obs.PGXTracer{}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, errors.Wrap(err, "connect database")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "ping database")
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "parse redis url")
	}
	rdb := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(rdb); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if err := rdb.Ping(ctx).Err(); err != nil {
		pool.Close()
		_ = rdb.Close()
		return nil, errors.Wrap(err, "ping redis")
	}

	limiterStore, err := ratelimit.NewStore(rdb, "ratelimit")
	if err != nil {
		pool.Close()
		_ = rdb.Close()
		return nil, errors.Wrap(err, "create limiter store")
	}

	taskOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		pool.Close()
		_ = rdb.Close()
		return nil, errors.Wrap(err, "parse asynq redis uri")
	}

	return &Dependencies{
		Config:       cfg,
		Logger:       logger,
		DB:           pool,
		Redis:        rdb,
		Store:        store.New(pool),
		Tasks:        asynq.NewClient(taskOpt),
		LimiterStore: limiterStore,
	}, nil
}

// Services wires the domain services.
func (d *Dependencies) Services() (*Services, error) {
	promoRate, err := ratelimit.New(d.LimiterStore, d.Config.PromoRateLimit)
	if err != nil {
		return nil, err
	}
	promoLogger := d.Logger.With().Str("component", "promo").Logger()
	promos := &promo.Service{Q: d.Store, Logger: &promoLogger}
	cards := &giftcard.Service{Q: d.Store}
	return &Services{
		Promos: promos,
		Cards:  cards,
		Checkout: &checkout.Service{
			Q:          d.Store,
			Promos:     promos,
			Cards:      cards,
			Aggregator: pricing.NewAggregator(d.Config.ShippingFlatFee),
			Bundles:    cache.New(d.Redis, d.Config.BundleCacheTTL),
			InTx:       d.inTx,
			Currency:   d.Config.CurrencyCode,
			Logger:     d.Logger.With().Str("component", "checkout").Logger(),
		},
		Reconcile: &reconcile.Service{
			Q:       d.Store,
			Cache:   cache.New(d.Redis, d.Config.ReconcileCacheTTL),
			Locker:  &lock.Locker{R: d.Redis},
			LockTTL: reportLockTTL,
			Window:  d.Config.ReconcileGroupWindow,
			Logger:  d.Logger.With().Str("component", "reconcile").Logger(),
		},
		PromoRate: promoRate,
	}, nil
}

func (d *Dependencies) inTx(ctx context.Context, fn func(checkout.CommitQuerier) error) error {
	return store.InTx(ctx, d.DB, func(q *store.Queries) error {
		return fn(q)
	})
}

// Close releases the clients in reverse order of creation.
func (d *Dependencies) Close() {
	if d == nil {
		return
	}
	if d.Tasks != nil {
		_ = d.Tasks.Close()
	}
	if d.Redis != nil {
		_ = d.Redis.Close()
	}
	if d.DB != nil {
		d.DB.Close()
	}
}
