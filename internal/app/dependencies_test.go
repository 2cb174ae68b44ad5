package app

import (
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-pricing/internal/config"
	"github.com/noah-isme/toko-pricing/internal/money"
	"github.com/noah-isme/toko-pricing/internal/ratelimit"
	"github.com/noah-isme/toko-pricing/internal/store"
)

func TestServicesWiring(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	limiterStore, err := ratelimit.NewStore(rdb, "ratelimit")
	require.NoError(t, err)

	cfg := &config.Config{
		CurrencyCode:         "EUR",
		ShippingFlatFee:      money.MustParse("4.50"),
		BundleCacheTTL:       time.Minute,
		PromoRateLimit:       "10-M",
		ReconcileGroupWindow: 3 * time.Second,
		ReconcileCacheTTL:    time.Minute,
	}
	deps := &Dependencies{Config: cfg, Logger: zerolog.Nop(), Redis: rdb, Store: store.New(nil), LimiterStore: limiterStore}

	svcs, err := deps.Services()
	require.NoError(t, err)
	require.Equal(t, "4.50", money.Format(svcs.Checkout.Aggregator.ShippingFee))
	require.Equal(t, "EUR", svcs.Checkout.Currency)
	require.NotNil(t, svcs.Checkout.InTx)
	require.Same(t, svcs.Promos, svcs.Checkout.Promos)
	require.Equal(t, 3*time.Second, svcs.Reconcile.Window)
	require.Equal(t, int64(10), svcs.PromoRate.Rate.Limit)

	cfg.PromoRateLimit = "often"
	_, err = deps.Services()
	require.Error(t, err)
}

func TestCloseToleratesNil(t *testing.T) {
	var deps *Dependencies
	deps.Close()
	(&Dependencies{}).Close()
}
