package reconcile

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-pricing/internal/cache"
	"github.com/noah-isme/toko-pricing/internal/lock"
	"github.com/noah-isme/toko-pricing/internal/money"
	"github.com/noah-isme/toko-pricing/internal/obs"
)

// Querier defines the database access required for reconciliation reports.
type Querier interface {
	ListOrderRows(ctx context.Context, filter Filter) ([]OrderRow, error)
	CurrentUnitPrices(ctx context.Context, itemIDs []uuid.UUID) (map[uuid.UUID]money.Amount, error)
	DisplayNames(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]string, error)
}

// Service builds order-group reports and caches them in Redis.
type Service struct {
	Q       Querier
	Cache   *cache.JSON
	Locker  *lock.Locker
	LockTTL time.Duration
	Window  time.Duration
	Now     func() time.Time
	Logger  zerolog.Logger
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// OrderGroups returns the cached report for filter, computing it on a miss.
func (s *Service) OrderGroups(ctx context.Context, filter Filter) (Report, error) {
	if s == nil || s.Q == nil {
		return Report{}, errors.New("reconcile service not configured")
	}
	if err := filter.Validate(); err != nil {
		return Report{}, err
	}
	key := cacheKey(filter)
	var cached Report
	hit, err := s.Cache.Get(ctx, key, &cached)
	if err != nil {
		s.Logger.Warn().Err(err).Str("key", key).Msg("read report cache")
	}
	if hit {
		return cached, nil
	}
	return s.build(ctx, filter)
}

// Refresh recomputes the report for filter and overwrites the cache. Concurrent refreshes
// of the same filter are collapsed when a Locker is configured.
func (s *Service) Refresh(ctx context.Context, filter Filter) (Report, error) {
	if s == nil || s.Q == nil {
		return Report{}, errors.New("reconcile service not configured")
	}
	if err := filter.Validate(); err != nil {
		return Report{}, err
	}
	if s.Locker == nil {
		return s.build(ctx, filter)
	}
	var report Report
	err := s.Locker.TryWithLock(ctx, "lock:"+cacheKey(filter), s.LockTTL, func(ctx context.Context) error {
		var err error
		report, err = s.build(ctx, filter)
		return err
	})
	return report, err
}

func (s *Service) build(ctx context.Context, filter Filter) (Report, error) {
	rows, err := s.Q.ListOrderRows(ctx, filter)
	if err != nil {
		return Report{}, errors.Wrap(err, "list order rows")
	}
	items, users := distinctIDs(rows)
	prices, err := s.Q.CurrentUnitPrices(ctx, items)
	if err != nil {
		return Report{}, errors.Wrap(err, "load current prices")
	}
	names, err := s.Q.DisplayNames(ctx, users)
	if err != nil {
		return Report{}, errors.Wrap(err, "load display names")
	}

	groups := Reconciler{Window: s.Window}.Group(rows, prices)
	report := BuildReport(groups, names, filter, len(rows), s.now())
	s.observe(report)

	key := cacheKey(filter)
	if err := s.Cache.Set(ctx, key, report); err != nil {
		s.Logger.Warn().Err(err).Str("key", key).Msg("write report cache")
	}
	return report, nil
}

func (s *Service) observe(report Report) {
	s.Logger.Debug().
		Int("rows", report.Rows).
		Int("groups", len(report.Groups)).
		Int("estimated_lines", report.EstimatedLines).
		Msg("order groups reconciled")
	if obs.ReconcileBatchRows != nil {
		obs.ReconcileBatchRows.Observe(float64(report.Rows))
	}
	if obs.ReconcileEstimatedLinesTotal != nil {
		obs.ReconcileEstimatedLinesTotal.Add(float64(report.EstimatedLines))
	}
	if obs.ReconcileGroupsTotal != nil {
		for _, g := range report.Groups {
			obs.ReconcileGroupsTotal.WithLabelValues(string(g.Status)).Inc()
		}
	}
}

func cacheKey(filter Filter) string {
	return cache.KeyOrderGroups(string(filter.Status), filter.From, filter.To)
}

func distinctIDs(rows []OrderRow) (items, users []uuid.UUID) {
	seenItems := make(map[uuid.UUID]struct{})
	seenUsers := make(map[uuid.UUID]struct{})
	for _, row := range rows {
		if _, ok := seenItems[row.ItemID]; !ok {
			seenItems[row.ItemID] = struct{}{}
			items = append(items, row.ItemID)
		}
		if _, ok := seenUsers[row.UserID]; !ok {
			seenUsers[row.UserID] = struct{}{}
			users = append(users, row.UserID)
		}
	}
	return items, users
}
