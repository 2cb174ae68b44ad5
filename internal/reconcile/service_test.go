package reconcile

import (
	"bytes"
	"context"
	"encoding/csv"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-pricing/internal/cache"
	"github.com/noah-isme/toko-pricing/internal/common"
	"github.com/noah-isme/toko-pricing/internal/lock"
	"github.com/noah-isme/toko-pricing/internal/money"
)

type stubQuerier struct {
	rows   []OrderRow
	prices map[uuid.UUID]money.Amount
	names  map[uuid.UUID]string
	calls  int
	filter Filter
}

func (s *stubQuerier) ListOrderRows(_ context.Context, filter Filter) ([]OrderRow, error) {
	s.calls++
	s.filter = filter
	return s.rows, nil
}

func (s *stubQuerier) CurrentUnitPrices(context.Context, []uuid.UUID) (map[uuid.UUID]money.Amount, error) {
	return s.prices, nil
}

func (s *stubQuerier) DisplayNames(context.Context, []uuid.UUID) (map[uuid.UUID]string, error) {
	return s.names, nil
}

type fixture struct {
	svc   *Service
	q     *stubQuerier
	mr    *miniredis.Miniredis
	user  uuid.UUID
	item  uuid.UUID
	redis *redis.Client
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	user, item := uuid.New(), uuid.New()
	q := &stubQuerier{
		rows: []OrderRow{
			row(user, item, "20", RowCompleted, 0),
			row(user, uuid.New(), "5", RowPending, 2*time.Second),
			row(user, item, "10", RowCompleted, time.Minute),
		},
		prices: map[uuid.UUID]money.Amount{item: money.MustParse("10")},
		names:  map[uuid.UUID]string{user: "Ada Lovelace"},
	}
	svc := &Service{
		Q:      q,
		Cache:  cache.New(client, time.Minute),
		Window: DefaultWindow,
		Now:    func() time.Time { return base.Add(time.Hour) },
		Logger: zerolog.Nop(),
	}
	return fixture{svc: svc, q: q, mr: mr, user: user, item: item, redis: client}
}

func TestOrderGroupsBuildsAndCaches(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	report, err := f.svc.OrderGroups(ctx, Filter{})
	require.NoError(t, err)
	require.Equal(t, 3, report.Rows)
	require.Len(t, report.Groups, 2)
	require.Equal(t, "Ada Lovelace", report.Groups[0].DisplayName)
	require.Equal(t, GroupMixed, report.Groups[0].Status)
	require.Equal(t, GroupCompleted, report.Groups[1].Status)
	require.Equal(t, 1, report.EstimatedLines)
	require.True(t, f.mr.Exists(cacheKey(Filter{})))

	again, err := f.svc.OrderGroups(ctx, Filter{})
	require.NoError(t, err)
	require.Equal(t, 1, f.q.calls)
	require.Len(t, again.Groups, 2)
}

func TestRefreshOverwritesCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.OrderGroups(ctx, Filter{})
	require.NoError(t, err)
	f.q.rows = f.q.rows[:1]

	report, err := f.svc.Refresh(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, report.Groups, 1)

	cached, err := f.svc.OrderGroups(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, cached.Groups, 1)
	require.Equal(t, 2, f.q.calls)
}

func TestRefreshSkipsWhenLocked(t *testing.T) {
	f := newFixture(t)
	f.svc.Locker = &lock.Locker{R: f.redis}
	require.NoError(t, f.mr.Set("lock:"+cacheKey(Filter{}), "other"))

	_, err := f.svc.Refresh(context.Background(), Filter{})
	require.ErrorIs(t, err, lock.ErrBusy)
	require.Zero(t, f.q.calls)
}

func TestOrderGroupsRejectsBadFilter(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.OrderGroups(context.Background(), Filter{Status: "shipped"})
	require.ErrorIs(t, err, common.ErrValidation)

	_, err = f.svc.OrderGroups(context.Background(), Filter{From: base, To: base})
	require.ErrorIs(t, err, common.ErrValidation)
}

func TestWriteCSV(t *testing.T) {
	f := newFixture(t)
	report, err := f.svc.OrderGroups(context.Background(), Filter{})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, report))
	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)

	// header + (group + 2 lines) + (group + 1 line)
	require.Len(t, records, 6)
	require.Equal(t, csvHeader, records[0])
	require.Equal(t, []string{"1", f.user.String(), "Ada Lovelace", base.Format(time.RFC3339), "mixed", "25.00", "", "", "", "", "", ""}, records[1])
	require.Equal(t, "2", records[2][8])
	require.Equal(t, "true", records[2][11])
	require.Equal(t, "completed", records[4][4])
}

type fakeEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{ID: "task-1", Type: task.Type()}, nil
}

func TestRefreshTaskRoundTrip(t *testing.T) {
	f := newFixture(t)
	q := &fakeEnqueuer{}
	filter := Filter{Status: RowCompleted}

	info, err := EnqueueRefresh(context.Background(), q, filter)
	require.NoError(t, err)
	require.Equal(t, "task-1", info.ID)
	require.Len(t, q.tasks, 1)
	require.Equal(t, TypeRefresh, q.tasks[0].Type())

	require.NoError(t, f.svc.HandleRefreshTask(context.Background(), q.tasks[0]))
	require.Equal(t, RowCompleted, f.q.filter.Status)
	require.True(t, f.mr.Exists(cacheKey(filter)))
}

func TestDuplicateRefreshIsNotAnError(t *testing.T) {
	info, err := EnqueueRefresh(context.Background(), &fakeEnqueuer{err: asynq.ErrDuplicateTask}, Filter{})
	require.NoError(t, err)
	require.Nil(t, info)
}

func TestHandleRefreshTaskRejectsGarbage(t *testing.T) {
	f := newFixture(t)
	err := f.svc.HandleRefreshTask(context.Background(), asynq.NewTask(TypeRefresh, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestHandlerOrderGroupsCSV(t *testing.T) {
	f := newFixture(t)
	h := &Handler{Svc: f.svc}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/reports/order-groups?format=csv", nil)
	rr := httptest.NewRecorder()
	h.OrderGroups(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Header().Get("Content-Type"), "text/csv")
	require.Contains(t, rr.Body.String(), "Ada Lovelace")
}

func TestHandlerRejectsBadDates(t *testing.T) {
	f := newFixture(t)
	h := &Handler{Svc: f.svc}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/reports/order-groups?from=yesterday", nil)
	rr := httptest.NewRecorder()
	h.OrderGroups(rr, req)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandlerRefreshEnqueues(t *testing.T) {
	q := &fakeEnqueuer{}
	h := &Handler{Tasks: q}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/reports/order-groups/refresh?status=pending", nil)
	rr := httptest.NewRecorder()
	h.Refresh(rr, req)

	require.Equal(t, http.StatusAccepted, rr.Code)
	require.Len(t, q.tasks, 1)
	require.Contains(t, rr.Body.String(), "task-1")
}
