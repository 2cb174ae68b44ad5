package reconcile

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/hibiken/asynq"

	"github.com/noah-isme/toko-pricing/internal/lock"
)

// TypeRefresh is the asynq task type that recomputes a cached report.
const TypeRefresh = "reconcile:refresh"

// RefreshPayload is the task body for TypeRefresh.
type RefreshPayload struct {
	Filter Filter `json:"filter"`
}

// Enqueuer is satisfied by *asynq.Client.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// NewRefreshTask builds a refresh task for filter.
func NewRefreshTask(filter Filter) (*asynq.Task, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(RefreshPayload{Filter: filter})
	if err != nil {
		return nil, errors.Wrap(err, "encode refresh payload")
	}
	return asynq.NewTask(TypeRefresh, data, asynq.MaxRetry(3), asynq.Timeout(5*time.Minute)), nil
}

// EnqueueRefresh schedules a refresh. Duplicate requests for the same filter within a
// minute are dropped by asynq.
func EnqueueRefresh(ctx context.Context, q Enqueuer, filter Filter) (*asynq.TaskInfo, error) {
	if q == nil {
		return nil, errors.New("task queue not configured")
	}
	task, err := NewRefreshTask(filter)
	if err != nil {
		return nil, err
	}
	info, err := q.EnqueueContext(ctx, task, asynq.Unique(time.Minute))
	if errors.Is(err, asynq.ErrDuplicateTask) {
		return nil, nil
	}
	return info, err
}

// HandleRefreshTask is the asynq handler for TypeRefresh.
func (s *Service) HandleRefreshTask(ctx context.Context, t *asynq.Task) error {
	var payload RefreshPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return errors.Wrapf(asynq.SkipRetry, "decode refresh payload: %v", err)
	}
	report, err := s.Refresh(ctx, payload.Filter)
	if errors.Is(err, lock.ErrBusy) {
		s.Logger.Info().Msg("report refresh already running")
		return nil
	}
	if err != nil {
		return err
	}
	s.Logger.Info().Int("groups", len(report.Groups)).Int("rows", report.Rows).Msg("report refreshed")
	return nil
}

// Register wires reconcile task handlers into mux.
func Register(mux *asynq.ServeMux, s *Service) {
	mux.HandleFunc(TypeRefresh, s.HandleRefreshTask)
}
