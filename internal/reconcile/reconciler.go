package reconcile

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/toko-pricing/internal/money"
)

// DefaultWindow is the tolerance between a group's first row and later rows.
const DefaultWindow = 5 * time.Second

// RowStatus is the persisted order row status.
type RowStatus string

const (
	RowPending   RowStatus = "pending"
	RowCompleted RowStatus = "completed"
)

// GroupStatus summarises the statuses of a group's rows.
type GroupStatus string

const (
	GroupPending   GroupStatus = "pending"
	GroupCompleted GroupStatus = "completed"
	GroupMixed     GroupStatus = "mixed"
)

// OrderRow is a flat persisted order record. Depending on when it was written a row is
// either one unit or one full line. Quantity is only set by the current write path.
type OrderRow struct {
	ID        uuid.UUID    `json:"id"`
	UserID    uuid.UUID    `json:"userId"`
	ItemID    uuid.UUID    `json:"itemId"`
	ItemName  string       `json:"itemName"`
	Price     money.Amount `json:"price"`
	Quantity  *int         `json:"quantity,omitempty"`
	Status    RowStatus    `json:"status"`
	CreatedAt time.Time    `json:"createdAt"`
}

// Line is one reconstructed line of a group.
type Line struct {
	ItemID    uuid.UUID    `json:"itemId"`
	ItemName  string       `json:"itemName"`
	OrderIDs  []uuid.UUID  `json:"orderIds"`
	Quantity  int          `json:"quantity"`
	UnitPrice money.Amount `json:"unitPrice"`
	Total     money.Amount `json:"total"`
	Estimated bool         `json:"estimated"`
}

// OrderGroup is a set of rows inferred to come from one checkout.
type OrderGroup struct {
	UserID    uuid.UUID    `json:"userId"`
	StartedAt time.Time    `json:"startedAt"`
	Orders    []OrderRow   `json:"orders"`
	Lines     []Line       `json:"lines"`
	Total     money.Amount `json:"total"`
	Status    GroupStatus  `json:"status"`
}

// Reconciler groups order rows into checkout events. It holds no state between runs.
type Reconciler struct {
	Window time.Duration
}

func (r Reconciler) window() time.Duration {
	if r.Window <= 0 {
		return DefaultWindow
	}
	return r.Window
}

// Group assigns each row to the first group of the same user whose first row is at most
// Window earlier, otherwise opens a new group. prices holds current unit prices by item
// and is only used to reconstruct legacy quantities. Groups are ordered by start time.
func (r Reconciler) Group(rows []OrderRow, prices map[uuid.UUID]money.Amount) []OrderGroup {
	sorted := make([]OrderRow, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].CreatedAt.Before(sorted[j].CreatedAt) })

	window := r.window()
	var groups []OrderGroup
	byUser := make(map[uuid.UUID][]int)
	for _, row := range sorted {
		joined := false
		for _, idx := range byUser[row.UserID] {
			if row.CreatedAt.Sub(groups[idx].StartedAt) <= window {
				groups[idx].Orders = append(groups[idx].Orders, row)
				joined = true
				break
			}
		}
		if joined {
			continue
		}
		byUser[row.UserID] = append(byUser[row.UserID], len(groups))
		groups = append(groups, OrderGroup{UserID: row.UserID, StartedAt: row.CreatedAt, Orders: []OrderRow{row}})
	}

	for i := range groups {
		groups[i].Status = groupStatus(groups[i].Orders)
		groups[i].Total = groupTotal(groups[i].Orders)
		groups[i].Lines = reconstructLines(groups[i].Orders, prices)
	}
	return groups
}

func groupStatus(rows []OrderRow) GroupStatus {
	completed := 0
	for _, row := range rows {
		if row.Status == RowCompleted {
			completed++
		}
	}
	switch completed {
	case len(rows):
		return GroupCompleted
	case 0:
		return GroupPending
	default:
		return GroupMixed
	}
}

func groupTotal(rows []OrderRow) money.Amount {
	total := money.Zero
	for _, row := range rows {
		total = total.Add(row.Price)
	}
	return money.Round2(total)
}
