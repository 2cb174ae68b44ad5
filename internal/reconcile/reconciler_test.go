package reconcile

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-pricing/internal/money"
)

var base = time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

func row(user, item uuid.UUID, price string, status RowStatus, offset time.Duration) OrderRow {
	return OrderRow{
		ID:        uuid.New(),
		UserID:    user,
		ItemID:    item,
		ItemName:  "item",
		Price:     money.MustParse(price),
		Status:    status,
		CreatedAt: base.Add(offset),
	}
}

func TestGroupJoinsRowsWithinWindow(t *testing.T) {
	user := uuid.New()
	rows := []OrderRow{
		row(user, uuid.New(), "10", RowCompleted, 0),
		row(user, uuid.New(), "20", RowCompleted, 3*time.Second),
	}
	groups := Reconciler{}.Group(rows, nil)
	require.Len(t, groups, 1)
	require.Len(t, groups[0].Orders, 2)
	require.Equal(t, "30.00", money.Format(groups[0].Total))
}

func TestGroupSeparatesDistantRows(t *testing.T) {
	user := uuid.New()
	rows := []OrderRow{
		row(user, uuid.New(), "10", RowCompleted, 0),
		row(user, uuid.New(), "20", RowCompleted, 10*time.Second),
	}
	groups := Reconciler{}.Group(rows, nil)
	require.Len(t, groups, 2)
}

func TestGroupWindowIsAnchoredOnFirstMember(t *testing.T) {
	user := uuid.New()
	rows := []OrderRow{
		row(user, uuid.New(), "1", RowPending, 0),
		row(user, uuid.New(), "1", RowPending, 4*time.Second),
		row(user, uuid.New(), "1", RowPending, 8*time.Second),
	}
	groups := Reconciler{}.Group(rows, nil)
	require.Len(t, groups, 2)
	require.Len(t, groups[0].Orders, 2)
	require.Len(t, groups[1].Orders, 1)
}

func TestGroupBoundaryIsInclusive(t *testing.T) {
	user := uuid.New()
	rows := []OrderRow{
		row(user, uuid.New(), "1", RowPending, 0),
		row(user, uuid.New(), "1", RowPending, 5*time.Second),
	}
	require.Len(t, Reconciler{}.Group(rows, nil), 1)
}

func TestGroupKeepsUsersApart(t *testing.T) {
	alice, bob := uuid.New(), uuid.New()
	rows := []OrderRow{
		row(bob, uuid.New(), "5", RowPending, time.Second),
		row(alice, uuid.New(), "10", RowCompleted, 0),
		row(alice, uuid.New(), "10", RowCompleted, 2*time.Second),
	}
	groups := Reconciler{}.Group(rows, nil)
	require.Len(t, groups, 2)
	require.Equal(t, alice, groups[0].UserID)
	require.Equal(t, bob, groups[1].UserID)
	for _, g := range groups {
		for _, o := range g.Orders {
			require.Equal(t, g.UserID, o.UserID)
		}
	}
}

func TestGroupStatus(t *testing.T) {
	user := uuid.New()
	cases := map[GroupStatus][]RowStatus{
		GroupCompleted: {RowCompleted, RowCompleted},
		GroupPending:   {RowPending, RowPending},
		GroupMixed:     {RowCompleted, RowPending},
	}
	for want, statuses := range cases {
		var rows []OrderRow
		for i, st := range statuses {
			rows = append(rows, row(user, uuid.New(), "1", st, time.Duration(i)*time.Second))
		}
		groups := Reconciler{}.Group(rows, nil)
		require.Len(t, groups, 1)
		require.Equal(t, want, groups[0].Status)
	}
}

func TestGroupDoesNotMutateInput(t *testing.T) {
	user := uuid.New()
	rows := []OrderRow{
		row(user, uuid.New(), "1", RowPending, 2*time.Second),
		row(user, uuid.New(), "1", RowPending, 0),
	}
	first := rows[0].ID
	Reconciler{}.Group(rows, nil)
	require.Equal(t, first, rows[0].ID)
}

func TestLegacyRowsPerUnitAreCounted(t *testing.T) {
	user, item := uuid.New(), uuid.New()
	rows := []OrderRow{
		row(user, item, "10", RowCompleted, 0),
		row(user, item, "10", RowCompleted, time.Second),
		row(user, item, "10", RowCompleted, 2*time.Second),
	}
	groups := Reconciler{}.Group(rows, map[uuid.UUID]money.Amount{item: money.MustParse("10")})
	require.Len(t, groups[0].Lines, 1)
	line := groups[0].Lines[0]
	require.Equal(t, 3, line.Quantity)
	require.False(t, line.Estimated)
	require.Equal(t, "10.00", money.Format(line.UnitPrice))
	require.Len(t, line.OrderIDs, 3)
}

func TestMergedRowQuantityIsEstimated(t *testing.T) {
	user, item := uuid.New(), uuid.New()
	rows := []OrderRow{row(user, item, "29.97", RowCompleted, 0)}
	groups := Reconciler{}.Group(rows, map[uuid.UUID]money.Amount{item: money.MustParse("9.99")})
	line := groups[0].Lines[0]
	require.Equal(t, 3, line.Quantity)
	require.True(t, line.Estimated)
	require.Equal(t, "9.99", money.Format(line.UnitPrice))
}

func TestInferenceToleratesHalfCent(t *testing.T) {
	user, item := uuid.New(), uuid.New()
	rows := []OrderRow{row(user, item, "10.004", RowCompleted, 0)}
	groups := Reconciler{}.Group(rows, map[uuid.UUID]money.Amount{item: money.MustParse("5")})
	require.Equal(t, 2, groups[0].Lines[0].Quantity)
	require.True(t, groups[0].Lines[0].Estimated)
}

func TestNonMultiplePriceStaysSingle(t *testing.T) {
	user, item := uuid.New(), uuid.New()
	cases := []string{"10", "15", "25.50"}
	for _, price := range cases {
		rows := []OrderRow{row(user, item, price, RowCompleted, 0)}
		groups := Reconciler{}.Group(rows, map[uuid.UUID]money.Amount{item: money.MustParse("10")})
		line := groups[0].Lines[0]
		require.Equal(t, 1, line.Quantity, price)
		require.False(t, line.Estimated, price)
	}
}

func TestUnknownCurrentPriceStaysSingle(t *testing.T) {
	user, item := uuid.New(), uuid.New()
	groups := Reconciler{}.Group([]OrderRow{row(user, item, "40", RowCompleted, 0)}, nil)
	require.Equal(t, 1, groups[0].Lines[0].Quantity)
}

func TestPersistedQuantityWins(t *testing.T) {
	user, item := uuid.New(), uuid.New()
	r := row(user, item, "30", RowCompleted, 0)
	qty := 1
	r.Quantity = &qty
	groups := Reconciler{}.Group([]OrderRow{r}, map[uuid.UUID]money.Amount{item: money.MustParse("10")})
	line := groups[0].Lines[0]
	require.Equal(t, 1, line.Quantity)
	require.False(t, line.Estimated)
}

func TestCustomWindow(t *testing.T) {
	user := uuid.New()
	rows := []OrderRow{
		row(user, uuid.New(), "1", RowPending, 0),
		row(user, uuid.New(), "1", RowPending, 10*time.Second),
	}
	require.Len(t, Reconciler{Window: 15 * time.Second}.Group(rows, nil), 1)
}
