package reconcile

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/noah-isme/toko-pricing/internal/common"
	"github.com/noah-isme/toko-pricing/internal/money"
)

// Filter narrows the rows fed into a report. Zero values are unbounded.
type Filter struct {
	Status RowStatus `json:"status,omitempty"`
	From   time.Time `json:"from,omitempty"`
	To     time.Time `json:"to,omitempty"`
}

// Validate rejects unknown statuses and inverted ranges.
func (f Filter) Validate() error {
	switch f.Status {
	case "", RowPending, RowCompleted:
	default:
		return common.Validationf("unknown order status %q", f.Status)
	}
	if !f.From.IsZero() && !f.To.IsZero() && !f.From.Before(f.To) {
		return common.Validation("from must be before to")
	}
	return nil
}

// ReportGroup is an order group decorated with the user's display name.
type ReportGroup struct {
	OrderGroup
	DisplayName string `json:"displayName"`
}

// Report is the exported result of one reconcile pass.
type Report struct {
	GeneratedAt    time.Time     `json:"generatedAt"`
	Filter         Filter        `json:"filter"`
	Rows           int           `json:"rows"`
	EstimatedLines int           `json:"estimatedLines"`
	Groups         []ReportGroup `json:"groups"`
}

// BuildReport decorates groups with display names. Unknown users fall back to their id.
func BuildReport(groups []OrderGroup, names map[uuid.UUID]string, filter Filter, rows int, now time.Time) Report {
	report := Report{GeneratedAt: now.UTC(), Filter: filter, Rows: rows, Groups: make([]ReportGroup, 0, len(groups))}
	for _, g := range groups {
		name := names[g.UserID]
		if name == "" {
			name = g.UserID.String()
		}
		for _, l := range g.Lines {
			if l.Estimated {
				report.EstimatedLines++
			}
		}
		report.Groups = append(report.Groups, ReportGroup{OrderGroup: g, DisplayName: name})
	}
	return report
}

var csvHeader = []string{
	"group", "user_id", "display_name", "started_at", "status", "group_total",
	"item_id", "item_name", "quantity", "unit_price", "line_total", "estimated",
}

// WriteCSV writes one row per group followed by one sub-row per reconstructed line.
func WriteCSV(w io.Writer, report Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return errors.Wrap(err, "write csv header")
	}
	for i, g := range report.Groups {
		id := strconv.Itoa(i + 1)
		if err := cw.Write([]string{
			id, g.UserID.String(), g.DisplayName, g.StartedAt.UTC().Format(time.RFC3339), string(g.Status), money.Format(g.Total),
			"", "", "", "", "", "",
		}); err != nil {
			return errors.Wrapf(err, "write group %s", id)
		}
		for _, l := range g.Lines {
			if err := cw.Write([]string{
				id, "", "", "", "", "",
				l.ItemID.String(), l.ItemName, strconv.Itoa(l.Quantity), money.Format(l.UnitPrice), money.Format(l.Total), strconv.FormatBool(l.Estimated),
			}); err != nil {
				return errors.Wrapf(err, "write line of group %s", id)
			}
		}
	}
	cw.Flush()
	return cw.Error()
}
