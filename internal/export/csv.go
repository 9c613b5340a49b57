// Package export renders a ledger as a CSV file.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/Veraticus/rupeeflow/internal/model"
)

// Header is the first CSV row.
var Header = []string{"Date", "Description", "Type", "Category", "Amount", "Impact", "Notes"}

// FileName is the suggested download name for an export made on day.
func FileName(day time.Time) string {
	return "RupeeFlow_Export_" + day.Format("2006-01-02") + ".csv"
}

// Row renders one transaction in Header order. Amount is the magnitude and
// Impact carries the sign.
func Row(t model.Transaction) []string {
	amount := t.Amount.StringFixed(2)
	impact := "+" + amount
	if t.IsExpense() {
		impact = "-" + amount
	}
	return []string{
		t.Date.Format("2006-01-02"),
		t.Title,
		string(t.Type),
		string(t.Category),
		amount,
		impact,
		t.Notes,
	}
}

// WriteCSV writes the header and one row per transaction, in input order.
func WriteCSV(w io.Writer, txns []model.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, t := range txns {
		if err := cw.Write(Row(t)); err != nil {
			return fmt.Errorf("failed to write transaction %s: %w", t.ID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}
