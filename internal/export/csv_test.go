package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"testing"
	"time"

	"github.com/Veraticus/rupeeflow/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileName(t *testing.T) {
	day := time.Date(2024, 3, 7, 22, 15, 0, 0, time.UTC)
	assert.Equal(t, "RupeeFlow_Export_2024-03-07.csv", FileName(day))
}

func TestWriteCSV(t *testing.T) {
	txns := []model.Transaction{
		{
			ID:       "1",
			Date:     time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC),
			Title:    "Zomato Dinner, with \"friends\"",
			Type:     model.TypeExpense,
			Category: model.CategoryFood,
			Amount:   decimal.NewFromInt(850),
			Notes:    "split later",
		},
		{
			ID:       "2",
			Date:     time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			Title:    "Monthly Salary",
			Type:     model.TypeIncome,
			Category: model.CategorySalary,
			Amount:   decimal.RequireFromString("85000.5"),
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, txns))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, Header, records[0])
	assert.Equal(t, []string{"2024-03-07", "Zomato Dinner, with \"friends\"", "expense", "Food & Drinks", "850.00", "-850.00", "split later"}, records[1])
	assert.Equal(t, []string{"2024-03-01", "Monthly Salary", "income", "Salary", "85000.50", "+85000.50", ""}, records[2])
}

func TestWriteCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))
	assert.Equal(t, "Date,Description,Type,Category,Amount,Impact,Notes\n", buf.String())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestWriteCSV_WriterError(t *testing.T) {
	err := WriteCSV(failingWriter{}, []model.Transaction{{ID: "1", Amount: decimal.NewFromInt(1)}})
	assert.Error(t, err)
}
