package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/Veraticus/rupeeflow/internal/analytics"
	"github.com/Veraticus/rupeeflow/internal/common"
	"github.com/Veraticus/rupeeflow/internal/export"
	"github.com/Veraticus/rupeeflow/internal/model"
	"github.com/Veraticus/rupeeflow/internal/service"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Sheet titles.
const (
	TransactionsSheet = "Transactions"
	SummarySheet      = "Summary"
)

const currencyPattern = "₹#,##0.00"

// ProgressFunc is told how many rows of total have been written.
type ProgressFunc func(written, total int)

// Writer exports ledgers to Google Sheets.
type Writer struct {
	service  *sheets.Service
	logger   *slog.Logger
	progress ProgressFunc
	config   Config
}

// NewWriter authenticates with cfg and creates a writer.
func NewWriter(ctx context.Context, cfg Config, logger *slog.Logger) (*Writer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	svc, err := createSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	return NewWriterWithService(svc, cfg, logger), nil
}

// NewWriterWithService wraps an existing API client.
func NewWriterWithService(svc *sheets.Service, cfg Config, logger *slog.Logger) *Writer {
	return &Writer{service: svc, config: cfg, logger: common.LoggerOrDefault(logger)}
}

// OnProgress registers fn to be called after each written batch.
func (w *Writer) OnProgress(fn ProgressFunc) {
	w.progress = fn
}

func createSheetsService(ctx context.Context, cfg Config) (*sheets.Service, error) {
	var tokenSource oauth2.TokenSource

	if cfg.ServiceAccountPath != "" {
		jsonKey, err := os.ReadFile(cfg.ServiceAccountPath)
		if err != nil {
			return nil, fmt.Errorf("unable to read service account key file: %w", err)
		}
		jwtConfig, err := google.JWTConfigFromJSON(jsonKey, sheets.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("unable to parse service account key: %w", err)
		}
		tokenSource = jwtConfig.TokenSource(ctx)
	} else {
		client := &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{sheets.SpreadsheetsScope},
		}
		tokenSource = client.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken, TokenType: "Bearer"})
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(oauth2.NewClient(ctx, tokenSource)))
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}
	return srv, nil
}

// Export replaces the Transactions and Summary sheets with txns and returns
// the spreadsheet id. now anchors the 12-month trend.
func (w *Writer) Export(ctx context.Context, txns []model.Transaction, now time.Time) (string, error) {
	w.logger.InfoContext(ctx, "starting sheets export", "transactions", len(txns))

	spreadsheetID, sheetIDs, err := w.prepareSpreadsheet(ctx)
	if err != nil {
		return "", err
	}

	txnValues := TransactionValues(txns)
	summaryValues := SummaryValues(txns, now)

	retryOpts := service.RetryOptions{
		MaxAttempts:  w.config.RetryAttempts,
		InitialDelay: w.config.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}

	for _, title := range []string{TransactionsSheet, SummarySheet} {
		err := common.WithRetry(ctx, func() error {
			return classify(w.clearSheet(ctx, spreadsheetID, title))
		}, retryOpts)
		if err != nil {
			return "", fmt.Errorf("failed to clear %s: %w", title, err)
		}
	}

	total := len(txnValues) + len(summaryValues)
	if err := w.writeData(ctx, spreadsheetID, TransactionsSheet, txnValues, 0, total, retryOpts); err != nil {
		return "", err
	}
	if err := w.writeData(ctx, spreadsheetID, SummarySheet, summaryValues, len(txnValues), total, retryOpts); err != nil {
		return "", err
	}

	if w.config.EnableFormatting {
		err := common.WithRetry(ctx, func() error {
			return classify(w.applyFormatting(ctx, spreadsheetID, sheetIDs, len(txnValues)))
		}, retryOpts)
		if err != nil {
			// The data is already written.
			w.logger.WarnContext(ctx, "failed to apply formatting", "error", err)
		}
	}

	w.logger.InfoContext(ctx, "sheets export completed",
		"spreadsheet_id", spreadsheetID,
		"rows_written", total)
	return spreadsheetID, nil
}

// prepareSpreadsheet opens or creates the spreadsheet and makes sure both
// sheets exist. It returns the sheet ids by title.
func (w *Writer) prepareSpreadsheet(ctx context.Context) (string, map[string]int64, error) {
	if w.config.SpreadsheetID == "" {
		created, err := w.service.Spreadsheets.Create(&sheets.Spreadsheet{
			Properties: &sheets.SpreadsheetProperties{
				Title:    w.config.SpreadsheetName,
				TimeZone: w.config.TimeZone,
			},
			Sheets: []*sheets.Sheet{
				{Properties: &sheets.SheetProperties{Title: TransactionsSheet}},
				{Properties: &sheets.SheetProperties{Title: SummarySheet}},
			},
		}).Context(ctx).Do()
		if err != nil {
			return "", nil, fmt.Errorf("unable to create spreadsheet: %w", err)
		}
		w.logger.InfoContext(ctx, "created new spreadsheet", "id", created.SpreadsheetId, "url", created.SpreadsheetUrl)
		return created.SpreadsheetId, sheetIndex(created), nil
	}

	existing, err := w.service.Spreadsheets.Get(w.config.SpreadsheetID).Context(ctx).Do()
	if err != nil {
		return "", nil, fmt.Errorf("unable to access spreadsheet %s: %w", w.config.SpreadsheetID, err)
	}
	ids := sheetIndex(existing)

	var requests []*sheets.Request
	for _, title := range []string{TransactionsSheet, SummarySheet} {
		if _, ok := ids[title]; !ok {
			requests = append(requests, &sheets.Request{
				AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{Title: title}},
			})
		}
	}
	if len(requests) > 0 {
		resp, err := w.service.Spreadsheets.BatchUpdate(w.config.SpreadsheetID,
			&sheets.BatchUpdateSpreadsheetRequest{Requests: requests}).Context(ctx).Do()
		if err != nil {
			return "", nil, fmt.Errorf("unable to add sheets: %w", err)
		}
		for _, reply := range resp.Replies {
			if reply.AddSheet != nil && reply.AddSheet.Properties != nil {
				ids[reply.AddSheet.Properties.Title] = reply.AddSheet.Properties.SheetId
			}
		}
	}
	return w.config.SpreadsheetID, ids, nil
}

func sheetIndex(s *sheets.Spreadsheet) map[string]int64 {
	ids := make(map[string]int64, len(s.Sheets))
	for _, sh := range s.Sheets {
		if sh.Properties != nil {
			ids[sh.Properties.Title] = sh.Properties.SheetId
		}
	}
	return ids
}

func (w *Writer) clearSheet(ctx context.Context, spreadsheetID, title string) error {
	_, err := w.service.Spreadsheets.Values.Clear(spreadsheetID, title+"!A:Z", &sheets.ClearValuesRequest{}).Context(ctx).Do()
	return err
}

// writeData writes values in batches. offset and total only feed progress.
func (w *Writer) writeData(ctx context.Context, spreadsheetID, title string, values [][]any, offset, total int, opts service.RetryOptions) error {
	for i := 0; i < len(values); i += w.config.BatchSize {
		end := min(i+w.config.BatchSize, len(values))
		batch := &sheets.ValueRange{Values: values[i:end]}
		rangeStr := fmt.Sprintf("%s!A%d", title, i+1)

		err := common.WithRetry(ctx, func() error {
			_, err := w.service.Spreadsheets.Values.Update(spreadsheetID, rangeStr, batch).
				ValueInputOption("USER_ENTERED").
				Context(ctx).
				Do()
			return classify(err)
		}, opts)
		if err != nil {
			return fmt.Errorf("failed to write %s batch starting at row %d: %w", title, i+1, err)
		}

		w.logger.DebugContext(ctx, "wrote batch", "sheet", title, "start_row", i+1, "rows", end-i)
		if w.progress != nil {
			w.progress(offset+end, total)
		}
	}
	return nil
}

// classify marks client errors other than 429 as permanent so WithRetry
// gives up on them immediately.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusTooManyRequests {
			return fmt.Errorf("%w: %v", common.ErrRateLimit, err)
		}
		if apiErr.Code >= 400 && apiErr.Code < 500 {
			return common.Permanent(err)
		}
	}
	return err
}

// TransactionValues renders the Transactions sheet: the CSV header and one
// row per transaction.
func TransactionValues(txns []model.Transaction) [][]any {
	values := make([][]any, 0, len(txns)+1)
	values = append(values, toAny(export.Header))
	for _, t := range txns {
		values = append(values, toAny(export.Row(t)))
	}
	return values
}

// SummaryValues renders the Summary sheet: totals, expense by category and
// the trailing twelve months.
func SummaryValues(txns []model.Transaction, now time.Time) [][]any {
	stats := analytics.Summarize(txns)
	categories := analytics.ExpenseByCategory(txns)
	trend := analytics.TrailingTrend(txns, now)

	values := make([][]any, 0, 10+len(categories)+len(trend))
	values = append(values,
		[]any{"RupeeFlow Summary", now.Format("Jan 2, 2006")},
		[]any{},
		[]any{"Total Income", stats.Income.StringFixed(2)},
		[]any{"Total Expense", stats.Expense.StringFixed(2)},
		[]any{"Balance", stats.Balance.StringFixed(2)},
		[]any{"Transactions", stats.Count},
		[]any{},
		[]any{"Category", "Amount", "Share %"},
	)
	for _, c := range categories {
		values = append(values, []any{string(c.Category), c.Amount.StringFixed(2), c.Percent})
	}

	values = append(values, []any{}, []any{"Month", "Income", "Expense"})
	for _, p := range trend {
		values = append(values, []any{
			fmt.Sprintf("%s %d", p.Label, p.Year),
			p.Income.StringFixed(2),
			p.Expense.StringFixed(2),
		})
	}
	return values
}

func toAny(row []string) []any {
	out := make([]any, len(row))
	for i, v := range row {
		out[i] = v
	}
	return out
}

func (w *Writer) applyFormatting(ctx context.Context, spreadsheetID string, ids map[string]int64, txnRows int) error {
	txnSheet := ids[TransactionsSheet]
	summarySheet := ids[SummarySheet]

	bold := &sheets.CellData{UserEnteredFormat: &sheets.CellFormat{TextFormat: &sheets.TextFormat{Bold: true}}}
	currency := &sheets.CellData{UserEnteredFormat: &sheets.CellFormat{
		NumberFormat: &sheets.NumberFormat{Type: "CURRENCY", Pattern: currencyPattern},
	}}

	requests := []*sheets.Request{
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range:  &sheets.GridRange{SheetId: txnSheet, StartRowIndex: 0, EndRowIndex: 1},
				Cell:   bold,
				Fields: "userEnteredFormat.textFormat",
			},
		},
		{
			// Amount and Impact.
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:          txnSheet,
					StartRowIndex:    1,
					EndRowIndex:      int64(max(txnRows, 1)),
					StartColumnIndex: 4,
					EndColumnIndex:   6,
				},
				Cell:   currency,
				Fields: "userEnteredFormat.numberFormat",
			},
		},
		{
			UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
				Properties: &sheets.SheetProperties{
					SheetId:        txnSheet,
					GridProperties: &sheets.GridProperties{FrozenRowCount: 1},
				},
				Fields: "gridProperties.frozenRowCount",
			},
		},
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range:  &sheets.GridRange{SheetId: summarySheet, StartColumnIndex: 0, EndColumnIndex: 1},
				Cell:   bold,
				Fields: "userEnteredFormat.textFormat",
			},
		},
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range:  &sheets.GridRange{SheetId: summarySheet, StartRowIndex: 2, StartColumnIndex: 1, EndColumnIndex: 2},
				Cell:   currency,
				Fields: "userEnteredFormat.numberFormat",
			},
		},
	}
	for _, id := range []int64{txnSheet, summarySheet} {
		requests = append(requests, &sheets.Request{
			AutoResizeDimensions: &sheets.AutoResizeDimensionsRequest{
				Dimensions: &sheets.DimensionRange{SheetId: id, Dimension: "COLUMNS", StartIndex: 0, EndIndex: int64(len(export.Header))},
			},
		})
	}

	_, err := w.service.Spreadsheets.BatchUpdate(spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{Requests: requests}).Context(ctx).Do()
	return err
}
