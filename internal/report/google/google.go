// Package google reads task exports from and writes summaries to Google
// Sheets using service-account credentials.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"drawsum/internal/core"
	"drawsum/internal/report/csvfile"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	inputSheet    string
	outputSheet   string
}

// NewFromEnv creates a Sheets client using environment variables.
// Required: GOOGLE_SPREADSHEET_ID
// Optional sheet names: GOOGLE_INPUT_SHEET_NAME (default "Tasks"),
// GOOGLE_OUTPUT_SHEET_NAME (default "Summary").
// Credentials: GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS.
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	inputSheet := strings.TrimSpace(os.Getenv("GOOGLE_INPUT_SHEET_NAME"))
	if inputSheet == "" {
		inputSheet = "Tasks"
	}
	outputSheet := strings.TrimSpace(os.Getenv("GOOGLE_OUTPUT_SHEET_NAME"))
	if outputSheet == "" {
		outputSheet = "Summary"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		inputSheet:    inputSheet,
		outputSheet:   outputSheet,
	}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// Parse reads the input sheet into task records. The ref argument names the
// sheet to read, falling back to the configured input sheet when empty.
func (c *Client) Parse(ctx context.Context, ref string) ([]core.TaskRecord, core.ParseMeta, error) {
	if c.svc == nil {
		return nil, core.ParseMeta{}, errors.New("sheets service not initialized")
	}
	sheet := strings.TrimSpace(ref)
	if sheet == "" {
		sheet = c.inputSheet
	}

	rng := fmt.Sprintf("%s!A:Z", sheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, core.ParseMeta{}, fmt.Errorf("read %s: %w", rng, err)
	}

	var (
		records []core.TaskRecord
		meta    core.ParseMeta
		cols    csvfile.ColumnMap
		found   bool
	)
	for _, raw := range resp.Values {
		row := toStrings(raw)
		if !found {
			if cols, found = csvfile.DetectColumns(row); !found {
				continue
			}
			continue
		}
		if rec, ok := csvfile.RecordFromRow(row, cols, &meta); ok {
			records = append(records, rec)
		}
	}
	if !found {
		return nil, core.ParseMeta{}, fmt.Errorf("sheet %s has no header row with lot, plan, task and amount columns", sheet)
	}

	slog.InfoContext(ctx, "Parsed task sheet",
		"sheet", sheet,
		"rows_parsed", meta.RowsParsed,
		"rows_skipped", meta.RowsSkipped)
	return records, meta, nil
}

// Render replaces the output sheet contents with the summary table, the run
// totals, and the QA appendix, and returns the written range reference.
func (c *Client) Render(ctx context.Context, name string, res *core.Result) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	values := summaryValues(res)

	clearRange := fmt.Sprintf("%s!A:ZZ", c.outputSheet)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, clearRange, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("clear %s: %w", clearRange, err)
	}

	writeRange := fmt.Sprintf("%s!A1", c.outputSheet)
	vr := &gsheet.ValueRange{Values: values}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, writeRange, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("write %s: %w", writeRange, err)
	}

	ref := fmt.Sprintf("%s!A1", c.outputSheet)
	slog.InfoContext(ctx, "Rendered summary sheet",
		"job", name,
		"sheet", c.outputSheet,
		"rows", len(res.Rows),
		"columns", len(res.Columns))
	return ref, nil
}

// summaryValues lays the result out exactly like the CSV renderer so the two
// backends stay comparable. Amounts go out as numbers, not strings, so sheet
// formulas keep working.
func summaryValues(res *core.Result) [][]any {
	var values [][]any

	header := []any{"Lot/Block", "Plan"}
	for _, col := range res.Columns {
		header = append(header, col)
	}
	header = append(header, "Total")
	values = append(values, header)

	for _, row := range res.Rows {
		out := []any{row.LotBlock, row.Plan}
		for _, col := range res.Columns {
			if cents, ok := row.Cells[col]; ok {
				out = append(out, core.Money{Cents: cents}.Dollars())
			} else {
				out = append(out, "")
			}
		}
		out = append(out, core.Money{Cents: row.TotalCents}.Dollars())
		values = append(values, out)
	}

	values = append(values,
		[]any{},
		[]any{"Grand Total", core.Money{Cents: res.TotalCents}.Dollars()},
		[]any{"Labor (43%)", core.Money{Cents: res.LaborCents}.Dollars()},
		[]any{"Material (28%)", core.Money{Cents: res.MaterialCents}.Dollars()},
		[]any{},
		[]any{"QA Report"},
		[]any{"Rows seen", res.QA.Parse.RowsSeen},
		[]any{"Rows parsed", res.QA.Parse.RowsParsed},
		[]any{"Rows skipped (parse)", res.QA.Parse.RowsSkipped},
		[]any{"Rows skipped (aggregation)", res.QA.RowsSkippedAggregation},
	)
	if len(res.QA.CreatedCategories) > 0 {
		values = append(values, []any{}, []any{"Auto-created categories"})
		for _, cc := range res.QA.CreatedCategories {
			row := []any{cc.Name}
			for _, ex := range cc.Examples {
				row = append(row, ex)
			}
			values = append(values, row)
		}
	}
	if len(res.QA.UnmappedExamples) > 0 {
		values = append(values, []any{}, []any{"Top unmapped task texts"})
		for _, u := range res.QA.UnmappedExamples {
			values = append(values, []any{u.Text, u.Count})
		}
	}
	if len(res.QA.SuspiciousRows) > 0 {
		values = append(values, []any{}, []any{"Suspicious rows"})
		for _, s := range res.QA.SuspiciousRows {
			values = append(values, []any{s.LotBlock, s.Plan, core.Money{Cents: s.TotalCents}.Dollars(), s.Reason})
		}
	}
	return values
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}
