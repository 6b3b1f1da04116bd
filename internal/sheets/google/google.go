// Package google appends expense summary snapshots to a Google spreadsheet.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"expensetracker/internal/core"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// DefaultSheetName is the base sheet name; the current year is prefixed.
const DefaultSheetName = "Expense Reports"

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheet         string
}

// New creates a Sheets client for spreadsheetID. sheetBase defaults to
// DefaultSheetName and gets the current year prefixed, e.g. "2025 Expense Reports".
// Credentials come from GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE
// or GOOGLE_APPLICATION_CREDENTIALS.
func New(ctx context.Context, spreadsheetID, sheetBase string) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return newClient(svc, spreadsheetID, sheetBase, time.Now().Year()), nil
}

func newClient(svc *gsheet.Service, spreadsheetID, sheetBase string, year int) *Client {
	sheetBase = strings.TrimSpace(sheetBase)
	if sheetBase == "" {
		sheetBase = DefaultSheetName
	}
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheet:         yearPrefixedName(sheetBase, year),
	}
}

// SheetName returns the year prefixed sheet the client appends to.
func (c *Client) SheetName() string { return c.sheet }

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))

	// Also check the standard Google Cloud environment variable
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
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

// Export appends one dated block: a row per category then the grand total.
// It returns the updated range.
func (c *Client) Export(ctx context.Context, snap core.Snapshot) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	rng := fmt.Sprintf("%s!A:D", c.sheet)
	vr := &gsheet.ValueRange{Values: snapshotRows(snap)}

	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", c.sheet, err)
	}

	ref := rng
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}

	slog.InfoContext(ctx, "Snapshot appended to Google Sheets",
		"range", ref,
		"rows", len(vr.Values))

	return ref, nil
}

// snapshotRows lays out the block as Generated, Category, Department, Amount.
func snapshotRows(snap core.Snapshot) [][]any {
	stamp := snap.GeneratedAt.Format(time.DateTime)
	rows := make([][]any, 0, len(snap.Summary.ByCategory)+1)
	for _, ca := range snap.Summary.ByCategory {
		rows = append(rows, []any{stamp, ca.Category.String(), core.DepartmentFor(ca.Category).String(), ca.Amount.Units()})
	}
	rows = append(rows, []any{stamp, "GRAND TOTAL", "", snap.Summary.GrandTotal.Units()})
	return rows
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
