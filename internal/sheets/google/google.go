package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"finance/internal/config"
	"finance/internal/log"
	"finance/internal/report"
	ports "finance/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	logger        *log.Logger
}

// Ensure interface conformance
var _ ports.RegisterExporter = (*Client)(nil)

// NewFromConfig creates a Sheets client from the service account settings in
// cfg. Inline JSON wins over the credentials file.
func NewFromConfig(ctx context.Context, cfg *config.Config, logger *log.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.GoogleSpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	credentialsJSON, err := credentials(cfg.GoogleServiceAccountJSON, cfg.GoogleServiceAccountFile)
	if err != nil {
		return nil, err
	}
	return New(ctx, cfg.GoogleSpreadsheetID, credentialsJSON, logger)
}

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, spreadsheetID string, credentialsJSON []byte, logger *log.Logger) (*Client, error) {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentSheets)

	logger.InfoContext(ctx, "Creating Google Sheets service with Service Account",
		"credentials_size", len(credentialsJSON),
		"scope", gsheet.SpreadsheetsScope)

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &Client{svc: svc, spreadsheetID: spreadsheetID, logger: logger}, nil
}

func credentials(inline, path string) ([]byte, error) {
	inline = strings.TrimSpace(inline)
	path = strings.TrimSpace(path)
	if inline == "" && path == "" {
		path = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case inline != "":
		return []byte(inline), nil
	case path != "":
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// ExportRegister replaces the contents of the report's tab, creating the tab
// on first export. The returned reference is the written range.
func (c *Client) ExportRegister(ctx context.Context, r report.Report) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	tab := ports.TabName(r)

	if err := c.ensureTab(ctx, tab); err != nil {
		return "", err
	}

	all := quoteRange(tab, "A:Z")
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, all, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("failed to clear sheet %s: %w", tab, err)
	}

	vr := &gsheet.ValueRange{Values: ports.Rows(r)}
	resp, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, quoteRange(tab, "A1"), vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to update sheet %s: %w", tab, err)
	}

	c.logger.InfoContext(ctx, "Exported register",
		log.FieldGranularity, r.Window.Granularity.String(),
		log.FieldPeriodStart, r.Window.Start.String(),
		"rows", len(vr.Values),
		log.FieldExportRef, resp.UpdatedRange)
	return resp.UpdatedRange, nil
}

func (c *Client) ensureTab(ctx context.Context, tab string) error {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read spreadsheet %s: %w", c.spreadsheetID, err)
	}
	if hasTab(ss, tab) {
		return nil
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{
				Properties: &gsheet.SheetProperties{Title: tab},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %s: %w", tab, err)
	}
	c.logger.InfoContext(ctx, "Created register tab", "tab", tab)
	return nil
}

func hasTab(ss *gsheet.Spreadsheet, tab string) bool {
	if ss == nil {
		return false
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == tab {
			return true
		}
	}
	return false
}

// quoteRange builds an A1 range for a tab whose title may contain spaces.
func quoteRange(tab, cells string) string {
	return fmt.Sprintf("'%s'!%s", strings.ReplaceAll(tab, "'", "''"), cells)
}
