package google

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"finance/internal/config"
	"finance/internal/period"
	"finance/internal/report"

	gsheet "google.golang.org/api/sheets/v4"
)

func TestNewFromConfig_MissingSpreadsheetID(t *testing.T) {
	_, err := NewFromConfig(context.Background(), &config.Config{}, nil)
	if err == nil {
		t.Fatal("expected error for missing GOOGLE_SPREADSHEET_ID")
	}
	if err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	path := filepath.Join(t.TempDir(), "sa.json")
	if err := os.WriteFile(path, []byte(`{"from":"file"}`), 0600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		inline  string
		path    string
		want    string
		wantErr string
	}{
		{name: "inline wins", inline: `{"from":"inline"}`, path: path, want: `{"from":"inline"}`},
		{name: "file", path: path, want: `{"from":"file"}`},
		{name: "missing file", path: filepath.Join(t.TempDir(), "nope.json"), wantErr: "read service account file"},
		{name: "nothing configured", wantErr: "missing service account credentials"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := credentials(tt.inline, tt.path)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("credentials() error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("credentials() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("credentials() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestCredentials_ApplicationDefaultPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "adc.json")
	if err := os.WriteFile(path, []byte(`{}`), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", path)

	got, err := credentials("", "")
	if err != nil || string(got) != "{}" {
		t.Fatalf("credentials() = %q, %v", got, err)
	}
}

func TestQuoteRange(t *testing.T) {
	tests := []struct {
		tab, cells, want string
	}{
		{"2024", "A1", "'2024'!A1"},
		{"Week of March 04, 2024", "A:Z", "'Week of March 04, 2024'!A:Z"},
		{"Bob's", "A1", "'Bob''s'!A1"},
	}
	for _, tt := range tests {
		if got := quoteRange(tt.tab, tt.cells); got != tt.want {
			t.Errorf("quoteRange(%q, %q) = %q, want %q", tt.tab, tt.cells, got, tt.want)
		}
	}
}

func TestHasTab(t *testing.T) {
	ss := &gsheet.Spreadsheet{Sheets: []*gsheet.Sheet{
		{Properties: &gsheet.SheetProperties{Title: "March, 2024"}},
		{},
	}}
	if !hasTab(ss, "March, 2024") {
		t.Error("expected existing tab to be found")
	}
	if hasTab(ss, "April, 2024") || hasTab(nil, "March, 2024") {
		t.Error("unexpected tab match")
	}
}

func TestExportRegister_NotInitialized(t *testing.T) {
	c := &Client{spreadsheetID: "test"}
	r := report.Report{Window: period.NewWindow(period.Year, period.Epoch)}
	if _, err := c.ExportRegister(context.Background(), r); err == nil {
		t.Fatal("expected error with nil service")
	}
}
