package metadata

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/corvelia/finrag/internal/core/domain"
)

func TestExtractEarningsCall(t *testing.T) {
	e := NewExtractor(nil, "")

	meta, err := e.Extract("transcripts/aapl-2024-2.txt", domain.DocTypeEarningsCall)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if meta.Company != "Apple" {
		t.Fatalf("expected Apple, got %s", meta.Company)
	}
	if meta.Year != 2024 || meta.Quarter != 2 {
		t.Fatalf("unexpected year/quarter: %d/%d", meta.Year, meta.Quarter)
	}
	want := time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC)
	if meta.ReportDate == nil || !meta.ReportDate.Equal(want) {
		t.Fatalf("expected report date %s, got %v", want, meta.ReportDate)
	}
}

func TestExtractEarningsCallQuarterMonths(t *testing.T) {
	e := NewExtractor(nil, "")
	wantMonths := map[string]time.Month{
		"a-2023-1.txt": time.January,
		"a-2023-2.txt": time.April,
		"a-2023-3.txt": time.July,
		"a-2023-4.txt": time.October,
	}
	for name, month := range wantMonths {
		meta, err := e.Extract(name, domain.DocTypeEarningsCall)
		if err != nil {
			t.Fatalf("Extract(%s) error = %v", name, err)
		}
		if meta.ReportDate.Month() != month {
			t.Fatalf("%s: expected month %s, got %s", name, month, meta.ReportDate.Month())
		}
	}
}

func TestExtractEarningsCallInvalidFormat(t *testing.T) {
	e := NewExtractor(nil, "")
	cases := []string{
		"aapl-2024.txt",
		"AAPL-2024-2.txt",
		"aapl-2024-5.txt",
		"aapl-2024-2.pdf",
		"notes.txt",
	}
	for _, name := range cases {
		if _, err := e.Extract(name, domain.DocTypeEarningsCall); !domain.IsKind(err, domain.ErrInvalidFormat) {
			t.Fatalf("%s: expected ErrInvalidFormat, got %v", name, err)
		}
	}
}

func TestExtractEarningsCallUnknownCode(t *testing.T) {
	e := NewExtractor(nil, "")
	_, err := e.Extract("msft-2024-1.txt", domain.DocTypeEarningsCall)
	if !domain.IsKind(err, domain.ErrUnknownCompanyCode) {
		t.Fatalf("expected ErrUnknownCompanyCode, got %v", err)
	}
}

func TestExtractMeetingNoteWithDate(t *testing.T) {
	e := NewExtractor(nil, "reuben")
	meta, err := e.Extract("meeting-notes/2026-01-28-standup.txt", domain.DocTypeMeetingNote)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if meta.MeetingDate != "2026-01-28" {
		t.Fatalf("expected meeting date 2026-01-28, got %q", meta.MeetingDate)
	}
	if meta.Author != "reuben" {
		t.Fatalf("expected author reuben, got %q", meta.Author)
	}
}

func TestExtractMeetingNoteWithoutDate(t *testing.T) {
	e := NewExtractor(nil, "reuben")
	meta, err := e.Extract("meeting-notes/retro.txt", domain.DocTypeMeetingNote)
	if err != nil {
		t.Fatalf("missing date must not be an error, got %v", err)
	}
	if meta.MeetingDate != "" {
		t.Fatalf("expected empty meeting date, got %q", meta.MeetingDate)
	}
}

func TestExtractUnknownDocType(t *testing.T) {
	e := NewExtractor(nil, "")
	_, err := e.Extract("x.txt", domain.DocType("press_release"))
	if !domain.IsKind(err, domain.ErrUnknownDocType) {
		t.Fatalf("expected ErrUnknownDocType, got %v", err)
	}
}

func TestLoadCompanyTable(t *testing.T) {
	dir := t.TempDir()
	filePath := filepath.Join(dir, "companies.yaml")
	if err := os.WriteFile(filePath, []byte("goog: Google\nnvda: Nvidia\n"), 0o644); err != nil {
		t.Fatalf("write table: %v", err)
	}

	table, err := LoadCompanyTable(filePath)
	if err != nil {
		t.Fatalf("LoadCompanyTable() error = %v", err)
	}
	if table["goog"] != "Google" || table["nvda"] != "Nvidia" {
		t.Fatalf("unexpected table contents: %+v", table)
	}

	e := NewExtractor(table, "")
	if _, err := e.Extract("goog-2025-3.txt", domain.DocTypeEarningsCall); err != nil {
		t.Fatalf("Extract with loaded table: %v", err)
	}
	if _, err := e.Extract("aapl-2025-3.txt", domain.DocTypeEarningsCall); !domain.IsKind(err, domain.ErrUnknownCompanyCode) {
		t.Fatalf("loaded table must replace defaults, got %v", err)
	}
}
