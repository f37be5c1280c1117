// Package metadata recovers structured attributes from source identifiers
// under the per-document-type naming contracts.
package metadata

import (
	"fmt"
	"os"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/corvelia/finrag/internal/core/domain"
)

// CompanyTable is the closed table resolving ticker-style codes to names.
type CompanyTable map[string]string

func DefaultCompanyTable() CompanyTable {
	return CompanyTable{
		"a":    "Agilent",
		"aapl": "Apple",
		"amzn": "Amazon",
		"bx":   "BlackStone",
	}
}

// LoadCompanyTable reads a YAML mapping of code to company name.
func LoadCompanyTable(filePath string) (CompanyTable, error) {
	raw, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read company table: %w", err)
	}
	var table CompanyTable
	if err := yaml.Unmarshal(raw, &table); err != nil {
		return nil, fmt.Errorf("parse company table yaml: %w", err)
	}
	if len(table) == 0 {
		return nil, fmt.Errorf("company table %s is empty", filePath)
	}
	return table, nil
}

// Earnings-call sources must look like aapl-2024-2.txt.
var earningsCallPattern = regexp.MustCompile(`^([a-z]+)-(\d{4})-([1-4])\.txt$`)

// Meeting notes have no strict convention; a date is recovered if present.
var meetingDatePattern = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)

type Extractor struct {
	companies     CompanyTable
	defaultAuthor string
}

func NewExtractor(companies CompanyTable, defaultAuthor string) *Extractor {
	if len(companies) == 0 {
		companies = DefaultCompanyTable()
	}
	return &Extractor{
		companies:     companies,
		defaultAuthor: defaultAuthor,
	}
}

func (e *Extractor) Extract(sourceName string, docType domain.DocType) (domain.Metadata, error) {
	switch docType {
	case domain.DocTypeEarningsCall:
		return e.extractEarningsCall(sourceName)
	case domain.DocTypeMeetingNote:
		return e.extractMeetingNote(sourceName), nil
	default:
		return domain.Metadata{}, domain.WrapError(
			domain.ErrUnknownDocType,
			"extract metadata",
			fmt.Errorf("doc type %q", docType),
		)
	}
}

func (e *Extractor) extractEarningsCall(sourceName string) (domain.Metadata, error) {
	filename := path.Base(sourceName)

	match := earningsCallPattern.FindStringSubmatch(filename)
	if match == nil {
		return domain.Metadata{}, domain.WrapError(
			domain.ErrInvalidFormat,
			"extract earnings call metadata",
			fmt.Errorf("source %q does not match <code>-<year>-<quarter>.txt", sourceName),
		)
	}

	code := match[1]
	year, _ := strconv.Atoi(match[2])
	quarter, _ := strconv.Atoi(match[3])

	company, ok := e.companies[code]
	if !ok {
		return domain.Metadata{}, domain.WrapError(
			domain.ErrUnknownCompanyCode,
			"extract earnings call metadata",
			fmt.Errorf("code %q", code),
		)
	}

	reportDate := quarterStart(year, quarter)
	return domain.Metadata{
		DocType:    domain.DocTypeEarningsCall,
		Company:    company,
		Year:       year,
		Quarter:    quarter,
		ReportDate: &reportDate,
	}, nil
}

// quarterStart is the first day of the quarter's first month:
// 1 -> January, 2 -> April, 3 -> July, 4 -> October.
func quarterStart(year, quarter int) time.Time {
	month := time.Month((quarter-1)*3 + 1)
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
}

func (e *Extractor) extractMeetingNote(sourceName string) domain.Metadata {
	filename := strings.ToLower(path.Base(sourceName))

	// Absence of a date is not an error; meeting notes are named freely.
	meetingDate := meetingDatePattern.FindString(filename)

	return domain.Metadata{
		DocType:     domain.DocTypeMeetingNote,
		MeetingDate: meetingDate,
		Author:      e.defaultAuthor,
	}
}
