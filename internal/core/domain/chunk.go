package domain

import "time"

type DocType string

const (
	DocTypeEarningsCall DocType = "earnings_call"
	DocTypeMeetingNote  DocType = "meeting_note"
)

// KnownDocTypes lists every document type the engine can route.
func KnownDocTypes() []DocType {
	return []DocType{DocTypeEarningsCall, DocTypeMeetingNote}
}

func (t DocType) Known() bool {
	switch t {
	case DocTypeEarningsCall, DocTypeMeetingNote:
		return true
	default:
		return false
	}
}

// Chunk is the atomic retrieval unit: one contiguous span of source text,
// already split by the upstream ingestion collaborator.
type Chunk struct {
	Source  string  `json:"source"`
	Ordinal int     `json:"ordinal"`
	Content string  `json:"content"`
	DocType DocType `json:"docType"`
}

// Metadata holds the type-specific attributes recovered from a source name.
// Earnings calls fill Company/Year/Quarter/ReportDate; meeting notes fill
// MeetingDate (may be empty) and Author.
type Metadata struct {
	DocType     DocType    `json:"docType"`
	Company     string     `json:"company,omitempty"`
	Year        int        `json:"year,omitempty"`
	Quarter     int        `json:"quarter,omitempty"`
	ReportDate  *time.Time `json:"reportDate,omitempty"`
	MeetingDate string     `json:"meetingDate,omitempty"`
	Author      string     `json:"author,omitempty"`
}

// DocumentRecord is one index entry. Re-ingesting a chunk with identical
// content produces the same ID and replaces the record in place.
type DocumentRecord struct {
	ID        string
	Source    string
	Content   string
	Embedding []float32
	Metadata  Metadata
}

// IngestRejection reports one chunk dropped during batch ingestion.
type IngestRejection struct {
	Source  string `json:"source"`
	Ordinal int    `json:"ordinal"`
	Reason  string `json:"reason"`
}

// IngestReport summarizes one batch. Rejections never abort the batch;
// only an unready index does.
type IngestReport struct {
	BatchID  string            `json:"batch_id"`
	Indexed  int               `json:"indexed"`
	Rejected []IngestRejection `json:"rejected,omitempty"`
}
