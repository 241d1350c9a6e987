package model

import (
	"encoding/json"
	"time"
)

// Item status constants
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusExtracting = "extracting"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Source-file states
const (
	FileStatePending   = "pending"
	FileStateExtracted = "extracted"
	FileStateErrored   = "errored"
)

// Batch modes
const (
	// ModeDirect uses the documents attached to each row.
	ModeDirect = "direct"
	// ModeFolder matches library documents against each row's article
	// number by case-insensitive filename prefix.
	ModeFolder = "folder"
)

// LibraryFile is an uploaded document in the tenant's shared library.
type LibraryFile struct {
	ID         string    `json:"id"`
	Tenant     string    `json:"-"`
	Filename   string    `json:"filename"`
	ObjectName string    `json:"-"`
	FileURL    string    `json:"file_url"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// SourceFile is one document feeding a single item's combined text. It is
// owned by exactly one DocumentAggregator; State is one of the
// FileState constants.
type SourceFile struct {
	ID        string `json:"id"`
	Filename  string `json:"filename"`
	FileURL   string `json:"-"`
	State     string `json:"state"`
	Text      string `json:"-"`
	PageCount int    `json:"page_count"`
	CharCount int    `json:"char_count"`
	WordCount int    `json:"word_count"`
	Error     string `json:"error,omitempty"`
}

// PropertyField names one property to extract and its expected type.
type PropertyField struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// PropertyValue is one extracted property. The extraction service may
// return either a bare value or an annotated object; both forms decode
// into this struct so nothing downstream has to deal with untyped data.
type PropertyValue struct {
	Value      any      `json:"value"`
	Sources    []string `json:"sources,omitempty"`
	Confidence string   `json:"confidence,omitempty"`
}

// UnmarshalJSON accepts either {"value":...,"sources":[...],"confidence":"..."}
// or a bare JSON scalar.
func (p *PropertyValue) UnmarshalJSON(data []byte) error {
	type alias PropertyValue
	var full alias
	if err := json.Unmarshal(data, &full); err == nil && (full.Value != nil || full.Confidence != "" || full.Sources != nil) {
		*p = PropertyValue(full)
		return nil
	}

	var bare any
	if err := json.Unmarshal(data, &bare); err != nil {
		return err
	}
	p.Value = bare
	p.Sources = nil
	p.Confidence = "none"
	return nil
}

// ExtractionResult is the structured answer of the extraction service.
type ExtractionResult struct {
	Properties   map[string]PropertyValue `json:"properties"`
	SearchMethod string                   `json:"search_method,omitempty"`
}

// StatusRecord tracks one item's progress. It is written only by the
// pipeline owning the item and read through the run store.
type StatusRecord struct {
	Status       string            `json:"status"`
	Progress     int               `json:"progress"`
	Result       *ExtractionResult `json:"result,omitempty"`
	Error        string            `json:"error,omitempty"`
	DocumentText string            `json:"document_text,omitempty"`
	WebText      string            `json:"web_text,omitempty"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// Terminal reports whether the record reached a final state.
func (r *StatusRecord) Terminal() bool {
	return r.Status == StatusCompleted || r.Status == StatusFailed
}

// ExtractionItem is one article/product unit of work.
type ExtractionItem struct {
	ID            string       `json:"id"`
	ArticleNumber string       `json:"article_number,omitempty"`
	ProductName   string       `json:"product_name"`
	URL           string       `json:"url,omitempty"`
	FileIDs       []string     `json:"file_ids,omitempty"`
	Files         []SourceFile `json:"files,omitempty"`
	Status        StatusRecord `json:"status"`
}

// BatchRun is one launched batch with its items and tally.
type BatchRun struct {
	ID          string            `json:"id"`
	Tenant      string            `json:"-"`
	Mode        string            `json:"mode"`
	Items       []*ExtractionItem `json:"items"`
	Properties  []PropertyField   `json:"properties"`
	Parallelism int               `json:"parallelism"`
	Status      string            `json:"status"`
	Completed   int               `json:"completed"`
	Failed      int               `json:"failed"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}
