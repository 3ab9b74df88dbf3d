package models

// RowAction is what bulk import did with a row
type RowAction string

const (
	RowActionCreated   RowAction = "created"
	RowActionLinked    RowAction = "linked"
	RowActionDuplicate RowAction = "duplicate"
	RowActionFailed    RowAction = "failed"
)

// ImportRow is one bulk import input
type ImportRow struct {
	Candidate    CandidateInput `json:"candidate"`
	JerseyNumber *int           `json:"jersey_number,omitempty"`
}

// RowError describes a row that was rejected
type RowError struct {
	RowIndex int    `json:"row_index"`
	Message  string `json:"message"`
	err      error
}

// NewRowError creates a RowError for the given row
func NewRowError(rowIndex int, err error) RowError {
	return RowError{RowIndex: rowIndex, Message: err.Error(), err: err}
}

// Unwrap returns the underlying error, if known
func (e RowError) Unwrap() error {
	return e.err
}

func (e RowError) Error() string {
	return e.Message
}

// RowOutcome is the per-row report of a bulk import
type RowOutcome struct {
	RowIndex        int       `json:"row_index"`
	Action          RowAction `json:"action"`
	MatchType       MatchType `json:"match_type,omitempty"`
	SimilarityScore float64   `json:"similarity_score"`
	MatchedFields   []string  `json:"matched_fields,omitempty"`
	PlayerID        *int64    `json:"player_id,omitempty"`
	MatchedPlayerID *int64    `json:"matched_player_id,omitempty"`
	Error           string    `json:"error,omitempty"`
}

// BulkImportResult tallies a bulk import
type BulkImportResult struct {
	Created    int          `json:"created"`
	Duplicates int          `json:"duplicates"`
	Linked     int          `json:"linked"`
	Errors     []RowError   `json:"errors"`
	Records    []RowOutcome `json:"records"`
}

// NewBulkImportResult creates an empty tally sized for n rows
func NewBulkImportResult(n int) *BulkImportResult {
	return &BulkImportResult{
		Errors:  []RowError{},
		Records: make([]RowOutcome, 0, n),
	}
}
