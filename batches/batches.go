// Package batches provides the typed binding for the Loupe batches
// reporting API. A batch is a server-side grouping of asynchronous tasks
// processed together; this package lists them with filters and pagination
// and fetches single batches by uid.
//
// All types in this package are detached value objects: once decoded they
// hold no reference to the client or the network. The server is
// authoritative for every invariant (progress percentages, histogram sums);
// nothing is validated locally.
package batches

import (
	"encoding/json"
	"time"
)

// Batch is one server-side unit of asynchronous work. Progress, duration,
// timestamps and strategy are present only while or after the batch is
// processing.
type Batch struct {
	// Uid is the unique identifier of the batch, immutable once assigned.
	Uid int64 `json:"uid"`

	// Progress is the in-flight completion snapshot; nil once finished or
	// before processing starts.
	Progress *Progress `json:"progress,omitempty"`

	// Stats aggregates the task counters for the batch.
	Stats Stats `json:"stats"`

	// Duration is the total elapsed processing time in ISO 8601 format.
	Duration *string `json:"duration,omitempty"`

	// StartedAt is when the batch started processing.
	StartedAt *time.Time `json:"startedAt,omitempty"`

	// FinishedAt is when the batch finished processing.
	FinishedAt *time.Time `json:"finishedAt,omitempty"`

	// BatchStrategy is the reason the server stopped adding tasks to this
	// batch. Empty when the server did not report one.
	BatchStrategy Strategy `json:"batchStrategy,omitempty"`
}

// Progress is a snapshot of a batch's completion state. Percentage is
// monotonically non-decreasing across successive fetches of the same batch.
type Progress struct {
	Steps      []ProgressStep `json:"steps"`
	Percentage float64        `json:"percentage"`
}

// ProgressStep is one named phase of batch progress.
type ProgressStep struct {
	CurrentStep string `json:"currentStep"`
	Finished    int    `json:"finished"`
	Total       int    `json:"total"`
}

// Stats aggregates the task counters reported for a batch. The sum of the
// status histogram entries never exceeds TotalNbTasks.
type Stats struct {
	// TotalNbTasks is the number of tasks grouped into the batch.
	TotalNbTasks int `json:"totalNbTasks"`

	// Status counts tasks by status (enqueued, succeeded, ...).
	Status StatusHistogram `json:"status,omitempty"`

	// Types counts tasks by type (documentAdditionOrUpdate, ...).
	Types TypeHistogram `json:"types,omitempty"`

	// IndexedUids counts tasks per affected index uid.
	IndexedUids map[string]int `json:"indexedUids,omitempty"`

	// ProgressTrace is a free-form map of internal timing traces.
	ProgressTrace map[string]string `json:"progressTrace,omitempty"`

	// WriteChannelCongestion reports write-channel back pressure during the
	// batch; nil when the server did not measure it.
	WriteChannelCongestion *WriteChannelCongestion `json:"writeChannelCongestion,omitempty"`

	// InternalDatabaseSizes reports the on-disk size of the server's
	// internal databases after the batch; nil when not reported.
	InternalDatabaseSizes *InternalDatabaseSizes `json:"internalDatabaseSizes,omitempty"`
}

// WriteChannelCongestion reports how often the indexer blocked on its write
// channel while processing the batch.
type WriteChannelCongestion struct {
	Attempts         int     `json:"attempts"`
	BlockingAttempts int     `json:"blockingAttempts"`
	BlockingRatio    float64 `json:"blockingRatio"`
}

// InternalDatabaseSizes reports the size of each internal database as a
// human-readable string (e.g. "2.5 MiB"), exactly as the server formats it.
type InternalDatabaseSizes struct {
	ExternalDocumentsId    string `json:"externalDocumentsId"`
	WordDocsId             string `json:"wordDocsId"`
	WordPairProximityIds   string `json:"wordPairProximityIds"`
	WordPositionDocIds     string `json:"wordPositionDocIds"`
	WordFidDocIds          string `json:"wordFidDocIds"`
	FieldIdWordCountDocIds string `json:"fieldIdWordCountDocIds"`
	Documents              string `json:"documents"`
}

// StatusHistogram maps a task status to the number of tasks in that status.
// Absent statuses are unreported, not zero. The mapping form (instead of a
// struct with one optional slot per status) keeps the client tolerant of
// statuses added by newer servers.
type StatusHistogram map[string]int

// Known task statuses.
const (
	StatusEnqueued   = "enqueued"
	StatusProcessing = "processing"
	StatusSucceeded  = "succeeded"
	StatusFailed     = "failed"
	StatusCanceled   = "canceled"
)

// TypeHistogram maps a task type to the number of tasks of that type.
// Absent types are unreported, not zero.
type TypeHistogram map[string]int

// Known task types.
const (
	TypeIndexCreation            = "indexCreation"
	TypeIndexUpdate              = "indexUpdate"
	TypeIndexDeletion            = "indexDeletion"
	TypeIndexSwap                = "indexSwap"
	TypeDocumentAdditionOrUpdate = "documentAdditionOrUpdate"
	TypeDocumentDeletion         = "documentDeletion"
	TypeDocumentEdition          = "documentEdition"
	TypeSettingsUpdate           = "settingsUpdate"
	TypeDumpCreation             = "dumpCreation"
	TypeTaskCancellation         = "taskCancellation"
	TypeTaskDeletion             = "taskDeletion"
	TypeUpgradeDatabase          = "upgradeDatabase"
	TypeSnapshotCreation         = "snapshotCreation"
)

// Strategy is the reason the server's batch accumulation stopped adding
// tasks to a batch. The set of values is open: servers may introduce new
// strategies between client releases, so decoding never fails on an
// unrecognized value. It yields StrategyUnknown instead.
type Strategy string

const (
	// StrategySizeLimitReached means the batch reached its configured size
	// threshold.
	StrategySizeLimitReached Strategy = "size_limit_reached"

	// StrategyTimeLimitReached means the batch reached its configured time
	// window threshold.
	StrategyTimeLimitReached Strategy = "time_limit_reached"

	// StrategyUnknown is the catch-all for strategy values this client
	// release does not know about.
	StrategyUnknown Strategy = "unknown"
)

// knownStrategies is the closed set of wire values this release decodes to
// themselves; everything else becomes StrategyUnknown.
var knownStrategies = map[Strategy]bool{
	StrategySizeLimitReached: true,
	StrategyTimeLimitReached: true,
}

// UnmarshalJSON decodes a wire string into a Strategy, mapping unrecognized
// values to StrategyUnknown rather than failing.
func (s *Strategy) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	decoded := Strategy(raw)
	if !knownStrategies[decoded] {
		decoded = StrategyUnknown
	}
	*s = decoded
	return nil
}

// MarshalJSON emits the canonical wire string. The field is server-reported;
// the Unknown arm re-encodes as "unknown" since the original wire value is
// not retained.
func (s Strategy) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(s))
}

// ResultsPage is one page of a batches listing plus its pagination cursors.
type ResultsPage struct {
	// Results holds the batches of this page, most recent first unless the
	// query reversed the order.
	Results []Batch `json:"results"`

	// Total is the total number of batches matching the query.
	Total int `json:"total"`

	// Limit is the page size the server applied.
	Limit int `json:"limit"`

	// From is the uid this page started at; nil on an empty first page.
	From *int64 `json:"from,omitempty"`

	// Next is the cursor for the following page; nil means this is the
	// last page.
	Next *int64 `json:"next,omitempty"`
}

// HasNext reports whether more pages exist after this one.
func (p *ResultsPage) HasNext() bool {
	return p.Next != nil
}
