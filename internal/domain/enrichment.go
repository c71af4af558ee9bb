package domain

import "time"

// JobStatus is the lifecycle state of an enrichment job.
type JobStatus string

// Job states. Completed, failed and cancelled are terminal: the status is
// set exactly once and is then immutable.
const (
	JobQueued     JobStatus = "queued"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
	JobCancelled  JobStatus = "cancelled"
)

// Terminal reports whether the job status admits no further transition.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed || s == JobCancelled
}

// EnrichFilter selects the candidate set for a job.
type EnrichFilter string

const (
	// FilterUnenriched selects approved resources with empty metadata.
	FilterUnenriched EnrichFilter = "unenriched"
	// FilterAll selects approved resources regardless of metadata.
	// Rejected and archived resources are excluded from every filter.
	FilterAll EnrichFilter = "all"
)

// ValidEnrichFilter reports whether f names a known candidate filter.
func ValidEnrichFilter(f EnrichFilter) bool {
	return f == FilterUnenriched || f == FilterAll
}

// EnrichmentJob is one batch run. Counters only move by single conditional
// increments while the job is processing, and processed ==
// successful + failed + skipped at every observable point.
type EnrichmentJob struct {
	ID         string       `gorm:"column:id;primaryKey;type:varchar(36)" json:"id"`
	Filter     EnrichFilter `gorm:"column:filter;index;not null" json:"filter"`
	BatchSize  int          `gorm:"column:batch_size;not null" json:"batch_size"`
	Status     JobStatus    `gorm:"column:status;index;not null;default:queued" json:"status"`
	Total      int          `gorm:"column:total;not null;default:0" json:"total"`
	Processed  int          `gorm:"column:processed;not null;default:0" json:"processed"`
	Successful int          `gorm:"column:successful;not null;default:0" json:"successful"`
	Failed     int          `gorm:"column:failed;not null;default:0" json:"failed"`
	Skipped    int          `gorm:"column:skipped;not null;default:0" json:"skipped"`
	StartedBy  string       `gorm:"column:started_by;index;not null" json:"started_by"`
	CreatedAt  time.Time    `gorm:"column:created_at" json:"created_at"`
	UpdatedAt  time.Time    `gorm:"column:updated_at" json:"updated_at"`
}

// TableName sets the jobs table name.
func (EnrichmentJob) TableName() string { return "enrichment_jobs" }

// ItemStatus is the state of one queue item within a job.
type ItemStatus string

// Queue item states.
const (
	ItemQueued     ItemStatus = "queued"
	ItemProcessing ItemStatus = "processing"
	ItemSucceeded  ItemStatus = "succeeded"
	ItemFailed     ItemStatus = "failed"
	ItemSkipped    ItemStatus = "skipped"
)

// Terminal reports whether the item status admits no further transition.
func (s ItemStatus) Terminal() bool {
	return s == ItemSucceeded || s == ItemFailed || s == ItemSkipped
}

// EnrichmentQueueItem is one resource's unit of work within a job. A resource
// appears at most once per job; Position preserves submission order for
// progress display.
type EnrichmentQueueItem struct {
	ID          string     `gorm:"column:id;primaryKey;type:varchar(36)" json:"id"`
	JobID       string     `gorm:"column:job_id;uniqueIndex:uq_job_resource;index;not null" json:"job_id"`
	ResourceID  string     `gorm:"column:resource_id;uniqueIndex:uq_job_resource;not null" json:"resource_id"`
	Position    int        `gorm:"column:position;not null" json:"position"`
	Status      ItemStatus `gorm:"column:status;index;not null;default:queued" json:"status"`
	Result      Metadata   `gorm:"column:result;type:jsonb" json:"result,omitempty"`
	ErrorDetail *string    `gorm:"column:error_detail" json:"error_detail,omitempty"`
	Attempts    int        `gorm:"column:attempts;not null;default:0" json:"attempts"`
	CreatedAt   time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"column:updated_at" json:"updated_at"`
}

// TableName sets the queue items table name.
func (EnrichmentQueueItem) TableName() string { return "enrichment_queue_items" }

// EnrichmentScopeLock enforces at-most-one-active-job per filter scope. The
// unique filter column makes acquisition a plain insert race, which stays
// correct across multiple server processes.
type EnrichmentScopeLock struct {
	Filter    EnrichFilter `gorm:"column:filter;primaryKey" json:"filter"`
	JobID     string       `gorm:"column:job_id;not null" json:"job_id"`
	CreatedAt time.Time    `gorm:"column:created_at" json:"created_at"`
}

// TableName sets the scope locks table name.
func (EnrichmentScopeLock) TableName() string { return "enrichment_scope_locks" }

// JobSnapshot is the read model returned by job lookups: the job row plus the
// identifiers of already-processed resources in queue order. The list is
// derived from terminal queue items so it cannot drift from item state.
type JobSnapshot struct {
	EnrichmentJob
	ProcessedResourceIDs []string `json:"processed_resource_ids"`
}
