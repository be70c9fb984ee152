package models

import "time"

// Stufen der Pipeline
const (
	JobFetch             = "fetch_papers"
	JobClassify          = "classify_papers"
	JobSummarize         = "generate_summaries"
	JobSendNotifications = "send_notifications"
)

// Status eines JobRuns
const (
	JobRunRunning = "running"
	JobRunSuccess = "success"
	JobRunFailed  = "failed"
)

// Auslöser eines JobRuns
const (
	TriggerScheduler = "scheduler"
	TriggerManual    = "manual"
	TriggerCLI       = "cli"
)

// JobRun protokolliert einen Aufruf einer Pipeline-Stufe.
// Wird beim Start angelegt und genau einmal abgeschlossen.
type JobRun struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	RunID   string `json:"run_id" gorm:"size:36;uniqueIndex;not null"`
	JobName string `json:"job_name" gorm:"size:64;index;not null"`
	Status  string `json:"status" gorm:"size:16;index;not null"`
	Trigger string `json:"trigger" gorm:"size:16"`

	StartedAt      time.Time  `json:"started_at" gorm:"not null"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
	DurationSec    *float64   `json:"duration_sec,omitempty"`
	ItemsProcessed int        `json:"items_processed" gorm:"default:0"`
	ErrorMessage   *string    `json:"error_message,omitempty" gorm:"type:text"`
}

// TableName gibt explizit den Tabellennamen an.
func (JobRun) TableName() string {
	return "job_runs"
}
