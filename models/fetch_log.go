package models

import "time"

// Ergebnis eines Quellabrufs
const (
	FetchSuccess = "success"
	FetchFailure = "failure"
)

// SourceFetchLog ist ein reiner Beobachtungsdatensatz pro Quelle und Abruf.
type SourceFetchLog struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	SourceName   string    `json:"source_name" gorm:"index;not null"`
	SourceKind   string    `json:"source_kind"`
	FetchedAt    time.Time `json:"fetched_at" gorm:"index"`
	Status       string    `json:"status" gorm:"size:16"`
	NumFetched   int       `json:"num_fetched"`
	NumPapers    int       `json:"num_papers"`
	ErrorMessage *string   `json:"error_message,omitempty" gorm:"type:text"`
}

// TableName gibt explizit den Tabellennamen an.
func (SourceFetchLog) TableName() string {
	return "source_fetch_logs"
}
