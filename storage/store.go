// Package storage kapselt die Persistenz der Pipeline (PostgreSQL via gorm,
// eine In-Memory-Variante für Tests und das optionale S3-Archiv).
package storage

import (
	"errors"
	"time"
)

// ErrNotFound wird zurückgegeben, wenn kein passender Datensatz existiert.
var ErrNotFound = errors.New("datensatz nicht gefunden")

// Sortierungen des Feeds
const (
	SortDateDesc  = "date_desc"
	SortDateAsc   = "date_asc"
	SortTitleAsc  = "title_asc"
	SortTitleDesc = "title_desc"
	SortSourceAsc = "source_asc"
)

// FeedQuery enthält die in die Datenbank verlagerten Feed-Filter.
// Leere Listen bedeuten "kein Filter"; Limit 0 bedeutet unbegrenzt.
type FeedQuery struct {
	Statuses      []string
	ResearchTypes []string
	Sources       []string
	From          *time.Time // inklusive
	Before        *time.Time // exklusive
	Sort          string
	Offset        int
	Limit         int
}

// Spaltengruppen der Pipeline-Stufen. UpdatePaper schreibt nur die
// übergebene Gruppe, damit eine Stufe nicht den Stand einer anderen überschreibt.
var (
	ClassificationColumns = []string{"topic_labels", "research_type", "classification_confidence", "classification_status"}
	SummarizationColumns  = []string{"summarization_status"}
	IdentityColumns       = []string{"external_id", "abstract"}
)

// UniqueViolation meldet, dass eine eindeutige Spalte bereits belegt ist.
type UniqueViolation struct {
	Column string
}

func (e *UniqueViolation) Error() string {
	return "eindeutigkeit verletzt: " + e.Column
}
