package models

import (
	"time"

	"gorm.io/datatypes"
)

// Status der Klassifikation
const (
	ClassificationPending   = "pending"
	ClassificationCompleted = "completed"
	ClassificationFailed    = "failed"
)

// Status der Zusammenfassung
const (
	SummarizationPending    = "pending"
	SummarizationProcessing = "processing"
	SummarizationCompleted  = "completed"
	SummarizationFailed     = "failed"
)

// Paper repräsentiert eine wissenschaftliche Studie und deren Metadaten.
// Identität: ExternalID (PMID) oder DOI oder Titel (ohne Groß-/Kleinschreibung).
type Paper struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ExternalID *string `json:"external_id,omitempty" gorm:"column:external_id;uniqueIndex"`
	DOI        *string `json:"doi,omitempty" gorm:"column:doi;uniqueIndex"`
	Title      string  `json:"title" gorm:"not null"`

	Abstract        *string                     `json:"abstract,omitempty" gorm:"type:text"`
	Authors         datatypes.JSONSlice[string] `json:"authors" gorm:"type:jsonb"`
	Source          string                      `json:"source" gorm:"index"`
	PublicationDate time.Time                   `json:"publication_date" gorm:"index"`
	Link            string                      `json:"link,omitempty"`
	OpenAccessURL   string                      `json:"open_access_url,omitempty"`

	// Klassifikation
	ClassificationStatus     string                      `json:"classification_status" gorm:"index;default:pending"`
	TopicLabels              datatypes.JSONSlice[string] `json:"topic_labels" gorm:"type:jsonb"`
	ResearchType             *string                     `json:"research_type,omitempty" gorm:"index"`
	ClassificationConfidence *float64                    `json:"classification_confidence,omitempty"`

	// Zusammenfassung
	SummarizationStatus string   `json:"summarization_status" gorm:"index;default:pending"`
	Summary             *Summary `json:"summary,omitempty" gorm:"foreignKey:PaperID"`
}

// TableName gibt explizit den Tabellennamen an.
func (Paper) TableName() string {
	return "papers"
}

// HasAbstract meldet, ob ein nicht-leeres Abstract vorliegt.
func (p *Paper) HasAbstract() bool {
	return p.Abstract != nil && *p.Abstract != ""
}

// HasLabel prüft, ob das Paper eines der Labels trägt.
func (p *Paper) HasLabel(labels ...string) bool {
	for _, have := range p.TopicLabels {
		for _, want := range labels {
			if have == want {
				return true
			}
		}
	}
	return false
}
