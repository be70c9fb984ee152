package models

import (
	"time"

	"gorm.io/datatypes"
)

// Summary ist die strukturierte KI-Zusammenfassung eines Papers (1:1).
type Summary struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	PaperID uint `json:"paper_id" gorm:"uniqueIndex;not null"`

	Objective         *string                     `json:"objective" gorm:"type:text"`
	Methods           *string                     `json:"methods" gorm:"type:text"`
	Results           *string                     `json:"results" gorm:"type:text"`
	Conclusion        *string                     `json:"conclusion" gorm:"type:text"`
	ClinicalRelevance *string                     `json:"clinical_relevance" gorm:"type:text"`
	KeyPoints         datatypes.JSONSlice[string] `json:"key_points" gorm:"type:jsonb"`

	ModelUsed string `json:"model_used"`
}

// TableName gibt explizit den Tabellennamen an.
func (Summary) TableName() string {
	return "summaries"
}
