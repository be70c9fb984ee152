// Package europepmc fragt die REST-Suche von Europe PMC nach Zeitschrift und Zeitraum ab.
package europepmc

import "time"

// SearchResponse ist die Top-Level-Struktur der Europe PMC API-Antwort.
type SearchResponse struct {
	HitCount   int `json:"hitCount"`
	ResultList struct {
		Result []Article `json:"result"`
	} `json:"resultList"`
}

// Article repräsentiert einen einzelnen Artikel in der API-Antwort.
type Article struct {
	ID                   string `json:"id"`
	Source               string `json:"source"`
	PMID                 string `json:"pmid"`
	DOI                  string `json:"doi"`
	Title                string `json:"title"`
	AuthorString         string `json:"authorString"`
	JournalTitle         string `json:"journalTitle"`
	FirstPublicationDate string `json:"firstPublicationDate"`
	AbstractText         string `json:"abstractText"`
}

// parseEuroDate akzeptiert volle, Monats- und Jahresangaben.
func parseEuroDate(dateStr string) (time.Time, bool) {
	layouts := []string{"2006-01-02", "2006-01", "2006"}
	for _, layout := range layouts {
		t, err := time.Parse(layout, dateStr)
		if err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
