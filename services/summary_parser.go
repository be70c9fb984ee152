package services

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
)

// Abschnittsüberschriften in Ausgabereihenfolge
var summaryHeaders = []string{
	"Objective",
	"Methods",
	"Results",
	"Conclusion",
	"Clinical Relevance",
	"Key Points",
}

var (
	leadingBullet = regexp.MustCompile(`^[-*•]\s+`)
	codeFence     = regexp.MustCompile("```(?:json)?\\s*")
)

// ParsedSummary ist die zerlegte LLM-Antwort. Fehlende Abschnitte sind nil,
// KeyPoints ist nie nil.
type ParsedSummary struct {
	Objective         *string
	Methods           *string
	Results           *string
	Conclusion        *string
	ClinicalRelevance *string
	KeyPoints         []string
}

// ParseSummary zerlegt eine Antwort im Format "Header: Inhalt". Die Funktion
// bricht nie ab; unlesbare Eingaben ergeben leere Abschnitte.
func ParseSummary(raw string) (parsed ParsedSummary) {
	defer func() {
		if r := recover(); r != nil {
			parsed = ParsedSummary{KeyPoints: []string{}}
		}
	}()

	sections := make(map[string]*string, len(summaryHeaders))
	lower := asciiLower(raw)
	for _, header := range summaryHeaders {
		sections[header] = sectionContent(raw, lower, header)
	}

	parsed = ParsedSummary{
		Objective:         sections["Objective"],
		Methods:           sections["Methods"],
		Results:           sections["Results"],
		Conclusion:        sections["Conclusion"],
		ClinicalRelevance: sections["Clinical Relevance"],
		KeyPoints:         []string{},
	}
	if kp := sections["Key Points"]; kp != nil {
		parsed.KeyPoints = ParseKeyPoints(*kp)
	}
	return parsed
}

// sectionContent liefert den Text hinter "header:" bis zur nächsten bekannten
// Überschrift. lower muss asciiLower(raw) sein, damit die Indizes passen.
func sectionContent(raw, lower, header string) *string {
	marker := asciiLower(header) + ":"
	idx := strings.Index(lower, marker)
	if idx < 0 {
		return nil
	}
	start := idx + len(marker)

	end := len(raw)
	for _, other := range summaryHeaders {
		if other == header {
			continue
		}
		if next := strings.Index(lower[start:], asciiLower(other)+":"); next >= 0 && start+next < end {
			end = start + next
		}
	}

	content := strings.TrimSpace(raw[start:end])
	content = leadingBullet.ReplaceAllString(content, "")
	return &content
}

// ParseKeyPoints akzeptiert ein JSON-Array (auch in Code-Fences) oder eine
// Aufzählung mit einer Zeile pro Punkt.
func ParseKeyPoints(raw string) []string {
	text := strings.TrimSpace(codeFence.ReplaceAllString(raw, ""))
	if strings.HasPrefix(text, "[") && strings.HasSuffix(text, "]") {
		if points, err := parseJSONPoints(text); err == nil {
			return points
		}
	}

	points := []string{}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-*•"))
		if line != "" {
			points = append(points, line)
		}
	}
	return points
}

// parseJSONPoints liest ein Array; Objekte werden in Schlüsselreihenfolge zu
// ihren Werten aufgelöst, andere Werte als Text übernommen.
func parseJSONPoints(text string) ([]string, error) {
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(text), &items); err != nil {
		return nil, err
	}

	points := make([]string, 0, len(items))
	for _, item := range items {
		item = bytes.TrimSpace(item)
		switch {
		case len(item) > 0 && item[0] == '"':
			var s string
			if err := json.Unmarshal(item, &s); err != nil {
				return nil, err
			}
			points = append(points, s)
		case len(item) > 0 && item[0] == '{':
			values, err := objectValues(item)
			if err != nil {
				return nil, err
			}
			points = append(points, values...)
		default:
			points = append(points, string(item))
		}
	}
	return points, nil
}

func objectValues(obj json.RawMessage) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(obj))
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	var values []string
	for dec.More() {
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			return nil, err
		}
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			values = append(values, s)
			continue
		}
		values = append(values, string(bytes.TrimSpace(v)))
	}
	return values, nil
}

// asciiLower ändert nur A-Z, damit Byte-Indizes zwischen Original und Kopie übereinstimmen.
func asciiLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
