package services

import (
	"fmt"
	"strings"

	"github.com/MuhammadAbdelshafi/NeuroEdge-Backend/models"
)

// maxCitedAuthors begrenzt die Autorenliste, danach folgt "et al."
const maxCitedAuthors = 3

// FormatReference rendert ein Paper als kompakte Literaturangabe, z.B.
// "Smith J, Doe A, et al. (2024). Title. Neurology. doi:10.1/x pmid:123"
func FormatReference(p *models.Paper) string {
	authors := citedAuthors(p.Authors)

	year := "n.d."
	if !p.PublicationDate.IsZero() {
		year = fmt.Sprintf("%d", p.PublicationDate.Year())
	}

	title := strings.TrimSuffix(strings.TrimSpace(p.Title), ".")
	if title == "" {
		title = "Untitled"
	}

	var tail []string
	if p.DOI != nil && *p.DOI != "" {
		tail = append(tail, "doi:"+*p.DOI)
	}
	if p.ExternalID != nil && *p.ExternalID != "" {
		tail = append(tail, "pmid:"+*p.ExternalID)
	}
	tailStr := ""
	if len(tail) > 0 {
		tailStr = " " + strings.Join(tail, " ")
	}

	if p.Source != "" {
		return fmt.Sprintf("%s (%s). %s. %s.%s", authors, year, title, p.Source, tailStr)
	}
	return fmt.Sprintf("%s (%s). %s.%s", authors, year, title, tailStr)
}

func citedAuthors(authors []string) string {
	var names []string
	for _, a := range authors {
		if a = strings.TrimSpace(a); a != "" {
			names = append(names, a)
		}
	}
	switch {
	case len(names) == 0:
		return "Unknown Authors"
	case len(names) > maxCitedAuthors:
		return strings.Join(names[:maxCitedAuthors], ", ") + ", et al."
	default:
		return strings.Join(names, ", ")
	}
}
