package services

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/MuhammadAbdelshafi/NeuroEdge-Backend/config"
)

// confidenceSaturation ist die Trefferzahl, ab der die Konfidenz 1.0 erreicht.
const confidenceSaturation = 5.0

// Classification ist das Ergebnis der Keyword-Klassifikation eines Papers.
type Classification struct {
	Topics       []string
	ResearchType string
	Confidence   float64
}

type labelMatcher struct {
	name     string
	patterns []*regexp.Regexp
}

// scorer bewertet normalisierten Text gegen eine Taxonomie.
type scorer struct {
	def    string
	labels []labelMatcher
	index  map[string]int
}

func newScorer(tax config.Taxonomy, tn *TextNormalizer) (scorer, error) {
	s := scorer{def: tax.Default, index: make(map[string]int, len(tax.Labels))}
	for _, l := range tax.Labels {
		m := labelMatcher{name: l.Name}
		for _, kw := range l.Keywords {
			kw = tn.Clean(kw)
			if kw == "" {
				continue
			}
			re, err := regexp.Compile(`\b` + regexp.QuoteMeta(kw) + `\b`)
			if err != nil {
				return scorer{}, fmt.Errorf("taxonomie %q: keyword %q: %w", tax.Name, kw, err)
			}
			m.patterns = append(m.patterns, re)
		}
		s.index[l.Name] = len(s.labels)
		s.labels = append(s.labels, m)
	}
	return s, nil
}

// scores zählt nicht überlappende Wort-Treffer pro Label in Taxonomie-Reihenfolge.
func (s scorer) scores(text string) []int {
	out := make([]int, len(s.labels))
	for i, l := range s.labels {
		for _, re := range l.patterns {
			out[i] += len(re.FindAllStringIndex(text, -1))
		}
	}
	return out
}

// Classifier ordnet Papers Themen-Labels und einen Studientyp zu.
type Classifier struct {
	normalizer *TextNormalizer
	topics     scorer
	types      scorer
}

// NewClassifier kompiliert beide Taxonomien.
func NewClassifier(tax config.Taxonomies, tn *TextNormalizer) (*Classifier, error) {
	topics, err := newScorer(tax.Topics, tn)
	if err != nil {
		return nil, err
	}
	types, err := newScorer(tax.ResearchTypes, tn)
	if err != nil {
		return nil, err
	}
	return &Classifier{normalizer: tn, topics: topics, types: types}, nil
}

// Classify normalisiert Titel und Abstract und bestimmt Themen, Studientyp und Konfidenz.
func (c *Classifier) Classify(title, abstract string) Classification {
	text := c.normalizer.Clean(title + " " + abstract)
	topics := c.Topics(text)
	researchType := c.ResearchType(text)
	return Classification{
		Topics:       topics,
		ResearchType: researchType,
		Confidence:   c.Confidence(text, topics, researchType),
	}
}

// Topics liefert alle Labels mit Treffern, absteigend nach Trefferzahl; bei
// Gleichstand entscheidet die Taxonomie-Reihenfolge. Ohne Treffer das Default-Label.
func (c *Classifier) Topics(text string) []string {
	scores := c.topics.scores(text)
	idx := make([]int, 0, len(scores))
	for i, s := range scores {
		if s > 0 {
			idx = append(idx, i)
		}
	}
	if len(idx) == 0 {
		return []string{c.topics.def}
	}
	sort.SliceStable(idx, func(a, b int) bool { return scores[idx[a]] > scores[idx[b]] })

	labels := make([]string, len(idx))
	for i, j := range idx {
		labels[i] = c.topics.labels[j].name
	}
	return labels
}

// ResearchType liefert das Label mit den meisten Treffern; bei Gleichstand das
// erste in Taxonomie-Reihenfolge. Ohne Treffer das Default-Label.
func (c *Classifier) ResearchType(text string) string {
	best, top := -1, 0
	for i, s := range c.types.scores(text) {
		if s > top {
			best, top = i, s
		}
	}
	if best < 0 {
		return c.types.def
	}
	return c.types.labels[best].name
}

// Confidence summiert die Treffer der zugewiesenen Labels und bildet
// min(1, treffer/5) ab. Labels außerhalb der Taxonomie zählen 0.
func (c *Classifier) Confidence(text string, topics []string, researchType string) float64 {
	hits := 0
	topicScores := c.topics.scores(text)
	seen := make(map[string]bool, len(topics))
	for _, t := range topics {
		if seen[t] {
			continue
		}
		seen[t] = true
		if i, ok := c.topics.index[t]; ok {
			hits += topicScores[i]
		}
	}
	if i, ok := c.types.index[researchType]; ok {
		hits += c.types.scores(text)[i]
	}
	if conf := float64(hits) / confidenceSaturation; conf < 1 {
		return conf
	}
	return 1
}
