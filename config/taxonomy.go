package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Label ist ein Taxonomie-Eintrag mit seinen Schlüsselphrasen.
type Label struct {
	Name     string
	Keywords []string
}

// Taxonomy bildet Labels auf Schlüsselphrasen ab. Die Reihenfolge der Labels
// entspricht der Reihenfolge in der YAML-Datei und entscheidet Gleichstände.
type Taxonomy struct {
	Name    string
	Default string
	Labels  []Label
}

// LabelNames gibt die Labels in Taxonomie-Reihenfolge zurück.
func (t Taxonomy) LabelNames() []string {
	names := make([]string, 0, len(t.Labels))
	for _, l := range t.Labels {
		names = append(names, l.Name)
	}
	return names
}

// Taxonomies bündelt die beiden unabhängigen Taxonomien.
type Taxonomies struct {
	Topics        Taxonomy
	ResearchTypes Taxonomy
}

type taxonomyFile struct {
	Default string    `yaml:"default"`
	Labels  yaml.Node `yaml:"labels"`
}

// LoadTaxonomies lädt topics.yaml und research_types.yaml aus dir.
// Fehlende Dateien sind ein Startfehler.
func LoadTaxonomies(dir string) (Taxonomies, error) {
	topics, err := LoadTaxonomy(filepath.Join(dir, "topics.yaml"), "topics")
	if err != nil {
		return Taxonomies{}, err
	}
	types, err := LoadTaxonomy(filepath.Join(dir, "research_types.yaml"), "research_types")
	if err != nil {
		return Taxonomies{}, err
	}
	return Taxonomies{Topics: topics, ResearchTypes: types}, nil
}

// LoadTaxonomy liest eine einzelne Taxonomie-Datei.
func LoadTaxonomy(path, name string) (Taxonomy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Taxonomy{}, fmt.Errorf("taxonomie %q nicht lesbar: %w", name, err)
	}
	return ParseTaxonomy(name, data)
}

// ParseTaxonomy dekodiert eine Taxonomie aus YAML. Erwartet wird
//
//	default: General Neurology
//	labels:
//	  Stroke: [stroke, ischemic stroke]
func ParseTaxonomy(name string, data []byte) (Taxonomy, error) {
	var f taxonomyFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Taxonomy{}, fmt.Errorf("taxonomie %q: ungültiges YAML: %w", name, err)
	}
	if f.Default == "" {
		return Taxonomy{}, fmt.Errorf("taxonomie %q: kein default-Label gesetzt", name)
	}

	t := Taxonomy{Name: name, Default: f.Default}
	if f.Labels.Kind == 0 {
		return t, nil
	}
	if f.Labels.Kind != yaml.MappingNode {
		return Taxonomy{}, fmt.Errorf("taxonomie %q: labels muss eine Map sein (Zeile %d)", name, f.Labels.Line)
	}

	seen := make(map[string]bool)
	for i := 0; i+1 < len(f.Labels.Content); i += 2 {
		key, val := f.Labels.Content[i], f.Labels.Content[i+1]
		if seen[key.Value] {
			return Taxonomy{}, fmt.Errorf("taxonomie %q: label %q doppelt (Zeile %d)", name, key.Value, key.Line)
		}
		seen[key.Value] = true

		var keywords []string
		if err := val.Decode(&keywords); err != nil {
			return Taxonomy{}, fmt.Errorf("taxonomie %q: label %q: %w", name, key.Value, err)
		}
		t.Labels = append(t.Labels, Label{Name: key.Value, Keywords: keywords})
	}
	return t, nil
}
