package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Quelltypen
const (
	SourcePubMed    = "pubmed"
	SourceRSS       = "rss"
	SourceEuropePMC = "europepmc"
)

// Source beschreibt eine abzufragende Zeitschrift bzw. einen Feed.
type Source struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"`
	URL  string `yaml:"url"`
}

type sourcesFile struct {
	Sources []Source `yaml:"sources"`
}

// LoadSources liest die Quellenliste aus einer YAML-Datei.
func LoadSources(path string) ([]Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("quellenliste nicht lesbar: %w", err)
	}
	return ParseSources(data)
}

// ParseSources dekodiert und validiert die Quellenliste.
func ParseSources(data []byte) ([]Source, error) {
	var f sourcesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("quellenliste: ungültiges YAML: %w", err)
	}

	seen := make(map[string]bool)
	for i, s := range f.Sources {
		if s.Name == "" {
			return nil, fmt.Errorf("quelle #%d: name fehlt", i+1)
		}
		switch s.Kind {
		case SourcePubMed, SourceEuropePMC:
		case SourceRSS:
			if s.URL == "" {
				return nil, fmt.Errorf("quelle %q: rss benötigt url", s.Name)
			}
		default:
			return nil, fmt.Errorf("quelle %q: unbekannter typ %q", s.Name, s.Kind)
		}
		key := s.Kind + "|" + s.Name
		if seen[key] {
			return nil, fmt.Errorf("quelle %q (%s) doppelt", s.Name, s.Kind)
		}
		seen[key] = true
	}
	return f.Sources, nil
}
