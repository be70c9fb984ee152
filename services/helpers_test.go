package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/MuhammadAbdelshafi/NeuroEdge-Backend/config"
	"github.com/MuhammadAbdelshafi/NeuroEdge-Backend/models"
	"github.com/MuhammadAbdelshafi/NeuroEdge-Backend/providers"
	"github.com/MuhammadAbdelshafi/NeuroEdge-Backend/storage"
)

func ptr[T any](v T) *T { return &v }

func testTaxonomies() config.Taxonomies {
	return config.Taxonomies{
		Topics: config.Taxonomy{
			Name:    "topics",
			Default: "General Neurology",
			Labels: []config.Label{
				{Name: "Stroke", Keywords: []string{"stroke", "thrombectomy", "ischemic"}},
				{Name: "Epilepsy", Keywords: []string{"epilepsy", "seizure"}},
				{Name: "Movement Disorders", Keywords: []string{"parkinson", "dystonia"}},
			},
		},
		ResearchTypes: config.Taxonomy{
			Name:    "research_types",
			Default: "Other",
			Labels: []config.Label{
				{Name: "RCT", Keywords: []string{"randomized", "trial"}},
				{Name: "Cohort", Keywords: []string{"cohort", "prospective"}},
				{Name: "Review", Keywords: []string{"review"}},
			},
		},
	}
}

func testClassifier(t *testing.T) *Classifier {
	t.Helper()
	c, err := NewClassifier(testTaxonomies(), NewTextNormalizer())
	if err != nil {
		t.Fatalf("NewClassifier: %v", err)
	}
	return c
}

func mustCreate(t *testing.T, store *storage.Memory, p models.Paper) models.Paper {
	t.Helper()
	if err := store.CreatePaper(context.Background(), &p); err != nil {
		t.Fatalf("CreatePaper: %v", err)
	}
	return p
}

type fakeProvider struct {
	kind   string
	mu     sync.Mutex
	papers map[string][]providers.RawPaper
	errs   map[string]error
	panics map[string]bool
	calls  []providers.Window
}

func (f *fakeProvider) Name() string { return f.kind }

func (f *fakeProvider) Fetch(_ context.Context, src config.Source, w providers.Window) ([]providers.RawPaper, error) {
	f.mu.Lock()
	f.calls = append(f.calls, w)
	f.mu.Unlock()
	if f.panics[src.Name] {
		panic("provider exploded")
	}
	if err := f.errs[src.Name]; err != nil {
		return nil, err
	}
	return f.papers[src.Name], nil
}

type fakeGenerator struct {
	mu      sync.Mutex
	out     string
	err     error
	prompts []string
}

func (g *fakeGenerator) Model() string { return "test-model" }

func (g *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	return g.out, g.err
}

func fixedNow() time.Time {
	return time.Date(2024, 6, 14, 12, 0, 0, 0, time.UTC)
}
