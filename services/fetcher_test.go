package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/MuhammadAbdelshafi/NeuroEdge-Backend/config"
	"github.com/MuhammadAbdelshafi/NeuroEdge-Backend/models"
	"github.com/MuhammadAbdelshafi/NeuroEdge-Backend/providers"
	"github.com/MuhammadAbdelshafi/NeuroEdge-Backend/storage"
)

type fakeOpenAccess struct{ url string }

func (f fakeOpenAccess) OpenAccessURL(context.Context, string) (string, error) { return f.url, nil }

func newTestFetchService(store *storage.Memory, logger *zap.Logger, sources []config.Source, provs ...providers.Provider) *FetchService {
	cfg := &config.Config{FetchLookbackDays: 7, FetchConcurrency: 2}
	svc := NewFetchService(cfg, store, logger, sources, provs, nil)
	svc.Now = fixedNow
	return svc
}

func TestFetchIsIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := storage.NewMemory()
	pm := &fakeProvider{kind: config.SourcePubMed, papers: map[string][]providers.RawPaper{
		"Neurology": {
			{ExternalID: ptr("1"), Title: "A", Source: "Neurology", PublicationDate: fixedNow()},
			{ExternalID: ptr("2"), DOI: ptr("10.1/b"), Title: "B", Source: "Neurology", PublicationDate: fixedNow()},
		},
	}}
	svc := newTestFetchService(store, zap.NewNop(), []config.Source{{Name: "Neurology", Kind: config.SourcePubMed}}, pm)

	first, err := svc.Run(ctx)
	if err != nil || first != 2 {
		t.Fatalf("first run = %d, %v", first, err)
	}
	second, err := svc.Run(ctx)
	if err != nil || second != 0 {
		t.Fatalf("second run = %d, %v", second, err)
	}
	if n := len(store.Papers()); n != 2 {
		t.Fatalf("papers = %d, want 2", n)
	}
	for _, p := range store.Papers() {
		if p.ClassificationStatus != models.ClassificationPending || p.SummarizationStatus != models.SummarizationPending {
			t.Fatalf("statuses = %s/%s", p.ClassificationStatus, p.SummarizationStatus)
		}
	}

	window := pm.calls[0]
	if !window.End.Equal(fixedNow()) || !window.Start.Equal(fixedNow().AddDate(0, 0, -7)) {
		t.Fatalf("window = %v..%v", window.Start, window.End)
	}
}

func TestFetchIsolatesFailingSources(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := storage.NewMemory()
	pm := &fakeProvider{
		kind: config.SourcePubMed,
		papers: map[string][]providers.RawPaper{
			"Brain": {{ExternalID: ptr("7"), Title: "Good", Source: "Brain"}},
		},
		errs:   map[string]error{"Stroke": errors.New("boom")},
		panics: map[string]bool{"Annals": true},
	}
	sources := []config.Source{
		{Name: "Stroke", Kind: config.SourcePubMed},
		{Name: "Annals", Kind: config.SourcePubMed},
		{Name: "Brain", Kind: config.SourcePubMed},
		{Name: "Feed", Kind: config.SourceRSS, URL: "http://x"},
	}
	svc := newTestFetchService(store, zap.NewNop(), sources, pm)

	n, err := svc.Run(ctx)
	if err != nil || n != 1 {
		t.Fatalf("Run = %d, %v", n, err)
	}

	logs := store.FetchLogs()
	if len(logs) != len(sources) {
		t.Fatalf("fetch logs = %d, want %d", len(logs), len(sources))
	}
	want := map[string]string{
		"Stroke": models.FetchFailure,
		"Annals": models.FetchFailure,
		"Brain":  models.FetchSuccess,
		"Feed":   models.FetchFailure,
	}
	for i, l := range logs {
		if l.SourceName != sources[i].Name {
			t.Fatalf("log %d is for %s, want %s", i, l.SourceName, sources[i].Name)
		}
		if l.Status != want[l.SourceName] {
			t.Errorf("%s status = %s, want %s", l.SourceName, l.Status, want[l.SourceName])
		}
		if l.Status == models.FetchFailure && l.ErrorMessage == nil {
			t.Errorf("%s: missing error message", l.SourceName)
		}
	}
	if logs[2].NumPapers != 1 || logs[2].NumFetched != 1 {
		t.Fatalf("Brain counts = %d/%d", logs[2].NumPapers, logs[2].NumFetched)
	}
}

func TestFetchLogsIngestionEventAndEnriches(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := storage.NewMemory()
	core, logs := observer.New(zap.InfoLevel)
	pm := &fakeProvider{kind: config.SourcePubMed, papers: map[string][]providers.RawPaper{
		"Brain": {{ExternalID: ptr("5"), DOI: ptr("10.1/oa"), Title: "Open", Source: "Brain"}},
	}}
	svc := newTestFetchService(store, zap.New(core), []config.Source{{Name: "Brain", Kind: config.SourcePubMed}}, pm)
	svc.OpenAccess = fakeOpenAccess{url: "https://oa.example/paper.pdf"}

	if _, err := svc.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := store.Papers()[0].OpenAccessURL; got != "https://oa.example/paper.pdf" {
		t.Fatalf("OpenAccessURL = %q", got)
	}
	events := logs.FilterField(zap.String("event", EventNewPaper)).Len()
	if events != 1 {
		t.Fatalf("ingestion events = %d, want 1", events)
	}
}

func TestRunWindowPassesExplicitRange(t *testing.T) {
	t.Parallel()

	store := storage.NewMemory()
	pm := &fakeProvider{kind: config.SourcePubMed}
	svc := newTestFetchService(store, zap.NewNop(), []config.Source{{Name: "Brain", Kind: config.SourcePubMed}}, pm)

	w := providers.Window{
		Start: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2023, 3, 31, 0, 0, 0, 0, time.UTC),
	}
	if _, err := svc.RunWindow(context.Background(), w); err != nil {
		t.Fatalf("RunWindow: %v", err)
	}
	if len(pm.calls) != 1 || pm.calls[0] != w {
		t.Fatalf("calls = %v", pm.calls)
	}
}
