package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/MuhammadAbdelshafi/NeuroEdge-Backend/models"
	"github.com/MuhammadAbdelshafi/NeuroEdge-Backend/storage"
)

func day(d int) time.Time {
	return time.Date(2024, 6, d, 9, 0, 0, 0, time.UTC)
}

func feedFixture(t *testing.T) (*storage.Memory, *FeedEngine) {
	t.Helper()
	store := storage.NewMemory()
	rct, cohort := "RCT", "Cohort"
	papers := []models.Paper{
		{Title: "Stroke A", Source: "Stroke", PublicationDate: day(1), TopicLabels: []string{"Stroke"}, ResearchType: &rct},
		{Title: "Epilepsy B", Source: "Epilepsia", PublicationDate: day(2), TopicLabels: []string{"Epilepsy"}, ResearchType: &cohort},
		{Title: "Stroke C", Source: "Brain", PublicationDate: day(3), TopicLabels: []string{"Stroke", "Epilepsy"}, ResearchType: &cohort},
		{Title: "Stroke D", Source: "Stroke", PublicationDate: day(4), TopicLabels: []string{"Stroke"}, ResearchType: &rct},
		{Title: "Failed E", Source: "Stroke", PublicationDate: day(5), TopicLabels: []string{"Stroke"}, SummarizationStatus: models.SummarizationFailed},
		{Title: "Processing F", Source: "Brain", PublicationDate: day(6), TopicLabels: []string{"Stroke"}, SummarizationStatus: models.SummarizationProcessing},
	}
	for _, p := range papers {
		mustCreate(t, store, p)
	}
	engine := NewFeedEngine(store, store, zap.NewNop(), 5000)
	engine.Now = fixedNow
	return store, engine
}

func titles(papers []models.Paper) []string {
	out := make([]string, len(papers))
	for i, p := range papers {
		out[i] = p.Title
	}
	return out
}

func TestFeedTopicFilterCountsAfterFiltering(t *testing.T) {
	t.Parallel()

	_, engine := feedFixture(t)
	page, err := engine.GetFeed(context.Background(), "", FeedRequest{Topics: []string{"Stroke"}, PageSize: 2})
	if err != nil {
		t.Fatalf("GetFeed: %v", err)
	}
	if page.Total != 3 {
		t.Fatalf("total = %d, want 3", page.Total)
	}
	got := titles(page.Papers)
	if len(got) != 2 || got[0] != "Stroke D" || got[1] != "Stroke C" {
		t.Fatalf("page 1 = %v", got)
	}
	for _, p := range page.Papers {
		if !p.HasLabel("Stroke") {
			t.Fatalf("%s lacks Stroke", p.Title)
		}
	}

	page2, err := engine.GetFeed(context.Background(), "", FeedRequest{Topics: []string{"Stroke"}, PageSize: 2, Page: 2})
	if err != nil {
		t.Fatalf("GetFeed: %v", err)
	}
	if got := titles(page2.Papers); len(got) != 1 || got[0] != "Stroke A" || page2.Total != 3 {
		t.Fatalf("page 2 = %v (total %d)", got, page2.Total)
	}
}

func TestFeedPushedDownFilters(t *testing.T) {
	t.Parallel()

	_, engine := feedFixture(t)
	tests := []struct {
		name string
		req  FeedRequest
		want []string
	}{
		{"default sort date desc", FeedRequest{}, []string{"Stroke D", "Stroke C", "Epilepsy B", "Stroke A"}},
		{"research type", FeedRequest{ResearchTypes: []string{"Cohort"}}, []string{"Stroke C", "Epilepsy B"}},
		{"source", FeedRequest{Sources: []string{"Stroke"}}, []string{"Stroke D", "Stroke A"}},
		{"title sort", FeedRequest{Sort: "title"}, []string{"Epilepsy B", "Stroke A", "Stroke C", "Stroke D"}},
		{"journal sort", FeedRequest{Sort: "journal"}, []string{"Stroke C", "Epilepsy B", "Stroke D", "Stroke A"}},
		{"unknown sort", FeedRequest{Sort: "bogus"}, []string{"Stroke D", "Stroke C", "Epilepsy B", "Stroke A"}},
		{"custom range inclusive end", FeedRequest{DatePreset: PresetCustom, DateFrom: "2024-06-02", DateTo: "2024-06-03"}, []string{"Stroke C", "Epilepsy B"}},
		{"range without preset", FeedRequest{DateTo: "2024-06-01"}, []string{"Stroke A"}},
		{"preset 12m", FeedRequest{DatePreset: Preset12m}, []string{"Stroke D", "Stroke C", "Epilepsy B", "Stroke A"}},
		{"preset today", FeedRequest{DatePreset: PresetToday}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			page, err := engine.GetFeed(context.Background(), "", tt.req)
			if err != nil {
				t.Fatalf("GetFeed: %v", err)
			}
			got := titles(page.Papers)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("got %v, want %v", got, tt.want)
				}
			}
			if page.Total != int64(len(tt.want)) {
				t.Fatalf("total = %d", page.Total)
			}
		})
	}
}

func TestFeedInvalidFilters(t *testing.T) {
	t.Parallel()

	_, engine := feedFixture(t)
	reqs := []FeedRequest{
		{DatePreset: "2w"},
		{DatePreset: Preset7d, DateFrom: "2024-01-01"},
		{DatePreset: PresetAll, DateTo: "2024-01-01"},
		{DatePreset: PresetCustom, DateFrom: "01.02.2024"},
		{DateFrom: "2024-06-05", DateTo: "2024-06-01"},
	}
	for _, req := range reqs {
		if _, err := engine.GetFeed(context.Background(), "", req); !errors.Is(err, ErrInvalidFilter) {
			t.Errorf("GetFeed(%+v) err = %v, want ErrInvalidFilter", req, err)
		}
	}
}

func TestFeedPreferenceFallback(t *testing.T) {
	t.Parallel()

	store, engine := feedFixture(t)
	store.PutPreferences(models.UserPreference{UserID: "u1", Topics: []string{"Epilepsy"}, ResearchTypes: []string{"Cohort"}})
	ctx := context.Background()

	page, err := engine.GetFeed(ctx, "u1", FeedRequest{})
	if err != nil {
		t.Fatalf("GetFeed: %v", err)
	}
	if got := titles(page.Papers); len(got) != 2 || got[0] != "Stroke C" || got[1] != "Epilepsy B" {
		t.Fatalf("preferences feed = %v", got)
	}

	// Expliziter Themenfilter ersetzt nur die Themen, der Studientyp bleibt aus den Einstellungen.
	page, err = engine.GetFeed(ctx, "u1", FeedRequest{Topics: []string{"Stroke"}})
	if err != nil {
		t.Fatalf("GetFeed: %v", err)
	}
	if got := titles(page.Papers); len(got) != 1 || got[0] != "Stroke C" {
		t.Fatalf("topic override = %v", got)
	}

	// Quellenfilter schaltet die Einstellungen ab.
	page, err = engine.GetFeed(ctx, "u1", FeedRequest{Sources: []string{"Stroke"}})
	if err != nil {
		t.Fatalf("GetFeed: %v", err)
	}
	if page.Total != 2 {
		t.Fatalf("source feed total = %d", page.Total)
	}

	page, err = engine.GetFeed(ctx, "unknown-user", FeedRequest{})
	if err != nil || page.Total != 4 {
		t.Fatalf("unknown user = %d, %v", page.Total, err)
	}
}

func TestFeedPagingNormalizationAndSummaries(t *testing.T) {
	t.Parallel()

	store, engine := feedFixture(t)
	first := store.Papers()[3]
	if err := store.SaveSummary(context.Background(), &first, &models.Summary{Objective: ptr("obj")}); err != nil {
		t.Fatalf("SaveSummary: %v", err)
	}

	page, err := engine.GetFeed(context.Background(), "", FeedRequest{Page: -3, PageSize: 500})
	if err != nil {
		t.Fatalf("GetFeed: %v", err)
	}
	if page.Page != 1 || page.PageSize != maxPageSize {
		t.Fatalf("page = %d size = %d", page.Page, page.PageSize)
	}
	if page.Papers[0].ID != first.ID || page.Papers[0].Summary == nil || *page.Papers[0].Summary.Objective != "obj" {
		t.Fatalf("summary not attached: %+v", page.Papers[0])
	}
	if page.Papers[1].Summary != nil {
		t.Fatal("unexpected summary on second paper")
	}

	empty, err := engine.GetFeed(context.Background(), "", FeedRequest{Page: 9})
	if err != nil || empty.Papers == nil || len(empty.Papers) != 0 || empty.PageSize != defaultPageSize {
		t.Fatalf("page beyond end = %+v, %v", empty, err)
	}
}
