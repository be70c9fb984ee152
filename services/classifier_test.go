package services

import (
	"reflect"
	"testing"

	"github.com/MuhammadAbdelshafi/NeuroEdge-Backend/config"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	c := testClassifier(t)
	tests := []struct {
		name       string
		title      string
		abstract   string
		wantTopics []string
		wantType   string
		wantConf   float64
	}{
		{
			name:       "single topic and type",
			title:      "Thrombectomy for large core Stroke",
			abstract:   "A randomized study.",
			wantTopics: []string{"Stroke"},
			wantType:   "RCT",
			wantConf:   0.6,
		},
		{
			name:       "topics ordered by score",
			title:      "Seizure outcome after stroke",
			abstract:   "Epilepsy and seizure incidence in a prospective cohort.",
			wantTopics: []string{"Epilepsy", "Stroke"},
			wantType:   "Cohort",
			wantConf:   1,
		},
		{
			name:       "defaults without hits",
			title:      "Something unrelated",
			wantTopics: []string{"General Neurology"},
			wantType:   "Other",
			wantConf:   0,
		},
		{
			name:       "whole words only",
			title:      "Strokes and reviewers",
			wantTopics: []string{"General Neurology"},
			wantType:   "Other",
			wantConf:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := c.Classify(tt.title, tt.abstract)
			if !reflect.DeepEqual(got.Topics, tt.wantTopics) {
				t.Errorf("topics = %v, want %v", got.Topics, tt.wantTopics)
			}
			if got.ResearchType != tt.wantType {
				t.Errorf("type = %q, want %q", got.ResearchType, tt.wantType)
			}
			if got.Confidence != tt.wantConf {
				t.Errorf("confidence = %v, want %v", got.Confidence, tt.wantConf)
			}
		})
	}
}

func TestTopicsTieKeepsTaxonomyOrder(t *testing.T) {
	t.Parallel()

	c := testClassifier(t)
	got := c.Topics("parkinson epilepsy stroke")
	want := []string{"Stroke", "Epilepsy", "Movement Disorders"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Topics = %v, want %v", got, want)
	}
}

func TestResearchTypeTieTakesFirstLabel(t *testing.T) {
	t.Parallel()

	c := testClassifier(t)
	if got := c.ResearchType("review of a cohort"); got != "Cohort" {
		t.Fatalf("ResearchType = %q, want Cohort", got)
	}
	if got := c.ResearchType("cohort review cohort review trial"); got != "Cohort" {
		t.Fatalf("ResearchType = %q, want Cohort", got)
	}
}

func TestConfidenceRangeAndSaturation(t *testing.T) {
	t.Parallel()

	c := testClassifier(t)
	texts := []string{
		"",
		"stroke",
		"stroke stroke stroke stroke",
		"stroke stroke stroke stroke stroke",
		"stroke ischemic thrombectomy trial randomized seizure epilepsy cohort",
	}
	for _, text := range texts {
		topics := c.Topics(text)
		rt := c.ResearchType(text)
		conf := c.Confidence(text, topics, rt)
		if conf < 0 || conf > 1 {
			t.Fatalf("Confidence(%q) = %v out of range", text, conf)
		}
	}

	if got := c.Confidence("stroke stroke stroke stroke", []string{"Stroke"}, "Other"); got != 0.8 {
		t.Fatalf("4 hits = %v, want 0.8", got)
	}
	if got := c.Confidence("stroke stroke stroke stroke stroke", []string{"Stroke"}, "Other"); got != 1 {
		t.Fatalf("5 hits = %v, want 1", got)
	}
	if got := c.Confidence("stroke", []string{"Unknown"}, "Unknown"); got != 0 {
		t.Fatalf("unknown labels = %v, want 0", got)
	}
}

func TestEmptyResearchTaxonomyUsesDefault(t *testing.T) {
	t.Parallel()

	tax := testTaxonomies()
	tax.ResearchTypes.Labels = nil
	c, err := NewClassifier(tax, NewTextNormalizer())
	if err != nil {
		t.Fatalf("NewClassifier: %v", err)
	}
	if got := c.ResearchType("randomized trial"); got != "Other" {
		t.Fatalf("ResearchType = %q", got)
	}
}

func TestKeywordsAreNormalized(t *testing.T) {
	t.Parallel()

	tax := config.Taxonomies{
		Topics: config.Taxonomy{Default: "General", Labels: []config.Label{
			{Name: "Movement Disorders", Keywords: []string{"Parkinson's Disease"}},
		}},
		ResearchTypes: config.Taxonomy{Default: "Other"},
	}
	c, err := NewClassifier(tax, NewTextNormalizer())
	if err != nil {
		t.Fatalf("NewClassifier: %v", err)
	}
	got := c.Classify("Advances in PARKINSON'S disease", "")
	if !reflect.DeepEqual(got.Topics, []string{"Movement Disorders"}) {
		t.Fatalf("Topics = %v", got.Topics)
	}
}
