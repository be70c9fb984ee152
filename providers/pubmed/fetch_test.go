package pubmed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/MuhammadAbdelshafi/NeuroEdge-Backend/config"
	"github.com/MuhammadAbdelshafi/NeuroEdge-Backend/providers"
)

const efetchXML = `<?xml version="1.0" ?>
<!DOCTYPE PubmedArticleSet PUBLIC "-//NLM//DTD PubMedArticle, 1st January 2024//EN" "https://dtd.nlm.nih.gov/ncbi/pubmed/out/pubmed_240101.dtd">
<PubmedArticleSet>
<PubmedArticle>
  <MedlineCitation>
    <PMID Version="1">111</PMID>
    <Article>
      <Journal><Title>Neurology</Title><JournalIssue><PubDate><Year>2024</Year><Month>Mar</Month><Day>05</Day></PubDate></JournalIssue></Journal>
      <ArticleTitle>Thrombectomy in <i>large</i> core stroke</ArticleTitle>
      <Abstract>
        <AbstractText Label="BACKGROUND">Stroke is common.</AbstractText>
        <AbstractText Label="METHODS">We randomized 300 patients &amp; followed them.</AbstractText>
      </Abstract>
      <AuthorList>
        <Author><LastName>Smith</LastName><Initials>JA</Initials></Author>
        <Author><CollectiveName>Stroke Trialists</CollectiveName></Author>
      </AuthorList>
      <ELocationID EIdType="doi" ValidYN="Y">10.1/eloc</ELocationID>
    </Article>
  </MedlineCitation>
  <PubmedData>
    <ArticleIdList>
      <ArticleId IdType="pubmed">111</ArticleId>
      <ArticleId IdType="doi">10.1/abc</ArticleId>
    </ArticleIdList>
  </PubmedData>
</PubmedArticle>
<PubmedArticle>
  <MedlineCitation>
    <PMID></PMID>
    <Article><ArticleTitle>Broken</ArticleTitle></Article>
  </MedlineCitation>
</PubmedArticle>
<PubmedArticle>
  <MedlineCitation>
    <PMID>222</PMID>
    <Article>
      <Journal><JournalIssue><PubDate><MedlineDate>2023 Nov-Dec</MedlineDate></PubDate></JournalIssue></Journal>
      <ArticleTitle></ArticleTitle>
      <ELocationID EIdType="doi" ValidYN="Y">10.1/eloc</ELocationID>
    </Article>
  </MedlineCitation>
</PubmedArticle>
</PubmedArticleSet>`

func newTestFetcher(baseURL string) *Fetcher {
	cfg := &config.Config{
		PubMedBaseURL:  baseURL,
		PubMedEmail:    "ops@example.org",
		PubMedTool:     "TestTool",
		PubMedPageSize: 100,
	}
	f := NewFetcher(cfg, zap.NewNop())
	f.Client = &http.Client{Timeout: 5 * time.Second}
	f.Now = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }
	return f
}

func TestFetchMapsArticlesAndSkipsBrokenOnes(t *testing.T) {
	t.Parallel()

	wantTerm := `"Neurology"[Journal] AND (2024/03/01:2024/03/08[Date - Publication])`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("email") != "ops@example.org" || q.Get("tool") != "TestTool" {
			t.Errorf("missing contact params: %s", r.URL.RawQuery)
		}
		switch {
		case strings.HasSuffix(r.URL.Path, "/esearch.fcgi"):
			if got := q.Get("term"); got != wantTerm {
				t.Errorf("term = %q, want %q", got, wantTerm)
			}
			if q.Get("retmax") != "100" {
				t.Errorf("retmax = %s", q.Get("retmax"))
			}
			w.Write([]byte(`{"esearchresult":{"count":"3","idlist":["111","0","222"]}}`))
		case strings.HasSuffix(r.URL.Path, "/efetch.fcgi"):
			if q.Get("id") != "111,0,222" {
				t.Errorf("id = %s", q.Get("id"))
			}
			w.Write([]byte(efetchXML))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := newTestFetcher(srv.URL)
	window := providers.Window{
		Start: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC),
	}
	papers, err := f.Fetch(context.Background(), config.Source{Name: "Neurology", Kind: "pubmed"}, window)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if len(papers) != 2 {
		t.Fatalf("got %d papers, want 2", len(papers))
	}

	p := papers[0]
	if *p.ExternalID != "111" || *p.DOI != "10.1/abc" {
		t.Fatalf("ids = %s / %s", *p.ExternalID, *p.DOI)
	}
	if p.Title != "Thrombectomy in large core stroke" {
		t.Fatalf("title = %q", p.Title)
	}
	if p.Abstract == nil || !strings.Contains(*p.Abstract, "METHODS: We randomized 300 patients & followed them.") {
		t.Fatalf("abstract = %v", p.Abstract)
	}
	if strings.Join(p.Authors, "|") != "Smith JA|Stroke Trialists" {
		t.Fatalf("authors = %v", p.Authors)
	}
	if !p.PublicationDate.Equal(time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("date = %v", p.PublicationDate)
	}
	if p.Link != "https://pubmed.ncbi.nlm.nih.gov/111/" || p.Source != "Neurology" {
		t.Fatalf("link/source = %s / %s", p.Link, p.Source)
	}

	q := papers[1]
	if q.Title != "No Title" || *q.DOI != "10.1/eloc" || q.Abstract != nil {
		t.Fatalf("second paper = %+v", q)
	}
	if !q.PublicationDate.Equal(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("medline date = %v", q.PublicationDate)
	}
}

func TestFetchEmptySearchSkipsEfetch(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/efetch.fcgi") {
			t.Error("efetch must not be called")
		}
		w.Write([]byte(`{"esearchresult":{"count":"0","idlist":[]}}`))
	}))
	defer srv.Close()

	papers, err := newTestFetcher(srv.URL).Fetch(context.Background(), config.Source{Name: "Brain"}, providers.Window{})
	if err != nil || len(papers) != 0 {
		t.Fatalf("papers=%v err=%v", papers, err)
	}
}

func TestFetchSearchErrorIsReturned(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	if _, err := newTestFetcher(srv.URL).Fetch(context.Background(), config.Source{Name: "Brain"}, providers.Window{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestResolveDate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		in     PubDate
		want   time.Time
		wantOK bool
	}{
		{"full numeric", PubDate{Year: "2024", Month: "03", Day: "9"}, time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC), true},
		{"month name", PubDate{Year: "2024", Month: "Sep"}, time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC), true},
		{"long month name", PubDate{Year: "2024", Month: "December", Day: "24"}, time.Date(2024, 12, 24, 0, 0, 0, 0, time.UTC), true},
		{"year only", PubDate{Year: "2020"}, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), true},
		{"impossible day", PubDate{Year: "2023", Month: "Feb", Day: "31"}, time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC), true},
		{"garbage month", PubDate{Year: "2023", Month: "Spring"}, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), true},
		{"medline date", PubDate{MedlineDate: "Winter 2019-2020"}, time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC), true},
		{"nothing", PubDate{}, time.Time{}, false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := resolveDate(tt.in)
			if ok != tt.wantOK || !got.Equal(tt.want) {
				t.Fatalf("resolveDate(%+v) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestMapArticleWithoutDateUsesNow(t *testing.T) {
	t.Parallel()

	var a PubmedArticle
	a.MedlineCitation.PMID = "9"
	now := time.Date(2025, 5, 5, 0, 0, 0, 0, time.UTC)
	raw, err := mapArticle(&a, "Brain", now)
	if err != nil {
		t.Fatalf("mapArticle: %v", err)
	}
	if !raw.PublicationDate.Equal(now) {
		t.Fatalf("date = %v", raw.PublicationDate)
	}
}

func TestLookupPublicationDateByDOI(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if strings.HasSuffix(r.URL.Path, "/esearch.fcgi") {
			if q.Get("term") != "10.1/abc[doi]" || q.Get("retmax") != "1" {
				t.Errorf("lookup query = %s", r.URL.RawQuery)
			}
			w.Write([]byte(`{"esearchresult":{"idlist":["111"]}}`))
			return
		}
		w.Write([]byte(efetchXML))
	}))
	defer srv.Close()

	date, ok, err := newTestFetcher(srv.URL).LookupPublicationDate(context.Background(), "10.1/abc", "ignored")
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if !date.Equal(time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("date = %v", date)
	}
}
