package europepmc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/MuhammadAbdelshafi/NeuroEdge-Backend/config"
	"github.com/MuhammadAbdelshafi/NeuroEdge-Backend/providers"
)

var httpClient = &http.Client{Timeout: 30 * time.Second}

// Fetcher implementiert das Provider-Interface für Europe PMC.
type Fetcher struct {
	Config *config.Config
	Logger *zap.Logger
	Client *http.Client
	Now    func() time.Time
}

// NewFetcher erstellt einen neuen Europe PMC Fetcher.
func NewFetcher(cfg *config.Config, logger *zap.Logger) *Fetcher {
	return &Fetcher{Config: cfg, Logger: logger, Client: httpClient, Now: time.Now}
}

// Name gibt den Namen des Providers zurück.
func (f *Fetcher) Name() string {
	return config.SourceEuropePMC
}

// Fetch sucht Artikel einer Zeitschrift nach Erstveröffentlichung im Zeitfenster.
func (f *Fetcher) Fetch(ctx context.Context, source config.Source, window providers.Window) ([]providers.RawPaper, error) {
	log := f.Logger.With(zap.String("provider", f.Name()), zap.String("source", source.Name))

	query := fmt.Sprintf(`JOURNAL:"%s" AND FIRST_PDATE:[%s TO %s]`,
		source.Name, window.Start.Format("2006-01-02"), window.End.Format("2006-01-02"))

	params := url.Values{}
	params.Set("query", query)
	params.Set("format", "json")
	params.Set("resultType", "core")
	params.Set("pageSize", strconv.Itoa(f.pageSize()))

	searchURL := strings.TrimRight(f.Config.EuropePMCBaseURL, "/") + "/search?" + params.Encode()
	log.Debug("Rufe Europe PMC API auf", zap.String("url", searchURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("europe pmc nicht erreichbar: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("europe pmc antwortete mit Status %d", resp.StatusCode)
	}

	var searchResponse SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&searchResponse); err != nil {
		return nil, fmt.Errorf("europe pmc-Antwort nicht lesbar: %w", err)
	}

	papers := make([]providers.RawPaper, 0, len(searchResponse.ResultList.Result))
	for i := range searchResponse.ResultList.Result {
		article := &searchResponse.ResultList.Result[i]
		if article.PMID == "" && article.DOI == "" && article.Title == "" {
			log.Warn("Artikel ohne Kennung übersprungen.", zap.String("id", article.ID))
			continue
		}
		papers = append(papers, mapArticle(article, source.Name, f.Now()))
	}

	log.Info("Suche auf Europe PMC abgeschlossen", zap.Int("found_papers", len(papers)))
	return papers, nil
}

func (f *Fetcher) pageSize() int {
	if f.Config.PubMedPageSize > 0 {
		return f.Config.PubMedPageSize
	}
	return 100
}

// mapArticle konvertiert einen Europe PMC Artikel in ein RawPaper. Die PMID
// dient als externe Kennung, damit Treffer mit PubMed zusammenfallen.
func mapArticle(article *Article, source string, now time.Time) providers.RawPaper {
	title := providers.StripMarkup(article.Title)
	if title == "" {
		title = "No Title"
	}

	var authors []string
	for _, a := range strings.Split(article.AuthorString, ",") {
		a = strings.TrimSuffix(strings.TrimSpace(a), ".")
		if a != "" {
			authors = append(authors, a)
		}
	}

	date, ok := parseEuroDate(article.FirstPublicationDate)
	if !ok {
		date = now
	}

	link := ""
	if article.Source != "" && article.ID != "" {
		link = fmt.Sprintf("https://europepmc.org/article/%s/%s", article.Source, article.ID)
	}

	return providers.RawPaper{
		ExternalID:      providers.StringPtr(article.PMID),
		DOI:             providers.StringPtr(article.DOI),
		Title:           title,
		Abstract:        providers.StringPtr(providers.StripMarkup(article.AbstractText)),
		Authors:         authors,
		Source:          source,
		PublicationDate: date,
		Link:            link,
	}
}
