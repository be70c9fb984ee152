// Package rss liest Zeitschriften-Feeds (RSS/Atom) und ergänzt fehlende Angaben.
package rss

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"

	"github.com/MuhammadAbdelshafi/NeuroEdge-Backend/config"
	"github.com/MuhammadAbdelshafi/NeuroEdge-Backend/providers"
)

// DateResolver schlägt das Veröffentlichungsdatum eines Artikels extern nach.
type DateResolver interface {
	LookupPublicationDate(ctx context.Context, doi, title string) (time.Time, bool, error)
}

// Fetcher implementiert den Provider für Feeds.
type Fetcher struct {
	Config *config.Config
	Logger *zap.Logger
	Client *http.Client
	Dates  DateResolver
	Now    func() time.Time
}

// NewFetcher erstellt einen Feed-Fetcher. dates darf nil sein.
func NewFetcher(cfg *config.Config, logger *zap.Logger, dates DateResolver) *Fetcher {
	timeout := cfg.RSSTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Fetcher{
		Config: cfg,
		Logger: logger,
		Client: &http.Client{
			Timeout:   timeout,
			Transport: &providers.BrowserTransport{Transport: http.DefaultTransport},
		},
		Dates: dates,
		Now:   time.Now,
	}
}

// Name gibt den Namen des Providers zurück.
func (f *Fetcher) Name() string {
	return config.SourceRSS
}

// Fetch lädt den Feed der Quelle. Das Zeitfenster wird nicht ausgewertet,
// Feeds liefern ohnehin nur die aktuelle Ausgabe; die Deduplizierung fängt Wiederholungen ab.
func (f *Fetcher) Fetch(ctx context.Context, source config.Source, _ providers.Window) ([]providers.RawPaper, error) {
	log := f.Logger.With(zap.String("provider", f.Name()), zap.String("source", source.Name))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source.URL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed %q nicht erreichbar: %w", source.Name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed %q antwortete mit Status %d", source.Name, resp.StatusCode)
	}

	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("feed %q nicht lesbar: %w", source.Name, err)
	}

	papers := make([]providers.RawPaper, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		papers = append(papers, f.mapItem(ctx, log, item, source.Name))
	}
	log.Info("Feed gelesen.", zap.Int("entries", len(papers)))
	return papers, nil
}

func (f *Fetcher) mapItem(ctx context.Context, log *zap.Logger, item *gofeed.Item, source string) providers.RawPaper {
	title := providers.StripMarkup(item.Title)
	if title == "" {
		title = "No Title"
	}

	summary := item.Description
	if summary == "" {
		summary = item.Content
	}

	doi := extractDOI(item)
	doiValue := ""
	if doi != nil {
		doiValue = *doi
	}

	return providers.RawPaper{
		DOI:             doi,
		Title:           title,
		Abstract:        providers.StringPtr(providers.StripMarkup(summary)),
		Authors:         itemAuthors(item),
		Source:          source,
		PublicationDate: f.resolveDate(ctx, log, item, doiValue, title),
		Link:            item.Link,
	}
}

// resolveDate: Zeitstempel des Feeds, dann externe Nachschlage, dann jetzt.
func (f *Fetcher) resolveDate(ctx context.Context, log *zap.Logger, item *gofeed.Item, doi, title string) time.Time {
	if item.PublishedParsed != nil {
		return *item.PublishedParsed
	}
	if item.UpdatedParsed != nil {
		return *item.UpdatedParsed
	}
	if f.Dates != nil {
		date, ok, err := f.Dates.LookupPublicationDate(ctx, doi, title)
		if err != nil {
			log.Debug("Datumsnachschlage fehlgeschlagen.", zap.String("title", title), zap.Error(err))
		}
		if ok {
			return date
		}
	}
	return f.Now()
}

// extractDOI prüft Link, GUID und Dublin-Core-Identifier in dieser Reihenfolge.
func extractDOI(item *gofeed.Item) *string {
	if i := strings.LastIndex(item.Link, "doi.org/"); i >= 0 {
		if doi := providers.StringPtr(item.Link[i+len("doi.org/"):]); doi != nil {
			return doi
		}
	}
	if i := strings.LastIndex(item.GUID, "doi:"); i >= 0 {
		if doi := providers.StringPtr(item.GUID[i+len("doi:"):]); doi != nil {
			return doi
		}
	}
	if item.DublinCoreExt != nil {
		for _, id := range item.DublinCoreExt.Identifier {
			if doi := providers.StringPtr(strings.Replace(id, "doi:", "", 1)); doi != nil {
				return doi
			}
		}
	}
	return nil
}

func itemAuthors(item *gofeed.Item) []string {
	var names []string
	for _, p := range item.Authors {
		if p != nil {
			names = append(names, p.Name)
		}
	}
	if len(names) == 0 && item.DublinCoreExt != nil {
		names = item.DublinCoreExt.Creator
	}

	var authors []string
	for _, n := range names {
		for _, a := range strings.Split(n, ",") {
			if a = strings.TrimSpace(a); a != "" {
				authors = append(authors, a)
			}
		}
	}
	return authors
}
