package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/MuhammadAbdelshafi/NeuroEdge-Backend/config"
	"github.com/MuhammadAbdelshafi/NeuroEdge-Backend/models"
	"github.com/MuhammadAbdelshafi/NeuroEdge-Backend/providers"
)

// EventNewPaper kennzeichnet Log-Einträge für neu aufgenommene Papers.
const EventNewPaper = "NEW_PAPER_INGESTED"

// FetchStore ergänzt den PaperStore um das Abrufprotokoll.
type FetchStore interface {
	PaperStore
	CreateFetchLog(ctx context.Context, l *models.SourceFetchLog) error
}

// OpenAccessResolver liefert einen freien Volltext-Link zu einer DOI.
type OpenAccessResolver interface {
	OpenAccessURL(ctx context.Context, doi string) (string, error)
}

// FetchService kümmert sich um die Orchestrierung des gesamten Fetch-Prozesses.
type FetchService struct {
	Config     *config.Config
	Store      FetchStore
	Dedup      *Deduplicator
	Logger     *zap.Logger
	Sources    []config.Source
	Providers  map[string]providers.Provider
	OpenAccess OpenAccessResolver
	Now        func() time.Time
}

// NewFetchService erstellt eine neue Instanz des FetchService. oa darf nil sein.
func NewFetchService(cfg *config.Config, store FetchStore, logger *zap.Logger, sources []config.Source, provs []providers.Provider, oa OpenAccessResolver) *FetchService {
	byKind := make(map[string]providers.Provider, len(provs))
	for _, p := range provs {
		byKind[p.Name()] = p
	}
	return &FetchService{
		Config:     cfg,
		Store:      store,
		Dedup:      NewDeduplicator(store, logger),
		Logger:     logger,
		Sources:    sources,
		Providers:  byKind,
		OpenAccess: oa,
		Now:        time.Now,
	}
}

type sourceResult struct {
	papers []providers.RawPaper
	err    error
}

// Run ruft alle Quellen für die letzten FETCH_LOOKBACK_DAYS Tage ab.
func (f *FetchService) Run(ctx context.Context) (int, error) {
	return f.RunWindow(ctx, providers.TrailingDays(f.Now(), f.Config.FetchLookbackDays))
}

// RunWindow ruft alle Quellen parallel ab und speichert neue Papers
// anschließend seriell in Reihenfolge der Quellenliste. Fehler einer Quelle
// werden protokolliert und brechen den Lauf nicht ab.
func (f *FetchService) RunWindow(ctx context.Context, window providers.Window) (int, error) {
	f.Logger.Info("Starte Fetch-Lauf.",
		zap.Int("sources", len(f.Sources)),
		zap.Time("from", window.Start), zap.Time("to", window.End))

	results := make([]sourceResult, len(f.Sources))
	var g errgroup.Group
	g.SetLimit(max(1, f.Config.FetchConcurrency))
	for i, src := range f.Sources {
		g.Go(func() error {
			results[i] = f.fetchSource(ctx, src, window)
			return nil
		})
	}
	_ = g.Wait()

	total := 0
	for i, src := range f.Sources {
		total += f.persistSource(ctx, src, results[i])
	}
	newPapersCounter.Add(float64(total))

	f.Logger.Info("Fetch-Lauf abgeschlossen.", zap.Int("new_papers", total))
	return total, nil
}

func (f *FetchService) fetchSource(ctx context.Context, src config.Source, window providers.Window) (res sourceResult) {
	defer func() {
		if r := recover(); r != nil {
			res = sourceResult{err: fmt.Errorf("panic beim Abruf: %v", r)}
		}
	}()

	provider, ok := f.Providers[src.Kind]
	if !ok {
		return sourceResult{err: fmt.Errorf("kein provider für typ %q", src.Kind)}
	}
	papers, err := provider.Fetch(ctx, src, window)
	return sourceResult{papers: papers, err: err}
}

// persistSource dedupliziert und speichert die Artikel einer Quelle und
// schreibt genau einen SourceFetchLog-Eintrag.
func (f *FetchService) persistSource(ctx context.Context, src config.Source, res sourceResult) int {
	log := f.Logger.With(zap.String("source", src.Name), zap.String("kind", src.Kind))
	entry := &models.SourceFetchLog{
		SourceName: src.Name,
		SourceKind: src.Kind,
		FetchedAt:  f.Now(),
		NumFetched: len(res.papers),
	}

	if res.err != nil {
		log.Error("Abruf der Quelle fehlgeschlagen.", zap.Error(res.err))
		msg := res.err.Error()
		entry.Status = models.FetchFailure
		entry.ErrorMessage = &msg
		f.writeFetchLog(ctx, log, entry)
		sourceFetchCounter.WithLabelValues(src.Kind, models.FetchFailure).Inc()
		return 0
	}

	created := 0
	for _, raw := range res.papers {
		isNew, err := f.Dedup.IsNew(ctx, raw)
		if err != nil {
			log.Warn("Duplikatprüfung fehlgeschlagen, Artikel übersprungen.", zap.String("title", raw.Title), zap.Error(err))
			continue
		}
		if !isNew {
			continue
		}

		paper := newPaperFromRaw(raw)
		f.enrichOpenAccess(ctx, log, paper)
		if err := f.Store.CreatePaper(ctx, paper); err != nil {
			log.Warn("Paper konnte nicht gespeichert werden.", zap.String("title", raw.Title), zap.Error(err))
			continue
		}
		created++
		log.Info("Neues Paper aufgenommen.",
			zap.String("event", EventNewPaper),
			zap.Uint("paper_id", paper.ID),
			zap.String("title", paper.Title))
	}

	entry.Status = models.FetchSuccess
	entry.NumPapers = created
	f.writeFetchLog(ctx, log, entry)
	sourceFetchCounter.WithLabelValues(src.Kind, models.FetchSuccess).Inc()
	log.Info("Quelle verarbeitet.", zap.Int("fetched", len(res.papers)), zap.Int("new", created))
	return created
}

func (f *FetchService) writeFetchLog(ctx context.Context, log *zap.Logger, entry *models.SourceFetchLog) {
	if err := f.Store.CreateFetchLog(ctx, entry); err != nil {
		log.Warn("Abrufprotokoll konnte nicht geschrieben werden.", zap.Error(err))
	}
}

func (f *FetchService) enrichOpenAccess(ctx context.Context, log *zap.Logger, paper *models.Paper) {
	if f.OpenAccess == nil || paper.DOI == nil {
		return
	}
	link, err := f.OpenAccess.OpenAccessURL(ctx, *paper.DOI)
	if err != nil {
		log.Debug("Open-Access-Anreicherung fehlgeschlagen.", zap.String("doi", *paper.DOI), zap.Error(err))
		return
	}
	paper.OpenAccessURL = link
}

func newPaperFromRaw(raw providers.RawPaper) *models.Paper {
	return &models.Paper{
		ExternalID:           raw.ExternalID,
		DOI:                  raw.DOI,
		Title:                raw.Title,
		Abstract:             raw.Abstract,
		Authors:              append([]string(nil), raw.Authors...),
		Source:               raw.Source,
		PublicationDate:      raw.PublicationDate,
		Link:                 raw.Link,
		ClassificationStatus: models.ClassificationPending,
		SummarizationStatus:  models.SummarizationPending,
	}
}
