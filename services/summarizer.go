package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/MuhammadAbdelshafi/NeuroEdge-Backend/llm"
	"github.com/MuhammadAbdelshafi/NeuroEdge-Backend/models"
	"github.com/MuhammadAbdelshafi/NeuroEdge-Backend/storage"
)

// SummaryStore ist der Teil des Speichers, den die Zusammenfassung benötigt.
type SummaryStore interface {
	PendingSummarization(ctx context.Context, limit int) ([]models.Paper, error)
	UpdatePaper(ctx context.Context, p *models.Paper, columns ...string) error
	SaveSummary(ctx context.Context, paper *models.Paper, summary *models.Summary) error
	ResetSummaries(ctx context.Context) (int64, error)
}

// Archiver legt Rohdaten unter einem Schlüssel ab (z.B. S3).
type Archiver interface {
	Put(ctx context.Context, key string, body []byte) error
}

// SummarizationService erzeugt strukturierte Zusammenfassungen über das LLM.
type SummarizationService struct {
	Store     SummaryStore
	Generator llm.Generator
	Archive   Archiver
	Logger    *zap.Logger
	BatchSize int
}

// NewSummarizationService erstellt den Service. archive darf nil sein.
func NewSummarizationService(store SummaryStore, gen llm.Generator, archive Archiver, logger *zap.Logger, batchSize int) *SummarizationService {
	return &SummarizationService{
		Store:     store,
		Generator: gen,
		Archive:   archive,
		Logger:    logger,
		BatchSize: batchSize,
	}
}

// SummarizePaper durchläuft Prompt, LLM, Parser und Speicherung für ein Paper.
// Bei einem Fehler wird das Paper auf failed gesetzt und der Fehler zurückgegeben.
func (s *SummarizationService) SummarizePaper(ctx context.Context, paper *models.Paper) (*models.Summary, error) {
	log := s.Logger.With(zap.Uint("paper_id", paper.ID))
	log.Info("Erstelle Zusammenfassung.", zap.String("title", paper.Title))

	paper.SummarizationStatus = models.SummarizationProcessing
	if err := s.Store.UpdatePaper(ctx, paper, storage.SummarizationColumns...); err != nil {
		return nil, fmt.Errorf("status processing konnte nicht gespeichert werden: %w", err)
	}

	summary, err := s.summarize(ctx, log, paper)
	if err != nil {
		log.Error("Zusammenfassung fehlgeschlagen.", zap.Error(err))
		papersProcessedCounter.WithLabelValues("summarize", models.SummarizationFailed).Inc()
		paper.SummarizationStatus = models.SummarizationFailed
		if saveErr := s.Store.UpdatePaper(ctx, paper, storage.SummarizationColumns...); saveErr != nil {
			log.Error("Status failed konnte nicht gespeichert werden.", zap.Error(saveErr))
		}
		return nil, err
	}

	paper.SummarizationStatus = models.SummarizationCompleted
	papersProcessedCounter.WithLabelValues("summarize", models.SummarizationCompleted).Inc()
	log.Info("Zusammenfassung gespeichert.")
	return summary, nil
}

func (s *SummarizationService) summarize(ctx context.Context, log *zap.Logger, paper *models.Paper) (*models.Summary, error) {
	raw, err := s.Generator.Generate(ctx, BuildSummaryPrompt(paper))
	if err != nil {
		return nil, fmt.Errorf("llm-aufruf: %w", err)
	}
	s.archiveRaw(ctx, log, paper.ID, raw)

	parsed := ParseSummary(raw)
	summary := &models.Summary{
		PaperID:           paper.ID,
		Objective:         parsed.Objective,
		Methods:           parsed.Methods,
		Results:           parsed.Results,
		Conclusion:        parsed.Conclusion,
		ClinicalRelevance: parsed.ClinicalRelevance,
		KeyPoints:         parsed.KeyPoints,
		ModelUsed:         s.Generator.Model(),
	}
	if err := s.Store.SaveSummary(ctx, paper, summary); err != nil {
		return nil, fmt.Errorf("zusammenfassung speichern: %w", err)
	}
	return summary, nil
}

func (s *SummarizationService) archiveRaw(ctx context.Context, log *zap.Logger, paperID uint, raw string) {
	if s.Archive == nil {
		return
	}
	key := fmt.Sprintf("summaries/%d.txt", paperID)
	if err := s.Archive.Put(ctx, key, []byte(raw)); err != nil {
		log.Warn("Rohantwort konnte nicht archiviert werden.", zap.String("key", key), zap.Error(err))
	}
}

// SummarizePending fasst bis zu BatchSize offene Papers mit Abstract zusammen.
// Fehler einzelner Papers brechen den Batch nicht ab. Zurückgegeben wird die
// Anzahl erfolgreicher Zusammenfassungen.
func (s *SummarizationService) SummarizePending(ctx context.Context) (int, error) {
	papers, err := s.Store.PendingSummarization(ctx, s.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("offene papers laden: %w", err)
	}
	s.Logger.Info("Papers für Zusammenfassung gefunden.", zap.Int("count", len(papers)))

	done := 0
	for i := range papers {
		if ctx.Err() != nil {
			return done, ctx.Err()
		}
		if _, err := s.SummarizePaper(ctx, &papers[i]); err != nil {
			continue
		}
		done++
	}
	return done, nil
}

// Reset löscht alle Zusammenfassungen und stellt Papers mit Abstract wieder zur Bearbeitung.
func (s *SummarizationService) Reset(ctx context.Context) (int64, error) {
	deleted, err := s.Store.ResetSummaries(ctx)
	if err != nil {
		return 0, fmt.Errorf("zusammenfassungen zurücksetzen: %w", err)
	}
	s.Logger.Info("Zusammenfassungen zurückgesetzt.", zap.Int64("deleted", deleted))
	return deleted, nil
}
