package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/MuhammadAbdelshafi/NeuroEdge-Backend/models"
	"github.com/MuhammadAbdelshafi/NeuroEdge-Backend/storage"
)

// ClassificationStore ist der Teil des Speichers, den die Klassifikation benötigt.
type ClassificationStore interface {
	PendingClassification(ctx context.Context, limit int) ([]models.Paper, error)
	UpdatePaper(ctx context.Context, p *models.Paper, columns ...string) error
}

// ClassificationService wendet den Classifier auf gespeicherte Papers an.
type ClassificationService struct {
	Store      ClassificationStore
	Classifier *Classifier
	Logger     *zap.Logger
	BatchSize  int
}

// NewClassificationService erstellt den Service.
func NewClassificationService(store ClassificationStore, classifier *Classifier, logger *zap.Logger, batchSize int) *ClassificationService {
	return &ClassificationService{Store: store, Classifier: classifier, Logger: logger, BatchSize: batchSize}
}

// ClassifyPaper setzt Labels, Studientyp und Konfidenz und markiert das Paper
// als completed. Schlägt das fehl, wird es als failed gespeichert.
func (s *ClassificationService) ClassifyPaper(ctx context.Context, paper *models.Paper) (err error) {
	log := s.Logger.With(zap.Uint("paper_id", paper.ID))
	before := *paper

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic bei klassifikation: %v", r)
		}
		if err == nil {
			papersProcessedCounter.WithLabelValues("classify", models.ClassificationCompleted).Inc()
			return
		}
		log.Error("Klassifikation fehlgeschlagen.", zap.Error(err))
		papersProcessedCounter.WithLabelValues("classify", models.ClassificationFailed).Inc()
		*paper = before
		paper.ClassificationStatus = models.ClassificationFailed
		if saveErr := s.Store.UpdatePaper(ctx, paper, storage.ClassificationColumns...); saveErr != nil {
			log.Error("Status failed konnte nicht gespeichert werden.", zap.Error(saveErr))
		}
	}()

	abstract := ""
	if paper.Abstract != nil {
		abstract = *paper.Abstract
	}
	result := s.Classifier.Classify(paper.Title, abstract)

	paper.TopicLabels = result.Topics
	paper.ResearchType = &result.ResearchType
	paper.ClassificationConfidence = &result.Confidence
	paper.ClassificationStatus = models.ClassificationCompleted
	if err := s.Store.UpdatePaper(ctx, paper, storage.ClassificationColumns...); err != nil {
		return fmt.Errorf("klassifikation speichern: %w", err)
	}

	log.Debug("Paper klassifiziert.",
		zap.Strings("topics", result.Topics),
		zap.String("research_type", result.ResearchType),
		zap.Float64("confidence", result.Confidence))
	return nil
}

// ClassifyPending klassifiziert bis zu BatchSize offene Papers in
// Speicherreihenfolge und gibt die Anzahl erfolgreicher Klassifikationen zurück.
func (s *ClassificationService) ClassifyPending(ctx context.Context) (int, error) {
	papers, err := s.Store.PendingClassification(ctx, s.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("offene papers laden: %w", err)
	}
	s.Logger.Info("Papers für Klassifikation gefunden.", zap.Int("count", len(papers)))

	done := 0
	for i := range papers {
		if ctx.Err() != nil {
			return done, ctx.Err()
		}
		if err := s.ClassifyPaper(ctx, &papers[i]); err != nil {
			continue
		}
		done++
	}
	return done, nil
}
