package services

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/MuhammadAbdelshafi/NeuroEdge-Backend/models"
	"github.com/MuhammadAbdelshafi/NeuroEdge-Backend/providers"
	"github.com/MuhammadAbdelshafi/NeuroEdge-Backend/storage"
)

// shortAbstract: kürzere gespeicherte Abstracts werden beim Merge ersetzt.
const shortAbstract = 50

// PaperStore ist der Teil des Speichers, den Deduplizierung und Fetch benötigen.
type PaperStore interface {
	PaperByExternalID(ctx context.Context, id string) (*models.Paper, error)
	PaperByDOI(ctx context.Context, doi string) (*models.Paper, error)
	PaperByTitle(ctx context.Context, title string) (*models.Paper, error)
	CreatePaper(ctx context.Context, p *models.Paper) error
	UpdatePaper(ctx context.Context, p *models.Paper, columns ...string) error
}

// Deduplicator entscheidet, ob ein abgerufener Artikel neu ist, und wertet
// bestehende Einträge (z.B. aus RSS) mit besseren Daten auf.
type Deduplicator struct {
	Store  PaperStore
	Logger *zap.Logger
}

// NewDeduplicator erstellt einen Deduplicator.
func NewDeduplicator(store PaperStore, logger *zap.Logger) *Deduplicator {
	return &Deduplicator{Store: store, Logger: logger}
}

// IsNew prüft in der Reihenfolge externe Kennung, DOI, Titel. Ein Treffer
// über DOI oder Titel wird sofort mit dem eingehenden Datensatz zusammengeführt.
func (d *Deduplicator) IsNew(ctx context.Context, raw providers.RawPaper) (bool, error) {
	if raw.ExternalID != nil {
		_, err := d.Store.PaperByExternalID(ctx, *raw.ExternalID)
		if err == nil {
			return false, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return false, fmt.Errorf("suche nach externer kennung: %w", err)
		}
	}

	if raw.DOI != nil {
		existing, err := d.Store.PaperByDOI(ctx, *raw.DOI)
		if err == nil {
			return false, d.merge(ctx, existing, raw)
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return false, fmt.Errorf("suche nach doi: %w", err)
		}
	}

	existing, err := d.Store.PaperByTitle(ctx, raw.Title)
	if err == nil {
		return false, d.merge(ctx, existing, raw)
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return false, fmt.Errorf("suche nach titel: %w", err)
	}
	return true, nil
}

func (d *Deduplicator) merge(ctx context.Context, existing *models.Paper, raw providers.RawPaper) error {
	changed := false
	if existing.ExternalID == nil && raw.ExternalID != nil {
		id := *raw.ExternalID
		existing.ExternalID = &id
		changed = true
	}
	if raw.Abstract != nil && *raw.Abstract != "" &&
		(existing.Abstract == nil || utf8.RuneCountInString(*existing.Abstract) < shortAbstract) {
		abstract := *raw.Abstract
		existing.Abstract = &abstract
		changed = true
	}
	if !changed {
		return nil
	}

	if err := d.Store.UpdatePaper(ctx, existing, storage.IdentityColumns...); err != nil {
		return fmt.Errorf("merge in paper %d: %w", existing.ID, err)
	}
	d.Logger.Info("Bestehendes Paper aktualisiert.",
		zap.Uint("paper_id", existing.ID), zap.String("title", existing.Title))
	return nil
}
