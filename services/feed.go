package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/MuhammadAbdelshafi/NeuroEdge-Backend/models"
	"github.com/MuhammadAbdelshafi/NeuroEdge-Backend/storage"
)

// ErrInvalidFilter meldet ungültige Feed-Parameter (Datumsangaben, Presets).
var ErrInvalidFilter = errors.New("ungültiger feed-filter")

// Datumspresets des Feeds
const (
	PresetToday  = "today"
	Preset7d     = "7d"
	Preset30d    = "30d"
	Preset3m     = "3m"
	Preset6m     = "6m"
	Preset12m    = "12m"
	PresetAll    = "all"
	PresetCustom = "custom"
)

var presetDays = map[string]int{
	PresetToday: 0,
	Preset7d:    7,
	Preset30d:   30,
	Preset3m:    90,
	Preset6m:    180,
	Preset12m:   365,
}

const (
	dateLayout      = "2006-01-02"
	defaultPageSize = 20
	maxPageSize     = 100
)

// Im Feed sichtbare Zusammenfassungs-Status; pending zeigt das Abstract.
var feedStatuses = []string{models.SummarizationCompleted, models.SummarizationPending}

// FeedStore liefert die Kandidaten des Feeds.
type FeedStore interface {
	CountFeed(ctx context.Context, q storage.FeedQuery) (int64, error)
	FeedPapers(ctx context.Context, q storage.FeedQuery) ([]models.Paper, error)
	SummariesByPaperID(ctx context.Context, ids []uint) (map[uint]models.Summary, error)
}

// PreferencesProvider liefert Nutzereinstellungen für Feed und Benachrichtigungen.
type PreferencesProvider interface {
	UserPreferences(ctx context.Context, userID string) (*models.UserPreference, error)
	WeeklySubscribers(ctx context.Context) ([]models.UserPreference, error)
	MarkNotified(ctx context.Context, userID string, at time.Time) error
}

// FeedRequest sind die Parameter einer Feed-Abfrage.
type FeedRequest struct {
	Page          int      `form:"page"`
	PageSize      int      `form:"page_size"`
	Sort          string   `form:"sort"`
	Topics        []string `form:"topics"`
	ResearchTypes []string `form:"research_types"`
	Sources       []string `form:"sources"`
	DatePreset    string   `form:"date_preset"`
	DateFrom      string   `form:"date_from"`
	DateTo        string   `form:"date_to"`
}

// FeedPage ist eine Seite des Feeds. Papers tragen ihre Zusammenfassung, falls vorhanden.
type FeedPage struct {
	Papers   []models.Paper `json:"papers"`
	Total    int64          `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
}

// FeedEngine beantwortet Feed-Abfragen.
type FeedEngine struct {
	Store         FeedStore
	Preferences   PreferencesProvider
	Logger        *zap.Logger
	MaxCandidates int
	Now           func() time.Time
}

// NewFeedEngine erstellt die Feed-Engine. prefs darf nil sein.
func NewFeedEngine(store FeedStore, prefs PreferencesProvider, logger *zap.Logger, maxCandidates int) *FeedEngine {
	return &FeedEngine{
		Store:         store,
		Preferences:   prefs,
		Logger:        logger,
		MaxCandidates: maxCandidates,
		Now:           time.Now,
	}
}

// GetFeed filtert, sortiert und paginiert die Papers für einen Nutzer. Ohne
// Themenfilter übernimmt die Datenbank Zählung und Paginierung, sonst werden
// die Kandidaten im Speicher nach Labels gefiltert.
func (e *FeedEngine) GetFeed(ctx context.Context, userID string, req FeedRequest) (FeedPage, error) {
	page, pageSize := normalizePage(req.Page, req.PageSize)

	from, before, err := e.dateRange(req.DatePreset, req.DateFrom, req.DateTo)
	if err != nil {
		return FeedPage{}, err
	}

	topics, researchTypes, err := e.applyPreferences(ctx, userID, req)
	if err != nil {
		return FeedPage{}, err
	}

	q := storage.FeedQuery{
		Statuses:      feedStatuses,
		ResearchTypes: researchTypes,
		Sources:       req.Sources,
		From:          from,
		Before:        before,
		Sort:          SortKey(req.Sort),
	}

	result := FeedPage{Page: page, PageSize: pageSize, Papers: []models.Paper{}}
	offset := (page - 1) * pageSize

	if len(topics) == 0 {
		total, err := e.Store.CountFeed(ctx, q)
		if err != nil {
			return FeedPage{}, fmt.Errorf("feed zählen: %w", err)
		}
		q.Offset, q.Limit = offset, pageSize
		papers, err := e.Store.FeedPapers(ctx, q)
		if err != nil {
			return FeedPage{}, fmt.Errorf("feed laden: %w", err)
		}
		result.Total = total
		if papers != nil {
			result.Papers = papers
		}
	} else {
		q.Limit = e.MaxCandidates
		candidates, err := e.Store.FeedPapers(ctx, q)
		if err != nil {
			return FeedPage{}, fmt.Errorf("feed-kandidaten laden: %w", err)
		}
		if e.MaxCandidates > 0 && len(candidates) >= e.MaxCandidates {
			e.Logger.Warn("Feed-Kandidaten abgeschnitten.", zap.Int("limit", e.MaxCandidates))
		}

		filtered := candidates[:0]
		for _, p := range candidates {
			if p.HasLabel(topics...) {
				filtered = append(filtered, p)
			}
		}
		result.Total = int64(len(filtered))
		if offset < len(filtered) {
			result.Papers = filtered[offset:min(offset+pageSize, len(filtered))]
		}
	}

	if err := e.attachSummaries(ctx, result.Papers); err != nil {
		return FeedPage{}, err
	}
	return result, nil
}

// applyPreferences ergänzt leere Themen- und Studientypfilter aus den
// Nutzereinstellungen, außer es wurde nach Quellen gefiltert.
func (e *FeedEngine) applyPreferences(ctx context.Context, userID string, req FeedRequest) ([]string, []string, error) {
	topics, researchTypes := req.Topics, req.ResearchTypes
	if len(req.Sources) > 0 || userID == "" || e.Preferences == nil {
		return topics, researchTypes, nil
	}
	if len(topics) > 0 && len(researchTypes) > 0 {
		return topics, researchTypes, nil
	}

	prefs, err := e.Preferences.UserPreferences(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return topics, researchTypes, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("nutzereinstellungen laden: %w", err)
	}
	if len(topics) == 0 {
		topics = prefs.Topics
	}
	if len(researchTypes) == 0 {
		researchTypes = prefs.ResearchTypes
	}
	return topics, researchTypes, nil
}

// dateRange bestimmt [from, before) aus Preset oder eigenem Zeitraum.
// Das Enddatum eines eigenen Zeitraums ist inklusive.
func (e *FeedEngine) dateRange(preset, fromStr, toStr string) (*time.Time, *time.Time, error) {
	custom := fromStr != "" || toStr != ""
	switch preset {
	case "", PresetCustom:
	case PresetAll:
		if custom {
			return nil, nil, fmt.Errorf("%w: preset %q mit eigenem zeitraum", ErrInvalidFilter, preset)
		}
		return nil, nil, nil
	default:
		days, ok := presetDays[preset]
		if !ok {
			return nil, nil, fmt.Errorf("%w: unbekanntes preset %q", ErrInvalidFilter, preset)
		}
		if custom {
			return nil, nil, fmt.Errorf("%w: preset %q mit eigenem zeitraum", ErrInvalidFilter, preset)
		}
		now := e.Now()
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		start := today.AddDate(0, 0, -days)
		return &start, nil, nil
	}

	var from, before *time.Time
	if fromStr != "" {
		t, err := time.Parse(dateLayout, fromStr)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: date_from %q", ErrInvalidFilter, fromStr)
		}
		from = &t
	}
	if toStr != "" {
		t, err := time.Parse(dateLayout, toStr)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: date_to %q", ErrInvalidFilter, toStr)
		}
		end := t.AddDate(0, 0, 1)
		before = &end
	}
	if from != nil && before != nil && !from.Before(*before) {
		return nil, nil, fmt.Errorf("%w: date_from nach date_to", ErrInvalidFilter)
	}
	return from, before, nil
}

func (e *FeedEngine) attachSummaries(ctx context.Context, papers []models.Paper) error {
	if len(papers) == 0 {
		return nil
	}
	ids := make([]uint, len(papers))
	for i := range papers {
		ids[i] = papers[i].ID
	}
	summaries, err := e.Store.SummariesByPaperID(ctx, ids)
	if err != nil {
		return fmt.Errorf("zusammenfassungen laden: %w", err)
	}
	for i := range papers {
		if s, ok := summaries[papers[i].ID]; ok {
			papers[i].Summary = &s
		}
	}
	return nil
}

// SortKey übersetzt die Sortierung der API in eine Speicher-Sortierung.
// Unbekannte Werte sortieren nach Datum absteigend.
func SortKey(sort string) string {
	switch sort {
	case "date_asc":
		return storage.SortDateAsc
	case "title", "title_asc":
		return storage.SortTitleAsc
	case "title_desc":
		return storage.SortTitleDesc
	case "source", "journal":
		return storage.SortSourceAsc
	default:
		return storage.SortDateDesc
	}
}

func normalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return page, size
}
