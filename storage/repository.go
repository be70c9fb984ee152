package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/MuhammadAbdelshafi/NeuroEdge-Backend/models"
)

// Repository implementiert alle Speicheroperationen der Pipeline auf PostgreSQL.
type Repository struct {
	db *gorm.DB
}

// OpenPostgres öffnet die Datenbankverbindung.
func OpenPostgres(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("verbindung zur datenbank fehlgeschlagen: %w", err)
	}
	return db, nil
}

// NewRepository erstellt ein Repository auf einer offenen Verbindung.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Migrate legt alle Tabellen an bzw. aktualisiert sie.
func (r *Repository) Migrate() error {
	return r.db.AutoMigrate(
		&models.Paper{},
		&models.Summary{},
		&models.JobRun{},
		&models.SourceFetchLog{},
		&models.UserPreference{},
	)
}

func (r *Repository) firstPaper(ctx context.Context, query string, arg any) (*models.Paper, error) {
	var p models.Paper
	err := r.db.WithContext(ctx).Where(query, arg).Order("id").First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// PaperByExternalID sucht ein Paper über die externe Kennung (PMID).
func (r *Repository) PaperByExternalID(ctx context.Context, id string) (*models.Paper, error) {
	return r.firstPaper(ctx, "external_id = ?", id)
}

// PaperByDOI sucht ein Paper über die DOI.
func (r *Repository) PaperByDOI(ctx context.Context, doi string) (*models.Paper, error) {
	return r.firstPaper(ctx, "doi = ?", doi)
}

// PaperByTitle sucht ein Paper mit exakt gleichem Titel ohne Beachtung der Groß-/Kleinschreibung.
func (r *Repository) PaperByTitle(ctx context.Context, title string) (*models.Paper, error) {
	return r.firstPaper(ctx, "LOWER(title) = LOWER(?)", title)
}

// pgUniqueViolation ist der SQLSTATE für verletzte Unique-Constraints.
const pgUniqueViolation = "23505"

// translateError bildet Unique-Verletzungen auf *UniqueViolation ab, wie sie
// auch Memory liefert. gorm benennt die Indizes idx_<tabelle>_<spalte>.
func translateError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgUniqueViolation {
		return err
	}
	column := pgErr.ColumnName
	if column == "" {
		column = strings.TrimPrefix(pgErr.ConstraintName, "idx_"+pgErr.TableName+"_")
	}
	return &UniqueViolation{Column: column}
}

// CreatePaper legt ein neues Paper an.
func (r *Repository) CreatePaper(ctx context.Context, p *models.Paper) error {
	return translateError(r.db.WithContext(ctx).Omit(clause.Associations).Create(p).Error)
}

// UpdatePaper schreibt nur die angegebenen Spalten eines bestehenden Papers.
func (r *Repository) UpdatePaper(ctx context.Context, p *models.Paper, columns ...string) error {
	if len(columns) == 0 {
		return errors.New("updatepaper ohne spalten")
	}
	res := r.db.WithContext(ctx).Model(p).
		Select(append([]string{"updated_at"}, columns...)).
		Updates(p)
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// PendingClassification liefert bis zu limit noch nicht klassifizierte Papers.
func (r *Repository) PendingClassification(ctx context.Context, limit int) ([]models.Paper, error) {
	var papers []models.Paper
	err := r.db.WithContext(ctx).
		Where("classification_status IS NULL OR classification_status = ?", models.ClassificationPending).
		Order("id").Limit(limit).Find(&papers).Error
	return papers, err
}

// PendingSummarization liefert bis zu limit Papers mit Abstract, die noch keine Zusammenfassung haben.
func (r *Repository) PendingSummarization(ctx context.Context, limit int) ([]models.Paper, error) {
	var papers []models.Paper
	err := r.db.WithContext(ctx).
		Where("summarization_status IS NULL OR summarization_status = ?", models.SummarizationPending).
		Where("abstract IS NOT NULL AND abstract <> ''").
		Order("id").Limit(limit).Find(&papers).Error
	return papers, err
}

// SaveSummary speichert die Zusammenfassung und setzt den Status des Papers
// in einer Transaktion auf completed.
func (r *Repository) SaveSummary(ctx context.Context, paper *models.Paper, summary *models.Summary) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		summary.PaperID = paper.ID
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "paper_id"}},
			UpdateAll: true,
		}).Create(summary).Error; err != nil {
			return err
		}
		return tx.Model(&models.Paper{}).Where("id = ?", paper.ID).
			Update("summarization_status", models.SummarizationCompleted).Error
	})
}

// ResetSummaries löscht alle Zusammenfassungen und setzt Papers mit Abstract auf pending zurück.
func (r *Repository) ResetSummaries(ctx context.Context) (int64, error) {
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("1 = 1").Delete(&models.Summary{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected
		return tx.Model(&models.Paper{}).
			Where("abstract IS NOT NULL AND abstract <> ''").
			Update("summarization_status", models.SummarizationPending).Error
	})
	return deleted, err
}

// CreateFetchLog hängt einen Abrufeintrag an.
func (r *Repository) CreateFetchLog(ctx context.Context, l *models.SourceFetchLog) error {
	return r.db.WithContext(ctx).Create(l).Error
}

// CreateJobRun legt einen laufenden JobRun an.
func (r *Repository) CreateJobRun(ctx context.Context, run *models.JobRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

// FinishJobRun schließt einen JobRun ab.
func (r *Repository) FinishJobRun(ctx context.Context, run *models.JobRun) error {
	updates := map[string]any{
		"status":          run.Status,
		"finished_at":     run.FinishedAt,
		"duration_sec":    run.DurationSec,
		"items_processed": run.ItemsProcessed,
		"error_message":   run.ErrorMessage,
	}
	return r.db.WithContext(ctx).Model(&models.JobRun{}).Where("id = ?", run.ID).Updates(updates).Error
}

// RecentJobRuns liefert die letzten JobRuns, neueste zuerst.
func (r *Repository) RecentJobRuns(ctx context.Context, limit int) ([]models.JobRun, error) {
	var runs []models.JobRun
	err := r.db.WithContext(ctx).Order("started_at DESC, id DESC").Limit(limit).Find(&runs).Error
	return runs, err
}

// feedFilter baut die WHERE-Bedingungen des Feeds. Platzhalter bleiben "?",
// gorm setzt sie für Postgres um.
func feedFilter(b sq.SelectBuilder, q FeedQuery) sq.SelectBuilder {
	if len(q.Statuses) > 0 {
		b = b.Where(sq.Eq{"summarization_status": q.Statuses})
	}
	if len(q.ResearchTypes) > 0 {
		b = b.Where(sq.Eq{"research_type": q.ResearchTypes})
	}
	if len(q.Sources) > 0 {
		b = b.Where(sq.Eq{"source": q.Sources})
	}
	if q.From != nil {
		b = b.Where(sq.GtOrEq{"publication_date": *q.From})
	}
	if q.Before != nil {
		b = b.Where(sq.Lt{"publication_date": *q.Before})
	}
	return b
}

func feedOrder(sort string) []string {
	switch sort {
	case SortDateAsc:
		return []string{"publication_date ASC", "id ASC"}
	case SortTitleAsc:
		return []string{"LOWER(title) ASC", "id ASC"}
	case SortTitleDesc:
		return []string{"LOWER(title) DESC", "id DESC"}
	case SortSourceAsc:
		return []string{"source ASC", "publication_date DESC", "id DESC"}
	default:
		return []string{"publication_date DESC", "id DESC"}
	}
}

// CountFeed zählt die Papers, die den Feed-Filtern entsprechen.
func (r *Repository) CountFeed(ctx context.Context, q FeedQuery) (int64, error) {
	query, args, err := feedFilter(sq.Select("COUNT(*)").From("papers"), q).ToSql()
	if err != nil {
		return 0, err
	}
	var count int64
	err = r.db.WithContext(ctx).Raw(query, args...).Scan(&count).Error
	return count, err
}

// FeedPapers liefert die gefilterten, sortierten Papers (ohne Zusammenfassungen).
func (r *Repository) FeedPapers(ctx context.Context, q FeedQuery) ([]models.Paper, error) {
	b := feedFilter(sq.Select("*").From("papers"), q).OrderBy(feedOrder(q.Sort)...)
	if q.Limit > 0 {
		b = b.Limit(uint64(q.Limit))
	}
	if q.Offset > 0 {
		b = b.Offset(uint64(q.Offset))
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	var papers []models.Paper
	err = r.db.WithContext(ctx).Raw(query, args...).Scan(&papers).Error
	return papers, err
}

// SummariesByPaperID lädt die Zusammenfassungen zu den angegebenen Papers.
func (r *Repository) SummariesByPaperID(ctx context.Context, ids []uint) (map[uint]models.Summary, error) {
	out := make(map[uint]models.Summary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var summaries []models.Summary
	if err := r.db.WithContext(ctx).Where("paper_id IN ?", ids).Find(&summaries).Error; err != nil {
		return nil, err
	}
	for _, s := range summaries {
		out[s.PaperID] = s
	}
	return out, nil
}

// UserPreferences lädt die Einstellungen eines Nutzers.
func (r *Repository) UserPreferences(ctx context.Context, userID string) (*models.UserPreference, error) {
	var p models.UserPreference
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// WeeklySubscribers liefert alle Nutzer mit wöchentlicher Benachrichtigung.
func (r *Repository) WeeklySubscribers(ctx context.Context) ([]models.UserPreference, error) {
	var prefs []models.UserPreference
	err := r.db.WithContext(ctx).
		Where("notification_frequency = ? AND email <> ''", models.NotifyWeekly).
		Order("user_id").Find(&prefs).Error
	return prefs, err
}

// MarkNotified setzt den Zeitpunkt der letzten Benachrichtigung.
func (r *Repository) MarkNotified(ctx context.Context, userID string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.UserPreference{}).
		Where("user_id = ?", userID).Update("last_notified_at", at).Error
}
