// Package app verdrahtet Konfiguration, Speicher, Provider und Services für
// den Server und das Kommandozeilenwerkzeug.
package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/MuhammadAbdelshafi/NeuroEdge-Backend/config"
	"github.com/MuhammadAbdelshafi/NeuroEdge-Backend/llm"
	"github.com/MuhammadAbdelshafi/NeuroEdge-Backend/models"
	"github.com/MuhammadAbdelshafi/NeuroEdge-Backend/notify"
	"github.com/MuhammadAbdelshafi/NeuroEdge-Backend/providers"
	"github.com/MuhammadAbdelshafi/NeuroEdge-Backend/providers/europepmc"
	"github.com/MuhammadAbdelshafi/NeuroEdge-Backend/providers/pubmed"
	"github.com/MuhammadAbdelshafi/NeuroEdge-Backend/providers/rss"
	"github.com/MuhammadAbdelshafi/NeuroEdge-Backend/providers/unpaywall"
	"github.com/MuhammadAbdelshafi/NeuroEdge-Backend/services"
	"github.com/MuhammadAbdelshafi/NeuroEdge-Backend/storage"
)

// App hält alle verdrahteten Komponenten.
type App struct {
	Config     *config.Config
	Logger     *zap.Logger
	DB         *gorm.DB
	Repo       *storage.Repository
	Taxonomies config.Taxonomies
	Sources    []config.Source

	Fetch     *services.FetchService
	Classify  *services.ClassificationService
	Summarize *services.SummarizationService
	Feed      *services.FeedEngine
	Notify    *services.NotificationService
	Recorder  *services.JobRecorder
	Scheduler *services.Scheduler

	closers []func() error
}

// New lädt Taxonomien und Quellen, öffnet die Datenbank und baut alle Services.
// Fehlende Taxonomien oder Quellen brechen den Start ab.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	taxonomies, err := config.LoadTaxonomies(cfg.TaxonomyDir)
	if err != nil {
		return nil, err
	}
	sources, err := config.LoadSources(cfg.SourcesFile)
	if err != nil {
		return nil, err
	}
	logger.Info("Statische Konfiguration geladen.",
		zap.Strings("topics", taxonomies.Topics.LabelNames()),
		zap.Strings("research_types", taxonomies.ResearchTypes.LabelNames()),
		zap.Int("sources", len(sources)))

	db, err := storage.OpenPostgres(cfg.DSN())
	if err != nil {
		return nil, err
	}
	logger.Info("Successfully connected to database.")
	repo := storage.NewRepository(db)
	if err := repo.Migrate(); err != nil {
		return nil, fmt.Errorf("auto-migration fehlgeschlagen: %w", err)
	}

	a := &App{Config: cfg, Logger: logger, DB: db, Repo: repo, Taxonomies: taxonomies, Sources: sources}
	a.closers = append(a.closers, func() error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})

	if err := a.buildServices(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) buildServices(ctx context.Context) error {
	cfg, logger := a.Config, a.Logger

	pubmedFetcher := pubmed.NewFetcher(cfg, logger)
	provs := []providers.Provider{
		pubmedFetcher,
		europepmc.NewFetcher(cfg, logger),
		rss.NewFetcher(cfg, logger, pubmedFetcher),
	}
	var oa services.OpenAccessResolver
	if cfg.UnpaywallEmail != "" {
		oa = unpaywall.NewFetcher(cfg, logger)
	}
	a.Fetch = services.NewFetchService(cfg, a.Repo, logger.Named("fetch"), a.Sources, provs, oa)

	classifier, err := services.NewClassifier(a.Taxonomies, services.NewTextNormalizer())
	if err != nil {
		return err
	}
	a.Classify = services.NewClassificationService(a.Repo, classifier, logger.Named("classify"), cfg.ClassifyBatchSize)

	gen, closeGen, err := llm.New(ctx, cfg, logger.Named("llm"))
	if err != nil {
		return err
	}
	a.closers = append(a.closers, closeGen)

	var archiver services.Archiver
	archive, err := storage.OpenArchive(ctx, cfg)
	if err != nil {
		logger.Warn("S3-Archiv deaktiviert.", zap.Error(err))
	} else if archive != nil {
		archiver = archive
	}
	a.Summarize = services.NewSummarizationService(a.Repo, gen, archiver, logger.Named("summarize"), cfg.SummarizeBatchSize)

	a.Feed = services.NewFeedEngine(a.Repo, a.Repo, logger.Named("feed"), cfg.FeedMaxCandidates)
	a.Notify = services.NewNotificationService(a.Feed, a.Repo, notify.New(cfg, logger), logger.Named("notify"))

	a.Recorder = services.NewJobRecorder(a.Repo, logger.Named("jobs"))
	a.Scheduler = services.NewScheduler(a.Recorder, logger.Named("scheduler"))
	return nil
}

// Stage ist eine Pipeline-Stufe mit ihrem Cron-Ausdruck.
type Stage struct {
	Name string
	Spec string
	Fn   services.StageFunc
}

// Stages liefert die Pipeline-Stufen in Ausführungsreihenfolge.
func (a *App) Stages() []Stage {
	return []Stage{
		{models.JobFetch, a.Config.CronFetch, a.Fetch.Run},
		{models.JobClassify, a.Config.CronClassify, a.Classify.ClassifyPending},
		{models.JobSummarize, a.Config.CronSummarize, a.Summarize.SummarizePending},
		{models.JobSendNotifications, a.Config.CronNotify, a.Notify.RunWeekly},
	}
}

// RegisterStages meldet alle Stufen beim Scheduler an. Mit schedule=false
// sind sie nur manuell auslösbar.
func (a *App) RegisterStages(schedule bool) error {
	for _, st := range a.Stages() {
		spec := ""
		if schedule {
			spec = st.Spec
		}
		if err := a.Scheduler.Register(st.Name, spec, st.Fn); err != nil {
			return err
		}
	}
	return nil
}

// Close gibt LLM-Client und Datenbankverbindung frei.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}
