package services

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MuhammadAbdelshafi/NeuroEdge-Backend/models"
)

// StageFunc ist eine Pipeline-Stufe. Der int ist die Anzahl verarbeiteter Einträge.
type StageFunc func(ctx context.Context) (int, error)

// JobRunStore speichert JobRuns.
type JobRunStore interface {
	CreateJobRun(ctx context.Context, run *models.JobRun) error
	FinishJobRun(ctx context.Context, run *models.JobRun) error
}

// JobRecorder protokolliert jeden Aufruf einer Stufe als genau einen JobRun.
type JobRecorder struct {
	Store  JobRunStore
	Logger *zap.Logger
	Now    func() time.Time
}

// NewJobRecorder erstellt einen JobRecorder.
func NewJobRecorder(store JobRunStore, logger *zap.Logger) *JobRecorder {
	return &JobRecorder{Store: store, Logger: logger, Now: time.Now}
}

// Wrap liefert fn als Stufe, deren Aufrufe protokolliert werden.
func (r *JobRecorder) Wrap(stage, trigger string, fn StageFunc) StageFunc {
	return func(ctx context.Context) (int, error) {
		return r.Run(ctx, stage, trigger, fn)
	}
}

// Run legt vor dem Aufruf einen laufenden JobRun an und schließt ihn danach
// mit success oder failed ab. Ein Panic wird protokolliert und erneut ausgelöst.
func (r *JobRecorder) Run(ctx context.Context, stage, trigger string, fn StageFunc) (items int, err error) {
	run := &models.JobRun{
		RunID:     uuid.NewString(),
		JobName:   stage,
		Status:    models.JobRunRunning,
		Trigger:   trigger,
		StartedAt: r.Now(),
	}
	log := r.Logger.With(zap.String("job", stage), zap.String("run_id", run.RunID), zap.String("trigger", trigger))
	if err := r.Store.CreateJobRun(ctx, run); err != nil {
		return 0, fmt.Errorf("jobrun anlegen: %w", err)
	}
	log.Info("Job gestartet.")

	defer func() {
		if p := recover(); p != nil {
			r.finish(ctx, log, run, 0, fmt.Sprintf("panic: %v\n%s", p, debug.Stack()))
			panic(p)
		}
		if err != nil {
			r.finish(ctx, log, run, items, fmt.Sprintf("%s\n%s", err.Error(), debug.Stack()))
			return
		}
		r.finish(ctx, log, run, items, "")
	}()

	return fn(ctx)
}

func (r *JobRecorder) finish(ctx context.Context, log *zap.Logger, run *models.JobRun, items int, errText string) {
	finished := r.Now()
	duration := finished.Sub(run.StartedAt).Seconds()
	run.FinishedAt = &finished
	run.DurationSec = &duration
	run.ItemsProcessed = items
	run.Status = models.JobRunSuccess
	if errText != "" {
		run.Status = models.JobRunFailed
		run.ErrorMessage = &errText
	}

	stageRunsCounter.WithLabelValues(run.JobName, run.Status).Inc()
	stageDuration.WithLabelValues(run.JobName).Observe(duration)

	// Abschluss auch bei abgebrochenem Kontext schreiben.
	if err := r.Store.FinishJobRun(context.WithoutCancel(ctx), run); err != nil {
		log.Error("JobRun konnte nicht abgeschlossen werden.", zap.Error(err))
		return
	}
	if run.Status == models.JobRunFailed {
		log.Error("Job fehlgeschlagen.", zap.Float64("duration_sec", duration), zap.String("error", errText))
		return
	}
	log.Info("Job abgeschlossen.", zap.Float64("duration_sec", duration), zap.Int("items", items))
}
