package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/MuhammadAbdelshafi/NeuroEdge-Backend/models"
	"github.com/MuhammadAbdelshafi/NeuroEdge-Backend/storage"
)

func TestSchedulerTriggerRejectsConcurrentRun(t *testing.T) {
	t.Parallel()

	store := storage.NewMemory()
	s := NewScheduler(NewJobRecorder(store, zap.NewNop()), zap.NewNop())
	release := make(chan struct{})
	started := make(chan struct{})
	if err := s.Register(models.JobFetch, "", func(ctx context.Context) (int, error) {
		close(started)
		<-release
		return 3, nil
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if err := s.Trigger(models.JobFetch); err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	<-started
	if err := s.Trigger(models.JobFetch); !errors.Is(err, ErrStageRunning) {
		t.Fatalf("second Trigger err = %v", err)
	}
	if _, err := s.RunNow(context.Background(), models.JobFetch, models.TriggerCLI); !errors.Is(err, ErrStageRunning) {
		t.Fatalf("RunNow err = %v", err)
	}
	close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.Stop(ctx)

	runs := store.JobRuns()
	if len(runs) != 1 || runs[0].Status != models.JobRunSuccess || runs[0].Trigger != models.TriggerManual || runs[0].ItemsProcessed != 3 {
		t.Fatalf("runs = %+v", runs)
	}
}

func TestSchedulerUnknownStageAndBadSpec(t *testing.T) {
	t.Parallel()

	s := NewScheduler(NewJobRecorder(storage.NewMemory(), zap.NewNop()), zap.NewNop())
	if err := s.Trigger("nope"); !errors.Is(err, ErrUnknownStage) {
		t.Fatalf("Trigger err = %v", err)
	}
	if err := s.Register("x", "not a cron", func(context.Context) (int, error) { return 0, nil }); err == nil {
		t.Fatal("expected invalid cron expression error")
	}
	if err := s.Register(models.JobClassify, "15 * * * *", func(context.Context) (int, error) { return 0, nil }); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := s.Register(models.JobClassify, "", nil); err == nil {
		t.Fatal("expected duplicate registration error")
	}
}

func TestSchedulerRunNow(t *testing.T) {
	t.Parallel()

	store := storage.NewMemory()
	s := NewScheduler(NewJobRecorder(store, zap.NewNop()), zap.NewNop())
	_ = s.Register(models.JobSummarize, "", func(context.Context) (int, error) { return 2, nil })

	n, err := s.RunNow(context.Background(), models.JobSummarize, models.TriggerCLI)
	if err != nil || n != 2 {
		t.Fatalf("RunNow = %d, %v", n, err)
	}
	if got := s.Stages(); len(got) != 1 || got[0] != models.JobSummarize {
		t.Fatalf("Stages = %v", got)
	}
}
