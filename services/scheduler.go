package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/MuhammadAbdelshafi/NeuroEdge-Backend/models"
)

var (
	// ErrStageRunning wird zurückgegeben, wenn die Stufe in diesem Prozess bereits läuft.
	ErrStageRunning = errors.New("stufe läuft bereits")
	// ErrUnknownStage meldet einen nicht registrierten Stufennamen.
	ErrUnknownStage = errors.New("unbekannte stufe")
)

type stage struct {
	fn      StageFunc
	running sync.Mutex
}

// Scheduler führt die Pipeline-Stufen zeitgesteuert oder manuell aus.
// Eine Stufe läuft pro Prozess nie doppelt.
type Scheduler struct {
	cron     *cron.Cron
	recorder *JobRecorder
	logger   *zap.Logger
	stages   map[string]*stage

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler erstellt den Scheduler. Cron-Aufrufe überspringen Läufe,
// solange der vorherige noch aktiv ist, und fangen Panics ab.
func NewScheduler(recorder *JobRecorder, logger *zap.Logger) *Scheduler {
	cronLogger := cron.PrintfLogger(zap.NewStdLog(logger))
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cronLogger),
			cron.Recover(cronLogger),
		)),
		recorder: recorder,
		logger:   logger,
		stages:   make(map[string]*stage),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Register meldet eine Stufe an. Ein leerer spec registriert sie nur für
// manuelle Auslösung.
func (s *Scheduler) Register(name, spec string, fn StageFunc) error {
	if _, ok := s.stages[name]; ok {
		return fmt.Errorf("stufe %q ist bereits registriert", name)
	}
	st := &stage{fn: fn}
	if spec == "" {
		s.stages[name] = st
		return nil
	}

	_, err := s.cron.AddFunc(spec, func() {
		if _, err := s.execute(s.ctx, name, st, models.TriggerScheduler); err != nil {
			if errors.Is(err, ErrStageRunning) {
				s.logger.Warn("Geplanter Lauf übersprungen, Stufe läuft noch.", zap.String("job", name))
				return
			}
			s.logger.Error("Geplanter Lauf fehlgeschlagen.", zap.String("job", name), zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("cron-ausdruck %q für %s: %w", spec, name, err)
	}
	s.stages[name] = st
	s.logger.Info("Stufe geplant.", zap.String("job", name), zap.String("schedule", spec))
	return nil
}

// Stages liefert die registrierten Stufen alphabetisch.
func (s *Scheduler) Stages() []string {
	names := make([]string, 0, len(s.stages))
	for name := range s.stages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Start startet die zeitgesteuerten Läufe.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop beendet den Cron, bricht laufende Stufen ab und wartet auf sie oder ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	cronDone := s.cron.Stop()
	s.cancel()

	done := make(chan struct{})
	go func() {
		<-cronDone.Done()
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn("Scheduler nicht rechtzeitig beendet.")
	}
}

// Trigger startet eine Stufe asynchron. Läuft sie bereits, kommt ErrStageRunning zurück.
func (s *Scheduler) Trigger(name string) error {
	st, ok := s.stages[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownStage, name)
	}
	if !st.running.TryLock() {
		return ErrStageRunning
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer st.running.Unlock()
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("Panic in manuell ausgelöster Stufe.", zap.String("job", name), zap.Any("panic", r))
			}
		}()
		if _, err := s.recorder.Run(s.ctx, name, models.TriggerManual, st.fn); err != nil {
			s.logger.Error("Manueller Lauf fehlgeschlagen.", zap.String("job", name), zap.Error(err))
		}
	}()
	return nil
}

// RunNow führt eine Stufe synchron aus.
func (s *Scheduler) RunNow(ctx context.Context, name, trigger string) (int, error) {
	st, ok := s.stages[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownStage, name)
	}
	return s.execute(ctx, name, st, trigger)
}

func (s *Scheduler) execute(ctx context.Context, name string, st *stage, trigger string) (int, error) {
	if !st.running.TryLock() {
		return 0, ErrStageRunning
	}
	defer st.running.Unlock()
	return s.recorder.Run(ctx, name, trigger, st.fn)
}
