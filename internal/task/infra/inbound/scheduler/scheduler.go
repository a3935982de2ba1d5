package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/davicafu/neuroassist/internal/task/application"
	taskDomain "github.com/davicafu/neuroassist/internal/task/domain"
)

const (
	refreshTimeout = 30 * time.Second
	digestWindow   = 7 * 24 * time.Hour
)

// Refresher es lo que necesita el job del repositorio.
type Refresher interface {
	Refresh(ctx context.Context) (application.Snapshot, error)
	GetOverdueTasks() []*taskDomain.Task
	GetTasksDueToday() []*taskDomain.Task
}

// DailyRefresh recarga la vista cuando cambia el día, para que los buckets
// "hoy" y "vencida" se recalculen, y deja en el log un resumen de vencidas.
type DailyRefresh struct {
	cron      *cron.Cron
	repo      Refresher
	analytics taskDomain.TaskAnalyticsRepository
	log       *zap.Logger
}

func NewDailyRefresh(repo Refresher, loc *time.Location, log *zap.Logger) *DailyRefresh {
	return &DailyRefresh{
		cron: cron.New(cron.WithLocation(loc)),
		repo: repo,
		log:  log,
	}
}

// SetAnalytics añade al resumen el tiempo medio de completado de la última semana.
func (s *DailyRefresh) SetAnalytics(a taskDomain.TaskAnalyticsRepository) {
	s.analytics = a
}

// Schedule registra el job con una expresión cron estándar de 5 campos ("0 0 * * *").
func (s *DailyRefresh) Schedule(spec string) (cron.EntryID, error) {
	id, err := s.cron.AddFunc(spec, func() { s.RunOnce(context.Background()) })
	if err != nil {
		return 0, fmt.Errorf("invalid refresh schedule %q: %w", spec, err)
	}
	return id, nil
}

func (s *DailyRefresh) Start() {
	s.cron.Start()
	s.log.Info("⏰ Scheduler iniciado", zap.Int("jobs", len(s.cron.Entries())))
}

// Stop espera a que termine el job en curso.
func (s *DailyRefresh) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// RunOnce ejecuta el refresco y el resumen. Los errores sólo se registran.
func (s *DailyRefresh) RunOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, refreshTimeout)
	defer cancel()

	snap, err := s.repo.Refresh(ctx)
	if err != nil {
		s.log.Error("Scheduled refresh failed", zap.Error(err))
		return
	}

	overdue := s.repo.GetOverdueTasks()
	titles := make([]string, 0, len(overdue))
	for _, t := range overdue {
		titles = append(titles, t.Title)
	}

	fields := []zap.Field{
		zap.Int("tasks", len(snap.Tasks)),
		zap.Int("due_today", len(s.repo.GetTasksDueToday())),
		zap.Int("overdue", len(overdue)),
		zap.Strings("overdue_titles", titles),
	}

	if s.analytics != nil {
		end := time.Now()
		avg, err := s.analytics.GetAverageCompletionTime(ctx, end.Add(-digestWindow), end)
		if err != nil {
			s.log.Warn("Average completion time unavailable", zap.Error(err))
		} else {
			fields = append(fields, zap.Duration("avg_completion", avg))
		}
	}

	s.log.Info("📋 Daily digest", fields...)
}
