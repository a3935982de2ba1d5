package application

import (
	"context"

	sharedCache "github.com/davicafu/neuroassist/internal/shared/infra/platform/cache"
	taskDomain "github.com/davicafu/neuroassist/internal/task/domain"
	"go.uber.org/zap"
)

// CachedSummary lee el resumen con el patrón cache-aside. En caso de miss
// (o de caché caída) se calcula desde la vista y se repone en segundo plano.
func (r *TaskRepository) CachedSummary(ctx context.Context) TaskSummary {
	// 1. Intentar obtener de la caché
	if r.cache != nil {
		var s TaskSummary
		hit, err := r.cache.Get(ctx, taskDomain.TaskSummaryCacheKey, &s)
		if err != nil {
			r.log.Warn("⚠️ Cache read failed", zap.String("key", taskDomain.TaskSummaryCacheKey), zap.Error(err))
		}
		if hit {
			return s
		}
	}

	// 2. Si es 'miss', calcular desde la vista y reponer la caché
	summary := r.Summary()
	sharedCache.AsyncCacheSet(r.cache, taskDomain.TaskSummaryCacheKey, summary, r.cfg.SummaryTTL, r.log)
	return summary
}
