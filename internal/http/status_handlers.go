package http

import (
	"context"
	"errors"
	nethttp "net/http"
	"time"

	"samadhi-report-ui/internal/connectors/catalog"
	"samadhi-report-ui/internal/connectors/statsfile"
)

func servicesStatusHandler(d Deps) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
		defer cancel()

		writeJSON(w, nethttp.StatusOK, map[string]any{
			"generated_at": time.Now().UTC(),
			"services": map[string]any{
				"statistics": statisticsStatus(ctx, d.Loader),
				"redis":      redisStatus(ctx, d.Cache),
				"catalog":    catalogStatus(ctx, d.Catalog),
			},
		})
	}
}

// statisticsStatus checks the general counts document, which every
// generation run writes, is reachable.
func statisticsStatus(ctx context.Context, loader *statsfile.Loader) map[string]any {
	source := loader.Source()
	start := time.Now()
	_, err := source.Fetch(ctx, statsfile.GeneralResource)
	recordExternalProbe("statistics", "Fetch", time.Since(start).Seconds(), err)
	if err != nil {
		status := map[string]any{"enabled": true, "ok": false, "source": source.Describe(), "error": err.Error()}
		if errors.Is(err, statsfile.ErrNotFound) {
			status["error"] = "general statistics document not found"
		}
		return status
	}
	return map[string]any{"enabled": true, "ok": true, "source": source.Describe()}
}

func redisStatus(ctx context.Context, cache *statsfile.RedisCache) map[string]any {
	if cache == nil {
		return map[string]any{"enabled": false, "ok": false, "error": "redis cache disabled"}
	}

	start := time.Now()
	err := cache.Ping(ctx)
	recordExternalProbe("redis", "Ping", time.Since(start).Seconds(), err)
	if err != nil {
		return map[string]any{"enabled": true, "ok": false, "error": err.Error()}
	}
	return map[string]any{"enabled": true, "ok": true}
}

func catalogStatus(ctx context.Context, store *catalog.Store) map[string]any {
	if store == nil {
		return map[string]any{"enabled": false, "ok": false, "error": "catalogue database disabled"}
	}

	start := time.Now()
	stats, err := store.ServiceStats(ctx)
	recordDBQuery("catalog", "ServiceStats", time.Since(start).Seconds(), err)
	if err != nil {
		return map[string]any{"enabled": true, "ok": false, "database": store.Describe(), "error": err.Error()}
	}
	return map[string]any{"enabled": true, "ok": true, "database": store.Describe(), "stats": stats}
}
