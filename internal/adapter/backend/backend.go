// Package backend selects the configured session document backend.
package backend

import (
	"context"
	"fmt"

	"github.com/pscheid92/wagate/internal/adapter/jsonfile"
	"github.com/pscheid92/wagate/internal/adapter/metrics"
	"github.com/pscheid92/wagate/internal/adapter/redis"
	"github.com/pscheid92/wagate/internal/domain"
	"github.com/pscheid92/wagate/internal/platform/config"
)

// Document is a session document that can report its reachability.
type Document interface {
	domain.SessionDocument
	Ping(ctx context.Context) error
}

// Open returns the document for cfg.StoreBackend and a function releasing its resources.
// m may be nil.
func Open(ctx context.Context, cfg *config.Config, m *metrics.RedisMetrics) (Document, func(), error) {
	switch cfg.StoreBackend {
	case config.StoreBackendFile:
		return jsonfile.NewDocument(cfg.SessionsFile), func() {}, nil
	case config.StoreBackendRedis:
		rdb, err := redis.NewClient(ctx, cfg.RedisURL, m)
		if err != nil {
			return nil, nil, err
		}
		return redis.NewDocument(rdb, cfg.RedisSessionsKey), func() { _ = rdb.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
