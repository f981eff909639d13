package monitor

import (
	"context"
	"os"
	"sync"

	"github.com/redis/go-redis/v9"

	"geo-gateway/internal/logger"
)

// 持久化键：与历史数据保持兼容，不随部署变化
const metricsKey = "geogw:usage_metrics"

// Store：用量快照的持久化后端
// 背景：页面端原型用 localStorage；服务端按部署环境选文件、Redis 或 Postgres。
// 约束：Load 在键不存在时返回 (nil, nil)；损坏数据按不存在处理，不向上抛错
type Store interface {
	Load(ctx context.Context) (*Metrics, error)
	Save(ctx context.Context, m Metrics) error
}

// StoreFromEnv：按 USAGE_STORE 选择后端
// 约束：可选 file / redis / postgres / memory；未配置或初始化失败时回退内存后端
func StoreFromEnv(ctx context.Context, rc *redis.Client) Store {
	switch os.Getenv("USAGE_STORE") {
	case "redis":
		if rc != nil {
			return NewRedisStore(rc)
		}
		logger.L().Warn("usage_store_redis_unavailable")
	case "postgres":
		st, err := NewPostgresStoreFromEnv(ctx)
		if err != nil {
			logger.L().Warn("usage_store_pg_error", "err", err)
		} else {
			return st
		}
	case "file":
		return NewFileStoreFromEnv()
	}
	return NewMemoryStore()
}

// MemoryStore：仅内存的兜底后端，进程结束即丢失
type MemoryStore struct {
	mu sync.Mutex
	m  *Metrics
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (s *MemoryStore) Load(ctx context.Context) (*Metrics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.m == nil {
		return nil, nil
	}
	out := *s.m
	return &out, nil
}

func (s *MemoryStore) Save(ctx context.Context, m Metrics) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m = &m
	return nil
}
