package monitor

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

// 文档注释：Redis 后端，多实例部署时共享同一份用量计数
// 约束：固定键 geogw:usage_metrics，无过期时间（日界清零由 Monitor 负责）
type RedisStore struct {
	rc *redis.Client
}

func NewRedisStore(rc *redis.Client) *RedisStore { return &RedisStore{rc: rc} }

func (s *RedisStore) Load(ctx context.Context) (*Metrics, error) {
	b, err := s.rc.Get(ctx, metricsKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	var m Metrics
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, nil
	}
	return &m, nil
}

func (s *RedisStore) Save(ctx context.Context, m Metrics) error {
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return s.rc.Set(ctx, metricsKey, b, 0).Err()
}
