package provider

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"geo-gateway/internal/logger"
	"geo-gateway/internal/metrics"
)

// 文档注释：服务商句柄与计费会话令牌的共享持有者
// 背景：服务商按"一串联想 + 一次详情解析"作为一个会话计价；令牌首次使用时惰性创建，
// 详情解析成功后立刻轮换，使下一串输入落入新会话。
// 约束：全网关共享一个当前令牌；同页多个取点器并发时互相共享会话，这是沿用原型的
// 既有取舍（见 DESIGN.md），不在此处"修复"。
type Session struct {
	client *Client

	g     singleflight.Group
	mu    sync.Mutex
	ready bool

	token   string
	tokenAt time.Time
}

// NewSession：构造会话持有者，引导校验推迟到首次取用
func NewSession(client *Client) *Session {
	return &Session{client: client}
}

// Client：取服务商句柄（惰性引导）
// 背景：只有第一个调用方承担引导延迟；引导进行中的并发调用共享同一次在途校验，
// 不会触发第二次引导。
// 约束：引导失败会同时返回给所有等待者，且不被记忆，后续调用可重试引导。
func (s *Session) Client(ctx context.Context) (*Client, error) {
	s.mu.Lock()
	if s.ready {
		s.mu.Unlock()
		return s.client, nil
	}
	s.mu.Unlock()

	_, err, _ := s.g.Do("bootstrap", func() (any, error) {
		if err := s.client.Ping(ctx); err != nil {
			logger.L().Error("provider_bootstrap_error", "err", err)
			return nil, err
		}
		s.mu.Lock()
		s.ready = true
		s.mu.Unlock()
		logger.L().Info("provider_bootstrap_ok")
		return nil, nil
	})
	if err != nil {
		return nil, err
	}
	return s.client, nil
}

// Token：取当前计费会话令牌，首次取用时铸造
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == "" {
		s.token = uuid.NewString()
		s.tokenAt = time.Now()
		logger.L().Debug("session_token_minted")
	}
	return s.token
}

// RefreshToken：同步丢弃当前令牌
// 背景：详情解析成功即关闭本会话的计费单元，下一次 Token 会铸造新令牌
func (s *Session) RefreshToken() {
	s.mu.Lock()
	s.token = ""
	s.tokenAt = time.Time{}
	s.mu.Unlock()
	metrics.SessionRotationsTotal.Inc()
	logger.L().Debug("session_token_rotated")
}
