// 包 suggest：地点联想服务，带内置去抖、缓存与会话计费
package suggest

import (
	"context"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"geo-gateway/internal/gateway"
	"geo-gateway/internal/logger"
	"geo-gateway/internal/metrics"
	"geo-gateway/internal/monitor"
	"geo-gateway/internal/provider"
	"geo-gateway/internal/result"
)

// 联想结果上限：再多对下拉列表没有意义，只多花钱
const maxPredictions = 10

// 最短触发长度：不足时清空候选且不产生任何网络与缓存活动
const minInputLen = 3

// 文档注释：联想服务
// 背景：搜索框每次输入都会调 GetSuggestions；服务内部去抖后按裁剪文本查缓存，
// 未命中才携带会话令牌出网。零结果与出错是两个独立终态：前者清空候选不置错，
// 后者置错并清空候选。
// 约束：候选列表与错误文案是可观察状态，由服务串行更新；同一实例供单个搜索框使用。
type Service struct {
	gw  *gateway.Context
	deb *debouncer

	mu          sync.Mutex
	predictions []provider.Prediction
	errKind     result.Kind
	loading     bool
}

// DebounceFromEnv：去抖窗口，缺省 300ms
func DebounceFromEnv() time.Duration {
	if v := os.Getenv("SUGGEST_DEBOUNCE_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return time.Duration(n) * time.Millisecond
		}
	}
	return 300 * time.Millisecond
}

func New(gw *gateway.Context, debounce time.Duration) *Service {
	return &Service{gw: gw, deb: newDebouncer(debounce)}
}

// GetSuggestions：输入变化入口（即发即弃）
// 约束：短输入立即清空候选并丢弃挂起查询；达到长度的输入进入去抖窗口
func (s *Service) GetSuggestions(input string) {
	if len(input) < minInputLen {
		s.deb.cancel()
		s.mu.Lock()
		s.predictions = nil
		s.errKind = result.KindNone
		s.mu.Unlock()
		return
	}
	trimmed := strings.TrimSpace(input)
	s.deb.do(func() {
		s.Lookup(context.Background(), trimmed)
	})
}

// Lookup：同步查询路径
// 背景：去抖窗口结束后走到这里；HTTP 接口等需要同步语义的消费方可直接调用
func (s *Service) Lookup(ctx context.Context, input string) result.Result[[]provider.Prediction] {
	trimmed := strings.TrimSpace(input)
	if len(trimmed) < minInputLen {
		s.setState(nil, result.KindNone)
		return result.Empty[[]provider.Prediction]()
	}
	key := "autocomplete_" + trimmed

	if cached, ok := s.gw.SuggestCache.Get(key); ok {
		s.gw.Monitor.RecordRequest(ctx, monitor.KindAutocomplete, true)
		metrics.CacheHitsTotal.WithLabelValues(s.gw.SuggestCache.Name()).Inc()
		logger.L().Debug("suggest_cache_hit", "input", trimmed)
		s.setState(cached, result.KindNone)
		return result.Ok(cached)
	}

	s.mu.Lock()
	s.loading = true
	s.errKind = result.KindNone
	s.mu.Unlock()

	client, err := s.gw.Session.Client(ctx)
	if err != nil {
		s.gw.Monitor.RecordError(ctx, monitor.KindAutocomplete)
		s.finishErr(result.KindOf(err))
		return result.Err[[]provider.Prediction](result.KindOf(err))
	}
	token := s.gw.Session.Token()

	s.gw.Monitor.RecordRequest(ctx, monitor.KindAutocomplete, false)
	metrics.CacheMissesTotal.WithLabelValues(s.gw.SuggestCache.Name()).Inc()

	preds, err := client.Autocomplete(ctx, trimmed, token)
	if err != nil {
		s.gw.Monitor.RecordError(ctx, monitor.KindAutocomplete)
		logger.L().Error("suggest_error", "input", trimmed, "err", err)
		s.finishErr(result.KindOf(err))
		return result.Err[[]provider.Prediction](result.KindOf(err))
	}
	if len(preds) == 0 {
		// 零结果：清空候选，不置错
		logger.L().Debug("suggest_zero_results", "input", trimmed)
		s.finishOk(nil)
		return result.Empty[[]provider.Prediction]()
	}
	if len(preds) > maxPredictions {
		preds = preds[:maxPredictions]
	}
	s.gw.SuggestCache.Set(key, preds)
	s.finishOk(preds)
	return result.Ok(preds)
}

// Predictions：当前候选列表快照
func (s *Service) Predictions() []provider.Prediction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]provider.Prediction, len(s.predictions))
	copy(out, s.predictions)
	return out
}

// Err：当前错误文案，无错返回空串
func (s *Service) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.errKind == result.KindNone {
		return ""
	}
	return s.errKind.Message()
}

// Loading：是否有在途查询
func (s *Service) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

func (s *Service) setState(preds []provider.Prediction, kind result.Kind) {
	s.mu.Lock()
	s.predictions = preds
	s.errKind = kind
	s.mu.Unlock()
}

func (s *Service) finishOk(preds []provider.Prediction) {
	s.mu.Lock()
	s.predictions = preds
	s.errKind = result.KindNone
	s.loading = false
	s.mu.Unlock()
}

func (s *Service) finishErr(kind result.Kind) {
	s.mu.Lock()
	s.predictions = nil
	s.errKind = kind
	s.loading = false
	s.mu.Unlock()
}
