// 包 revgeo：坐标反解服务，拖拽场景下靠代际计数丢弃过期响应
package revgeo

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"geo-gateway/internal/address"
	"geo-gateway/internal/gateway"
	"geo-gateway/internal/logger"
	"geo-gateway/internal/metrics"
	"geo-gateway/internal/monitor"
	"geo-gateway/internal/result"
)

// 文档注释：反解服务
// 背景：地图快速拖拽会产生一串重叠的在途反解，服务商调用本身没有取消能力；
// 每次调用领取一个递增代际号，响应到达时与最新代际比对，过期响应不得落地，
// 保证"后发调用赢"而不是"先到响应赢"。
// 约束：缓存键把坐标圆整到 4 位小数（约 11 米），同一带宽的反复拖拽命中同一条；
// 代际计数是单消费方语义，每个取点器 / 每个请求各持一个服务实例，缓存仍全局共享。
type Service struct {
	gw  *gateway.Context
	gen atomic.Uint64

	mu      sync.Mutex
	last    *address.Result
	errKind result.Kind
}

func New(gw *gateway.Context) *Service {
	return &Service{gw: gw}
}

// ReverseGeocode：坐标反解为地址
// 约束：无效坐标（零值、NaN、Inf）立即返回 Empty，无任何副作用；
// 被更晚调用超越的响应返回 Empty 且不更新可观察状态。
func (s *Service) ReverseGeocode(ctx context.Context, lat, lng float64) result.Result[address.Result] {
	if !validCoords(lat, lng) {
		return result.Empty[address.Result]()
	}
	key := fmt.Sprintf("%.4f,%.4f", lat, lng)

	if cached, ok := s.gw.RevGeoCache.Get(key); ok {
		s.gw.Monitor.RecordRequest(ctx, monitor.KindReverseGeocode, true)
		metrics.CacheHitsTotal.WithLabelValues(s.gw.RevGeoCache.Name()).Inc()
		logger.L().Debug("revgeo_cache_hit", "key", key)
		s.apply(&cached, result.KindNone)
		return result.Ok(cached)
	}

	// 领取代际号：之后开始的任何调用都会超越本次
	gen := s.gen.Add(1)

	s.gw.Monitor.RecordRequest(ctx, monitor.KindReverseGeocode, false)
	metrics.CacheMissesTotal.WithLabelValues(s.gw.RevGeoCache.Name()).Inc()

	client, err := s.gw.Session.Client(ctx)
	if err != nil {
		s.gw.Monitor.RecordError(ctx, monitor.KindReverseGeocode)
		return s.resolve(gen, nil, result.KindOf(err))
	}

	res, err := client.GeocodeLatLng(ctx, lat, lng)
	if err != nil {
		s.gw.Monitor.RecordError(ctx, monitor.KindReverseGeocode)
		logger.L().Error("revgeo_error", "key", key, "err", err)
		return s.resolve(gen, nil, result.KindOf(err))
	}
	if res == nil {
		return s.resolve(gen, nil, result.KindZeroResults)
	}

	addr := address.Parse(res)
	// 过期响应也写缓存：数据本身是新鲜的，后续同键调用可直接命中
	s.gw.RevGeoCache.Set(key, addr)
	return s.resolve(gen, &addr, result.KindNone)
}

// LastResult：最近一次落地的地址，尚无结果时返回 false
func (s *Service) LastResult() (address.Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return address.Result{}, false
	}
	return *s.last, true
}

// LastError：最近一次失败的用户文案
// 约束：权限 / 配置、零结果、一般失败各有独立文案
func (s *Service) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.errKind == result.KindNone {
		return ""
	}
	return s.errKind.Message()
}

// resolve：响应落地点，过期代际在此被丢弃
func (s *Service) resolve(gen uint64, addr *address.Result, kind result.Kind) result.Result[address.Result] {
	if s.gen.Load() != gen {
		metrics.StaleDiscardsTotal.Inc()
		logger.L().Debug("revgeo_stale_discarded", "gen", gen)
		return result.Empty[address.Result]()
	}
	s.apply(addr, kind)
	if kind != result.KindNone {
		return result.Err[address.Result](kind)
	}
	if addr == nil {
		return result.Empty[address.Result]()
	}
	return result.Ok(*addr)
}

func (s *Service) apply(addr *address.Result, kind result.Kind) {
	s.mu.Lock()
	if addr != nil {
		s.last = addr
	}
	s.errKind = kind
	s.mu.Unlock()
}

func validCoords(lat, lng float64) bool {
	if lat == 0 || lng == 0 {
		return false
	}
	if math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}
