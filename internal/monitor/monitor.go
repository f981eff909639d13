// 包 monitor：网关用量计数器，跨进程重启持久化，按自然日惰性清零
// 背景：地图服务商按调用计费，页面端需要随时可见"今天花了多少次请求、缓存省了多少"；
// 计数在每次变更后尽力持久化，存储不可用时退化为仅内存统计，绝不阻断查询主流程。
package monitor

import (
	"context"
	"sync"
	"time"

	"geo-gateway/internal/logger"
)

// Kind：请求分类，与计费口径对齐
type Kind string

const (
	KindAutocomplete   Kind = "autocomplete"
	KindDetails        Kind = "details"
	KindGeocode        Kind = "geocode"
	KindReverseGeocode Kind = "reverse_geocode"
	KindGeolocation    Kind = "geolocation"
)

// Metrics：用量快照
// 约束：LastRequestAt 所在自然日（本地时区）与当前日不同的首次记录会先清零
type Metrics struct {
	Total          int          `json:"total"`
	ByKind         map[Kind]int `json:"by_kind"`
	BillableByKind map[Kind]int `json:"billable_by_kind"`
	CacheHits      int          `json:"cache_hits"`
	CacheMisses    int          `json:"cache_misses"`
	Errors         int          `json:"errors"`
	LastRequestAt  time.Time    `json:"last_request_at"`

	// 估算字段：由 Snapshot 按单价表填充，不参与持久化比较
	EstimatedCostUSD  float64 `json:"estimated_cost_usd"`
	EstimatedSavedUSD float64 `json:"estimated_saved_usd"`
}

func emptyMetrics() Metrics {
	return Metrics{
		ByKind:         make(map[Kind]int),
		BillableByKind: make(map[Kind]int),
	}
}

// Monitor：进程级用量监控器
// 约束：仅 Monitor 自身修改计数；其余组件只读快照
type Monitor struct {
	mu      sync.Mutex
	m       Metrics
	store   Store
	pricing Pricing
}

// New：构造监控器并尝试从持久存储恢复
// 背景：页面重载（进程重启）后延续当日计数；读取失败或内容损坏按空计数处理
func New(ctx context.Context, store Store, pricing Pricing) *Monitor {
	mon := &Monitor{m: emptyMetrics(), store: store, pricing: pricing}
	if store == nil {
		return mon
	}
	loaded, err := store.Load(ctx)
	if err != nil {
		logger.L().Warn("usage_load_error", "err", err)
		return mon
	}
	if loaded == nil {
		return mon
	}
	if !sameLocalDay(loaded.LastRequestAt, time.Now()) {
		logger.L().Info("usage_day_rollover_on_load")
		return mon
	}
	if loaded.ByKind == nil {
		loaded.ByKind = make(map[Kind]int)
	}
	if loaded.BillableByKind == nil {
		loaded.BillableByKind = make(map[Kind]int)
	}
	mon.m = *loaded
	return mon
}

// RecordRequest：记录一次逻辑请求
// 约束：每个调用点每次逻辑尝试恰好调用一次；wasCacheHit 标记是否被缓存挡下
func (mon *Monitor) RecordRequest(ctx context.Context, kind Kind, wasCacheHit bool) {
	mon.mu.Lock()
	mon.rolloverLocked(time.Now())
	mon.m.Total++
	mon.m.ByKind[kind]++
	if wasCacheHit {
		mon.m.CacheHits++
	} else {
		mon.m.CacheMisses++
		mon.m.BillableByKind[kind]++
	}
	mon.m.LastRequestAt = time.Now()
	total := mon.m.Total
	snapshot := mon.copyLocked()
	mon.mu.Unlock()

	// 高用量提醒：超过 100 次后每 50 次告警一次
	if total > 100 && total%50 == 0 {
		logger.L().Warn("usage_high", "total", total, "cache_hits", snapshot.CacheHits)
	}
	mon.persist(ctx, snapshot)
}

// RecordError：记录一次失败
func (mon *Monitor) RecordError(ctx context.Context, kind Kind) {
	mon.mu.Lock()
	mon.rolloverLocked(time.Now())
	mon.m.Errors++
	mon.m.LastRequestAt = time.Now()
	snapshot := mon.copyLocked()
	mon.mu.Unlock()
	logger.L().Error("usage_request_error", "kind", string(kind))
	mon.persist(ctx, snapshot)
}

// Snapshot：返回当前计数的副本，并按单价表填充费用估算
func (mon *Monitor) Snapshot() Metrics {
	mon.mu.Lock()
	out := mon.copyLocked()
	mon.mu.Unlock()
	out.EstimatedCostUSD, out.EstimatedSavedUSD = mon.pricing.Estimate(out)
	return out
}

// copyLocked：计数的深拷贝，须持锁调用
// 约束：持久化与快照只能拿到拷贝；map 随 mon.m 逃出锁外会与后续记账并发读写
func (mon *Monitor) copyLocked() Metrics {
	out := mon.m
	out.ByKind = make(map[Kind]int, len(mon.m.ByKind))
	for k, v := range mon.m.ByKind {
		out.ByKind[k] = v
	}
	out.BillableByKind = make(map[Kind]int, len(mon.m.BillableByKind))
	for k, v := range mon.m.BillableByKind {
		out.BillableByKind[k] = v
	}
	return out
}

// Reset：手动清零并持久化
func (mon *Monitor) Reset(ctx context.Context) {
	mon.mu.Lock()
	mon.m = emptyMetrics()
	snapshot := mon.copyLocked()
	mon.mu.Unlock()
	mon.persist(ctx, snapshot)
}

// rolloverLocked：跨自然日惰性清零
// 约束：按本地时区的日界判断；不依赖后台定时器
func (mon *Monitor) rolloverLocked(now time.Time) {
	if mon.m.Total == 0 && mon.m.Errors == 0 {
		return
	}
	if !mon.m.LastRequestAt.IsZero() && !sameLocalDay(mon.m.LastRequestAt, now) {
		logger.L().Info("usage_day_rollover", "previous_total", mon.m.Total)
		mon.m = emptyMetrics()
	}
}

// persist：尽力持久化，失败仅记日志
func (mon *Monitor) persist(ctx context.Context, m Metrics) {
	if mon.store == nil {
		return
	}
	if err := mon.store.Save(ctx, m); err != nil {
		logger.L().Warn("usage_save_error", "err", err)
	}
}

func sameLocalDay(a, b time.Time) bool {
	ay, am, ad := a.Local().Date()
	by, bm, bd := b.Local().Date()
	return ay == by && am == bm && ad == bd
}
