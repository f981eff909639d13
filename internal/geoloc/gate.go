package geoloc

import (
	"context"
	"errors"
	"sync"
	"time"

	"geo-gateway/internal/logger"
	"geo-gateway/internal/metrics"
	"geo-gateway/internal/monitor"
	"geo-gateway/internal/result"
)

const (
	defaultCooldown = 5 * time.Second
	defaultTimeout  = 10 * time.Second
	defaultMaxAge   = 30 * time.Second
)

// 文档注释：定位闸门
// 背景：定位取数又慢又贵，用户连点按钮时不能每次都打设备 API；
// 冷却窗口内直接回放上一次的已知结果，在途请求被后续调用方共享。
// 约束：冷却按上一次尝试的开始时间计算，与完成时间无关；失败以"空值 + 错误态"
// 解析返回，调用方不需要异常处理路径。
type Gate struct {
	loc      Locator
	mon      *monitor.Monitor
	cooldown time.Duration
	timeout  time.Duration
	maxAge   time.Duration

	mu          sync.Mutex
	lastAttempt time.Time
	last        *Reading
	lastKind    result.Kind
	pending     *pendingCall
}

type pendingCall struct {
	done chan struct{}
	res  result.Result[Reading]
}

// GateOption：构造时的可调参数，测试用短窗口
type GateOption func(*Gate)

func WithCooldown(d time.Duration) GateOption { return func(g *Gate) { g.cooldown = d } }
func WithTimeout(d time.Duration) GateOption  { return func(g *Gate) { g.timeout = d } }

func NewGate(loc Locator, mon *monitor.Monitor, opts ...GateOption) *Gate {
	g := &Gate{
		loc:      loc,
		mon:      mon,
		cooldown: defaultCooldown,
		timeout:  defaultTimeout,
		maxAge:   defaultMaxAge,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Request：请求一次定位
// 背景：三条路径按序判定——在途共享、冷却回放、真正发起；
// 只有真正发起的路径会触达定位实现并记入用量。
func (g *Gate) Request(ctx context.Context) result.Result[Reading] {
	g.mu.Lock()
	if p := g.pending; p != nil {
		g.mu.Unlock()
		metrics.GeolocSuppressedTotal.Inc()
		logger.L().Debug("geoloc_join_inflight")
		<-p.done
		return p.res
	}
	now := time.Now()
	if !g.lastAttempt.IsZero() && now.Sub(g.lastAttempt) < g.cooldown {
		res := g.knownLocked()
		g.mu.Unlock()
		metrics.GeolocSuppressedTotal.Inc()
		logger.L().Debug("geoloc_cooldown_suppressed")
		return res
	}
	g.lastAttempt = now
	p := &pendingCall{done: make(chan struct{})}
	g.pending = p
	g.mu.Unlock()

	g.mon.RecordRequest(ctx, monitor.KindGeolocation, false)
	metrics.GeolocRequestsTotal.Inc()

	cctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	reading, err := g.loc.Current(cctx, Options{HighAccuracy: true, MaxAge: g.maxAge})

	g.mu.Lock()
	if err != nil {
		kind := classifyLocate(cctx, err)
		g.lastKind = kind
		p.res = result.Err[Reading](kind)
		g.mon.RecordError(ctx, monitor.KindGeolocation)
		logger.L().Warn("geoloc_error", "kind", kind.String())
	} else {
		r := reading
		g.last = &r
		g.lastKind = result.KindNone
		p.res = result.Ok(reading)
		logger.L().Debug("geoloc_ok", "accuracy_m", reading.AccuracyMeters)
	}
	g.pending = nil
	g.mu.Unlock()
	close(p.done)
	return p.res
}

// LastError：最近一次失败的用户文案，成功后清空
func (g *Gate) LastError() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.lastKind == result.KindNone {
		return ""
	}
	return g.lastKind.Message()
}

// knownLocked：冷却期内回放的已知结果
func (g *Gate) knownLocked() result.Result[Reading] {
	if g.last != nil {
		return result.Ok(*g.last)
	}
	if g.lastKind != result.KindNone {
		return result.Err[Reading](g.lastKind)
	}
	return result.Empty[Reading]()
}

// classifyLocate：定位失败归类
// 约束：权限拒绝、位置不可用、超时各有独立文案；其余归未知
func classifyLocate(ctx context.Context, err error) result.Kind {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return result.KindTimeout
	}
	switch result.KindOf(err) {
	case result.KindPermissionDenied:
		return result.KindPermissionDenied
	case result.KindPositionUnavailable:
		return result.KindPositionUnavailable
	case result.KindTimeout:
		return result.KindTimeout
	}
	return result.KindUnknown
}
