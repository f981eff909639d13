// 包 gateway：网关共享状态的显式容器
// 背景：页面端原型把缓存与会话令牌放在模块级单例里，隐式共享；这里改为显式构造
// 一个 Context 注入各消费方，同类缓存仍然全局仅一份，以保证命中率口径正确。
package gateway

import (
	"context"
	"os"
	"strconv"
	"time"

	"geo-gateway/internal/address"
	"geo-gateway/internal/cache"
	"geo-gateway/internal/logger"
	"geo-gateway/internal/monitor"
	"geo-gateway/internal/provider"
)

// Selection：一次选点的最终产物，交给上层作为表单字段转发到业务后端
type Selection struct {
	Lat     float64        `json:"lat"`
	Lng     float64        `json:"lng"`
	Address address.Result `json:"address"`
}

// Context：三类缓存 + 用量监控 + 会话持有者
// 约束：每类缓存全进程仅此一份；计费会话令牌同样全局共享，同页多个取点器并发时
// 会互相影响对方的会话归属，这是沿用原型的既有行为（见 DESIGN.md 的未决问题）。
type Context struct {
	Session *provider.Session
	Monitor *monitor.Monitor

	SuggestCache *cache.Cache[[]provider.Prediction]
	RevGeoCache  *cache.Cache[address.Result]
	DetailsCache *cache.Cache[Selection]
}

// NewContext：构造网关上下文
// 背景：联想文本易变，缓存短而小；地点详情稳定，缓存长而大；反解居中。
// 容量与 TTL 可用 CACHE_<NAME>_CAP / CACHE_<NAME>_TTL_S 覆盖。
func NewContext(sess *provider.Session, mon *monitor.Monitor) *Context {
	return &Context{
		Session:      sess,
		Monitor:      mon,
		SuggestCache: cache.New[[]provider.Prediction]("autocomplete", envInt("CACHE_AUTOCOMPLETE_CAP", 50), envSeconds("CACHE_AUTOCOMPLETE_TTL_S", 5*time.Minute)),
		RevGeoCache:  cache.New[address.Result]("reverse_geocode", envInt("CACHE_REVERSE_GEOCODE_CAP", 100), envSeconds("CACHE_REVERSE_GEOCODE_TTL_S", 10*time.Minute)),
		DetailsCache: cache.New[Selection]("place_details", envInt("CACHE_PLACE_DETAILS_CAP", 20), envSeconds("CACHE_PLACE_DETAILS_TTL_S", 30*time.Minute)),
	}
}

// Warm：可选的预热
// 背景：原型在挂载时预创建会话令牌，避免首次键入时串行等待引导；失败不致命
func (c *Context) Warm(ctx context.Context) {
	if _, err := c.Session.Client(ctx); err != nil {
		logger.L().Warn("gateway_warm_error", "err", err)
		return
	}
	_ = c.Session.Token()
	logger.L().Debug("gateway_warm_ok")
}

func envInt(name string, def int) int {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func envSeconds(name string, def time.Duration) time.Duration {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	return def
}
