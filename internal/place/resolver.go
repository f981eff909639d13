// 包 place：地点标识到坐标与归一化地址的解析，解析成功即关闭当前计费会话
package place

import (
	"context"

	"geo-gateway/internal/address"
	"geo-gateway/internal/gateway"
	"geo-gateway/internal/logger"
	"geo-gateway/internal/metrics"
	"geo-gateway/internal/monitor"
	"geo-gateway/internal/result"
)

// 文档注释：地点详情解析器
// 背景：用户在联想列表里选中一条后，需要把地点标识换成坐标与结构化地址；
// 这是会话计价的终点，成功后立刻轮换会话令牌，使下一串输入开新会话。
// 约束：详情很稳定，命中缓存时不轮换令牌（没有发生计费调用，会话仍然开着）。
type Resolver struct {
	gw *gateway.Context
}

func NewResolver(gw *gateway.Context) *Resolver {
	return &Resolver{gw: gw}
}

// Resolve：解析地点标识
// 返回：Ok(坐标 + 地址)；服务商无匹配时 Empty；失败按分类给 Err
func (r *Resolver) Resolve(ctx context.Context, placeID string) result.Result[gateway.Selection] {
	if placeID == "" {
		return result.Empty[gateway.Selection]()
	}
	key := "details_" + placeID

	if cached, ok := r.gw.DetailsCache.Get(key); ok {
		r.gw.Monitor.RecordRequest(ctx, monitor.KindDetails, true)
		metrics.CacheHitsTotal.WithLabelValues(r.gw.DetailsCache.Name()).Inc()
		logger.L().Debug("place_cache_hit", "place_id", placeID)
		return result.Ok(cached)
	}

	client, err := r.gw.Session.Client(ctx)
	if err != nil {
		r.gw.Monitor.RecordError(ctx, monitor.KindDetails)
		return result.Err[gateway.Selection](result.KindOf(err))
	}

	r.gw.Monitor.RecordRequest(ctx, monitor.KindDetails, false)
	metrics.CacheMissesTotal.WithLabelValues(r.gw.DetailsCache.Name()).Inc()

	res, err := client.GeocodePlaceID(ctx, placeID)
	if err != nil {
		r.gw.Monitor.RecordError(ctx, monitor.KindDetails)
		logger.L().Error("place_resolve_error", "place_id", placeID, "err", err)
		return result.Err[gateway.Selection](result.KindOf(err))
	}
	if res == nil {
		logger.L().Debug("place_zero_results", "place_id", placeID)
		return result.Empty[gateway.Selection]()
	}

	// 解析成功即关闭本次"联想 + 选中"的计费单元
	r.gw.Session.RefreshToken()

	sel := gateway.Selection{
		Lat:     res.Geometry.Location.Lat,
		Lng:     res.Geometry.Location.Lng,
		Address: address.Parse(res),
	}
	r.gw.DetailsCache.Set(key, sel)
	logger.L().Debug("place_resolved", "place_id", placeID, "lat", sel.Lat, "lng", sel.Lng)
	return result.Ok(sel)
}
