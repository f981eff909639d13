// 包 picker：组合取点器，把联想、详情、反解、定位编排到一张地图上
package picker

import (
	"context"
	"sync"

	"geo-gateway/internal/address"
	"geo-gateway/internal/gateway"
	"geo-gateway/internal/geoloc"
	"geo-gateway/internal/logger"
	"geo-gateway/internal/place"
	"geo-gateway/internal/provider"
	"geo-gateway/internal/result"
	"geo-gateway/internal/revgeo"
	"geo-gateway/internal/suggest"
)

// 印度全境视图：未给初始坐标时的兜底中心与层级
const (
	defaultCenterLat = 20.5937
	defaultCenterLng = 78.9629
	zoomCountry      = 5
	zoomInitial      = 15
	zoomPicked       = 17
)

// 文档注释：取点器配置
// 背景：初始坐标可选；给了就以 15 级聚焦到该点并预落标记，
// 没给则以 5 级展示全境等待用户交互。选点结果经 OnSelect 回调外抛。
type Options struct {
	InitialLat float64
	InitialLng float64
	OnSelect   func(lat, lng float64, addr address.Result)
}

// 文档注释：组合取点器
// 背景：点击、拖拽标记、搜索选中、请求当前位置四条路径最终都汇到同一个
// 落点流程：移动标记、聚焦地图、反解地址、回调外抛。
// 约束：渲染面惰性构造且仅构造一次；反解服务为取点器私有（代际计数是
// 单消费方语义），缓存经共享网关上下文全局复用。
type Picker struct {
	gw      *gateway.Context
	factory SurfaceFactory
	opts    Options

	revgeo  *revgeo.Service
	resolve *place.Resolver
	sug     *suggest.Service
	gate    *geoloc.Gate

	mu      sync.Mutex
	surface MapSurface
	curLat  float64
	curLng  float64
}

// New：构造取点器，gate 可为 nil（不提供"当前位置"能力）
func New(gw *gateway.Context, factory SurfaceFactory, gate *geoloc.Gate, opts Options) *Picker {
	if opts.InitialLat == 0 && opts.InitialLng == 0 {
		opts.InitialLat = defaultCenterLat
		opts.InitialLng = defaultCenterLng
	}
	return &Picker{
		gw:      gw,
		factory: factory,
		opts:    opts,
		revgeo:  revgeo.New(gw),
		resolve: place.NewResolver(gw),
		sug:     suggest.New(gw, suggest.DebounceFromEnv()),
		gate:    gate,
		curLat:  opts.InitialLat,
		curLng:  opts.InitialLng,
	}
}

// Surface：惰性取渲染面；首次调用创建地图、挂事件、按初始坐标定位
func (p *Picker) Surface(ctx context.Context) (MapSurface, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.surface != nil {
		return p.surface, nil
	}
	s, err := p.factory()
	if err != nil {
		logger.L().Error("picker_surface_init_error", "err", err)
		return nil, err
	}
	s.OnClick(func(lat, lng float64) { p.pick(ctx, lat, lng) })
	s.OnMarkerDragEnd(func(lat, lng float64) { p.pick(ctx, lat, lng) })

	s.SetCenter(p.opts.InitialLat, p.opts.InitialLng)
	if p.opts.InitialLat == defaultCenterLat && p.opts.InitialLng == defaultCenterLng {
		s.SetZoom(zoomCountry)
	} else {
		s.SetZoom(zoomInitial)
		s.PlaceMarker(p.opts.InitialLat, p.opts.InitialLng)
	}
	p.surface = s
	return s, nil
}

// Pick：落点主流程，点击 / 拖拽 / 外部指定坐标统一入口
func (p *Picker) Pick(ctx context.Context, lat, lng float64) result.Result[address.Result] {
	return p.pick(ctx, lat, lng)
}

func (p *Picker) pick(ctx context.Context, lat, lng float64) result.Result[address.Result] {
	s, err := p.Surface(ctx)
	if err != nil {
		return result.Err[address.Result](result.KindOf(err))
	}

	p.mu.Lock()
	p.curLat, p.curLng = lat, lng
	p.mu.Unlock()

	s.PlaceMarker(lat, lng)
	s.SetCenter(lat, lng)
	s.SetZoom(zoomPicked)

	res := p.revgeo.ReverseGeocode(ctx, lat, lng)
	if res.IsOk() && p.opts.OnSelect != nil {
		p.opts.OnSelect(lat, lng, res.Value)
	}
	return res
}

// SelectPlace：搜索结果选中路径，详情解析成功后走统一落点流程
func (p *Picker) SelectPlace(ctx context.Context, placeID string) result.Result[address.Result] {
	sel := p.resolve.Resolve(ctx, placeID)
	if !sel.IsOk() {
		return result.Result[address.Result]{State: sel.State, Kind: sel.Kind}
	}
	// 详情已含完整地址，落点无须二次反解
	s, err := p.Surface(ctx)
	if err != nil {
		return result.Err[address.Result](result.KindOf(err))
	}
	p.mu.Lock()
	p.curLat, p.curLng = sel.Value.Lat, sel.Value.Lng
	p.mu.Unlock()
	s.PlaceMarker(sel.Value.Lat, sel.Value.Lng)
	s.SetCenter(sel.Value.Lat, sel.Value.Lng)
	s.SetZoom(zoomPicked)
	if p.opts.OnSelect != nil {
		p.opts.OnSelect(sel.Value.Lat, sel.Value.Lng, sel.Value.Address)
	}
	return result.Ok(sel.Value.Address)
}

// UseCurrentLocation：定位闸门取设备位置后落点
func (p *Picker) UseCurrentLocation(ctx context.Context) result.Result[address.Result] {
	if p.gate == nil {
		return result.Err[address.Result](result.KindPositionUnavailable)
	}
	loc := p.gate.Request(ctx)
	if !loc.IsOk() {
		return result.Result[address.Result]{State: loc.State, Kind: loc.Kind}
	}
	return p.pick(ctx, loc.Value.Latitude, loc.Value.Longitude)
}

// Suggest：搜索框联想，直接透传联想服务的同步路径
func (p *Picker) Suggest(ctx context.Context, input string) result.Result[[]provider.Prediction] {
	return p.sug.Lookup(ctx, input)
}

// Position：当前落点坐标
func (p *Picker) Position() (lat, lng float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.curLat, p.curLng
}
