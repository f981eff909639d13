package picker

// 文档注释：地图渲染面抽象
// 背景：取点器不关心地图具体由谁渲染，只依赖"居中 / 缩放 / 单个可拖拽标记 /
// 点击与拖拽结束事件"这几个最小能力；服务端测试用假实现即可覆盖全部编排逻辑。
// 约束：每个取点器至多一个标记，重复落点必须复用移动而不是重建；
// 事件回调由取点器注册，渲染面负责在交互发生时带坐标回调。
type MapSurface interface {
	SetCenter(lat, lng float64)
	SetZoom(level int)
	// PlaceMarker 在坐标处放置唯一标记；已有标记时仅移动
	PlaceMarker(lat, lng float64)
	OnClick(fn func(lat, lng float64))
	OnMarkerDragEnd(fn func(lat, lng float64))
}

// SurfaceFactory：渲染面的惰性构造器，首次需要时才创建实例
type SurfaceFactory func() (MapSurface, error)
