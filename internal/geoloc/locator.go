// 包 geoloc：设备定位的网关闸门，冷却窗口与在途去重都在这里收口
package geoloc

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/oschwald/geoip2-golang"

	"geo-gateway/internal/result"
)

// Reading：一次定位读数
// 约束：短暂态数据，除设备自身的短期缓存外不进入网关缓存
type Reading struct {
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	AccuracyMeters float64 `json:"accuracy_meters"`
}

// Options：传给定位实现的参数，对齐浏览器 getCurrentPosition 的取值
type Options struct {
	HighAccuracy bool
	MaxAge       time.Duration
}

// Locator：定位来源
// 背景：浏览器侧是 navigator.geolocation；服务端部署时用客户端 IP 过 GeoIP 库近似
// 约束：失败以 *result.Error 返回以便闸门归类（权限 / 不可用 / 超时）
type Locator interface {
	Current(ctx context.Context, opts Options) (Reading, error)
}

// 文档注释：GeoIP 定位实现
// 背景：服务端拿不到设备定位，用 MaxMind City 库按来源 IP 给出城市级读数；
// 精度半径由库提供（公里），换算为米向上取整口径。
// 约束：私网与未收录 IP 返回"位置不可用"；不访问外部服务。
type GeoIPLocator struct {
	db *geoip2.Reader
	ip net.IP
}

// OpenGeoIPFromEnv：打开 GeoIP 城市库
// 约束：路径由 GEOIP_DB 指定，缺省 data/geoip/GeoLite2-City.mmdb；文件缺失返回错误由调用方降级
func OpenGeoIPFromEnv() (*geoip2.Reader, error) {
	path := os.Getenv("GEOIP_DB")
	if path == "" {
		path = filepath.Join("data", "geoip", "GeoLite2-City.mmdb")
	}
	return geoip2.Open(path)
}

func NewGeoIPLocator(db *geoip2.Reader, ip net.IP) *GeoIPLocator {
	return &GeoIPLocator{db: db, ip: ip}
}

func (l *GeoIPLocator) Current(ctx context.Context, opts Options) (Reading, error) {
	var zero Reading
	if l.db == nil || l.ip == nil {
		return zero, &result.Error{Kind: result.KindPositionUnavailable}
	}
	rec, err := l.db.City(l.ip)
	if err != nil {
		return zero, &result.Error{Kind: result.KindPositionUnavailable, Detail: err.Error()}
	}
	if rec.Location.Latitude == 0 && rec.Location.Longitude == 0 {
		return zero, &result.Error{Kind: result.KindPositionUnavailable}
	}
	return Reading{
		Latitude:       rec.Location.Latitude,
		Longitude:      rec.Location.Longitude,
		AccuracyMeters: float64(rec.Location.AccuracyRadius) * 1000,
	}, nil
}
