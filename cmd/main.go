// 程序入口：仅负责读取配置、初始化依赖并启动服务；API 注册在 internal/api 以便扩展
package main

import (
	"context"
	"net/http"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"geo-gateway/internal/api"
	"geo-gateway/internal/gateway"
	"geo-gateway/internal/geoloc"
	"geo-gateway/internal/logger"
	"geo-gateway/internal/metrics"
	"geo-gateway/internal/middleware"
	"geo-gateway/internal/monitor"
	"geo-gateway/internal/provider"
	"geo-gateway/internal/utils"
)

func main() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join("data", "env", ".env"))
	l := logger.Setup()
	l.Debug("log_init_ok")

	apiBase := os.Getenv("API_BASE")
	if apiBase == "" {
		apiBase = "/api"
	}
	l.Debug("config_api_base", "base", apiBase)

	client := provider.FromEnv()
	sess := provider.NewSession(client)

	rc := utils.OpenRedisFromEnv()
	if rc == nil {
		l.Info("redis_disabled")
	} else if err := rc.Ping(context.Background()).Err(); err != nil {
		l.Error("redis_ping_error", "err", err)
	} else {
		l.Info("redis_ping_ok")
	}

	ctx := context.Background()
	store := monitor.StoreFromEnv(ctx, rc)
	mon := monitor.New(ctx, store, monitor.PricingFromEnv())
	gw := gateway.NewContext(sess, mon)

	// 预热可选：提前完成服务商探活与会话令牌创建，首个请求不吃冷启动延迟
	if os.Getenv("WARM_ON_START") == "true" {
		gw.Warm(ctx)
	}

	// GeoIP 库缺失时定位接口降级，不阻断启动
	geodb, err := geoloc.OpenGeoIPFromEnv()
	if err != nil {
		l.Warn("geoip_open_error", "err", err)
	} else {
		l.Info("geoip_open_ok")
	}

	mux := http.NewServeMux()
	mux.Handle(apiBase+"/", http.StripPrefix(apiBase, api.BuildRoutes(gw, geodb)))
	mux.Handle(apiBase+"/metrics", metrics.Handler())

	addr := os.Getenv("ADDR")
	if addr == "" {
		addr = ":8080"
	}
	handler := logger.AccessMiddleware(l)(mux)
	handler = middleware.Wrap(handler)
	l.Info("server_start", "addr", addr)
	if err := http.ListenAndServe(addr, handler); err != nil {
		l.Error("server_error", "err", err)
		os.Exit(1)
	}
}
