// 包 api：集中注册 HTTP API 路由以解耦主入口，便于后续扩展与替换
package api

import (
	"encoding/json"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/oschwald/geoip2-golang"

	"geo-gateway/internal/cache"
	"geo-gateway/internal/gateway"
	"geo-gateway/internal/geoloc"
	"geo-gateway/internal/place"
	"geo-gateway/internal/result"
	"geo-gateway/internal/revgeo"
	"geo-gateway/internal/suggest"
)

// 统一响应信封：状态 / 用户文案 / 数据三段
type envelope struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.Header().Set("cache-control", "no-store")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeResult[T any](w http.ResponseWriter, r result.Result[T]) {
	switch r.State {
	case result.StateOk:
		writeJSON(w, http.StatusOK, envelope{Status: "ok", Data: r.Value})
	case result.StateEmpty:
		writeJSON(w, http.StatusOK, envelope{Status: "empty"})
	default:
		writeJSON(w, http.StatusOK, envelope{Status: "error", Message: r.Message()})
	}
}

// 解析访问者 IP：优先常见反向代理头，兜底连接对端地址
func getClientIP(r *http.Request) string {
	h := r.Header
	if x := h.Get("x-forwarded-for"); x != "" {
		return strings.TrimSpace(strings.Split(x, ",")[0])
	}
	if x := h.Get("cf-connecting-ip"); x != "" {
		return x
	}
	if x := h.Get("x-real-ip"); x != "" {
		return x
	}
	if x := h.Get("x-client-ip"); x != "" {
		return x
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// 构建并返回 API 路由：独立 ServeMux 便于在主入口挂载到 /api 前缀
// 约束：geodb 可为 nil（定位接口降级为不可用而非拒绝启动）
func BuildRoutes(gw *gateway.Context, geodb *geoip2.Reader) *http.ServeMux {
	sug := suggest.New(gw, 0)
	resolver := place.NewResolver(gw)
	// 定位闸门按客户端 IP 各持一个，冷却与去重在闸门内生效
	gates := cache.New[*geoloc.Gate]("locate_gates", 1000, 30*time.Minute)

	apiMux := http.NewServeMux()

	apiMux.HandleFunc("/suggest", func(w http.ResponseWriter, r *http.Request) {
		input := r.URL.Query().Get("input")
		writeResult(w, sug.Lookup(r.Context(), input))
	})

	apiMux.HandleFunc("/place", func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("place_id")
		writeResult(w, resolver.Resolve(r.Context(), id))
	})

	apiMux.HandleFunc("/reverse_geo", func(w http.ResponseWriter, r *http.Request) {
		lat, err1 := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
		lng, err2 := strconv.ParseFloat(r.URL.Query().Get("lng"), 64)
		if err1 != nil || err2 != nil {
			writeJSON(w, http.StatusBadRequest, envelope{Status: "error", Message: "lat and lng are required"})
			return
		}
		// 每个请求独立的反解实例：代际计数是单消费方语义，缓存仍全局共享
		writeResult(w, revgeo.New(gw).ReverseGeocode(r.Context(), lat, lng))
	})

	var gatesMu sync.Mutex
	apiMux.HandleFunc("/locate", func(w http.ResponseWriter, r *http.Request) {
		ip := getClientIP(r)
		gatesMu.Lock()
		g, ok := gates.Get(ip)
		if !ok {
			g = geoloc.NewGate(geoloc.NewGeoIPLocator(geodb, net.ParseIP(ip)), gw.Monitor)
			gates.Set(ip, g)
		}
		gatesMu.Unlock()
		writeResult(w, g.Request(r.Context()))
	})

	apiMux.HandleFunc("/usage", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			gw.Monitor.Reset(r.Context())
			writeJSON(w, http.StatusOK, envelope{Status: "ok"})
			return
		}
		writeJSON(w, http.StatusOK, envelope{Status: "ok", Data: gw.Monitor.Snapshot()})
	})

	apiMux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		h := map[string]any{
			"api_key_present": os.Getenv("MAPS_API_KEY") != "",
			"geoip_available": geodb != nil,
		}
		client, err := gw.Session.Client(r.Context())
		if err == nil {
			err = client.Ping(r.Context())
		}
		h["provider_reachable"] = err == nil
		if err != nil {
			h["provider_error"] = result.KindOf(err).Message()
		}
		writeJSON(w, http.StatusOK, envelope{Status: "ok", Data: h})
	})

	return apiMux
}
