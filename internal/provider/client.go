package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"geo-gateway/internal/logger"
	"geo-gateway/internal/metrics"
	"geo-gateway/internal/result"
)

// 文档注释：服务商 REST 客户端
// 背景：所有出网调用集中在此，统一限速、超时、指标与错误分类；
// 上层的缓存与用量记账不在客户端内做，保持单一职责。
// 约束：每次调用前等待令牌，避免拖拽、连续输入等场景下的请求风暴直达服务商。
type Client struct {
	baseURL    string
	key        string
	country    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Config：客户端配置
type Config struct {
	BaseURL        string
	Key            string
	Country        string
	RequestsPerSec float64
	Timeout        time.Duration
}

// New：构造客户端
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://maps.googleapis.com/maps/api"
	}
	if cfg.Country == "" {
		cfg.Country = "in"
	}
	if cfg.RequestsPerSec <= 0 {
		cfg.RequestsPerSec = 10
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		key:        cfg.Key,
		country:    cfg.Country,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), 1),
	}
}

// FromEnv：从环境变量构造客户端
// 约束：MAPS_API_KEY 缺失不在此报错，由 Ping 在首次使用时给出配置错误
func FromEnv() *Client {
	cfg := Config{
		BaseURL: os.Getenv("MAPS_BASE_URL"),
		Key:     os.Getenv("MAPS_API_KEY"),
		Country: os.Getenv("MAPS_COUNTRY"),
	}
	if v := os.Getenv("MAPS_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.RequestsPerSec = f
		}
	}
	if v := os.Getenv("MAPS_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Timeout = time.Duration(n) * time.Millisecond
		}
	}
	return New(cfg)
}

// Country：联想查询限定的国家码
func (c *Client) Country() string { return c.country }

// Ping：一次性引导校验
// 背景：页面端原型靠脚本注入完成初始化，这里改为校验密钥存在并探测服务商可达；
// 不发起计费调用。
func (c *Client) Ping(ctx context.Context) error {
	if c.key == "" {
		return &result.Error{Kind: result.KindConfiguration}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/geocode/json", nil)
	if err != nil {
		return &result.Error{Kind: result.KindProviderUnavailable}
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.L().Error("provider_ping_error", "err", err)
		return classifyTransport(ctx, err)
	}
	defer resp.Body.Close()
	// 无参数请求会被服务商以错误状态拒绝，但任何 HTTP 应答都说明链路可用
	return nil
}

// Autocomplete：按输入文本取联想候选
// 参数：input 已裁剪的查询文本；sessionToken 计费会话令牌，同一输入序列内保持不变
// 约束：限定单一国家与宽泛地点类型；ZERO_RESULTS 返回空切片而非错误
func (c *Client) Autocomplete(ctx context.Context, input, sessionToken string) ([]Prediction, error) {
	q := url.Values{}
	q.Set("input", input)
	q.Set("key", c.key)
	q.Set("sessiontoken", sessionToken)
	q.Set("components", "country:"+c.country)
	q.Set("types", "geocode|establishment")
	u := c.baseURL + "/place/autocomplete/json?" + q.Encode()

	var out autocompleteResponse
	if err := c.doJSON(ctx, "autocomplete", u, &out); err != nil {
		return nil, err
	}
	switch out.Status {
	case StatusOK:
		return out.Predictions, nil
	case StatusZeroResults:
		return nil, nil
	}
	metrics.ProviderFailTotal.WithLabelValues("autocomplete").Inc()
	logger.L().Error("provider_autocomplete_status", "status", out.Status, "message", out.ErrorMessage)
	return nil, &result.Error{Kind: kindForStatus(out.Status), Detail: out.Status}
}

// GeocodeLatLng：坐标反解为地址
// 约束：ZERO_RESULTS 返回 (nil, nil)，由上层映射为"无结果"终态
func (c *Client) GeocodeLatLng(ctx context.Context, lat, lng float64) (*GeocodeResult, error) {
	q := url.Values{}
	q.Set("latlng", fmt.Sprintf("%f,%f", lat, lng))
	q.Set("key", c.key)
	u := c.baseURL + "/geocode/json?" + q.Encode()
	return c.geocode(ctx, "reverse_geocode", u)
}

// GeocodePlaceID：地点标识解析为坐标与地址
func (c *Client) GeocodePlaceID(ctx context.Context, placeID string) (*GeocodeResult, error) {
	q := url.Values{}
	q.Set("place_id", placeID)
	q.Set("key", c.key)
	u := c.baseURL + "/geocode/json?" + q.Encode()
	return c.geocode(ctx, "geocode", u)
}

func (c *Client) geocode(ctx context.Context, kind, u string) (*GeocodeResult, error) {
	var out geocodeResponse
	if err := c.doJSON(ctx, kind, u, &out); err != nil {
		return nil, err
	}
	switch out.Status {
	case StatusOK:
		if len(out.Results) == 0 {
			return nil, nil
		}
		return &out.Results[0], nil
	case StatusZeroResults:
		return nil, nil
	}
	metrics.ProviderFailTotal.WithLabelValues(kind).Inc()
	logger.L().Error("provider_geocode_status", "kind", kind, "status", out.Status, "message", out.ErrorMessage)
	return nil, &result.Error{Kind: kindForStatus(out.Status), Detail: out.Status}
}

// doJSON：发起请求并解码
// 约束：限速等待计入调用耗时；解码失败按服务商不可用处理
func (c *Client) doJSON(ctx context.Context, kind, u string, v any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return classifyTransport(ctx, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return &result.Error{Kind: result.KindProviderUnavailable}
	}
	t0 := time.Now()
	metrics.ProviderRequestsTotal.WithLabelValues(kind).Inc()
	logger.L().Debug("provider_req", "kind", kind)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.L().Error("provider_http_error", "kind", kind, "err", err)
		metrics.ProviderFailTotal.WithLabelValues(kind).Inc()
		return classifyTransport(ctx, err)
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		logger.L().Error("provider_decode_error", "kind", kind, "err", err)
		metrics.ProviderFailTotal.WithLabelValues(kind).Inc()
		return &result.Error{Kind: result.KindProviderUnavailable}
	}
	dur := time.Since(t0).Milliseconds()
	metrics.ProviderDurationMs.WithLabelValues(kind).Observe(float64(dur))
	logger.L().Debug("provider_resp", "kind", kind, "duration_ms", dur)
	return nil
}

// classifyTransport：传输层错误分类（超时与其他）
func classifyTransport(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &result.Error{Kind: result.KindTimeout}
	}
	var t interface{ Timeout() bool }
	if errors.As(err, &t) && t.Timeout() {
		return &result.Error{Kind: result.KindTimeout}
	}
	return &result.Error{Kind: result.KindProviderUnavailable}
}
