package place_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"geo-gateway/internal/gateway"
	"geo-gateway/internal/monitor"
	"geo-gateway/internal/place"
	"geo-gateway/internal/provider"
	"geo-gateway/internal/result"
	"geo-gateway/internal/suggest"
)

const geocodeOK = `{"status":"OK","results":[
    {"formatted_address":"India Gate, Rajpath, New Delhi 110001",
     "place_id":"p-gate",
     "geometry":{"location":{"lat":28.612912,"lng":77.229510}},
     "address_components":[
        {"long_name":"Rajpath","short_name":"Rajpath","types":["route"]},
        {"long_name":"New Delhi","short_name":"ND","types":["locality","political"]},
        {"long_name":"Delhi","short_name":"DL","types":["administrative_area_level_1"]},
        {"long_name":"110001","short_name":"110001","types":["postal_code"]},
        {"long_name":"India","short_name":"IN","types":["country","political"]}
     ]}
]}`

const autocompleteOK = `{"status":"OK","predictions":[
    {"description":"India Gate, New Delhi","place_id":"p-gate",
     "structured_formatting":{"main_text":"India Gate","secondary_text":"New Delhi"}}
]}`

func newTestContext(t *testing.T, handler http.HandlerFunc) *gateway.Context {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := provider.New(provider.Config{BaseURL: srv.URL, Key: "test-key", RequestsPerSec: 1000})
	mon := monitor.New(context.Background(), monitor.NewMemoryStore(), monitor.PricingFromEnv())
	return gateway.NewContext(provider.NewSession(client), mon)
}

func TestResolveParsesAndCaches(t *testing.T) {
	var calls atomic.Int32
	gw := newTestContext(t, func(w http.ResponseWriter, r *http.Request) {
		// 会话引导的探活请求不计入详情调用数
		if r.URL.Query().Get("place_id") == "" {
			w.Write([]byte(`{"status":"OK","results":[]}`))
			return
		}
		calls.Add(1)
		w.Write([]byte(geocodeOK))
	})
	res := place.NewResolver(gw)

	r1 := res.Resolve(context.Background(), "p-gate")
	require.True(t, r1.IsOk())
	require.InDelta(t, 28.612912, r1.Value.Lat, 1e-9)
	require.Equal(t, "New Delhi", r1.Value.Address.City)
	require.Equal(t, "110001", r1.Value.Address.Pincode)
	require.Equal(t, "Rajpath", r1.Value.Address.Street)

	r2 := res.Resolve(context.Background(), "p-gate")
	require.True(t, r2.IsOk())
	require.Equal(t, r1.Value, r2.Value)
	require.Equal(t, int32(1), calls.Load())

	m := gw.Monitor.Snapshot()
	require.Equal(t, 2, m.ByKind[monitor.KindDetails])
	require.Equal(t, 1, m.CacheHits)
}

func TestResolveEmptyPlaceID(t *testing.T) {
	gw := newTestContext(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("provider must not be called")
	})
	res := place.NewResolver(gw)
	r := res.Resolve(context.Background(), "")
	require.Equal(t, result.StateEmpty, r.State)
}

func TestResolveZeroResults(t *testing.T) {
	gw := newTestContext(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ZERO_RESULTS","results":[]}`))
	})
	res := place.NewResolver(gw)
	r := res.Resolve(context.Background(), "p-nowhere")
	require.Equal(t, result.StateEmpty, r.State)
}

// 完整"联想 → 选中"闭环后，会话令牌必须轮换
func TestSessionTokenRotatesAfterSelect(t *testing.T) {
	var mu sync.Mutex
	var tokens []string
	gw := newTestContext(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/place/autocomplete/json":
			mu.Lock()
			tokens = append(tokens, r.URL.Query().Get("sessiontoken"))
			mu.Unlock()
			w.Write([]byte(autocompleteOK))
		default:
			w.Write([]byte(geocodeOK))
		}
	})
	sv := suggest.New(gw, 0)
	res := place.NewResolver(gw)

	// 同一输入序列内的两次联想共享令牌
	r := sv.Lookup(context.Background(), "india g")
	require.True(t, r.IsOk())
	r = sv.Lookup(context.Background(), "india gate")
	require.True(t, r.IsOk())

	sel := res.Resolve(context.Background(), "p-gate")
	require.True(t, sel.IsOk())

	// 选中后的下一次联想进入新会话
	r = sv.Lookup(context.Background(), "india gate lawns")
	require.True(t, r.IsOk())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, tokens, 3)
	require.Equal(t, tokens[0], tokens[1])
	require.NotEqual(t, tokens[1], tokens[2])
}

// 缓存命中没有产生计费调用，不得轮换令牌
func TestCacheHitDoesNotRotateToken(t *testing.T) {
	gw := newTestContext(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(geocodeOK))
	})
	res := place.NewResolver(gw)

	first := res.Resolve(context.Background(), "p-gate")
	require.True(t, first.IsOk())
	tok := gw.Session.Token()

	second := res.Resolve(context.Background(), "p-gate")
	require.True(t, second.IsOk())
	require.Equal(t, tok, gw.Session.Token())
}
