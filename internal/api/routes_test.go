package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"geo-gateway/internal/api"
	"geo-gateway/internal/gateway"
	"geo-gateway/internal/monitor"
	"geo-gateway/internal/provider"
)

const apiGeocodeOK = `{"status":"OK","results":[
    {"formatted_address":"MG Road, Bengaluru 560001",
     "place_id":"p-mg",
     "geometry":{"location":{"lat":12.9752,"lng":77.6057}},
     "address_components":[
        {"long_name":"Bengaluru","short_name":"BLR","types":["locality","political"]},
        {"long_name":"560001","short_name":"560001","types":["postal_code"]},
        {"long_name":"India","short_name":"IN","types":["country","political"]}
     ]}
]}`

const apiAutocompleteOK = `{"status":"OK","predictions":[
    {"description":"MG Road, Bengaluru","place_id":"p-mg",
     "structured_formatting":{"main_text":"MG Road","secondary_text":"Bengaluru"}}
]}`

func newAPIServer(t *testing.T) *httptest.Server {
	t.Helper()
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/place/autocomplete/json" {
			w.Write([]byte(apiAutocompleteOK))
			return
		}
		w.Write([]byte(apiGeocodeOK))
	}))
	t.Cleanup(upstream.Close)
	client := provider.New(provider.Config{BaseURL: upstream.URL, Key: "test-key", RequestsPerSec: 1000})
	mon := monitor.New(context.Background(), monitor.NewMemoryStore(), monitor.PricingFromEnv())
	gw := gateway.NewContext(provider.NewSession(client), mon)

	mux := http.NewServeMux()
	mux.Handle("/api/", http.StripPrefix("/api", api.BuildRoutes(gw, nil)))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func getEnvelope(t *testing.T, url string) map[string]any {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestSuggestEndpoint(t *testing.T) {
	srv := newAPIServer(t)

	out := getEnvelope(t, srv.URL+"/api/suggest?input=mg+road")
	require.Equal(t, "ok", out["status"])
	data := out["data"].([]any)
	require.Len(t, data, 1)

	// 不足 3 字符不出网，返回 empty
	out = getEnvelope(t, srv.URL+"/api/suggest?input=mg")
	require.Equal(t, "empty", out["status"])
}

func TestPlaceEndpoint(t *testing.T) {
	srv := newAPIServer(t)
	out := getEnvelope(t, srv.URL+"/api/place?place_id=p-mg")
	require.Equal(t, "ok", out["status"])
	sel := out["data"].(map[string]any)
	addr := sel["address"].(map[string]any)
	require.Equal(t, "Bengaluru", addr["city"])
}

func TestReverseGeoEndpoint(t *testing.T) {
	srv := newAPIServer(t)

	out := getEnvelope(t, srv.URL+"/api/reverse_geo?lat=12.9752&lng=77.6057")
	require.Equal(t, "ok", out["status"])

	resp, err := http.Get(srv.URL + "/api/reverse_geo?lat=abc")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLocateWithoutGeoIPDegrades(t *testing.T) {
	srv := newAPIServer(t)
	out := getEnvelope(t, srv.URL+"/api/locate")
	require.Equal(t, "error", out["status"])
	require.NotEmpty(t, out["message"])
}

func TestUsageEndpointAndReset(t *testing.T) {
	srv := newAPIServer(t)

	getEnvelope(t, srv.URL+"/api/suggest?input=mg+road")

	out := getEnvelope(t, srv.URL+"/api/usage")
	require.Equal(t, "ok", out["status"])
	data := out["data"].(map[string]any)
	require.Equal(t, float64(1), data["total"])

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/usage", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	out = getEnvelope(t, srv.URL+"/api/usage")
	data = out["data"].(map[string]any)
	require.Equal(t, float64(0), data["total"])
}

func TestHealthEndpoint(t *testing.T) {
	srv := newAPIServer(t)
	out := getEnvelope(t, srv.URL+"/api/health")
	require.Equal(t, "ok", out["status"])
	data := out["data"].(map[string]any)
	require.Equal(t, true, data["provider_reachable"])
	require.Equal(t, false, data["geoip_available"])
}
