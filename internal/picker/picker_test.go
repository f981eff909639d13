package picker_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"geo-gateway/internal/address"
	"geo-gateway/internal/gateway"
	"geo-gateway/internal/monitor"
	"geo-gateway/internal/picker"
	"geo-gateway/internal/provider"
	"geo-gateway/internal/result"
)

type fakeSurface struct {
	mu        sync.Mutex
	centerLat float64
	centerLng float64
	zoom      int
	markers   int
	markerLat float64
	markerLng float64
	click     func(lat, lng float64)
	dragEnd   func(lat, lng float64)
}

func (f *fakeSurface) SetCenter(lat, lng float64) {
	f.mu.Lock()
	f.centerLat, f.centerLng = lat, lng
	f.mu.Unlock()
}

func (f *fakeSurface) SetZoom(level int) {
	f.mu.Lock()
	f.zoom = level
	f.mu.Unlock()
}

func (f *fakeSurface) PlaceMarker(lat, lng float64) {
	f.mu.Lock()
	if f.markers == 0 {
		f.markers = 1
	}
	f.markerLat, f.markerLng = lat, lng
	f.mu.Unlock()
}

func (f *fakeSurface) OnClick(fn func(lat, lng float64))         { f.click = fn }
func (f *fakeSurface) OnMarkerDragEnd(fn func(lat, lng float64)) { f.dragEnd = fn }

const pickerGeocodeOK = `{"status":"OK","results":[
    {"formatted_address":"MG Road, Bengaluru 560001",
     "place_id":"p-mg",
     "geometry":{"location":{"lat":12.9752,"lng":77.6057}},
     "address_components":[
        {"long_name":"MG Road","short_name":"MG Road","types":["route"]},
        {"long_name":"Bengaluru","short_name":"BLR","types":["locality","political"]},
        {"long_name":"560001","short_name":"560001","types":["postal_code"]},
        {"long_name":"India","short_name":"IN","types":["country","political"]}
     ]}
]}`

func newTestContext(t *testing.T) *gateway.Context {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(pickerGeocodeOK))
	}))
	t.Cleanup(srv.Close)
	client := provider.New(provider.Config{BaseURL: srv.URL, Key: "test-key", RequestsPerSec: 1000})
	mon := monitor.New(context.Background(), monitor.NewMemoryStore(), monitor.PricingFromEnv())
	return gateway.NewContext(provider.NewSession(client), mon)
}

func TestSurfaceCreatedOnceWithCountryDefaults(t *testing.T) {
	gw := newTestContext(t)
	var created int
	fs := &fakeSurface{}
	p := picker.New(gw, func() (picker.MapSurface, error) {
		created++
		return fs, nil
	}, nil, picker.Options{})

	s1, err := p.Surface(context.Background())
	require.NoError(t, err)
	s2, err := p.Surface(context.Background())
	require.NoError(t, err)
	require.Same(t, s1, s2)
	require.Equal(t, 1, created)

	// 未给初始坐标：全境中心 + 5 级，不预落标记
	require.InDelta(t, 20.5937, fs.centerLat, 1e-9)
	require.InDelta(t, 78.9629, fs.centerLng, 1e-9)
	require.Equal(t, 5, fs.zoom)
	require.Equal(t, 0, fs.markers)
}

func TestInitialPositionZoomsInWithMarker(t *testing.T) {
	gw := newTestContext(t)
	fs := &fakeSurface{}
	p := picker.New(gw, func() (picker.MapSurface, error) { return fs, nil },
		nil, picker.Options{InitialLat: 12.9716, InitialLng: 77.5946})

	_, err := p.Surface(context.Background())
	require.NoError(t, err)
	require.Equal(t, 15, fs.zoom)
	require.Equal(t, 1, fs.markers)
	require.InDelta(t, 12.9716, fs.markerLat, 1e-9)
}

func TestPickRepositionsMarkerAndEmitsSelection(t *testing.T) {
	gw := newTestContext(t)
	fs := &fakeSurface{}
	var gotLat, gotLng float64
	var gotAddr address.Result
	p := picker.New(gw, func() (picker.MapSurface, error) { return fs, nil },
		nil, picker.Options{
			InitialLat: 12.9716, InitialLng: 77.5946,
			OnSelect: func(lat, lng float64, addr address.Result) {
				gotLat, gotLng, gotAddr = lat, lng, addr
			},
		})

	res := p.Pick(context.Background(), 12.9752, 77.6057)
	require.True(t, res.IsOk())
	require.Equal(t, "Bengaluru", res.Value.City)

	// 标记被移动而不是重建，地图聚焦到 17 级
	require.Equal(t, 1, fs.markers)
	require.InDelta(t, 12.9752, fs.markerLat, 1e-9)
	require.Equal(t, 17, fs.zoom)
	require.InDelta(t, 12.9752, fs.centerLat, 1e-9)

	require.InDelta(t, 12.9752, gotLat, 1e-9)
	require.InDelta(t, 77.6057, gotLng, 1e-9)
	require.Equal(t, "560001", gotAddr.Pincode)

	lat, lng := p.Position()
	require.InDelta(t, 12.9752, lat, 1e-9)
	require.InDelta(t, 77.6057, lng, 1e-9)
}

func TestClickListenerFeedsPickFlow(t *testing.T) {
	gw := newTestContext(t)
	fs := &fakeSurface{}
	var selected bool
	p := picker.New(gw, func() (picker.MapSurface, error) { return fs, nil },
		nil, picker.Options{
			OnSelect: func(lat, lng float64, addr address.Result) { selected = true },
		})

	_, err := p.Surface(context.Background())
	require.NoError(t, err)
	require.NotNil(t, fs.click)
	fs.click(12.9752, 77.6057)
	require.True(t, selected)
	require.Equal(t, 17, fs.zoom)
}

func TestSelectPlaceLandsWithoutSecondReverse(t *testing.T) {
	var geocodeByID, geocodeByLatLng int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("place_id") != "" {
			geocodeByID++
		}
		if r.URL.Query().Get("latlng") != "" {
			geocodeByLatLng++
		}
		w.Write([]byte(pickerGeocodeOK))
	}))
	defer srv.Close()
	client := provider.New(provider.Config{BaseURL: srv.URL, Key: "test-key", RequestsPerSec: 1000})
	mon := monitor.New(context.Background(), monitor.NewMemoryStore(), monitor.PricingFromEnv())
	gw := gateway.NewContext(provider.NewSession(client), mon)

	fs := &fakeSurface{}
	p := picker.New(gw, func() (picker.MapSurface, error) { return fs, nil }, nil, picker.Options{})

	res := p.SelectPlace(context.Background(), "p-mg")
	require.True(t, res.IsOk())
	require.Equal(t, "Bengaluru", res.Value.City)
	require.Equal(t, 1, geocodeByID)
	require.Equal(t, 0, geocodeByLatLng)
	require.Equal(t, 17, fs.zoom)
}

func TestSurfaceFactoryFailureSurfaces(t *testing.T) {
	gw := newTestContext(t)
	p := picker.New(gw, func() (picker.MapSurface, error) {
		return nil, errors.New("container missing")
	}, nil, picker.Options{})

	res := p.Pick(context.Background(), 12.9752, 77.6057)
	require.Equal(t, result.StateErr, res.State)
}

func TestCurrentLocationWithoutGate(t *testing.T) {
	gw := newTestContext(t)
	fs := &fakeSurface{}
	p := picker.New(gw, func() (picker.MapSurface, error) { return fs, nil }, nil, picker.Options{})

	res := p.UseCurrentLocation(context.Background())
	require.Equal(t, result.StateErr, res.State)
	require.Equal(t, result.KindPositionUnavailable, res.Kind)
}
