package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"googlemaps.github.io/maps"
)

func TestMapsGeocoder_Geocode(t *testing.T) {
	var gotAddress, gotRegion string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAddress = r.URL.Query().Get("address")
		gotRegion = r.URL.Query().Get("region")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"status": "OK",
			"results": [{"geometry": {"location": {"lat": 14.6507, "lng": 121.0495}}}]
		}`))
	}))
	defer srv.Close()

	g, err := NewMapsGeocoder("test-key", "ph", maps.WithBaseURL(srv.URL))
	require.NoError(t, err)

	lat, lng, err := g.Geocode(context.Background(), "Brgy. Tumana, Marikina")
	require.NoError(t, err)
	assert.Equal(t, "Brgy. Tumana, Marikina", gotAddress)
	assert.Equal(t, "ph", gotRegion)
	assert.InDelta(t, 14.6507, lat, 1e-9)
	assert.InDelta(t, 121.0495, lng, 1e-9)
}

func TestMapsGeocoder_ZeroResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status": "ZERO_RESULTS", "results": []}`))
	}))
	defer srv.Close()

	g, err := NewMapsGeocoder("test-key", "", maps.WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, _, err = g.Geocode(context.Background(), "nowhere")
	assert.Error(t, err)
}

func TestNewMapsGeocoder_RequiresKey(t *testing.T) {
	_, err := NewMapsGeocoder("", "ph")
	assert.Error(t, err)
}
