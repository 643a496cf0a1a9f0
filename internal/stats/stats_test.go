package stats

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStatsUpdater(t *testing.T) {
	mux := http.NewServeMux()
	su := NewStatsUpdater(mux)
	assert.NotNil(t, su, "expected StatsUpdater to be non-nil")
	assert.NotNil(t, su.updateChan, "expected updateChan to be initialized")
	handler, pattern := mux.Handler(&http.Request{URL: &url.URL{Path: "/debug/vars"}, Method: http.MethodGet})
	assert.NotNil(t, handler, "expected handler for /debug/vars to be set")
	assert.Equal(t, "GET /debug/vars", pattern, "expected handler to be registered for GET method on /debug/vars")

	for _, name := range defaultMetrics {
		assert.NotNil(t, su.vars.Get(name), "expected metric %s to be registered", name)
	}
}

func TestStatsUpdaterCounts(t *testing.T) {
	mux := http.NewServeMux()
	su := NewStatsUpdater(mux)

	// applied synchronously so the handler output is deterministic
	su.updateChan = make(chan *metricsUpdateReq, 8)
	su.Incr(RoomJoins)
	su.Incr(RoomJoins)
	su.Decr(ConnectedClients)
	su.Add(GuestsPurged, 3)
	su.Add("Custom", 2)
	close(su.updateChan)
	su.updateMetrics()

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/debug/vars", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, float64(2), body[RoomJoins])
	assert.Equal(t, float64(-1), body[ConnectedClients])
	assert.Equal(t, float64(3), body[GuestsPurged])
	assert.Equal(t, float64(2), body["Custom"])
	assert.Contains(t, body, "Uptime")
}
