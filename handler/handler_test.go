package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rdr-dashboard/backend"
	"rdr-dashboard/cache"
	"rdr-dashboard/config"
	"rdr-dashboard/viewstate"
)

const (
	rootBody = `{"message": "RDR backend", "endpoints": {"List sets": "/sets", "List aliases": "/aliases", "RDR details": "/rdrs/{rdr}"}}`

	setsBody = `{
		"total": 120,
		"valid_authors": ["alice", "bob"],
		"sets": [
			{"set": "warehouse-a", "description": "Night shift", "created_by": "alice",
			 "created_at": "2024-01-02T03:04:05Z", "count": 1200, "duration": 3600, "tags": ["night", "lidar"]},
			{"set": "dock b", "description": "", "created_by": "bob",
			 "created_at": "2024-02-01T00:00:00Z", "count": 3, "duration": 90.5, "tags": []}
		]
	}`

	aliasesBody = `{
		"total": 1,
		"valid_aliases": ["robot-1"],
		"valid_ids": ["rcm-9"],
		"aliases": [{"alias": "robot-1", "id": "rcm-9", "start_time": "2024-01-01T00:00:00Z", "end_time": ""}]
	}`

	rdrListBody = `{
		"type": "rdrset",
		"identifier": "demo",
		"total": 2,
		"valid_aliases": ["robot-1"],
		"valid_ids": ["rcm-9"],
		"date_histogram": {"2024-01-01": 1, "2024-01-03": 1},
		"duration_histogram": {"60-120": 1, "0-60": 1},
		"duration_kde": {"0": 0.001, "60": 0.01, "120": 0.002},
		"machine_histogram": {"robot-1": 2},
		"rcm_histogram": {"rcm-9": 2},
		"rdrs": [
			{"rdr": "r1", "alias": "robot-1", "id": "rcm-9", "start_time": "2024-01-01T00:00:00Z",
			 "end_time": "2024-01-01T00:01:00Z", "duration": 60, "foxglove_url": "https://foxglove.example/r1"},
			{"rdr": "r2", "alias": "robot-1", "id": "rcm-9", "start_time": "2024-01-03T00:00:00Z",
			 "end_time": "2024-01-03T00:01:30Z", "duration": 90, "foxglove_url": ""}
		]
	}`

	detailsBody = `{
		"rdr": "r1", "alias": "robot-1", "id": "rcm-9",
		"start_time": "2024-01-01T00:00:00Z", "end_time": "2024-01-01T01:00:00Z", "duration": 3600,
		"foxglove_url": "https://foxglove.example/r1", "foxglove_status": "ready",
		"classifiers": {
			"motion": {
				"moving": {"2024-01-01T00:00:01Z": true, "2024-01-01T00:00:02Z": false},
				"idle": {"2024-01-01T00:00:01Z": false}
			},
			"audio": {"error": "model unavailable"}
		},
		"logs": [
			{"start_time": "2024-01-01T00:05:00Z", "end_time": "2024-01-01T00:10:00Z", "duration": 300, "local_path": "/data/robot-1/camera.mcap"},
			{"start_time": "2024-01-01T00:00:00Z", "end_time": "2024-01-01T00:01:00Z", "duration": 60, "local_path": "/data/robot-1/lidar.mcap"}
		]
	}`

	missingBody = `{"detail": {"type": "machine", "identifier": "missing", "error": "not found"}}`
)

// fakeBackend serves fixed responses and records the requests it saw
type fakeBackend struct {
	mu       sync.Mutex
	requests []string
	release  chan struct{} // when set, responses wait until it is closed
}

func (f *fakeBackend) seen() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.requests = append(f.requests, r.URL.RequestURI())
	release := f.release
	f.mu.Unlock()
	if release != nil {
		<-release
	}

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.URL.Path == "/":
		fmt.Fprint(w, rootBody)
	case r.URL.Path == "/sets":
		fmt.Fprint(w, setsBody)
	case r.URL.Path == "/aliases":
		fmt.Fprint(w, aliasesBody)
	case r.URL.Path == "/rdrsets/demo":
		fmt.Fprint(w, rdrListBody)
	case r.URL.Path == "/rdrs/r1":
		fmt.Fprint(w, detailsBody)
	case r.URL.Path == "/rdrs/broken-logs":
		fmt.Fprint(w, `{"rdr": "broken-logs", "logs": [{"error": "disk offline"}]}`)
	default:
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, missingBody)
	}
}

func testConfig() config.Config {
	return config.Config{
		WebServer: config.WebServerConfig{Scheme: "http", IP: "localhost", Port: "8080"},
		Cache:     config.CacheConfig{Enabled: true, MaxSizeMB: 1, TTLSeconds: 60, CounterSize: 1000},
		Display: config.DisplayConfig{
			FenceRequests:   true,
			PageWaitSeconds: 5,
			TickCount:       10,
			Timezones:       []string{"UTC", "local", "Europe/Zurich"},
		},
	}
}

type testEnv struct {
	backend *fakeBackend
	server  *httptest.Server
	handler *DashboardHandler
	router  *mux.Router
}

func newTestEnv(t *testing.T, tiered *cache.Tiered) *testEnv {
	t.Helper()
	fb := &fakeBackend{}
	srv := httptest.NewServer(fb)
	t.Cleanup(srv.Close)

	var rc backend.ResponseCache
	if tiered != nil {
		rc = tiered
	}
	client, err := backend.NewClient(config.BackendConfig{URL: srv.URL, TimeoutSeconds: 5}, rc)
	require.NoError(t, err)

	h, err := NewDashboardHandler(client, tiered, nil, testConfig())
	require.NoError(t, err)
	h.now = func() time.Time { return time.Date(2024, 1, 1, 2, 0, 0, 0, time.UTC) }

	r := mux.NewRouter()
	h.Register(r)
	return &testEnv{backend: fb, server: srv, handler: h, router: r}
}

func (e *testEnv) get(target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

// address renders the canonical address of path for the default state
// changed by mutate.
func address[S any](path string, mutate func(*S)) string {
	s := viewstate.Default[S]()
	if mutate != nil {
		mutate(&s)
	}
	return withQuery(path, viewstate.Encode(s))
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestServeScreen_RedirectsToCanonicalAddress(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.get("/sets?author=alice&junk=1")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, address("/sets", func(s *viewstate.Sets) { s.Author = "alice" }), rec.Header().Get("Location"))
	assert.Empty(t, env.backend.seen(), "a redirect must not reach the backend")

	rec = env.get("/api/aliases")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, address[viewstate.Aliases]("/api/aliases", nil), rec.Header().Get("Location"))
}

func TestServeScreen_RootNeedsNoQuery(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.get("/")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "RDR backend")
	assert.Contains(t, body, `<a href="/sets">/sets</a>`)
	assert.Contains(t, body, "/rdrs/{rdr}")
	assert.Less(t, strings.Index(body, "List aliases"), strings.Index(body, "List sets"))
}

func TestServeScreen_Sets(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.get(address[viewstate.Sets]("/sets", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, []string{"/sets?limit=50&sort_asc=false"}, env.backend.seen())

	body := rec.Body.String()
	assert.Contains(t, body, `<a href="/rdrsets/warehouse-a">warehouse-a</a>`)
	assert.Contains(t, body, `<a href="/rdrsets/dock%20b">dock b</a>`)
	assert.Contains(t, body, "1,200")
	assert.Contains(t, body, "2024-01-02 03:04:05Z")
	assert.Contains(t, body, "1&ndash;2 of 120")
	assert.Contains(t, body, `<option value="alice">alice</option>`)
}

func TestServeScreen_SetsAPI(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.get(address("/api/sets", func(s *viewstate.Sets) { s.Offset = 100 }))
	require.Equal(t, http.StatusOK, rec.Code)
	out := decodeJSON(t, rec)

	assert.Equal(t, "Sets", out["title"])
	assert.Equal(t, address("/sets", func(s *viewstate.Sets) { s.Offset = 100 }), out["url"])
	pager := out["pager"].(map[string]interface{})
	assert.Equal(t, true, pager["can_prev"])
	assert.Equal(t, true, pager["can_next"])
	assert.Equal(t, address("/sets", func(s *viewstate.Sets) { s.Offset = 50 }), pager["prev_href"])
	assert.Equal(t, address("/sets", func(s *viewstate.Sets) { s.Offset = 102 }), pager["next_href"],
		"next steps by the rows returned, not the limit")
}

func TestServeScreen_ActionRedirectsWithResetOffset(t *testing.T) {
	env := newTestEnv(t, nil)

	current := address("/sets", func(s *viewstate.Sets) { s.Offset = 50 })
	rec := env.get(current + "&op=filter&key=author&value=bob")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, address("/sets", func(s *viewstate.Sets) { s.Author = "bob" }), rec.Header().Get("Location"))

	rec = env.get(current + "&op=relative")
	assert.Equal(t, address("/sets", func(s *viewstate.Sets) {
		s.Offset = 50
		s.RelativeTime = true
	}), rec.Header().Get("Location"), "presentation changes keep the offset")

	rec = env.get("/sets?temp_name=dock&offset=50&op=commit&key=name")
	assert.Equal(t, address("/sets", func(s *viewstate.Sets) {
		s.Name, s.TempName = "dock", "dock"
	}), rec.Header().Get("Location"))

	assert.Empty(t, env.backend.seen())
}

func TestServeScreen_RejectsInvalidAction(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.get(address[viewstate.Sets]("/sets", nil) + "&op=explode")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Error: unknown action")

	rec = env.get(address[viewstate.Aliases]("/api/aliases", nil) + "&op=sort&key=start_time")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeJSON(t, rec)["error"], "no field")
}

func TestServeScreen_BackendError(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.get(address[viewstate.RDRs]("/api/machines/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, `Error: Invalid input machine "missing": not found`, decodeJSON(t, rec)["error"])

	rec = env.get(address[viewstate.RDRs]("/machines/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `<p class="err">Error: Invalid input machine`)
	assert.NotContains(t, body, "<table>")
}

func TestServeScreen_RDRList(t *testing.T) {
	env := newTestEnv(t, nil)

	target := address("/api/rdrsets/demo", func(s *viewstate.RDRs) {
		s.SortKey = "duration"
		s.HistScale = "log"
	})
	rec := env.get(target)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"/rdrsets/demo?limit=50&sort_asc=false&sort_key=duration"}, env.backend.seen())

	out := decodeJSON(t, rec)
	assert.Equal(t, "Robot Data Ranges of rdrset demo", out["title"])
	assert.Len(t, out["rows"], 2)

	dates := out["date_histogram"].(map[string]interface{})
	assert.Len(t, dates["bars"], 3, "the missing day is filled with zero")

	durations := out["duration_histogram"].(map[string]interface{})
	assert.Equal(t, "log", durations["scale"])
	assert.Equal(t, address("/rdrsets/demo", func(s *viewstate.RDRs) { s.SortKey = "duration" }), durations["scale_href"])
	bars := durations["bars"].([]interface{})
	assert.Equal(t, "0-60", bars[0].(map[string]interface{})["label"])

	sort := out["sort"].(map[string]interface{})
	assert.Equal(t, "▼", sort["duration"].(map[string]interface{})["indicator"])

	kde := out["duration_kde"].(map[string]interface{})
	assert.Len(t, kde["refs"], 2)
}

func TestServeScreen_RDRListHTML(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.get(address[viewstate.RDRs]("/rdrsets/demo", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Robot Data Ranges of rdrset demo")
	assert.Contains(t, body, `<a href="https://foxglove.example/r1" target="_blank" rel="noopener">r1</a>`)
	assert.Contains(t, body, `<a href="/rdrs/r2">Details</a>`)
	assert.Contains(t, body, "<svg")
	assert.Contains(t, body, "Uniform Density")
}

func TestServeScreen_Details(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.get(address("/api/rdrs/r1", func(s *viewstate.Details) {
		s.HiddenLines = "motion:idle"
		s.LogFilter = "CAMERA"
	}))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"/rdrs/r1"}, env.backend.seen())

	out := decodeJSON(t, rec)
	assert.Equal(t, "Details of r1", out["title"])
	assert.Equal(t, []interface{}{"audio: model unavailable"}, out["classifier_errors"])

	lines := out["lines"].([]interface{})
	require.Len(t, lines, 2)
	idle := lines[0].(map[string]interface{})
	assert.Equal(t, "motion:idle", idle["key"])
	assert.Equal(t, true, idle["hidden"])
	assert.Equal(t, address("/rdrs/r1", func(s *viewstate.Details) { s.LogFilter = "CAMERA" }), idle["href"])

	timeline := out["timeline"].(map[string]interface{})
	assert.Len(t, timeline["lines"], 1)

	logs := out["logs"].([]interface{})
	require.Len(t, logs, 1)
	row := logs[0].(map[string]interface{})
	assert.Equal(t, "/data/robot-1/camera.mcap", row["local_path"])
	assert.Equal(t, "(5 minutes from start)", row["since_start"])
	assert.Equal(t, float64(2), out["log_count"])
}

func TestServeScreen_DetailsLogError(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.get(address[viewstate.Details]("/rdrs/broken-logs", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Error retrieving logs: disk offline")
}

func TestServeScreen_Timezone(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.get(address("/api/aliases", func(s *viewstate.Aliases) { s.Timezone = "Europe/Zurich" }))
	require.Equal(t, http.StatusOK, rec.Code)
	out := decodeJSON(t, rec)
	row := out["rows"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "2024-01-01 01:00:00+01:00", row["start"])
	assert.Equal(t, "/machines/robot-1", row["alias_href"])

	rec = env.get(address("/api/aliases", func(s *viewstate.Aliases) { s.RelativeTime = true }))
	row = decodeJSON(t, rec)["rows"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "2 hours ago", row["start"])

	rec = env.get(address("/api/aliases", func(s *viewstate.Aliases) { s.Timezone = "Mars/Olympus" }))
	display := decodeJSON(t, rec)["display"].(map[string]interface{})
	assert.Contains(t, display["zone_error"], "Mars/Olympus")
}

func TestServeScreen_StillLoading(t *testing.T) {
	env := newTestEnv(t, nil)
	env.handler.pageWait = 20 * time.Millisecond
	release := make(chan struct{})
	env.backend.release = release
	defer close(release)

	target := address[viewstate.Sets]("/sets", nil)
	rec := env.get(target)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Loading sets...")
	assert.Equal(t, "2; url="+target, rec.Header().Get("Refresh"))

	rec = env.get(address[viewstate.Sets]("/api/sets", nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, true, decodeJSON(t, rec)["loading"])

	// the reload joined the request still in flight
	require.Eventually(t, func() bool { return len(env.backend.seen()) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, env.backend.seen(), 1)
}

func TestServeScreen_ResponseCache(t *testing.T) {
	local, err := cache.New(config.CacheConfig{Enabled: true, MaxSizeMB: 1, TTLSeconds: 60, CounterSize: 1000})
	require.NoError(t, err)
	defer local.Close()
	env := newTestEnv(t, cache.NewTiered(local, nil, "test:", time.Minute, time.Second))

	target := address[viewstate.Aliases]("/aliases", nil)
	require.Equal(t, http.StatusOK, env.get(target).Code)
	local.Wait()
	require.Equal(t, http.StatusOK, env.get(target).Code)
	assert.Len(t, env.backend.seen(), 1)

	rec := env.get("/cache/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decodeJSON(t, rec)["hits"])
}

func TestCacheMetrics_Disabled(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.get("/cache/metrics")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealthCheck(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.get("/health")
	require.Equal(t, http.StatusOK, rec.Code)
	out := decodeJSON(t, rec)
	assert.Equal(t, "healthy", out["status"])
	assert.Equal(t, "disabled", out["redis"])

	env.server.Close()
	rec = env.get("/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	out = decodeJSON(t, rec)
	assert.Equal(t, "unhealthy", out["status"])
	assert.Equal(t, "unreachable", out["backend"])
}

func TestShareQR(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.get(qrHref(address[viewstate.Sets]("/sets", nil)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "\x89PNG"))

	tests := []struct {
		name   string
		target string
	}{
		{"missing path", "/qr"},
		{"absolute url", "/qr?path=https://evil.example/"},
		{"protocol relative", "/qr?path=//evil.example/"},
		{"bad size", "/qr?path=/sets&size=big"},
		{"size out of range", "/qr?path=/sets&size=64"},
		{"bad level", "/qr?path=/sets&level=extreme"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, http.StatusBadRequest, env.get(tt.target).Code)
		})
	}
}
