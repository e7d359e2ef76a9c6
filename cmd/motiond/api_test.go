package main

import (
	"bytes"
	"encoding/json"
	"io"
	"io/ioutil"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/mastercactapus/motioncore/config"
	"github.com/mastercactapus/motioncore/coord"
	"github.com/mastercactapus/motioncore/machine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func newTestServer(t *testing.T, cfg *config.Config) (*httptest.Server, *api) {
	m, err := machine.New(*cfg, nil)
	require.NoError(t, err)
	a := newAPI(m, t.TempDir())
	srv := httptest.NewServer(a)
	t.Cleanup(srv.Close)
	return srv, a
}

func do(t *testing.T, method, url string, body interface{}) *http.Response {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, r)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestAPI_Plan(t *testing.T) {
	srv, _ := newTestServer(t, config.Default())

	resp := do(t, "POST", srv.URL+"/api/plan", planRequest{Target: coord.Pos(250, 100, 10, 0)})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var pr planResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&pr))
	require.Len(t, pr.Plans, 1)
	assert.Equal(t, coord.Pos(200, 100, 10, 0), pr.Plans[0].Native)
	assert.True(t, pr.Plans[0].Clamped)

	resp = do(t, "GET", srv.URL+"/api/state", nil)
	var st machine.State
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	assert.Equal(t, coord.Pos(200, 100, 10, 0), st.Logical)

	resp = do(t, "POST", srv.URL+"/api/plan", planRequest{Target: coord.Pos(0, 100, 10, 0), Line: true, Granularity: 50})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&pr))
	assert.Len(t, pr.Plans, 4)

	resp = do(t, "POST", srv.URL+"/api/plan", "nope")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_Errors(t *testing.T) {
	cfg := config.Default()
	cfg.Homing.RequireHoming = true
	srv, _ := newTestServer(t, cfg)

	resp := do(t, "POST", srv.URL+"/api/plan", planRequest{Target: coord.Pos(10, 0, 0, 0)})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = do(t, "POST", srv.URL+"/api/home?axes=xyz", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, "POST", srv.URL+"/api/soft-endstops?enabled=0", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = do(t, "POST", srv.URL+"/api/plan", planRequest{Target: coord.Pos(300, 0, 0, 0)})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = do(t, "POST", srv.URL+"/api/coordinate-systems/3", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_Offsets(t *testing.T) {
	srv, _ := newTestServer(t, config.Default())

	resp := do(t, "PUT", srv.URL+"/api/offsets/home/x", 12.5)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var st machine.State
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	assert.Equal(t, 12.5, st.Offsets[coord.X])
	assert.Equal(t, [2]float64{12.5, 212.5}, st.Bounds[coord.X])

	resp = do(t, "PUT", srv.URL+"/api/offsets/bogus/x", 1)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, "GET", srv.URL+"/api/reachable?x=205&y=10", nil)
	var r map[string]bool
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&r))
	assert.True(t, r["reachable"])
}

func TestAPI_Settings(t *testing.T) {
	srv, a := newTestServer(t, config.Default())

	resp := do(t, "GET", srv.URL+"/api/settings", nil)
	var s machine.Settings
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&s))
	assert.True(t, s.SoftEndstops)

	s.Workspace.HomeOffset[coord.Z] = -1.5
	s.Leveling.FadeHeight = 8
	resp = do(t, "PUT", srv.URL+"/api/settings", s)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	data, err := ioutil.ReadFile(filepath.Join(a.dataDir, settingsFile))
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `"fade_height": 8`))

	// a fresh server picks the persisted values up
	m, err := machine.New(*config.Default(), nil)
	require.NoError(t, err)
	b := newAPI(m, a.dataDir)
	require.NoError(t, b.loadSettings())
	assert.Equal(t, -1.5, m.Settings().Workspace.HomeOffset[coord.Z])

	resp = do(t, "DELETE", srv.URL+"/api/settings", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&s))
	assert.Equal(t, 0.0, s.Leveling.FadeHeight)
}

func TestAPI_PlanStream(t *testing.T) {
	srv, _ := newTestServer(t, config.Default())

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/plan"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	var pr planResponse
	require.NoError(t, conn.WriteJSON(planRequest{Target: coord.Pos(10, 20, 30, 0)}))
	require.NoError(t, conn.ReadJSON(&pr))
	assert.Empty(t, pr.Error)
	require.Len(t, pr.Plans, 1)
	assert.Equal(t, coord.Pos(10, 20, 30, 0), pr.Plans[0].Native)

	pr = planResponse{}
	require.NoError(t, conn.WriteJSON(planRequest{Target: coord.Pos(10, 20, 30, 0), Line: true}))
	require.NoError(t, conn.ReadJSON(&pr))
	assert.Len(t, pr.Plans, 1)
}

func TestAPI_Leveling(t *testing.T) {
	cfg := config.Default()
	cfg.Leveling.Strategy = "bilinear"
	cfg.Leveling.MeshMax = [2]float64{200, 200}
	srv, _ := newTestServer(t, cfg)

	resp := do(t, "PUT", srv.URL+"/api/leveling/grid", [][]float64{{0.1, 0.1}, {0.1, 0.1}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = do(t, "POST", srv.URL+"/api/leveling?enabled=1&fade=0", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var pr planResponse
	resp = do(t, "POST", srv.URL+"/api/plan", planRequest{Target: coord.Pos(50, 50, 1, 0)})
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&pr))
	assert.InDelta(t, 1.1, pr.Plans[0].LeveledZ, 1e-9)

	resp = do(t, "PUT", srv.URL+"/api/leveling/mesh", [][]float64{{0, 0}, {0, 0}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, "DELETE", srv.URL+"/api/leveling", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, "GET", srv.URL+"/api/probe-points?xDist=100&yDist=100&tilt=1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var pts []coord.Point
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&pts))
	assert.Len(t, pts, 5)
}
