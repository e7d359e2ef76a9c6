package main

import (
	"encoding/json"
	"io/ioutil"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	sse "github.com/alexandrevicenzi/go-sse"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/mastercactapus/motioncore/coord"
	"github.com/mastercactapus/motioncore/homing"
	"github.com/mastercactapus/motioncore/kinematics"
	"github.com/mastercactapus/motioncore/machine"
	"github.com/mastercactapus/motioncore/workspace"
	"github.com/pkg/errors"
)

const settingsFile = "settings.json"

type api struct {
	http.Handler
	m       *machine.Machine
	dataDir string
	sse     *sse.Server
	ws      websocket.Upgrader
}

func newAPI(m *machine.Machine, dir string) *api {
	r := mux.NewRouter()

	a := &api{
		Handler: r,
		m:       m,
		dataDir: dir,
		sse: sse.NewServer(&sse.Options{
			Logger: log.New(ioutil.Discard, "", 0),
		}),
	}

	r.HandleFunc("/api/state", a.state).Methods("GET")
	r.HandleFunc("/api/plan", a.plan).Methods("POST")
	r.HandleFunc("/api/reachable", a.reachable).Methods("GET")
	r.HandleFunc("/api/home", a.home).Methods("POST")
	r.HandleFunc("/api/enable", a.enable).Methods("POST")
	r.HandleFunc("/api/disable", a.disable).Methods("POST")
	r.HandleFunc("/api/offsets/{kind}/{axis}", a.setOffset).Methods("PUT")
	r.HandleFunc("/api/coordinate-systems/{n:[0-9]+}", a.selectSystem).Methods("POST")
	r.HandleFunc("/api/coordinate-systems/{n:[0-9]+}", a.setSystem).Methods("PUT")
	r.HandleFunc("/api/soft-endstops", a.softEndstops).Methods("POST")
	r.HandleFunc("/api/leveling", a.leveling).Methods("POST")
	r.HandleFunc("/api/leveling", a.clearLeveling).Methods("DELETE")
	r.HandleFunc("/api/leveling/{kind}", a.loadLeveling).Methods("PUT")
	r.HandleFunc("/api/leveling/tilt", a.tilt).Methods("POST")
	r.HandleFunc("/api/probe-points", a.probePoints).Methods("GET")
	r.HandleFunc("/api/calibrate", a.calibrate).Methods("POST")
	r.HandleFunc("/api/settings", a.getSettings).Methods("GET")
	r.HandleFunc("/api/settings", a.putSettings).Methods("PUT")
	r.HandleFunc("/api/settings", a.resetSettings).Methods("DELETE")
	r.HandleFunc("/ws/plan", a.planStream)

	r.PathPrefix("/events/").Handler(a.sse)
	go func() {
		for state := range m.Events() {
			data, err := json.Marshal(state)
			if err != nil {
				log.Printf("ERROR: marshal json: %+v", err)
				continue
			}
			a.sse.SendMessage("/events/state", sse.SimpleMessage(string(data)))
		}
	}()

	return a
}

// status maps core errors to HTTP codes.
func status(err error) int {
	switch {
	case errors.Is(err, kinematics.ErrUnreachable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, homing.ErrUnhomed):
		return http.StatusConflict
	}
	return http.StatusBadRequest
}

func fail(w http.ResponseWriter, op string, err error) {
	log.Printf("ERROR: %s: %+v", op, err)
	http.Error(w, err.Error(), status(err))
}

func reply(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		log.Println("ERROR: encode:", err)
	}
}

func decodeBody(req *http.Request, v interface{}) error {
	return errors.Wrap(json.NewDecoder(req.Body).Decode(v), "decode body")
}

func parseAxes(s string) ([]coord.Axis, error) {
	axes := coord.ParseAxes(s)
	if len(axes) == 0 && s != "" {
		return nil, errors.Errorf("invalid axes '%s'", s)
	}
	return axes, nil
}

func (a *api) state(w http.ResponseWriter, req *http.Request) {
	reply(w, a.m.State())
}

type planRequest struct {
	Target      coord.Position `json:"target"`
	Line        bool           `json:"line"`
	Granularity float64        `json:"granularity"`
}

type planResponse struct {
	Plans []machine.Plan `json:"plans,omitempty"`
	Error string         `json:"error,omitempty"`
}

func (a *api) run(r planRequest) ([]machine.Plan, error) {
	if r.Line {
		return a.m.PlanLine(r.Target, r.Granularity)
	}
	p, err := a.m.Plan(r.Target)
	if err != nil {
		return nil, err
	}
	return []machine.Plan{p}, nil
}

func (a *api) plan(w http.ResponseWriter, req *http.Request) {
	var r planRequest
	if err := decodeBody(req, &r); err != nil {
		fail(w, "plan", err)
		return
	}
	plans, err := a.run(r)
	if err != nil {
		fail(w, "plan", err)
		return
	}
	reply(w, planResponse{Plans: plans})
}

// planStream answers one plan request per websocket message, in order.
func (a *api) planStream(w http.ResponseWriter, req *http.Request) {
	conn, err := a.ws.Upgrade(w, req, nil)
	if err != nil {
		log.Println("ERROR: upgrade:", err)
		return
	}
	defer conn.Close()

	for {
		var r planRequest
		if err := conn.ReadJSON(&r); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Println("ERROR: read:", err)
			}
			return
		}
		var resp planResponse
		resp.Plans, err = a.run(r)
		if err != nil {
			resp.Error = err.Error()
		}
		if err := conn.WriteJSON(resp); err != nil {
			log.Println("ERROR: write:", err)
			return
		}
	}
}

func (a *api) reachable(w http.ResponseWriter, req *http.Request) {
	var err error
	parse := func(param string) (val float64) {
		if err != nil {
			return 0
		}
		val, err = strconv.ParseFloat(req.FormValue(param), 64)
		return val
	}
	x := parse("x")
	y := parse("y")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ok := a.m.Reachable(x, y)
	if req.FormValue("probe") == "1" {
		ok = a.m.ReachableByProbe(x, y)
	}
	reply(w, map[string]bool{"reachable": ok})
}

func (a *api) home(w http.ResponseWriter, req *http.Request) {
	axes, err := parseAxes(req.FormValue("axes"))
	if err == nil {
		err = a.m.Home(axes...)
	}
	if err != nil {
		fail(w, "home", err)
		return
	}
	reply(w, a.m.State())
}

func (a *api) enable(w http.ResponseWriter, req *http.Request) {
	a.drivers(w, req, true)
}

func (a *api) disable(w http.ResponseWriter, req *http.Request) {
	a.drivers(w, req, false)
}

func (a *api) drivers(w http.ResponseWriter, req *http.Request, on bool) {
	axes, err := parseAxes(req.FormValue("axes"))
	if err != nil {
		fail(w, "drivers", err)
		return
	}
	switch {
	case len(axes) == 0 && !on:
		err = a.m.DisableAll()
	case len(axes) == 0:
		axes = []coord.Axis{coord.X, coord.Y, coord.Z, coord.E}
	}
	for _, ax := range axes {
		if on {
			err = a.m.EnableAxis(ax)
		} else {
			err = a.m.DisableAxis(ax)
		}
		if err != nil {
			break
		}
	}
	if err != nil {
		fail(w, "drivers", err)
		return
	}
	reply(w, a.m.State())
}

func (a *api) setOffset(w http.ResponseWriter, req *http.Request) {
	vars := mux.Vars(req)
	axes := coord.ParseAxes(vars["axis"])
	if len(axes) != 1 {
		http.Error(w, "invalid axis", http.StatusBadRequest)
		return
	}
	var v float64
	if err := decodeBody(req, &v); err != nil {
		fail(w, "offset", err)
		return
	}

	var err error
	switch vars["kind"] {
	case "home":
		err = a.m.SetHomeOffset(axes[0], v)
	case "shift":
		err = a.m.SetPositionShift(axes[0], v)
	case "position":
		err = a.m.SetLogicalPosition(axes[0], v)
	default:
		http.NotFound(w, req)
		return
	}
	if err != nil {
		fail(w, "offset", err)
		return
	}
	reply(w, a.m.State())
}

func systemIndex(req *http.Request) int {
	n, _ := strconv.Atoi(mux.Vars(req)["n"])
	return n
}

func (a *api) selectSystem(w http.ResponseWriter, req *http.Request) {
	if err := a.m.SelectCoordinateSystem(systemIndex(req)); err != nil {
		fail(w, "select coordinate system", err)
		return
	}
	reply(w, a.m.State())
}

func (a *api) setSystem(w http.ResponseWriter, req *http.Request) {
	var o workspace.Offsets
	err := decodeBody(req, &o)
	if err == nil {
		err = a.m.SetCoordinateSystem(systemIndex(req), o)
	}
	if err != nil {
		fail(w, "set coordinate system", err)
		return
	}
	reply(w, a.m.State())
}

func (a *api) softEndstops(w http.ResponseWriter, req *http.Request) {
	a.m.SetSoftEndstops(req.FormValue("enabled") == "1")
	reply(w, a.m.State())
}

func (a *api) leveling(w http.ResponseWriter, req *http.Request) {
	if v := req.FormValue("fade"); v != "" {
		h, err := strconv.ParseFloat(v, 64)
		if err == nil {
			err = a.m.SetFadeHeight(h)
		}
		if err != nil {
			fail(w, "fade", err)
			return
		}
	}
	if v := req.FormValue("enabled"); v != "" {
		a.m.SetLevelingEnabled(v == "1")
	}
	reply(w, a.m.State())
}

func (a *api) clearLeveling(w http.ResponseWriter, req *http.Request) {
	if err := a.m.ClearLeveling(); err != nil {
		fail(w, "clear leveling", err)
		return
	}
	reply(w, a.m.State())
}

type probePointsRequest struct {
	Points    []coord.Point `json:"points"`
	Reference float64       `json:"reference"`
}

func (a *api) loadLeveling(w http.ResponseWriter, req *http.Request) {
	var err error
	switch mux.Vars(req)["kind"] {
	case "grid", "mesh":
		var z [][]float64
		if err = decodeBody(req, &z); err != nil {
			break
		}
		if mux.Vars(req)["kind"] == "grid" {
			err = a.m.LoadGrid(z)
		} else {
			err = a.m.LoadMesh(z)
		}
	case "points":
		var r probePointsRequest
		if err = decodeBody(req, &r); err != nil {
			break
		}
		err = a.m.LoadProbePoints(r.Points, r.Reference)
	default:
		http.NotFound(w, req)
		return
	}
	if err != nil {
		fail(w, "load leveling", err)
		return
	}
	reply(w, a.m.State())
}

func (a *api) tilt(w http.ResponseWriter, req *http.Request) {
	var samples []coord.Point
	err := decodeBody(req, &samples)
	if err == nil {
		err = a.m.TiltMesh(samples)
	}
	if err != nil {
		fail(w, "tilt", err)
		return
	}
	reply(w, a.m.State())
}

func (a *api) probePoints(w http.ResponseWriter, req *http.Request) {
	var err error
	parse := func(param string) (val float64) {
		if err != nil || req.FormValue(param) == "" {
			return 0
		}
		val, err = strconv.ParseFloat(req.FormValue(param), 64)
		return val
	}
	opt := machine.ProbeGridOptions{
		Origin:      coord.Point{X: parse("x"), Y: parse("y"), Z: parse("z")},
		DistanceX:   parse("xDist"),
		DistanceY:   parse("yDist"),
		Granularity: parse("granularity"),
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var pts []coord.Point
	if req.FormValue("tilt") == "1" {
		pts, err = a.m.TiltPoints(opt)
	} else {
		pts, err = a.m.ProbeGrid(opt)
	}
	if err != nil {
		fail(w, "probe points", err)
		return
	}
	reply(w, pts)
}

func (a *api) calibrate(w http.ResponseWriter, req *http.Request) {
	var p kinematics.DeltaParams
	err := decodeBody(req, &p)
	if err == nil {
		err = a.m.Calibrate(p)
	}
	if err != nil {
		fail(w, "calibrate", err)
		return
	}
	reply(w, a.m.Settings())
}

func (a *api) getSettings(w http.ResponseWriter, req *http.Request) {
	reply(w, a.m.Settings())
}

func (a *api) putSettings(w http.ResponseWriter, req *http.Request) {
	var s machine.Settings
	err := decodeBody(req, &s)
	if err == nil {
		err = a.m.ApplySettings(s)
	}
	if err == nil {
		err = a.saveSettings()
	}
	if err != nil {
		fail(w, "settings", err)
		return
	}
	reply(w, a.m.Settings())
}

func (a *api) resetSettings(w http.ResponseWriter, req *http.Request) {
	err := a.m.ResetSettings()
	if err == nil {
		err = a.saveSettings()
	}
	if err != nil {
		fail(w, "reset settings", err)
		return
	}
	reply(w, a.m.Settings())
}

func (a *api) saveSettings() error {
	name := filepath.Join(a.dataDir, settingsFile)
	os.MkdirAll(a.dataDir, 0755)
	data, err := json.MarshalIndent(a.m.Settings(), "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal settings")
	}
	return errors.Wrapf(ioutil.WriteFile(name, data, 0644), "write '%s'", name)
}

// loadSettings applies the persisted settings, if any.
func (a *api) loadSettings() error {
	data, err := ioutil.ReadFile(filepath.Join(a.dataDir, settingsFile))
	if err != nil {
		return err
	}
	var s machine.Settings
	if err := json.Unmarshal(data, &s); err != nil {
		return errors.Wrap(err, "parse settings")
	}
	return a.m.ApplySettings(s)
}
