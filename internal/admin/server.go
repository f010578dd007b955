package admin

import (
	"embed"
	"encoding/json"
	"html/template"
	"net/http"
	"sort"
	"strconv"
	"sync"

	"github.com/gorilla/mux"

	"vanet-sim/internal/scenario"
	"vanet-sim/internal/telemetry"
)

// Status is the JSON body of /status.
type Status struct {
	RunID    string                `json:"run_id"`
	State    string                `json:"state"`
	Params   *scenario.Parameters  `json:"params,omitempty"`
	Latest   *telemetry.SampleRow  `json:"latest,omitempty"`
	Samples  int                   `json:"samples"`
	Summary  *telemetry.SummaryRow `json:"summary,omitempty"`
	Progress float64               `json:"progress"`
}

// Run states.
const (
	StateIdle     = "idle"
	StateRunning  = "running"
	StateFinished = "finished"
)

// Server exposes the status of the current experiment over HTTP. It is also
// a sample and summary writer, so the run feeds it like any other output.
type Server struct {
	mu      sync.RWMutex
	params  *scenario.Parameters
	runID   string
	latest  *telemetry.SampleRow
	samples int
	summary *telemetry.SummaryRow

	stop    func()
	metrics http.Handler
	tpl     *template.Template
	router  *mux.Router
}

//go:embed templates/index.html
var content embed.FS

// NewServer creates a server. metrics may be nil to disable /metrics.
func NewServer(params *scenario.Parameters, runID string, metrics http.Handler) *Server {
	tpl := template.Must(template.New("index.html").Funcs(template.FuncMap{
		"mul100": func(f float64) float64 { return f * 100 },
	}).ParseFS(content, "templates/index.html"))
	s := &Server{params: params, runID: runID, metrics: metrics, tpl: tpl}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := mux.NewRouter()
	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/scenarios", s.handleScenarios).Methods(http.MethodGet)
	r.HandleFunc("/scenarios/{id:[0-9]+}", s.handleScenario).Methods(http.MethodGet)
	r.HandleFunc("/stop", s.handleStop).Methods(http.MethodPost)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics).Methods(http.MethodGet)
	}
	s.router = r
}

// OnStop registers the function called by POST /stop, usually the cancel of
// the run context.
func (s *Server) OnStop(fn func()) {
	s.mu.Lock()
	s.stop = fn
	s.mu.Unlock()
}

// Handler returns the router.
func (s *Server) Handler() http.Handler { return s.router }

// Start serves on addr until the listener fails.
func (s *Server) Start(addr string) error {
	return http.ListenAndServe(addr, s.router)
}

// WriteSample records the latest sample.
func (s *Server) WriteSample(row telemetry.SampleRow) error {
	s.mu.Lock()
	s.latest = &row
	s.samples++
	s.mu.Unlock()
	return nil
}

// WriteSummary records the end of run summary.
func (s *Server) WriteSummary(row telemetry.SummaryRow) error {
	s.mu.Lock()
	s.summary = &row
	s.mu.Unlock()
	return nil
}

// Status returns a snapshot of the run.
func (s *Server) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Status{
		RunID:   s.runID,
		State:   StateIdle,
		Params:  s.params,
		Latest:  s.latest,
		Samples: s.samples,
		Summary: s.summary,
	}
	switch {
	case s.summary != nil:
		st.State = StateFinished
		st.Progress = 1
	case s.latest != nil:
		st.State = StateRunning
		if s.params != nil && s.params.TotalTime > 0 {
			st.Progress = s.latest.SimulationSecond / s.params.TotalTime
		}
	}
	return st
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if err := s.tpl.Execute(w, s.Status()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	stop := s.stop
	s.mu.RUnlock()
	if stop == nil {
		http.Error(w, "no run to stop", http.StatusServiceUnavailable)
		return
	}
	stop()
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Status())
}

type scenarioInfo struct {
	ID          int                 `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Params      scenario.Parameters `json:"params"`
}

func describe(id int, sc scenario.Scenario) (scenarioInfo, error) {
	p, err := scenario.Resolve(id, scenario.Overrides{})
	if err != nil {
		return scenarioInfo{}, err
	}
	return scenarioInfo{ID: id, Name: sc.Name, Description: sc.Description, Params: p}, nil
}

func (s *Server) handleScenarios(w http.ResponseWriter, r *http.Request) {
	all := scenario.BuiltIn()
	out := make([]scenarioInfo, 0, len(all))
	for id, sc := range all {
		info, err := describe(id, sc)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, out)
}

func (s *Server) handleScenario(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])
	sc, ok := scenario.BuiltIn()[id]
	if !ok {
		http.NotFound(w, r)
		return
	}
	info, err := describe(id, sc)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, info)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
