// Package monitoring serves the progress and the state of a running
// projection over HTTP.
package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"strings"
	"sync"
	"time"

	// Enable profiling
	_ "net/http/pprof"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"
	"go.uber.org/zap"

	"github.com/sarchlab/cohortsim/cycle"
	"github.com/sarchlab/cohortsim/ledger"
	"github.com/sarchlab/cohortsim/monitoring/web"
)

// Status is a snapshot of the run, taken at every hook site.
type Status struct {
	Year   int              `json:"year"`
	State  string           `json:"state"`
	Stage  string           `json:"stage"`
	Emits  int              `json:"emitted_years"`
	Totals map[string]int64 `json:"totals"`
}

// Monitor can turn a projection run into a server and allows external
// monitoring of the run.
type Monitor struct {
	controller *cycle.Controller
	metrics    *Metrics
	portNumber int
	logger     *zap.Logger

	server   *http.Server
	listener net.Listener

	statusLock sync.Mutex
	status     Status

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar

	profileDuration time.Duration
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{
		logger:          zap.NewNop(),
		profileDuration: time.Second,
	}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber < 1000 {
		m.logger.Warn("monitor port not allowed, using a random port",
			zap.Int("port", portNumber))

		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithLogger sets the logger of the monitor.
func (m *Monitor) WithLogger(logger *zap.Logger) *Monitor {
	m.logger = logger
	return m
}

// WithMetrics serves the metrics under /metrics.
func (m *Monitor) WithMetrics(metrics *Metrics) *Monitor {
	m.metrics = metrics
	return m
}

// RegisterController registers the controller of the run. The monitor hooks
// into the controller to follow its progress.
func (m *Monitor) RegisterController(c *cycle.Controller) {
	m.controller = c

	bar := m.CreateProgressBar("Years", uint64(c.NumYears()))
	c.AcceptHook(NewProgressHook(bar))
	c.AcceptHook(m)

	if m.metrics != nil {
		c.AcceptHook(m.metrics)
	}

	m.statusLock.Lock()
	m.status = Status{Year: c.Year(), State: c.State().String()}
	m.statusLock.Unlock()
}

// Func records a snapshot of the run.
func (m *Monitor) Func(ctx cycle.HookCtx) {
	m.statusLock.Lock()
	defer m.statusLock.Unlock()

	m.status.Year = ctx.Year

	if c, ok := ctx.Domain.(*cycle.Controller); ok {
		m.status.State = c.State().String()
	}

	switch ctx.Pos {
	case cycle.HookPosBeforeYear:
		m.status.Stage = ""
	case cycle.HookPosAfterStage:
		if stage, ok := ctx.Detail.(cycle.Stage); ok {
			m.status.Stage = string(stage)
		}
	case cycle.HookPosAfterYear:
		m.status.Emits++

		if l, ok := ctx.Item.(*ledger.Ledger); ok {
			m.status.Totals = make(map[string]int64, len(ledger.Catalogue))
			for _, info := range ledger.Catalogue {
				m.status.Totals[info.Name] = l.Total(info.Field)
			}
		}
	}
}

// Status returns the latest snapshot.
func (m *Monitor) Status() Status {
	m.statusLock.Lock()
	defer m.statusLock.Unlock()

	s := m.status
	if s.Totals != nil {
		s.Totals = make(map[string]int64, len(m.status.Totals))
		for k, v := range m.status.Totals {
			s.Totals[k] = v
		}
	}

	return s
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := newProgressBar(name, total)

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar to be shown on the webpage.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

// Router returns the routes served by the monitor.
func (m *Monitor) Router() *mux.Router {
	r := mux.NewRouter()

	assets, err := web.Assets()
	if err != nil {
		m.logger.Warn("serving the embedded dashboard", zap.Error(err))
		assets = web.Embedded()
	}

	fServer := http.FileServer(assets)
	r.HandleFunc("/api/status", m.listStatus)
	r.HandleFunc("/api/state", m.dumpState)
	r.HandleFunc("/api/state/{path}", m.dumpState)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)

	if m.metrics != nil {
		r.Handle("/metrics", m.metrics.Handler())
	}

	r.PathPrefix("/debug/pprof/").Handler(http.DefaultServeMux)
	r.PathPrefix("/").Handler(fServer)

	return r
}

// StartServer starts the monitor as a web server with a custom port if wanted.
func (m *Monitor) StartServer() error {
	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	if err != nil {
		return fmt.Errorf("start monitor: %w", err)
	}

	m.listener = listener
	m.server = &http.Server{
		Handler:           m.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	fmt.Fprintf(os.Stderr, "Monitoring projection with %s\n", m.URL())

	go func() {
		err := m.server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("monitor stopped", zap.Error(err))
		}
	}()

	return nil
}

// URL returns the address of the running server.
func (m *Monitor) URL() string {
	if m.listener == nil {
		return ""
	}

	return fmt.Sprintf("http://localhost:%d",
		m.listener.Addr().(*net.TCPAddr).Port)
}

// OpenInBrowser opens the monitor page in the default browser.
func (m *Monitor) OpenInBrowser() error {
	if m.listener == nil {
		return errors.New("monitor is not running")
	}

	return browser.OpenURL(m.URL())
}

// StopServer shuts the server down.
func (m *Monitor) StopServer(ctx context.Context) error {
	if m.server == nil {
		return nil
	}

	return m.server.Shutdown(ctx)
}

func (m *Monitor) fail(w http.ResponseWriter, status int, err error) {
	m.logger.Warn("monitor request failed", zap.Error(err))
	http.Error(w, err.Error(), status)
}

func (m *Monitor) writeJSON(w http.ResponseWriter, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		m.fail(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if _, err := w.Write(data); err != nil {
		m.logger.Debug("monitor response not written", zap.Error(err))
	}
}

func (m *Monitor) listStatus(w http.ResponseWriter, _ *http.Request) {
	m.writeJSON(w, m.Status())
}

// dumpState serializes the latest status. A dotted path selects a nested
// field, for example /api/state/Totals.
func (m *Monitor) dumpState(w http.ResponseWriter, r *http.Request) {
	status := m.Status()

	serializer := goseth.NewSerializer()
	serializer.SetRoot(&status)
	serializer.SetMaxDepth(2)

	if path := mux.Vars(r)["path"]; path != "" {
		if err := serializer.SetEntryPoint(strings.Split(path, ".")); err != nil {
			m.fail(w, http.StatusNotFound, err)
			return
		}
	}

	buf := bytes.NewBuffer(nil)
	if err := serializer.Serialize(buf); err != nil {
		m.fail(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(buf.Bytes())
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	bars := make([]ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		b.Lock()
		bars = append(bars, ProgressBar{
			ID:         b.ID,
			Name:       b.Name,
			StartTime:  b.StartTime,
			Total:      b.Total,
			Finished:   b.Finished,
			InProgress: b.InProgress,
		})
		b.Unlock()
	}

	m.writeJSON(w, bars)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()

	process, err := process.NewProcess(int32(pid))
	if err != nil {
		m.fail(w, http.StatusInternalServerError, err)
		return
	}

	cpuPercent, err := process.CPUPercent()
	if err != nil {
		m.fail(w, http.StatusInternalServerError, err)
		return
	}

	memorySize, err := process.MemoryInfo()
	if err != nil {
		m.fail(w, http.StatusInternalServerError, err)
		return
	}

	m.writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	if err := pprof.StartCPUProfile(buf); err != nil {
		m.fail(w, http.StatusConflict, err)
		return
	}

	time.Sleep(m.profileDuration)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	if err != nil {
		m.fail(w, http.StatusInternalServerError, err)
		return
	}

	m.writeJSON(w, prof)
}
