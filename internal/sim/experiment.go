// Experiment wires mobility, radio, beacons and routed traffic into one run
package sim

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/netip"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/iti/rngstream"

	"vanet-sim/internal/engine"
	"vanet-sim/internal/logging"
	"vanet-sim/internal/mobility"
	"vanet-sim/internal/radio"
	"vanet-sim/internal/routing"
	"vanet-sim/internal/scenario"
	"vanet-sim/internal/telemetry"
	"vanet-sim/internal/wave"
)

// Fixed ports and timings of every run.
const (
	BeaconPort   uint16 = 9080
	AppPort      uint16 = 9
	SamplePeriod        = 1.0
	RoutesDumpAt        = 5.0
	// BeaconWarmup is the earliest beacon start.
	BeaconWarmup = 1.0
)

// Experiment is one configured run. It is not reusable: call Run once.
type Experiment struct {
	params  scenario.Parameters
	samples SampleWriter
	summary SummaryWriter
	phy     radio.Phy

	runID string
	epoch time.Time
	dir   string
	trace *mobility.Trace
	log   *slog.Logger

	stats *wave.RunStats
}

// Option customises an Experiment.
type Option func(*Experiment)

// WithRunID sets the id tagged on every row. A random uuid is used otherwise.
func WithRunID(id string) Option { return func(e *Experiment) { e.runID = id } }

// WithEpoch anchors simulated second zero to a wall clock instant.
func WithEpoch(t time.Time) Option { return func(e *Experiment) { e.epoch = t } }

// WithOutputDir places the course log, pcap, flowmon and routes files in dir.
func WithOutputDir(dir string) Option { return func(e *Experiment) { e.dir = dir } }

// WithTrace supplies an already parsed ns-2 trace instead of reading TraceFile.
func WithTrace(tr *mobility.Trace) Option { return func(e *Experiment) { e.trace = tr } }

// WithLogger overrides the logger taken from the Run context.
func WithLogger(l *slog.Logger) Option { return func(e *Experiment) { e.log = l } }

// NewExperiment checks params that are only known once the radio is built.
// summary may be nil.
func NewExperiment(params scenario.Parameters, samples SampleWriter, summary SummaryWriter, opts ...Option) (*Experiment, error) {
	rate, err := radio.ParseDataRate(params.DataMode())
	if err != nil {
		return nil, fmt.Errorf("experiment: %w", err)
	}
	e := &Experiment{
		params:  params,
		samples: samples,
		summary: summary,
		phy: radio.Phy{
			TxPowerDbm:       params.TxPower,
			Frequency:        params.Band.Frequency(),
			RxSensitivityDbm: radio.DefaultRxSensitivity,
			Loss:             params.LossModel,
			DataRate:         rate,
		},
		epoch: time.Now().UTC(),
		dir:   ".",
	}
	for _, o := range opts {
		o(e)
	}
	if e.runID == "" {
		e.runID = uuid.NewString()
	}
	return e, nil
}

// RunID returns the id tagged on this run's rows.
func (e *Experiment) RunID() string { return e.runID }

// Stats returns the beacon counters after Run.
func (e *Experiment) Stats() *wave.RunStats { return e.stats }

func (e *Experiment) path(name string) string { return filepath.Join(e.dir, name) }

// Run simulates TotalTime seconds and returns the summary row, which has
// also been handed to the summary writer. A missing node position or a
// cancelled ctx aborts the run with an error.
func (e *Experiment) Run(ctx context.Context) (telemetry.SummaryRow, error) {
	p := e.params
	log := e.log
	if log == nil {
		log = logging.FromContext(ctx)
	}
	log = log.With("run_id", e.runID)
	log.Info("starting experiment",
		"scenario", p.Scenario,
		"nodes", p.Nodes,
		"protocol", p.Protocol.String(),
		"mobility", p.Mobility.String(),
		"total_time", p.TotalTime,
	)

	eng := engine.New()
	pop := mobility.NewPopulation(p.Nodes, mobility.DefaultAddrBase, eng.Now)

	if p.LogFile != "" {
		f, err := os.Create(e.path(p.LogFile))
		if err != nil {
			return telemetry.SummaryRow{}, fmt.Errorf("course log: %w", err)
		}
		bw := bufio.NewWriter(f)
		defer func() {
			bw.Flush()
			f.Close()
		}()
		pop.OnCourseChange(mobility.CourseLogger(bw))
	}

	driver, err := e.mobilityDriver(pop)
	if err != nil {
		return telemetry.SummaryRow{}, err
	}
	if err := driver.Start(eng); err != nil {
		return telemetry.SummaryRow{}, fmt.Errorf("start mobility: %w", err)
	}

	medium := radio.NewMedium(eng, pop, e.phy)
	if p.Pcap {
		tap, err := radio.CreatePcapTap(e.path(p.TraceName+".pcap"), e.epoch)
		if err != nil {
			return telemetry.SummaryRow{}, fmt.Errorf("pcap: %w", err)
		}
		defer tap.Close()
		medium.AddTap(tap)
	}

	stats := wave.NewRunStats(p.SafetyRange)
	e.stats = stats
	if err := e.installBeacons(eng, pop, medium, stats, log); err != nil {
		return telemetry.SummaryRow{}, err
	}

	flows := routing.NewFlowMonitor()
	router := routing.NewGeoRouter(eng, medium, flows)
	if err := e.installApps(eng, pop, router, stats, log); err != nil {
		return telemetry.SummaryRow{}, err
	}
	if p.RoutingTables && p.Protocol != routing.None {
		eng.ScheduleAfter(RoutesDumpAt, engine.TaskFunc(func(engine.Scheduler) {
			if err := writeFile(e.path(p.TraceName+".routes"), router.WriteRoutes); err != nil {
				log.Warn("routing table dump failed", "err", err)
			}
		}))
	}

	sampler := &wave.ThroughputSampler{
		Stats:    stats,
		Sink:     e.samples,
		Period:   SamplePeriod,
		RunID:    e.runID,
		Protocol: p.Protocol.String(),
		Sinks:    p.Sinks,
		TxPower:  p.TxPower,
		Epoch:    e.epoch,
		Log:      log,
	}
	eng.ScheduleAfter(0, sampler)

	start := time.Now()
	if err := eng.Run(ctx, p.TotalTime); err != nil {
		return telemetry.SummaryRow{}, fmt.Errorf("run aborted at t=%.3fs: %w", eng.Now(), err)
	}
	if err := medium.TapErr(); err != nil {
		log.Warn("packet capture incomplete", "err", err)
	}
	if p.FlowMon {
		if err := writeFile(e.path(p.TraceName+".flowmon"), flows.WriteJSON); err != nil {
			return telemetry.SummaryRow{}, fmt.Errorf("flowmon: %w", err)
		}
	}

	var flowSrc wave.FlowSource
	if p.FlowMon {
		flowSrc = flows
	}
	row := wave.Aggregate(stats, flowSrc, AppPort, p.TotalTime)
	row.RunID = e.runID
	row.Timestamp = e.epoch.Add(time.Duration(p.TotalTime * float64(time.Second)))
	if e.summary != nil {
		if err := e.summary.WriteSummary(row); err != nil {
			return row, fmt.Errorf("write summary: %w", err)
		}
	}

	tp := sampler.Series.Throughput()
	pdr := sampler.Series.BeaconPDR()
	log.Info("experiment finished",
		"events", eng.Fired(),
		"wall", time.Since(start).Round(time.Millisecond),
		"beacons_sent", stats.SentTotal,
		"bsm_pdr", row.CoveragePDR,
		"kbps_mean", tp.Mean,
		"kbps_max", tp.Max,
		"interval_pdr_mean", pdr.Mean,
		"interval_pdr_stddev", pdr.StdDev,
	)
	return row, nil
}

func (e *Experiment) mobilityDriver(pop *mobility.Population) (mobility.Driver, error) {
	p := e.params
	switch p.Mobility {
	case scenario.MobilityRandomWaypoint:
		return &mobility.RandomWaypoint{
			Pop:      pop,
			Box:      mobility.Highway,
			MaxSpeed: p.NodeSpeed,
			Pause:    p.NodePause,
			Rand:     rngstream.New("waypoint"),
		}, nil
	case scenario.MobilityTrace:
		tr := e.trace
		if tr == nil {
			var err error
			if tr, err = mobility.LoadNs2(p.TraceFile); err != nil {
				return nil, fmt.Errorf("trace %s: %w", p.TraceFile, err)
			}
		}
		return &mobility.TracePlayback{Pop: pop, Trace: tr}, nil
	}
	return nil, fmt.Errorf("%w: mobility %d", scenario.ErrInvalidParameter, int(p.Mobility))
}

// installBeacons binds a broadcast socket on every node and starts its
// generator shortly after the warm-up second, offset by GPS clock error.
func (e *Experiment) installBeacons(eng *engine.EventEngine, pop *mobility.Population, medium *radio.Medium, stats *wave.RunStats, log *slog.Logger) error {
	p := e.params
	tally := &wave.ReceptionTally{
		Stats:  stats,
		Pop:    pop,
		Ifaces: medium.Interfaces(),
		Sched:  eng,
		Log:    log,
	}
	jitter := rngstream.New("bsm-start")
	budget := wave.BeaconBudget(p.TotalTime, p.BeaconInterval)
	dst := netip.AddrPortFrom(radio.BroadcastAddr, BeaconPort)
	for _, n := range pop.Nodes() {
		sock, err := medium.Bind(n, BeaconPort, tally.HandlePacket)
		if err != nil {
			return fmt.Errorf("bind beacon socket on node %d: %w", n.ID, err)
		}
		sock.Connect(dst)
		gen := &wave.BeaconGenerator{
			Stats:     stats,
			Pop:       pop,
			Node:      n,
			Socket:    sock,
			Size:      p.BeaconSize,
			Interval:  p.BeaconInterval,
			Remaining: budget,
			Log:       log,
		}
		eng.ScheduleAfter(BeaconWarmup+gpsOffset(jitter, p.GPSAccuracyNs), gen)
	}
	return nil
}

// gpsOffset draws an integer in [1, accuracyNs] and scales it by 1e-6 s.
func gpsOffset(u mobility.Uniform, accuracyNs float64) float64 {
	if accuracyNs <= 1 {
		return 1e-6
	}
	return float64(int(1+u.RandU01()*(accuracyNs-1))) / 1e6
}

// installApps makes node i a sink on AppPort fed by node i+Sinks.
func (e *Experiment) installApps(eng *engine.EventEngine, pop *mobility.Population, router *routing.GeoRouter, stats *wave.RunStats, log *slog.Logger) error {
	p := e.params
	n := p.Flows()
	if n == 0 {
		return nil
	}
	sink := &wave.RoutedSink{Stats: stats, Sched: eng, Log: log}
	starts := rngstream.New("app-start")
	for i := 0; i < n; i++ {
		dst := pop.Node(i)
		src := pop.Node(i + p.Sinks)
		if _, err := router.Listen(dst, AppPort, sink.HandlePacket); err != nil {
			return fmt.Errorf("bind sink on node %d: %w", i, err)
		}
		app := &routing.OnOffApp{
			Router:     router,
			Node:       src,
			LocalPort:  routing.EphemeralPortBase,
			Remote:     netip.AddrPortFrom(dst.Addr, AppPort),
			PacketSize: p.AppPacketSize,
			DataRate:   p.AppRate,
			StopTime:   p.TotalTime,
		}
		eng.ScheduleAfter(1+starts.RandU01(), app)
	}
	log.Debug("installed routed flows", "flows", n, "port", AppPort)
	return nil
}

func writeFile(path string, fn func(w io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
