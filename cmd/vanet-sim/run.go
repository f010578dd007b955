package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"vanet-sim/internal/admin"
	"vanet-sim/internal/config"
	"vanet-sim/internal/logging"
	"vanet-sim/internal/scenario"
	"vanet-sim/internal/sim"
)

// runFlags mirrors the classic command line of the experiment. Only flags
// the user changed become explicit overrides.
type runFlags struct {
	configPath string
	schemaPath string
	outDir     string
	jsonl      string
	stdout     string
	adminAddr  string
	runID      string
	verbose    bool

	scenario      int
	nodes         int
	sinks         int
	totalTime     float64
	txp           float64
	protocol      int
	lossModel     int
	band          int
	phyMode       string
	phyModeB      string
	rate          float64
	mobility      int
	traceFile     string
	logFile       string
	speed         float64
	pause         float64
	bsm           int
	interval      float64
	txdist        float64
	gpsAccuracy   float64
	flowmon       bool
	routingTables bool
	pcap          bool
	traceName     string
	csvFileName   string
	csvFileName2  string
	appPacketSize int
}

var runOpts runFlags

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one experiment",
	Long: "run resolves a scenario, applies the experiment file and flags on top, then\n" +
		"simulates it and writes the per-second and summary CSV logs.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExperiment(cmd, &runOpts)
	},
}

func init() {
	bindRunFlags(runCmd.Flags(), &runOpts)
}

func bindRunFlags(f *pflag.FlagSet, o *runFlags) {
	f.StringVar(&o.configPath, "config", "", "Path to experiment YAML")
	f.StringVar(&o.schemaPath, "schema", "", "Path to CUE schema file (built-in schema when empty)")
	f.StringVar(&o.outDir, "out", ".", "Directory for CSV, course log, pcap, flowmon and routes files")
	f.StringVar(&o.jsonl, "log-file", "", "Path to export samples as JSON lines")
	f.StringVar(&o.stdout, "stdout", "", "Console output: json, color, tui or none (tui on a terminal, json otherwise)")
	f.StringVar(&o.adminAddr, "admin", "", "Address of the admin HTTP server, e.g. :8080")
	f.StringVar(&o.runID, "run-id", "", "Run id tagged on every row (random when empty)")
	f.BoolVar(&o.verbose, "verbose", false, "Log at debug level")

	f.IntVar(&o.scenario, "scenario", 1, "1=highway RWP; 2,3,4=Zurich low/medium/high; 5=Centennial")
	f.IntVar(&o.nodes, "nodes", 156, "Number of nodes (i.e. vehicles)")
	f.IntVar(&o.sinks, "sinks", 10, "Number of routing sinks")
	f.Float64Var(&o.totalTime, "totaltime", 300.01, "Simulation end time (s)")
	f.Float64Var(&o.txp, "txp", 20, "Transmit power (dBm), e.g. txp=7.5")
	f.IntVar(&o.protocol, "protocol", 2, "0=none;1=OLSR;2=AODV;3=DSDV;4=DSR")
	f.IntVar(&o.lossModel, "lossModel", 2, "1=Friis;2=ItuR1411Los;3=TwoRayGround;4=LogDistance")
	f.IntVar(&o.band, "80211Mode", 1, "1=802.11p; 2=802.11b")
	f.StringVar(&o.phyMode, "phyMode", "OfdmRate6MbpsBW10MHz", "Wifi phy mode")
	f.StringVar(&o.phyModeB, "phyMode_b", "DsssRate11Mbps", "Phy mode 802.11b")
	f.Float64Var(&o.rate, "rate", 2048, "Routed application rate (bps)")
	f.IntVar(&o.appPacketSize, "packetSize", 64, "Routed application packet size (bytes)")
	f.IntVar(&o.mobility, "mobility", 1, "1=trace;2=RWP")
	f.StringVar(&o.traceFile, "traceFile", "", "Ns2 movement trace file")
	f.StringVar(&o.logFile, "logFile", "", "Course change log file")
	f.Float64Var(&o.speed, "speed", 20, "Node speed (m/s)")
	f.Float64Var(&o.pause, "pause", 0, "Node pause (s)")
	f.IntVar(&o.bsm, "bsm", 200, "(WAVE) BSM size (bytes)")
	f.Float64Var(&o.interval, "interval", 0.1, "(WAVE) BSM interval (s)")
	f.Float64Var(&o.txdist, "txdist", 145, "Expected BSM tx range (m)")
	f.Float64Var(&o.gpsAccuracy, "gpsaccuracy", 10000, "GPS time accuracy (ns)")
	f.BoolVar(&o.flowmon, "flowmon", true, "Write the flow monitor dump")
	f.BoolVar(&o.routingTables, "routingTables", false, "Dump routing tables at t=5 seconds")
	f.BoolVar(&o.pcap, "pcap", false, "Capture beacons to a pcap file")
	f.StringVar(&o.traceName, "trace", "vanet-routing-compare", "Base name of pcap, flowmon and routes files")
	f.StringVar(&o.csvFileName, "CSVfileName", "vanet-routing.output.csv", "Per-second CSV output file")
	f.StringVar(&o.csvFileName2, "CSVfileName2", "vanet-routing.output2.csv", "Summary CSV output file")
}

func changed[T any](fs *pflag.FlagSet, name string, v T, dst *scenario.Opt[T]) {
	if fs.Changed(name) {
		*dst = scenario.Some(v)
	}
}

// flagOverrides returns the flags the user set explicitly.
func flagOverrides(fs *pflag.FlagSet, f *runFlags) scenario.Overrides {
	var o scenario.Overrides
	changed(fs, "nodes", f.nodes, &o.Nodes)
	changed(fs, "sinks", f.sinks, &o.Sinks)
	changed(fs, "totaltime", f.totalTime, &o.TotalTime)
	changed(fs, "txp", f.txp, &o.TxPower)
	changed(fs, "protocol", f.protocol, &o.Protocol)
	changed(fs, "lossModel", f.lossModel, &o.LossModel)
	changed(fs, "80211Mode", f.band, &o.Band)
	changed(fs, "phyMode", f.phyMode, &o.PhyMode)
	changed(fs, "phyMode_b", f.phyModeB, &o.PhyModeB)
	changed(fs, "rate", f.rate, &o.AppRate)
	changed(fs, "packetSize", f.appPacketSize, &o.AppPacketSize)
	changed(fs, "mobility", f.mobility, &o.Mobility)
	changed(fs, "traceFile", f.traceFile, &o.TraceFile)
	changed(fs, "logFile", f.logFile, &o.LogFile)
	changed(fs, "speed", f.speed, &o.NodeSpeed)
	changed(fs, "pause", f.pause, &o.NodePause)
	changed(fs, "bsm", f.bsm, &o.BeaconSize)
	changed(fs, "interval", f.interval, &o.BeaconInterval)
	changed(fs, "txdist", f.txdist, &o.SafetyRange)
	changed(fs, "gpsaccuracy", f.gpsAccuracy, &o.GPSAccuracyNs)
	changed(fs, "flowmon", f.flowmon, &o.FlowMon)
	changed(fs, "routingTables", f.routingTables, &o.RoutingTables)
	changed(fs, "pcap", f.pcap, &o.Pcap)
	changed(fs, "trace", f.traceName, &o.TraceName)
	changed(fs, "CSVfileName", f.csvFileName, &o.CSVFile)
	changed(fs, "CSVfileName2", f.csvFileName2, &o.CSVFile2)
	return o
}

// resolveParams layers the experiment file under the flags and resolves the
// scenario. It also returns the experiment file's output selection.
func resolveParams(fs *pflag.FlagSet, f *runFlags) (scenario.Parameters, config.Outputs, error) {
	var exp *config.Experiment
	if f.configPath != "" {
		var err error
		if exp, err = config.Load(f.configPath, f.schemaPath); err != nil {
			return scenario.Parameters{}, config.Outputs{}, err
		}
	}

	var explicit scenario.Overrides
	var outputs config.Outputs
	if exp != nil {
		explicit = exp.Overrides
		outputs = exp.Outputs
	}
	explicit.Overlay(flagOverrides(fs, f))

	id := exp.ScenarioID(f.scenario)
	if fs.Changed("scenario") {
		id = f.scenario
	}
	if fs.Changed("log-file") {
		outputs.JSONL = f.jsonl
	}
	if fs.Changed("stdout") {
		outputs.Stdout = f.stdout
	}
	params, err := scenario.Resolve(id, explicit)
	return params, outputs, err
}

func runExperiment(cmd *cobra.Command, f *runFlags) error {
	params, outputs, err := resolveParams(cmd.Flags(), f)
	if err != nil {
		return err
	}

	logCfg := logging.ConfigFromEnv()
	if f.verbose {
		logCfg.Level = logging.ParseLevel("debug")
	}
	stdoutMode := resolveStdout(outputs.Stdout)
	if stdoutMode == stdoutTUI {
		logCfg.Out = os.Stderr
	}
	logger := logging.New(logCfg)

	out, err := newWriters(&params, writerOptions{
		dir:    f.outDir,
		jsonl:  outputs.JSONL,
		stdout: stdoutMode,
	})
	if err != nil {
		return err
	}
	defer out.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logging.NewContext(ctx, logger)

	opts := []sim.Option{sim.WithOutputDir(f.outDir)}
	if f.runID != "" {
		opts = append(opts, sim.WithRunID(f.runID))
	}
	exp, err := sim.NewExperiment(params, out.writer, out.writer, opts...)
	if err != nil {
		return err
	}

	if f.adminAddr != "" {
		srv := admin.NewServer(&params, exp.RunID(), out.metrics.Handler())
		srv.OnStop(stop)
		out.writer.Add(srv)
		out.writer.SetAdminStatus(true)
		go func() {
			log.Printf("[Main] Admin UI listening on %s", f.adminAddr)
			if err := srv.Start(f.adminAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("[Main] Admin server failed: %v", err)
				out.writer.SetAdminStatus(false)
			}
		}()
	}

	log.Printf("[Main] Running scenario %d (%s, %d nodes, %.2fs)", params.Scenario, params.Protocol, params.Nodes, params.TotalTime)
	row, err := exp.Run(ctx)
	if errors.Is(err, context.Canceled) {
		log.Println("[Main] Simulation stopped.")
		return nil
	}
	if err != nil {
		return err
	}
	log.Printf("[Main] Run %s finished: BSM_PDR=%.4f", exp.RunID(), row.CoveragePDR)
	return nil
}
