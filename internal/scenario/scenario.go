package scenario

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"vanet-sim/internal/radio"
	"vanet-sim/internal/routing"
)

// Mobility selects how nodes move.
type Mobility int

// Mobility modes.
const (
	MobilityTrace          Mobility = 1
	MobilityRandomWaypoint Mobility = 2
)

func (m Mobility) String() string {
	switch m {
	case MobilityTrace:
		return "ns2-trace"
	case MobilityRandomWaypoint:
		return "random-waypoint"
	}
	return fmt.Sprintf("Mobility(%d)", int(m))
}

// DefaultScenario is used when no scenario is selected.
const DefaultScenario = 1

// ErrInvalidParameter wraps every semantic validation failure.
var ErrInvalidParameter = errors.New("invalid parameter")

// Overrides holds every configurable value of a run. Unset fields fall
// through to the next layer.
type Overrides struct {
	Nodes          Opt[int]     `yaml:"nodes"`
	Sinks          Opt[int]     `yaml:"sinks"`
	TotalTime      Opt[float64] `yaml:"total_time"`
	Mobility       Opt[int]     `yaml:"mobility"`
	TraceFile      Opt[string]  `yaml:"trace_file"`
	LogFile        Opt[string]  `yaml:"log_file"`
	TxPower        Opt[float64] `yaml:"txp"`
	Protocol       Opt[int]     `yaml:"protocol"`
	LossModel      Opt[int]     `yaml:"loss_model"`
	Band           Opt[int]     `yaml:"band"`
	PhyMode        Opt[string]  `yaml:"phy_mode"`
	PhyModeB       Opt[string]  `yaml:"phy_mode_b"`
	AppRate        Opt[float64] `yaml:"app_rate_bps"`
	AppPacketSize  Opt[int]     `yaml:"app_packet_size"`
	NodeSpeed      Opt[float64] `yaml:"speed"`
	NodePause      Opt[float64] `yaml:"pause"`
	SafetyRange    Opt[float64] `yaml:"txdist"`
	BeaconSize     Opt[int]     `yaml:"bsm_size"`
	BeaconInterval Opt[float64] `yaml:"bsm_interval"`
	GPSAccuracyNs  Opt[float64] `yaml:"gps_accuracy_ns"`
	FlowMon        Opt[bool]    `yaml:"flowmon"`
	RoutingTables  Opt[bool]    `yaml:"routing_tables"`
	Pcap           Opt[bool]    `yaml:"pcap"`
	TraceName      Opt[string]  `yaml:"trace_name"`
	CSVFile        Opt[string]  `yaml:"csv_file"`
	CSVFile2       Opt[string]  `yaml:"csv_file2"`
}

// Overlay copies every set field of src over o.
func (o *Overrides) Overlay(src Overrides) {
	o.Nodes.over(src.Nodes)
	o.Sinks.over(src.Sinks)
	o.TotalTime.over(src.TotalTime)
	o.Mobility.over(src.Mobility)
	o.TraceFile.over(src.TraceFile)
	o.LogFile.over(src.LogFile)
	o.TxPower.over(src.TxPower)
	o.Protocol.over(src.Protocol)
	o.LossModel.over(src.LossModel)
	o.Band.over(src.Band)
	o.PhyMode.over(src.PhyMode)
	o.PhyModeB.over(src.PhyModeB)
	o.AppRate.over(src.AppRate)
	o.AppPacketSize.over(src.AppPacketSize)
	o.NodeSpeed.over(src.NodeSpeed)
	o.NodePause.over(src.NodePause)
	o.SafetyRange.over(src.SafetyRange)
	o.BeaconSize.over(src.BeaconSize)
	o.BeaconInterval.over(src.BeaconInterval)
	o.GPSAccuracyNs.over(src.GPSAccuracyNs)
	o.FlowMon.over(src.FlowMon)
	o.RoutingTables.over(src.RoutingTables)
	o.Pcap.over(src.Pcap)
	o.TraceName.over(src.TraceName)
	o.CSVFile.over(src.CSVFile)
	o.CSVFile2.over(src.CSVFile2)
}

// Parameters is the resolved, read-only configuration of one run.
type Parameters struct {
	Scenario       int              `yaml:"scenario"`
	Nodes          int              `yaml:"nodes"`
	Sinks          int              `yaml:"sinks"`
	TotalTime      float64          `yaml:"total_time"`
	Mobility       Mobility         `yaml:"mobility"`
	TraceFile      string           `yaml:"trace_file"`
	LogFile        string           `yaml:"log_file"`
	TxPower        float64          `yaml:"txp"`
	Protocol       routing.Protocol `yaml:"protocol"`
	LossModel      radio.LossModel  `yaml:"loss_model"`
	Band           radio.Band       `yaml:"band"`
	PhyMode        string           `yaml:"phy_mode"`
	PhyModeB       string           `yaml:"phy_mode_b"`
	AppRate        float64          `yaml:"app_rate_bps"`
	AppPacketSize  int              `yaml:"app_packet_size"`
	NodeSpeed      float64          `yaml:"speed"`
	NodePause      float64          `yaml:"pause"`
	SafetyRange    float64          `yaml:"txdist"`
	BeaconSize     int              `yaml:"bsm_size"`
	BeaconInterval float64          `yaml:"bsm_interval"`
	GPSAccuracyNs  float64          `yaml:"gps_accuracy_ns"`
	FlowMon        bool             `yaml:"flowmon"`
	RoutingTables  bool             `yaml:"routing_tables"`
	Pcap           bool             `yaml:"pcap"`
	TraceName      string           `yaml:"trace_name"`
	CSVFile        string           `yaml:"csv_file"`
	CSVFile2       string           `yaml:"csv_file2"`
}

// DataMode returns the WiFi mode used on the selected band.
func (p Parameters) DataMode() string {
	if p.Band == radio.Band80211b {
		return p.PhyModeB
	}
	return p.PhyMode
}

// Flows returns how many routed application flows the run installs.
func (p Parameters) Flows() int {
	if p.Protocol == routing.None {
		return 0
	}
	return p.Sinks
}

// Defaults returns the built-in defaults with every field set.
func Defaults() Overrides {
	return Overrides{
		Nodes:          Some(156),
		Sinks:          Some(10),
		TotalTime:      Some(300.01),
		Mobility:       Some(int(MobilityTrace)),
		TraceFile:      Some("./scratch/low_ct-unterstrass-1day.filt.5.adj.mov"),
		LogFile:        Some("low_ct-unterstrass-1day.filt.5.adj.log"),
		TxPower:        Some(20.0),
		Protocol:       Some(int(routing.AODV)),
		LossModel:      Some(int(radio.ItuR1411Los)),
		Band:           Some(int(radio.Band80211p)),
		PhyMode:        Some("OfdmRate6MbpsBW10MHz"),
		PhyModeB:       Some("DsssRate11Mbps"),
		AppRate:        Some(2048.0),
		AppPacketSize:  Some(64),
		NodeSpeed:      Some(20.0),
		NodePause:      Some(0.0),
		SafetyRange:    Some(145.0),
		BeaconSize:     Some(200),
		BeaconInterval: Some(0.1),
		GPSAccuracyNs:  Some(10000.0),
		FlowMon:        Some(true),
		RoutingTables:  Some(false),
		Pcap:           Some(false),
		TraceName:      Some("vanet-routing-compare"),
		CSVFile:        Some("vanet-routing.output.csv"),
		CSVFile2:       Some("vanet-routing.output2.csv"),
	}
}

// Scenario is a named bundle of values. Values lose to explicit overrides;
// Forced values win over everything.
type Scenario struct {
	ID          int
	Name        string
	Description string
	Values      Overrides
	Forced      Overrides
}

// Resolve layers defaults, scenario id's bundle, explicit overrides and
// the bundle's forced values, then validates the result. Unknown ids
// contribute nothing.
func Resolve(id int, explicit Overrides) (Parameters, error) {
	o := Defaults()
	sc, known := BuiltIn()[id]
	if known {
		o.Overlay(sc.Values)
	}
	o.Overlay(explicit)
	if known {
		o.Overlay(sc.Forced)
	}

	p := Parameters{
		Scenario:       id,
		Nodes:          o.Nodes.Or(0),
		Sinks:          o.Sinks.Or(0),
		TotalTime:      o.TotalTime.Or(0),
		Mobility:       Mobility(o.Mobility.Or(0)),
		TraceFile:      o.TraceFile.Or(""),
		LogFile:        o.LogFile.Or(""),
		TxPower:        o.TxPower.Or(0),
		Band:           radio.Band(o.Band.Or(0)),
		PhyMode:        o.PhyMode.Or(""),
		PhyModeB:       o.PhyModeB.Or(""),
		AppRate:        o.AppRate.Or(0),
		AppPacketSize:  o.AppPacketSize.Or(0),
		NodeSpeed:      o.NodeSpeed.Or(0),
		NodePause:      o.NodePause.Or(0),
		SafetyRange:    o.SafetyRange.Or(0),
		BeaconSize:     o.BeaconSize.Or(0),
		BeaconInterval: o.BeaconInterval.Or(0),
		GPSAccuracyNs:  o.GPSAccuracyNs.Or(0),
		FlowMon:        o.FlowMon.Or(false),
		RoutingTables:  o.RoutingTables.Or(false),
		Pcap:           o.Pcap.Or(false),
		TraceName:      o.TraceName.Or(""),
		CSVFile:        o.CSVFile.Or(""),
		CSVFile2:       o.CSVFile2.Or(""),
	}
	var err error
	if p.Protocol, err = routing.ParseProtocol(o.Protocol.Or(-1)); err != nil {
		return Parameters{}, err
	}
	if p.LossModel, err = radio.ParseLossModel(o.LossModel.Or(0)); err != nil {
		return Parameters{}, err
	}
	if err := p.validate(); err != nil {
		return Parameters{}, err
	}
	return p, nil
}

func (p Parameters) validate() error {
	switch {
	case p.Mobility != MobilityTrace && p.Mobility != MobilityRandomWaypoint:
		return fmt.Errorf("%w: mobility %d", ErrInvalidParameter, int(p.Mobility))
	case p.Band != radio.Band80211p && p.Band != radio.Band80211b:
		return fmt.Errorf("%w: 802.11 mode %d", ErrInvalidParameter, int(p.Band))
	case p.Nodes <= 0:
		return fmt.Errorf("%w: nodes %d", ErrInvalidParameter, p.Nodes)
	case p.TotalTime <= 0:
		return fmt.Errorf("%w: total time %g", ErrInvalidParameter, p.TotalTime)
	case p.BeaconInterval <= 0:
		return fmt.Errorf("%w: beacon interval %g", ErrInvalidParameter, p.BeaconInterval)
	case p.Sinks < 0 || p.Flows()*2 > p.Nodes:
		return fmt.Errorf("%w: %d sinks need %d nodes, have %d", ErrInvalidParameter, p.Sinks, 2*p.Sinks, p.Nodes)
	case p.Flows() > 0 && p.AppRate <= 0:
		return fmt.Errorf("%w: app rate %g", ErrInvalidParameter, p.AppRate)
	case p.Mobility == MobilityTrace && p.TraceFile == "":
		return fmt.Errorf("%w: trace mobility without a trace file", ErrInvalidParameter)
	}
	return nil
}

// LoadOverrides reads explicit overrides from a YAML file.
func LoadOverrides(path string) (Overrides, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Overrides{}, fmt.Errorf("read overrides: %w", err)
	}
	var o Overrides
	if err := yaml.Unmarshal(b, &o); err != nil {
		return Overrides{}, fmt.Errorf("parse overrides: %w", err)
	}
	return o, nil
}
