package scenario

import (
	"maps"
	"slices"

	"vanet-sim/internal/routing"
)

// BuiltIn returns the predefined scenarios keyed by id.
func BuiltIn() map[int]Scenario {
	return map[int]Scenario{
		1: {
			ID:          1,
			Name:        "highway-rwp",
			Description: "Random waypoint on a 1500 x 300 m highway strip, 40 vehicles for 10 s.",
			Values: Overrides{
				Mobility:  Some(int(MobilityRandomWaypoint)),
				TraceFile: Some(""),
				LogFile:   Some(""),
				Nodes:     Some(40),
				TotalTime: Some(10.0),
			},
		},
		2: traceScenario(2, "zurich-low",
			"Suburban Zurich trace (4.6 x 3.0 km), low density, 99 vehicles.",
			"./scratch/low99-ct-unterstrass-1day.filt.7.adj.mov", "low99-ct-unterstrass-1day.filt.7.adj.log",
			99, 300.01, "low_vanet-routing-compare.csv", "low_vanet-routing-compare2.csv"),
		3: traceScenario(3, "zurich-medium",
			"Suburban Zurich trace (4.6 x 3.0 km), medium density, 210 vehicles.",
			"./scratch/med210-ct-unterstrass-1day.filt.0.adj.mov", "med210-ct-unterstrass-1day.filt.0.adj.log",
			210, 300.01, "med_vanet-routing-compare.csv", "med_vanet-routing-compare2.csv"),
		4: traceScenario(4, "zurich-high",
			"Suburban Zurich trace (4.6 x 3.0 km), high density, 370 vehicles.",
			"./scratch/high370-ct-unterstrass-1day.filt.9.adj.mov", "high370-ct-unterstrass-1day.filt.9.adj.log",
			370, 300.01, "high_vanet-routing-compare.csv", "high_vanet-routing-compare2.csv"),
		5: withForced(traceScenario(5, "centennial",
			"NCSU Centennial campus trace, 180 vehicles, beacons only.",
			"./scratch/centennial2.ns2", "centennial2.log",
			180, 781, "centennial2.csv", "centennial2_2.csv"),
			Overrides{
				Protocol:    Some(int(routing.None)),
				SafetyRange: Some(145.0),
			}),
	}
}

func traceScenario(id int, name, desc, trace, logFile string, nodes int, total float64, csv1, csv2 string) Scenario {
	return Scenario{
		ID:          id,
		Name:        name,
		Description: desc,
		Values: Overrides{
			Mobility:  Some(int(MobilityTrace)),
			TraceFile: Some(trace),
			LogFile:   Some(logFile),
			Nodes:     Some(nodes),
			TotalTime: Some(total),
			NodeSpeed: Some(0.0),
			NodePause: Some(0.0),
			CSVFile:   Some(csv1),
			CSVFile2:  Some(csv2),
		},
	}
}

func withForced(s Scenario, forced Overrides) Scenario {
	s.Forced = forced
	return s
}

// IDs returns the built-in scenario ids in ascending order.
func IDs() []int {
	return slices.Sorted(maps.Keys(BuiltIn()))
}
