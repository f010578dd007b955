package wave

import (
	"vanet-sim/internal/routing"
	"vanet-sim/internal/telemetry"
)

// FlowSource exposes cumulative per-flow counters.
type FlowSource interface {
	Stats() map[routing.FiveTuple]routing.FlowStats
}

// Aggregate builds the end of run summary from the beacon counters and
// the flows addressed to port. flows may be nil when no monitor ran.
func Aggregate(stats *RunStats, flows FlowSource, port uint16, totalTime float64) telemetry.SummaryRow {
	var tot routing.FlowStats
	if flows != nil {
		for k, f := range flows.Stats() {
			if k.DstPort != port {
				continue
			}
			tot.TxBytes += f.TxBytes
			tot.RxBytes += f.RxBytes
			tot.TxPackets += f.TxPackets
			tot.RxPackets += f.RxPackets
			tot.LostPackets += f.LostPackets
			tot.DelaySum += f.DelaySum
			tot.JitterSum += f.JitterSum
		}
	}

	row := telemetry.SummaryRow{
		CoveragePDR:   stats.CoveragePDR(),
		MeanTxPktSize: ratio(tot.TxBytes, tot.TxPackets),
	}
	if tot.RxPackets > 0 {
		rx := float64(tot.RxPackets)
		row.MeanDelay = tot.DelaySum / rx
		row.MeanJitter = tot.JitterSum / rx
		row.MeanRxPktSize = float64(tot.RxBytes) / rx
		row.MeanPktLossRatio = float64(tot.LostPackets) / (rx + float64(tot.LostPackets))
		if totalTime > 0 {
			row.MeanRxKbps = float64(tot.RxBytes*8) / totalTime / 1000
		}
	}
	if totalTime > 0 {
		row.MeanRoutingKbps = float64(stats.BytesTotal*8) / totalTime / 1000
	}
	return row
}
