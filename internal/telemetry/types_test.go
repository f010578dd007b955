package telemetry

import (
	"strings"
	"testing"
)

func TestSampleRecordMatchesHeader(t *testing.T) {
	row := SampleRow{
		SimulationSecond:   3,
		ReceiveRateKbps:    2.048,
		PacketsReceived:    4,
		NumberOfSinks:      10,
		RoutingProtocol:    "AODV",
		TransmissionPower:  20,
		WavePktsSent:       390,
		WavePktsReceived:   1170,
		WavePktsPDR:        3,
		ExpectedInCoverage: 800,
		ReceivedInCoverage: 760,
		CoveragePDR:        0.95,
	}
	rec := row.Record()
	if len(rec) != len(SampleColumns()) {
		t.Fatalf("record has %d fields, header %d", len(rec), len(SampleColumns()))
	}
	want := "3,2.048,4,10,AODV,20,390,1170,3,800,760,0.95"
	if got := strings.Join(rec, ","); got != want {
		t.Fatalf("record = %s, want %s", got, want)
	}
}

func TestSummaryRecordMatchesHeader(t *testing.T) {
	rec := SummaryRow{CoveragePDR: 1, MeanRoutingKbps: 0.5}.Record()
	if len(rec) != len(SummaryColumns()) {
		t.Fatalf("record has %d fields, header %d", len(rec), len(SummaryColumns()))
	}
	if rec[0] != "1" || rec[7] != "0.5" {
		t.Fatalf("unexpected record %v", rec)
	}
}

func TestHeaderColumns(t *testing.T) {
	cols := SampleColumns()
	if len(cols) != 12 || cols[0] != "SimulationSecond" || cols[11] != "BSM_PDR" {
		t.Fatalf("sample columns = %v", cols)
	}
	if got := SummaryColumns(); len(got) != 8 || got[7] != "MeanRoutingThroughputKbps" {
		t.Fatalf("summary columns = %v", got)
	}
}
