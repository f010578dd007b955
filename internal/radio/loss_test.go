package radio

import (
	"errors"
	"math"
	"testing"
)

func TestParseLossModel(t *testing.T) {
	for id := 1; id <= 4; id++ {
		if _, err := ParseLossModel(id); err != nil {
			t.Fatalf("ParseLossModel(%d): %v", id, err)
		}
	}
	for _, id := range []int{0, 5, -1} {
		if _, err := ParseLossModel(id); !errors.Is(err, ErrUnknownLossModel) {
			t.Fatalf("ParseLossModel(%d) error = %v, want ErrUnknownLossModel", id, err)
		}
	}
}

func TestLossGrowsWithDistance(t *testing.T) {
	freq := Band80211p.Frequency()
	for _, m := range []LossModel{Friis, ItuR1411Los, TwoRayGround, LogDistance} {
		t.Run(m.String(), func(t *testing.T) {
			prev := -1.0
			for _, d := range []float64{10, 50, 145, 400, 1000} {
				l := m.Loss(d, freq, 1.5, 1.5)
				if l <= prev {
					t.Fatalf("loss at %vm = %v, not above %v", d, l, prev)
				}
				prev = l
			}
			if got := m.Loss(0, freq, 1.5, 1.5); got != 0 {
				t.Fatalf("loss at 0m = %v, want 0", got)
			}
		})
	}
}

func TestFriisReference(t *testing.T) {
	lambda := speedOfLight / 5.9e9
	want := 20 * math.Log10(4*math.Pi*100/lambda)
	if got := Friis.Loss(100, 5.9e9, 1.5, 1.5); math.Abs(got-want) > 1e-9 {
		t.Fatalf("Friis(100m) = %v, want %v", got, want)
	}
}

func TestPhyReceivable(t *testing.T) {
	phy := Phy{TxPowerDbm: 20, Frequency: Band80211p.Frequency(), RxSensitivityDbm: DefaultRxSensitivity, Loss: LogDistance}
	if !phy.Receivable(145, 1.5, 1.5) {
		t.Fatalf("expected 145m link to be receivable at 20 dBm")
	}
	if phy.Receivable(5000, 1.5, 1.5) {
		t.Fatalf("expected 5km link to be out of range")
	}
}

func TestParseDataRate(t *testing.T) {
	cases := map[string]float64{
		"OfdmRate6MbpsBW10MHz": 6e6,
		"DsssRate11Mbps":       11e6,
		"DsssRate5_5Mbps":      5.5e6,
	}
	for mode, want := range cases {
		got, err := ParseDataRate(mode)
		if err != nil {
			t.Fatalf("ParseDataRate(%q): %v", mode, err)
		}
		if got != want {
			t.Fatalf("ParseDataRate(%q) = %v, want %v", mode, got, want)
		}
	}
	if _, err := ParseDataRate("Bogus"); err == nil {
		t.Fatalf("expected error for mode without rate")
	}
}
