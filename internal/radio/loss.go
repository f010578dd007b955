// Package radio provides the shared wireless medium: path-loss models,
// broadcast/unicast sockets bound to node ports and an optional pcap tap.
package radio

import (
	"errors"
	"fmt"
	"math"
)

const speedOfLight = 299792458.0

// LossModel selects a propagation loss model.
type LossModel int

// Loss model selectors.
const (
	Friis        LossModel = 1
	ItuR1411Los  LossModel = 2
	TwoRayGround LossModel = 3
	LogDistance  LossModel = 4
)

// ErrUnknownLossModel is returned for selectors outside 1..4.
var ErrUnknownLossModel = errors.New("unknown loss model")

// ParseLossModel validates a numeric selector.
func ParseLossModel(id int) (LossModel, error) {
	m := LossModel(id)
	switch m {
	case Friis, ItuR1411Los, TwoRayGround, LogDistance:
		return m, nil
	}
	return 0, fmt.Errorf("%w: %d", ErrUnknownLossModel, id)
}

func (m LossModel) String() string {
	switch m {
	case Friis:
		return "FriisPropagationLossModel"
	case ItuR1411Los:
		return "ItuR1411LosPropagationLossModel"
	case TwoRayGround:
		return "TwoRayGroundPropagationLossModel"
	case LogDistance:
		return "LogDistancePropagationLossModel"
	}
	return fmt.Sprintf("LossModel(%d)", int(m))
}

// Log-distance reference loss at 1 m and path loss exponent.
const (
	logDistanceRefLoss  = 46.6777
	logDistanceExponent = 3.0
)

// Loss returns the path loss in dB over distance d metres at frequency
// freq Hz between antennas at heights ht and hr metres. The result is
// never negative.
func (m LossModel) Loss(d, freq, ht, hr float64) float64 {
	if d <= 0 {
		return 0
	}
	lambda := speedOfLight / freq
	var loss float64
	switch m {
	case Friis:
		loss = friis(d, lambda)
	case TwoRayGround:
		cross := 4 * math.Pi * ht * hr / lambda
		if d <= cross {
			loss = friis(d, lambda)
		} else {
			loss = 40*math.Log10(d) - 20*math.Log10(ht*hr)
		}
	case LogDistance:
		if d <= 1 {
			loss = logDistanceRefLoss
		} else {
			loss = logDistanceRefLoss + 10*logDistanceExponent*math.Log10(d)
		}
	case ItuR1411Los:
		// Mean of the lower and upper two-slope bounds.
		lbp := math.Abs(20 * math.Log10(lambda*lambda/(8*math.Pi*ht*hr)))
		rbp := 4 * ht * hr / lambda
		var low, up float64
		if d <= rbp {
			low = lbp + 20*math.Log10(d/rbp)
			up = lbp + 20 + 25*math.Log10(d/rbp)
		} else {
			low = lbp + 40*math.Log10(d/rbp)
			up = lbp + 20 + 40*math.Log10(d/rbp)
		}
		loss = (low + up) / 2
	}
	if loss < 0 || math.IsNaN(loss) {
		return 0
	}
	return loss
}

func friis(d, lambda float64) float64 {
	if d < 3*lambda {
		return 0
	}
	return 20 * math.Log10(4*math.Pi*d/lambda)
}

// Band selects the carrier for a WiFi standard.
type Band int

// Supported standards.
const (
	Band80211p Band = 1
	Band80211b Band = 2
)

// Frequency returns the carrier in Hz.
func (b Band) Frequency() float64 {
	if b == Band80211b {
		return 2.4e9
	}
	return 5.9e9
}

// DefaultRxSensitivity is the minimum received power in dBm for delivery.
const DefaultRxSensitivity = -96.0

// Phy describes the radio shared by every node.
type Phy struct {
	TxPowerDbm       float64
	Frequency        float64
	RxSensitivityDbm float64
	Loss             LossModel
	// DataRate in bit/s, used for per-hop serialisation delay.
	DataRate float64
}

// Receivable reports whether a frame sent over d metres arrives above
// the receiver sensitivity.
func (p Phy) Receivable(d, ht, hr float64) bool {
	return p.TxPowerDbm-p.Loss.Loss(d, p.Frequency, antenna(ht), antenna(hr)) >= p.RxSensitivityDbm
}

// TxTime returns the air time of size bytes plus propagation over d metres.
func (p Phy) TxTime(size int, d float64) float64 {
	t := d / speedOfLight
	if p.DataRate > 0 {
		t += float64(size*8) / p.DataRate
	}
	return t
}

// antenna substitutes the nominal vehicle antenna height for unset heights.
func antenna(h float64) float64 {
	if h <= 0 {
		return 1.5
	}
	return h
}
