// Package routing carries unicast application traffic across the node
// population: protocol selection, a geometric multi-hop router, an on/off
// CBR source and a per-flow monitor.
package routing

import (
	"errors"
	"fmt"
)

// Protocol identifies the declared routing protocol of a run.
type Protocol int

// Supported protocols. None installs no application sinks.
const (
	None Protocol = iota
	OLSR
	AODV
	DSDV
	DSR
)

// ErrUnknownProtocol is returned for selectors outside 0..4.
var ErrUnknownProtocol = errors.New("unknown routing protocol")

// ParseProtocol validates a numeric selector.
func ParseProtocol(id int) (Protocol, error) {
	p := Protocol(id)
	if p < None || p > DSR {
		return 0, fmt.Errorf("%w: %d", ErrUnknownProtocol, id)
	}
	return p, nil
}

func (p Protocol) String() string {
	switch p {
	case None:
		return "NONE"
	case OLSR:
		return "OLSR"
	case AODV:
		return "AODV"
	case DSDV:
		return "DSDV"
	case DSR:
		return "DSR"
	}
	return fmt.Sprintf("Protocol(%d)", int(p))
}
