// Package mobility holds node kinematic state and the drivers that move it.
package mobility

import (
	"fmt"
	"net/netip"

	"gonum.org/v1/gonum/spatial/r3"
)

// Node is one vehicle. Position is extrapolated from the last course
// change using the population clock, so readers always see the
// instantaneous position.
type Node struct {
	ID   int
	Addr netip.Addr

	origin r3.Vec
	vel    r3.Vec
	since  float64
	placed bool
	clock  func() float64
	// leg numbers setdest commands so a superseded arrival is ignored.
	leg uint64
}

// NewNode returns a placed node with a fixed position and velocity and no
// clock; its position never advances.
func NewNode(id int, pos, vel r3.Vec) *Node {
	return &Node{ID: id, origin: pos, vel: vel, placed: true}
}

// Placed reports whether mobility has assigned a position.
func (n *Node) Placed() bool { return n != nil && n.placed }

// Position returns the current position.
func (n *Node) Position() r3.Vec {
	if n.clock == nil || n.vel == (r3.Vec{}) {
		return n.origin
	}
	dt := n.clock() - n.since
	return r3.Add(n.origin, r3.Scale(dt, n.vel))
}

// Velocity returns the current velocity in m/s.
func (n *Node) Velocity() r3.Vec { return n.vel }

// SetCourse records a course change at simulated time t.
func (n *Node) SetCourse(t float64, pos, vel r3.Vec) {
	n.origin = pos
	n.vel = vel
	n.since = t
	n.placed = true
}

// PreconditionError reports a node without resolvable kinematic state.
type PreconditionError struct {
	NodeID int
	Reason string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("node %d: %s", e.NodeID, e.Reason)
}

func requirePlaced(n *Node) error {
	if n == nil {
		return &PreconditionError{NodeID: -1, Reason: "node is nil"}
	}
	if !n.placed {
		return &PreconditionError{NodeID: n.ID, Reason: "position not initialised by mobility"}
	}
	return nil
}

// SquaredDistance returns the planar squared distance between a and b.
// The z component is ignored.
func SquaredDistance(a, b *Node) (float64, error) {
	if err := requirePlaced(a); err != nil {
		return 0, err
	}
	if err := requirePlaced(b); err != nil {
		return 0, err
	}
	d := r3.Sub(b.Position(), a.Position())
	d.Z = 0
	return r3.Norm2(d), nil
}

// IsMoving reports whether n has a non-zero planar velocity component.
func IsMoving(n *Node) bool {
	if n == nil {
		return false
	}
	return n.vel.X != 0 || n.vel.Y != 0
}
