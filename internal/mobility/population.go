package mobility

import (
	"net/netip"

	"gonum.org/v1/gonum/spatial/r3"

	"vanet-sim/internal/engine"
)

// DefaultAddrBase is the network the node interfaces are numbered from;
// node 0 gets the first host address.
var DefaultAddrBase = netip.MustParseAddr("10.1.0.0")

// CourseChangeFunc observes every course change.
type CourseChangeFunc func(t float64, n *Node)

// Population is the fixed set of nodes for one run.
type Population struct {
	nodes     []*Node
	clock     func() float64
	observers []CourseChangeFunc
}

// NewPopulation creates count unplaced nodes with sequential addresses
// after base. clock supplies simulated time for position extrapolation.
func NewPopulation(count int, base netip.Addr, clock func() float64) *Population {
	p := &Population{clock: clock}
	addr := base
	for i := 0; i < count; i++ {
		addr = addr.Next()
		p.nodes = append(p.nodes, &Node{ID: i, Addr: addr, clock: clock})
	}
	return p
}

// PopulationOf wraps existing nodes, mostly for tests.
func PopulationOf(nodes ...*Node) *Population {
	return &Population{nodes: nodes}
}

// Len returns the node count.
func (p *Population) Len() int { return len(p.nodes) }

// Node returns the node with the given id or nil.
func (p *Population) Node(id int) *Node {
	if id < 0 || id >= len(p.nodes) {
		return nil
	}
	return p.nodes[id]
}

// Nodes returns all nodes in id order.
func (p *Population) Nodes() []*Node { return p.nodes }

// OnCourseChange registers fn for every subsequent course change.
func (p *Population) OnCourseChange(fn CourseChangeFunc) {
	p.observers = append(p.observers, fn)
}

// SetCourse updates n and notifies observers.
func (p *Population) SetCourse(t float64, n *Node, pos, vel r3.Vec) {
	n.SetCourse(t, pos, vel)
	for _, fn := range p.observers {
		fn(t, n)
	}
}

// Driver realises node movement on the event engine.
type Driver interface {
	Start(s engine.Scheduler) error
}
