package mobility

import (
	"gonum.org/v1/gonum/spatial/r3"

	"vanet-sim/internal/engine"
)

// Uniform yields U(0,1) draws; *rngstream.RngStream satisfies it.
type Uniform interface {
	RandU01() float64
}

// Box bounds random waypoint placement.
type Box struct {
	MinX, MaxX float64
	MinY, MaxY float64
	MinZ, MaxZ float64
}

// Highway is the synthetic 1500 m x 300 m highway segment. Antenna
// height is drawn from [1, 2] m.
var Highway = Box{MinX: 0, MaxX: 1500, MinY: 0, MaxY: 300, MinZ: 1, MaxZ: 2}

func (b Box) sample(u Uniform) r3.Vec {
	return r3.Vec{
		X: b.MinX + u.RandU01()*(b.MaxX-b.MinX),
		Y: b.MinY + u.RandU01()*(b.MaxY-b.MinY),
		Z: b.MinZ + u.RandU01()*(b.MaxZ-b.MinZ),
	}
}

// RandomWaypoint moves every node between uniformly drawn waypoints in a
// box with speed U[0, MaxSpeed] and a constant pause at each waypoint.
type RandomWaypoint struct {
	Pop      *Population
	Box      Box
	MaxSpeed float64
	Pause    float64
	Rand     Uniform
}

// Start places every node and begins its first leg at time zero.
func (w *RandomWaypoint) Start(s engine.Scheduler) error {
	for _, n := range w.Pop.Nodes() {
		w.Pop.SetCourse(s.Now(), n, w.Box.sample(w.Rand), r3.Vec{})
		s.ScheduleAfter(0, &waypointLeg{w: w, n: n})
	}
	return nil
}

// waypointLeg alternates between walking to a waypoint and pausing there.
type waypointLeg struct {
	w       *RandomWaypoint
	n       *Node
	walking bool
}

func (l *waypointLeg) Fire(s engine.Scheduler) {
	now := s.Now()
	pos := l.n.Position()
	if l.walking {
		l.walking = false
		l.w.Pop.SetCourse(now, l.n, pos, r3.Vec{})
		s.ScheduleAfter(l.w.Pause, l)
		return
	}

	dest := l.w.Box.sample(l.w.Rand)
	speed := l.w.Rand.RandU01() * l.w.MaxSpeed
	delta := r3.Sub(dest, pos)
	dist := r3.Norm(delta)
	if speed <= 0 {
		// Zero speed never reaches the waypoint: the node stays parked.
		l.w.Pop.SetCourse(now, l.n, pos, r3.Vec{})
		return
	}
	if dist == 0 {
		// Already there: pause as on arrival, then draw again.
		l.w.Pop.SetCourse(now, l.n, pos, r3.Vec{})
		s.ScheduleAfter(l.w.Pause, l)
		return
	}
	vel := r3.Scale(speed/dist, delta)
	l.walking = true
	l.w.Pop.SetCourse(now, l.n, pos, vel)
	s.ScheduleAfter(dist/speed, l)
}
