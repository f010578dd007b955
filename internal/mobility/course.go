package mobility

import (
	"fmt"
	"io"
)

// CourseLogHeight is the antenna height written for every logged position.
const CourseLogHeight = 1.5

// CourseLogger returns an observer that writes one line per course change:
//
//	+12.5s POS: x=10, y=20, z=1.5; VEL:3, y=0, z=0
func CourseLogger(w io.Writer) CourseChangeFunc {
	return func(t float64, n *Node) {
		pos := n.Position()
		vel := n.Velocity()
		fmt.Fprintf(w, "+%gs POS: x=%g, y=%g, z=%g; VEL:%g, y=%g, z=%g\n",
			t, pos.X, pos.Y, CourseLogHeight, vel.X, vel.Y, vel.Z)
	}
}
