package geom

import "math"

// PushOutCircle moves a circle of the given radius out of each rectangle it
// overlaps. Rectangles are resolved one at a time in slice order, so a circle
// wedged between two rectangles may still touch the first after the second
// pushes it back; that is accepted for arcade movement.
func PushOutCircle(center Vec2, radius float64, rects []Rect) Vec2 {
	for _, r := range rects {
		center = pushOutOne(center, radius, r)
	}
	return center
}

func pushOutOne(center Vec2, radius float64, r Rect) Vec2 {
	closest := r.ClosestPoint(center)
	dx := center.X - closest.X
	dy := center.Y - closest.Y
	distSq := dx*dx + dy*dy

	if distSq >= radius*radius {
		return center
	}

	if distSq > 0 {
		dist := math.Sqrt(distSq)
		overlap := radius - dist
		center.X += dx / dist * overlap
		center.Y += dy / dist * overlap
		return center
	}

	// Centre sits inside the rectangle: leave through the nearest edge.
	left := math.Abs(center.X - r.X)
	right := math.Abs(r.X + r.Width - center.X)
	top := math.Abs(center.Y - r.Y)
	bottom := math.Abs(r.Y + r.Height - center.Y)

	minDist := left
	direction := 0
	if right < minDist {
		minDist = right
		direction = 1
	}
	if top < minDist {
		minDist = top
		direction = 2
	}
	if bottom < minDist {
		direction = 3
	}

	switch direction {
	case 0:
		center.X = r.X - radius
	case 1:
		center.X = r.X + r.Width + radius
	case 2:
		center.Y = r.Y - radius
	case 3:
		center.Y = r.Y + r.Height + radius
	}
	return center
}

// SegmentsIntersect reports whether segment p1-p2 intersects segment q1-q2,
// touching endpoints and collinear overlap included.
func SegmentsIntersect(p1, p2, q1, q2 Vec2) bool {
	o1 := orientation(p1, p2, q1)
	o2 := orientation(p1, p2, q2)
	o3 := orientation(q1, q2, p1)
	o4 := orientation(q1, q2, p2)

	if o1 != o2 && o3 != o4 {
		return true
	}

	if o1 == 0 && onSegment(p1, q1, p2) {
		return true
	}
	if o2 == 0 && onSegment(p1, q2, p2) {
		return true
	}
	if o3 == 0 && onSegment(q1, p1, q2) {
		return true
	}
	if o4 == 0 && onSegment(q1, p2, q2) {
		return true
	}
	return false
}

// orientation returns 0 for collinear points, 1 for clockwise and 2 for
// counter-clockwise turns.
func orientation(a, b, c Vec2) int {
	val := (b.Y-a.Y)*(c.X-b.X) - (b.X-a.X)*(c.Y-b.Y)
	switch {
	case val == 0:
		return 0
	case val > 0:
		return 1
	default:
		return 2
	}
}

// onSegment reports whether q lies within the bounding box of segment p-r.
func onSegment(p, q, r Vec2) bool {
	return q.X <= math.Max(p.X, r.X) && q.X >= math.Min(p.X, r.X) &&
		q.Y <= math.Max(p.Y, r.Y) && q.Y >= math.Min(p.Y, r.Y)
}

// HasLineOfSight reports whether the segment from-to crosses none of the
// rectangles' edges.
func HasLineOfSight(from, to Vec2, rects []Rect) bool {
	for _, r := range rects {
		for _, edge := range r.Edges() {
			if SegmentsIntersect(from, to, edge[0], edge[1]) {
				return false
			}
		}
	}
	return true
}
