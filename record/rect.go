package record

import "fmt"

// Rect - An axis aligned rectangle given by its lower left and upper right corners.
// A point is represented as a zero area rectangle.
type Rect struct {
	Min Point
	Max Point
}

// NewRect - Returns a Rect spanning the two corners, or an error if the corners
// are not in lower left / upper right order
func NewRect(min, max Point) (r Rect, err error) {
	if max.X < min.X || max.Y < min.Y {
		err = fmt.Errorf("rectangle corners out of order: min %v, max %v", min, max)
		return
	}

	r = Rect{Min: min, Max: max}

	return
}

// ToRect - Returns the zero area rectangle covering only the point
func (P Point) ToRect() Rect {
	return Rect{Min: P, Max: P}
}

// Area - Returns the area of the rectangle
func (R Rect) Area() float64 {
	return (R.Max.X - R.Min.X) * (R.Max.Y - R.Min.Y)
}

// Union - Returns the smallest rectangle covering both rectangles
func (R Rect) Union(other Rect) (bb Rect) {
	bb = R

	if other.Min.X < bb.Min.X {
		bb.Min.X = other.Min.X
	}
	if other.Min.Y < bb.Min.Y {
		bb.Min.Y = other.Min.Y
	}
	if other.Max.X > bb.Max.X {
		bb.Max.X = other.Max.X
	}
	if other.Max.Y > bb.Max.Y {
		bb.Max.Y = other.Max.Y
	}

	return
}

// Intersects - Returns true if the two rectangles overlap, edges included
func (R Rect) Intersects(other Rect) bool {
	if R.Max.X < other.Min.X || other.Max.X < R.Min.X {
		return false
	}
	if R.Max.Y < other.Min.Y || other.Max.Y < R.Min.Y {
		return false
	}

	return true
}

// Contains - Returns true if the rectangle fully contains the other, edges included
func (R Rect) Contains(other Rect) bool {
	if R.Min.X > other.Min.X || other.Max.X > R.Max.X {
		return false
	}
	if R.Min.Y > other.Min.Y || other.Max.Y > R.Max.Y {
		return false
	}

	return true
}

// ContainsPoint - Returns true if the point lies within the rectangle, edges included
func (R Rect) ContainsPoint(p Point) bool {
	return R.Contains(p.ToRect())
}

// Equal - Returns true if both rectangles have identical corners
func (R Rect) Equal(other Rect) bool {
	return R.Min == other.Min && R.Max == other.Max
}

// MinDist - Returns the squared distance from the point to the nearest edge of the
// rectangle, or zero if the point lies within it
func (P Point) MinDist(r Rect) float64 {
	sum := 0.0

	if P.X < r.Min.X {
		sum += (P.X - r.Min.X) * (P.X - r.Min.X)
	} else if P.X > r.Max.X {
		sum += (P.X - r.Max.X) * (P.X - r.Max.X)
	}

	if P.Y < r.Min.Y {
		sum += (P.Y - r.Min.Y) * (P.Y - r.Min.Y)
	} else if P.Y > r.Max.Y {
		sum += (P.Y - r.Max.Y) * (P.Y - r.Max.Y)
	}

	return sum
}

// DistTo - Returns the squared distance between the two points
func (P Point) DistTo(q Point) float64 {
	return (P.X-q.X)*(P.X-q.X) + (P.Y-q.Y)*(P.Y-q.Y)
}
