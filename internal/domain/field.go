package domain

import "math"

// Field is either a coordinate on the board or, interchangeably, the board extent.
type Field struct {
	X uint32 `json:"x"`
	Y uint32 `json:"y"`
}

// Area returns x*y, saturating at the maximum uint32.
func (f Field) Area() uint32 {
	if f.X != 0 && f.Y > math.MaxUint32/f.X {
		return math.MaxUint32
	}
	return f.X * f.Y
}

// Index maps coord onto the linear board index y*width+x. The second return
// value is false when the computation overflows.
func (f Field) Index(coord Field) (uint32, bool) {
	if f.X != 0 && coord.Y > math.MaxUint32/f.X {
		return 0, false
	}
	row := coord.Y * f.X
	if coord.X > math.MaxUint32-row {
		return 0, false
	}
	return row + coord.X, true
}

// Contains reports whether coord lies on a board with extent f.
func (f Field) Contains(coord Field) bool {
	if coord.X >= f.X || coord.Y >= f.Y {
		return false
	}
	idx, ok := f.Index(coord)
	return ok && idx < f.Area()
}

// Coord is the inverse of Index for in-range indices.
func (f Field) Coord(idx uint32) Field {
	if f.X == 0 {
		return Field{}
	}
	return Field{X: idx % f.X, Y: idx / f.X}
}
