package extract

// Rect is an axis-aligned rectangle in PDF user space (origin bottom-left,
// Y increasing upward). X1,Y1 is the lower-left corner, X2,Y2 the upper-right.
// The same coordinate space is shared by table bounding boxes and text
// redaction regions.
type Rect struct {
	X1, Y1, X2, Y2 float64
}

// normalize returns r with corners ordered so X1 <= X2 and Y1 <= Y2.
func (r Rect) normalize() Rect {
	if r.X1 > r.X2 {
		r.X1, r.X2 = r.X2, r.X1
	}
	if r.Y1 > r.Y2 {
		r.Y1, r.Y2 = r.Y2, r.Y1
	}
	return r
}

func (r Rect) width() float64  { return r.X2 - r.X1 }
func (r Rect) height() float64 { return r.Y2 - r.Y1 }

// contains reports whether the point (x, y) lies inside r.
func (r Rect) contains(x, y float64) bool {
	return x >= r.X1 && x <= r.X2 && y >= r.Y1 && y <= r.Y2
}

// expand grows r by pad on every side.
func (r Rect) expand(pad float64) Rect {
	return Rect{X1: r.X1 - pad, Y1: r.Y1 - pad, X2: r.X2 + pad, Y2: r.Y2 + pad}
}

// intersects reports whether r and o overlap or touch.
func (r Rect) intersects(o Rect) bool {
	return r.X1 <= o.X2 && o.X1 <= r.X2 && r.Y1 <= o.Y2 && o.Y1 <= r.Y2
}

// union returns the smallest rectangle covering both r and o.
func (r Rect) union(o Rect) Rect {
	out := r
	if o.X1 < out.X1 {
		out.X1 = o.X1
	}
	if o.Y1 < out.Y1 {
		out.Y1 = o.Y1
	}
	if o.X2 > out.X2 {
		out.X2 = o.X2
	}
	if o.Y2 > out.Y2 {
		out.Y2 = o.Y2
	}
	return out
}
