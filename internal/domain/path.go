package domain

// An ordered visiting sequence over a fixed set of waypoints.
//
// The cyclic length (every consecutive edge plus the closing edge back to the
// first stop) is cached and kept consistent by every mutating operation, so
// fitness evaluation during optimization never re-walks an unchanged path.
type Path struct {
	stops  []Waypoint
	length float64
}

// Build a path over its own copy of stops.
func NewPath(stops []Waypoint) *Path {
	p := &Path{stops: append([]Waypoint(nil), stops...)}
	p.recalculate()
	return p
}

func (p *Path) recalculate() {
	n := len(p.stops)
	if n < 2 {
		p.length = 0
		return
	}
	total := 0.0
	for i := 0; i < n-1; i++ {
		total += p.stops[i].DistanceTo(p.stops[i+1])
	}
	p.length = total + p.stops[n-1].DistanceTo(p.stops[0])
}

// Cached cyclic length, including the closing edge back to the first stop.
func (p *Path) Length() float64 { return p.length }

// Length of the open walk over the stops, without the closing edge.
func (p *Path) OpenLength() float64 {
	total := 0.0
	for i := 0; i+1 < len(p.stops); i++ {
		total += p.stops[i].DistanceTo(p.stops[i+1])
	}
	return total
}

func (p *Path) Len() int          { return len(p.stops) }
func (p *Path) At(i int) Waypoint { return p.stops[i] }

// Copy of the stop sequence; the path keeps sole ownership of its slice.
func (p *Path) Stops() []Waypoint { return append([]Waypoint(nil), p.stops...) }

func (p *Path) Clone() *Path {
	return &Path{stops: append([]Waypoint(nil), p.stops...), length: p.length}
}

// Exchange the stops at i and j and refresh the cached length.
func (p *Path) SwapStops(i, j int) {
	p.stops[i], p.stops[j] = p.stops[j], p.stops[i]
	p.recalculate()
}

// Reverse the stops between i and j inclusive and refresh the cached length.
func (p *Path) ReverseSegment(i, j int) {
	if i > j {
		i, j = j, i
	}
	for i < j {
		p.stops[i], p.stops[j] = p.stops[j], p.stops[i]
		i++
		j--
	}
	p.recalculate()
}

// Remove the stop at from and reinsert it at to (an index into the shortened
// sequence), then refresh the cached length.
func (p *Path) MoveStop(from, to int) {
	if from == to {
		return
	}
	w := p.stops[from]
	p.stops = append(p.stops[:from], p.stops[from+1:]...)
	p.stops = append(p.stops, Waypoint{})
	copy(p.stops[to+1:], p.stops[to:])
	p.stops[to] = w
	p.recalculate()
}
