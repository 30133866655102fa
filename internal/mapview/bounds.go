package mapview

import (
	"atmfinder/internal/model"

	"github.com/paulmach/orb"
)

// Bounds is the union of every marker point added to the map. It only
// grows. An empty Bounds contains nothing.
type Bounds struct {
	bound orb.Bound
	empty bool
}

// NewBounds returns an empty Bounds.
func NewBounds() Bounds {
	return Bounds{empty: true}
}

// Extend grows the bounds to include p.
func (b *Bounds) Extend(p model.Location) {
	pt := toPoint(p)
	if b.empty {
		b.bound = pt.Bound()
		b.empty = false
		return
	}
	b.bound = b.bound.Extend(pt)
}

// Contains reports whether p lies inside the bounds, edges included.
func (b Bounds) Contains(p model.Location) bool {
	if b.isEmpty() {
		return false
	}
	return b.bound.Contains(toPoint(p))
}

// isEmpty reports whether no point has been added yet.
func (b Bounds) isEmpty() bool { return b.empty }

// box returns the south-west and north-east corners.
func (b Bounds) box() (sw, ne model.Location) {
	return fromPoint(b.bound.Min), fromPoint(b.bound.Max)
}

func toPoint(p model.Location) orb.Point {
	return orb.Point{p.Longitude, p.Latitude}
}

func fromPoint(p orb.Point) model.Location {
	return model.Location{Latitude: p.Lat(), Longitude: p.Lon()}
}
