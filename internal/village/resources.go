package village

import (
	"math"

	"github.com/talgya/hinterland/internal/catalog"
)

// Resource indexes into a Resources triple.
type Resource int

const (
	Wood Resource = iota
	Clay
	Iron
)

var resourceNames = [3]string{"wood", "clay", "iron"}

func (r Resource) String() string {
	if r < Wood || r > Iron {
		return "unknown"
	}
	return resourceNames[r]
}

// Resources is a (wood, clay, iron) stock. Values are real-valued accumulators.
type Resources [3]float64

// FromCost converts a catalog price into a stock delta.
func FromCost(c catalog.Cost) Resources {
	return Resources(c)
}

// Add returns r + o.
func (r Resources) Add(o Resources) Resources {
	for i := range r {
		r[i] += o[i]
	}
	return r
}

// Sub returns r - o clamped at zero.
func (r Resources) Sub(o Resources) Resources {
	for i := range r {
		r[i] -= o[i]
	}
	return r.Clamp()
}

// Scale multiplies every component by n.
func (r Resources) Scale(n float64) Resources {
	for i := range r {
		r[i] *= n
	}
	return r
}

// Covers reports whether r can pay for cost.
func (r Resources) Covers(cost Resources) bool {
	for i := range r {
		if r[i] < cost[i] {
			return false
		}
	}
	return true
}

// Clamp raises negative components to zero.
func (r Resources) Clamp() Resources {
	for i := range r {
		if r[i] < 0 || math.IsNaN(r[i]) {
			r[i] = 0
		}
	}
	return r
}

// Floor truncates each component to a whole number.
func (r Resources) Floor() Resources {
	for i := range r {
		r[i] = math.Floor(r[i])
	}
	return r
}

// Total sums the three components.
func (r Resources) Total() float64 {
	return r[0] + r[1] + r[2]
}

// IsZero reports whether every component is zero.
func (r Resources) IsZero() bool {
	return r[0] == 0 && r[1] == 0 && r[2] == 0
}

// Units maps unit id to count.
type Units map[catalog.UnitID]int

// Clone copies u. A nil map clones to an empty one.
func (u Units) Clone() Units {
	out := make(Units, len(u))
	for id, n := range u {
		out[id] = n
	}
	return out
}

// Add merges o into u.
func (u Units) Add(o Units) {
	for id, n := range o {
		if n > 0 {
			u[id] += n
		}
	}
}

// Sub removes o from u, clamping each count at zero.
func (u Units) Sub(o Units) {
	for id, n := range o {
		u[id] -= n
		if u[id] < 0 {
			u[id] = 0
		}
	}
}

// Covers reports whether u holds at least o of every unit.
func (u Units) Covers(o Units) bool {
	for id, n := range o {
		if u[id] < n {
			return false
		}
	}
	return true
}

// Total is the head count.
func (u Units) Total() int {
	n := 0
	for _, c := range u {
		n += c
	}
	return n
}

// Empty reports whether there are no units.
func (u Units) Empty() bool {
	return u.Total() == 0
}

// Compact drops zero entries.
func (u Units) Compact() Units {
	for id, n := range u {
		if n <= 0 {
			delete(u, id)
		}
	}
	return u
}

// Population is the footprint of u.
func (u Units) Population(cat *catalog.Catalog) int {
	pop := 0
	for id, n := range u {
		if def, ok := cat.Unit(id); ok {
			pop += def.Population * n
		}
	}
	return pop
}
