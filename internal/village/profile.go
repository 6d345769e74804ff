package village

import "math"

// PlayerProfile is cached display data for an owner. Ownership itself lives
// on the villages; Alive is derived from them.
type PlayerProfile struct {
	ID    Owner  `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
	Alive bool   `json:"alive"`
}

// palette is cycled through when new warlords appear.
var palette = []string{
	"#b03a2e", "#7d3c98", "#2e86c1", "#17a589", "#d4ac0d",
	"#ca6f1e", "#566573", "#1b4f72", "#641e16", "#0e6655",
}

// PaletteColor returns the n-th profile color.
func PaletteColor(n int) string {
	if n < 0 {
		n = -n
	}
	return palette[n%len(palette)]
}

// TileDistance is the Euclidean distance between two map coordinates.
func TileDistance(x1, y1, x2, y2 int) float64 {
	dx := float64(x1 - x2)
	dy := float64(y1 - y2)
	return math.Sqrt(dx*dx + dy*dy)
}
