// Package world provides the square map grid, its tile index and chunk
// generation.
package world

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/talgya/hinterland/internal/village"
)

// Coord is a position on the square grid.
type Coord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// MarshalText renders the coordinate as "x,y" so it can key a JSON object.
func (c Coord) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText parses "x,y".
func (c *Coord) UnmarshalText(b []byte) error {
	xs, ys, ok := strings.Cut(string(b), ",")
	if !ok {
		return fmt.Errorf("coord %q: want x,y", b)
	}
	x, err := strconv.Atoi(strings.TrimSpace(xs))
	if err != nil {
		return fmt.Errorf("coord %q: %w", b, err)
	}
	y, err := strconv.Atoi(strings.TrimSpace(ys))
	if err != nil {
		return fmt.Errorf("coord %q: %w", b, err)
	}
	c.X, c.Y = x, y
	return nil
}

func (c Coord) String() string {
	return strconv.Itoa(c.X) + "," + strconv.Itoa(c.Y)
}

// TileKind says what occupies a tile.
type TileKind string

const (
	TileEmpty   TileKind = "empty"
	TileVillage TileKind = "village"
)

// Tile is the map index entry for one coordinate. Village fields are a
// cache of the village itself, refreshed every tick.
type Tile struct {
	Coord   Coord         `json:"coord"`
	Kind    TileKind      `json:"kind"`
	Terrain Terrain       `json:"terrain,omitempty"`
	Village village.ID    `json:"village,omitempty"`
	Name    string        `json:"name,omitempty"`
	Owner   village.Owner `json:"owner,omitempty"`
	Points  int           `json:"points,omitempty"`
}

// Grid is the explored part of the map. Coordinates run from 0 to Size
// inclusive on both axes.
type Grid struct {
	Size  int            `json:"size"`
	Tiles map[Coord]Tile `json:"tiles"`
}

// NewGrid creates an empty grid.
func NewGrid(size int) *Grid {
	return &Grid{Size: size, Tiles: make(map[Coord]Tile)}
}

// Center is the middle of the map, where the player starts.
func (g *Grid) Center() Coord {
	return Coord{X: g.Size / 2, Y: g.Size / 2}
}

// InBounds returns true if c lies on the map.
func (g *Grid) InBounds(c Coord) bool {
	return c.X >= 0 && c.Y >= 0 && c.X <= g.Size && c.Y <= g.Size
}

// Get returns the tile at c, if explored.
func (g *Grid) Get(c Coord) (Tile, bool) {
	t, ok := g.Tiles[c]
	return t, ok
}

// Set stores a tile at its coordinate.
func (g *Grid) Set(t Tile) {
	if g.Tiles == nil {
		g.Tiles = make(map[Coord]Tile)
	}
	g.Tiles[t.Coord] = t
}

// PlaceVillage indexes v on its tile, keeping any terrain already known.
func (g *Grid) PlaceVillage(v *village.Village) {
	c := Coord{X: v.X, Y: v.Y}
	t := g.Tiles[c]
	t.Coord = c
	t.Kind = TileVillage
	t.Village = v.ID
	t.Name = v.Name
	t.Owner = v.Owner
	t.Points = v.Points
	g.Set(t)
}

// Clear turns the tile at c back into open land.
func (g *Grid) Clear(c Coord) {
	t, ok := g.Tiles[c]
	if !ok {
		return
	}
	g.Tiles[c] = Tile{Coord: c, Kind: TileEmpty, Terrain: t.Terrain}
}

// Len is the number of explored tiles.
func (g *Grid) Len() int {
	return len(g.Tiles)
}

// Rect returns explored tiles with min <= coord <= max, ordered by row then column.
func (g *Grid) Rect(min, max Coord) []Tile {
	var out []Tile
	for c, t := range g.Tiles {
		if c.X >= min.X && c.X <= max.X && c.Y >= min.Y && c.Y <= max.Y {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Coord.Y != out[j].Coord.Y {
			return out[i].Coord.Y < out[j].Coord.Y
		}
		return out[i].Coord.X < out[j].Coord.X
	})
	return out
}

// String returns a summary of the grid.
func (g *Grid) String() string {
	return fmt.Sprintf("Grid(size=%d, explored=%d)", g.Size, g.Len())
}
