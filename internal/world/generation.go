// Chunk generation using layered simplex noise.
// Terrain is cosmetic; the density field biases where settlements appear.
package world

import (
	"math"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/hinterland/internal/entropy"
	"github.com/talgya/hinterland/internal/village"
)

// Terrain is the ground a tile sits on.
type Terrain string

const (
	TerrainPlains   Terrain = "plains"
	TerrainForest   Terrain = "forest"
	TerrainHills    Terrain = "hills"
	TerrainMountain Terrain = "mountain"
	TerrainMarsh    Terrain = "marsh"
)

// GenConfig holds chunk generation parameters.
type GenConfig struct {
	Seed            int64
	Radius          int     // Half-width of the square explored per chunk
	WarlordChance   float64 // Mean share of tiles that become warlord villages
	BarbarianChance float64 // Mean share of tiles that become barbarian villages
}

// DefaultGenConfig matches the stock game.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Seed:            42,
		Radius:          7,
		WarlordChance:   0.05,
		BarbarianChance: 0.10,
	}
}

// Settlement is a village the generator wants created.
type Settlement struct {
	Coord   Coord
	Name    string
	Warlord bool // Otherwise barbarian
}

// Generator explores the map chunk by chunk.
type Generator struct {
	cfg     GenConfig
	elev    opensimplex.Noise
	rain    opensimplex.Noise
	density opensimplex.Noise
	rng     entropy.Source
	names   *NameGenerator
}

// NewGenerator builds a generator. Noise layers derive from cfg.Seed so
// terrain is stable across restarts; settlement rolls come from rng.
func NewGenerator(cfg GenConfig, rng entropy.Source) *Generator {
	return &Generator{
		cfg:     cfg,
		elev:    opensimplex.NewNormalized(cfg.Seed),
		rain:    opensimplex.NewNormalized(cfg.Seed + 1),
		density: opensimplex.NewNormalized(cfg.Seed + 2),
		rng:     rng,
		names:   NewNameGenerator(rng),
	}
}

// Chunk explores the square around center. Every in-bounds coordinate that
// is not yet indexed and is not the player start becomes an empty tile or a
// settlement. Empty tiles are written to g directly; settlements are
// returned so the caller can create their villages and index them.
func (gen *Generator) Chunk(g *Grid, center Coord) []Settlement {
	start := g.Center()
	var out []Settlement
	for x := center.X - gen.cfg.Radius; x <= center.X+gen.cfg.Radius; x++ {
		for y := center.Y - gen.cfg.Radius; y <= center.Y+gen.cfg.Radius; y++ {
			c := Coord{X: x, Y: y}
			if !g.InBounds(c) || c == start {
				continue
			}
			if _, ok := g.Get(c); ok {
				continue
			}

			terrain := gen.TerrainAt(c)
			scale := 0.5 + gen.Density(c)
			r := gen.rng.Float64()
			switch {
			case r > 1-gen.cfg.WarlordChance*scale:
				out = append(out, Settlement{Coord: c, Name: gen.names.Warlord(), Warlord: true})
				g.Set(Tile{Coord: c, Kind: TileVillage, Terrain: terrain})
			case r > 1-(gen.cfg.WarlordChance+gen.cfg.BarbarianChance)*scale:
				out = append(out, Settlement{Coord: c, Name: BarbarianName})
				g.Set(Tile{Coord: c, Kind: TileVillage, Terrain: terrain})
			default:
				g.Set(Tile{Coord: c, Kind: TileEmpty, Terrain: terrain})
			}
		}
	}
	return out
}

// Density is the settlement density field in [0, 1].
func (gen *Generator) Density(c Coord) float64 {
	return octaveNoise(gen.density, float64(c.X), float64(c.Y), 3, 0.05, 0.5)
}

// TerrainAt derives the terrain at c from elevation and rainfall.
func (gen *Generator) TerrainAt(c Coord) Terrain {
	x, y := float64(c.X), float64(c.Y)
	elev := octaveNoise(gen.elev, x, y, 4, 0.04, 0.5)
	rain := octaveNoise(gen.rain, x, y, 3, 0.03, 0.5)
	return deriveTerrain(elev, rain)
}

// Tile builds the index entry for c, with v standing on it when non-nil.
// Rebuilding the index after a load yields the same terrain as before.
func (gen *Generator) Tile(c Coord, v *village.Village) Tile {
	t := Tile{Coord: c, Kind: TileEmpty, Terrain: gen.TerrainAt(c)}
	if v != nil {
		t.Kind = TileVillage
		t.Village = v.ID
		t.Name = v.Name
		t.Owner = v.Owner
		t.Points = v.Points
	}
	return t
}

func deriveTerrain(elev, rain float64) Terrain {
	switch {
	case elev > 0.72:
		return TerrainMountain
	case elev > 0.6:
		return TerrainHills
	case rain > 0.65 && elev < 0.4:
		return TerrainMarsh
	case rain > 0.5:
		return TerrainForest
	default:
		return TerrainPlains
	}
}

// octaveNoise generates fractal noise by layering multiple frequencies.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return math.Max(0, math.Min(1, total/maxVal))
}
