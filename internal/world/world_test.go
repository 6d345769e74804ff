package world

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/talgya/hinterland/internal/catalog"
	"github.com/talgya/hinterland/internal/entropy"
	"github.com/talgya/hinterland/internal/village"
)

func TestCoordTextRoundTrip(t *testing.T) {
	g := NewGrid(10)
	g.Set(Tile{Coord: Coord{X: 3, Y: 7}, Kind: TileEmpty, Terrain: TerrainForest})
	raw, err := json.Marshal(g)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), `"3,7"`) {
		t.Errorf("tiles should be keyed by x,y: %s", raw)
	}
	var back Grid
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatal(err)
	}
	if tile, ok := back.Get(Coord{X: 3, Y: 7}); !ok || tile.Terrain != TerrainForest {
		t.Errorf("tile lost: %+v", tile)
	}

	var c Coord
	if err := c.UnmarshalText([]byte("nope")); err == nil {
		t.Error("expected error for malformed coordinate")
	}
}

func TestBoundsAreInclusive(t *testing.T) {
	g := NewGrid(200)
	tests := []struct {
		c    Coord
		want bool
	}{
		{Coord{0, 0}, true},
		{Coord{200, 200}, true},
		{Coord{-1, 5}, false},
		{Coord{5, 201}, false},
	}
	for _, tt := range tests {
		if got := g.InBounds(tt.c); got != tt.want {
			t.Errorf("InBounds(%v) = %v, want %v", tt.c, got, tt.want)
		}
	}
	if g.Center() != (Coord{100, 100}) {
		t.Errorf("center = %v", g.Center())
	}
}

func TestChunkCoversSquareAndSkipsStart(t *testing.T) {
	g := NewGrid(200)
	gen := NewGenerator(DefaultGenConfig(), entropy.NewSeeded(5))
	settlements := gen.Chunk(g, g.Center())

	// 15x15 square minus the player start.
	if g.Len() != 15*15-1 {
		t.Fatalf("explored %d tiles, want %d", g.Len(), 15*15-1)
	}
	if _, ok := g.Get(g.Center()); ok {
		t.Error("player start must stay free for the player village")
	}
	villages := 0
	for _, tile := range g.Tiles {
		if tile.Kind == TileVillage {
			villages++
		}
	}
	if villages != len(settlements) {
		t.Errorf("%d village tiles but %d settlements", villages, len(settlements))
	}
	for _, s := range settlements {
		if s.Warlord && s.Name == BarbarianName {
			t.Errorf("warlord at %v got the barbarian name", s.Coord)
		}
		if !s.Warlord && s.Name != BarbarianName {
			t.Errorf("barbarian at %v named %q", s.Coord, s.Name)
		}
	}

	// Exploring the same chunk again changes nothing.
	if again := gen.Chunk(g, g.Center()); len(again) != 0 || g.Len() != 15*15-1 {
		t.Errorf("second pass produced %d settlements, %d tiles", len(again), g.Len())
	}
}

func TestChunkClipsAtEdge(t *testing.T) {
	g := NewGrid(200)
	gen := NewGenerator(DefaultGenConfig(), entropy.NewSeeded(9))
	gen.Chunk(g, Coord{0, 0})
	if g.Len() != 8*8 {
		t.Errorf("corner chunk explored %d tiles, want 64", g.Len())
	}
}

func TestSettlementRate(t *testing.T) {
	g := NewGrid(200)
	gen := NewGenerator(DefaultGenConfig(), entropy.NewSeeded(11))
	total := 0
	for x := 7; x <= 193; x += 15 {
		for y := 7; y <= 193; y += 15 {
			total += len(gen.Chunk(g, Coord{x, y}))
		}
	}
	share := float64(total) / float64(g.Len())
	if share < 0.08 || share > 0.22 {
		t.Errorf("settlement share %.3f far from the expected 0.15", share)
	}
}

func TestWarlordNames(t *testing.T) {
	n := NewNameGenerator(entropy.NewSeeded(3))
	for i := 0; i < 200; i++ {
		name := n.Warlord()
		parts := strings.Fields(name)
		if len(parts) < 2 || len(parts) > 3 {
			t.Fatalf("unexpected name %q", name)
		}
	}
}

func TestPlaceVillageAndClear(t *testing.T) {
	cat := catalog.Default()
	g := NewGrid(20)
	g.Set(Tile{Coord: Coord{4, 4}, Kind: TileEmpty, Terrain: TerrainHills})
	v := village.New(cat, 7, 4, 4, "Hilltop", village.OwnerBarbarian)
	g.PlaceVillage(v)

	tile, _ := g.Get(Coord{4, 4})
	if tile.Kind != TileVillage || tile.Village != 7 || tile.Terrain != TerrainHills || tile.Points != v.Points {
		t.Errorf("tile = %+v", tile)
	}
	g.Clear(Coord{4, 4})
	tile, _ = g.Get(Coord{4, 4})
	if tile.Kind != TileEmpty || tile.Village != 0 || tile.Terrain != TerrainHills {
		t.Errorf("cleared tile = %+v", tile)
	}

	rect := g.Rect(Coord{0, 0}, Coord{10, 10})
	if len(rect) != 1 {
		t.Errorf("rect = %v", rect)
	}
}
