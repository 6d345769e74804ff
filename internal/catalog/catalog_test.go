package catalog

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultTables(t *testing.T) {
	c := Default()
	if got := len(c.Buildings()); got != 13 {
		t.Fatalf("buildings = %d, want 13", got)
	}
	if got := len(c.Units()); got != 9 {
		t.Fatalf("units = %d, want 9", got)
	}
	for _, u := range c.Units() {
		if _, ok := c.Building(u.TrainingBuilding); !ok {
			t.Errorf("unit %s trains in unknown building %s", u.ID, u.TrainingBuilding)
		}
	}
	if got := c.TrainingBuildings(); len(got) != 4 {
		t.Errorf("training buildings = %v, want 4 entries", got)
	}
}

func TestBuildingCurves(t *testing.T) {
	hq, _ := Default().Building(Headquarters)

	if got := hq.CostAt(0); got != (Cost{90, 80, 70}) {
		t.Errorf("CostAt(0) = %v", got)
	}
	// 90 * 1.26 = 113.4
	if got := hq.CostAt(1); got[0] != 113 {
		t.Errorf("CostAt(1) wood = %v, want 113", got[0])
	}
	if got := hq.PopulationAt(0); got != 0 {
		t.Errorf("PopulationAt(0) = %d, want 0", got)
	}
	if got := hq.PopulationAt(1); got != 5 {
		t.Errorf("PopulationAt(1) = %d, want 5", got)
	}
	// round(5 * 1.26) = 6
	if got := hq.PopulationDelta(1); got != 1 {
		t.Errorf("PopulationDelta(1) = %d, want 1", got)
	}
	if got := hq.PointsAt(1); got != 10 {
		t.Errorf("PointsAt(1) = %d, want 10", got)
	}
	if got := hq.PointsAt(2); got != 12 {
		t.Errorf("PointsAt(2) = %d, want 12", got)
	}
	// floor(90 * 1.2^0 * 0.95^1) = 85
	if got := hq.SecondsAt(0, 1); got != 85 {
		t.Errorf("SecondsAt(0,1) = %v, want 85", got)
	}
}

func TestFarmAndWarehouseHaveNoFootprint(t *testing.T) {
	c := Default()
	for _, id := range []BuildingID{Farm, Warehouse} {
		b, _ := c.Building(id)
		for lvl := 0; lvl < 30; lvl++ {
			if d := b.PopulationDelta(lvl); d != 0 {
				t.Fatalf("%s delta at %d = %d, want 0", id, lvl, d)
			}
		}
	}
}

func TestUnitCurves(t *testing.T) {
	spear, _ := Default().Unit(Spear)
	if got := spear.ResearchCost(1); got != (Cost{250, 150, 50}) {
		t.Errorf("ResearchCost(1) = %v", got)
	}
	if got := spear.ResearchSeconds(0); got != 200 {
		t.Errorf("ResearchSeconds(0) = %v, want 200", got)
	}
	if got := spear.UnitSeconds(0); got != 20 {
		t.Errorf("UnitSeconds(0) = %v, want 20", got)
	}
	if got := spear.UnitSeconds(1); got != 20*0.96 {
		t.Errorf("UnitSeconds(1) = %v", got)
	}
}

func TestTechMultiplier(t *testing.T) {
	tests := []struct {
		level int
		want  float64
	}{
		{0, 1.0}, {1, 1.0}, {2, 1.25}, {3, 1.40}, {4, 1.0},
	}
	for _, tt := range tests {
		if got := TechMultiplier(tt.level); got != tt.want {
			t.Errorf("TechMultiplier(%d) = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestLoadOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	body := `
buildings:
  - id: wall
    name: Palisade
    base_cost: [10, 20, 5]
    cost_factor: 1.1
    base_seconds: 30
    max_level: 5
    base_population: 1
    points: 2
units:
  - id: archer
    name: Archer
    class: infantry
    cost: [100, 30, 60]
    population: 1
    attack: 15
    defense_general: 50
    defense_cavalry: 40
    carry: 10
    speed: 18
    training_seconds: 30
    training_building: barracks
    max_tech_level: 3
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	wall, ok := c.Building(Wall)
	if !ok || wall.Name != "Palisade" || wall.MaxLevel != 5 {
		t.Errorf("wall override not applied: %+v", wall)
	}
	if len(c.Buildings()) != 13 {
		t.Errorf("override should replace, not append: %d buildings", len(c.Buildings()))
	}
	archer, ok := c.Unit("archer")
	if !ok || archer.Class != Infantry || archer.Cost != (Cost{100, 30, 60}) {
		t.Errorf("archer not loaded: %+v", archer)
	}
	units := c.UnitsTrainedIn(Barracks)
	if units[len(units)-1] != "archer" {
		t.Errorf("new unit should be appended to table order, got %v", units)
	}
}

func TestLoadRejectsUnknownTrainingBuilding(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	body := "units:\n  - id: ghost\n    speed: 10\n    training_building: crypt\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unknown training building")
	}
}

func TestLoadRejectsTechAboveMultiplierTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tech.yaml")
	body := "units:\n  - id: archer\n    speed: 18\n    training_building: barracks\n    max_tech_level: 4\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for max_tech_level 4")
	}
	if TechMultiplier(TopTechLevel) <= TechMultiplier(TopTechLevel-1) {
		t.Error("top tech level is not the strongest")
	}
}
