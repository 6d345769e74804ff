// World ties together villages, missions, reports and the map, and advances
// them through time.
package engine

import (
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/hinterland/internal/catalog"
	"github.com/talgya/hinterland/internal/config"
	"github.com/talgya/hinterland/internal/economy"
	"github.com/talgya/hinterland/internal/entropy"
	"github.com/talgya/hinterland/internal/village"
	"github.com/talgya/hinterland/internal/world"
)

// World is the aggregate root of the simulation. It is not safe for
// concurrent use; Engine serialises access to it.
type World struct {
	Villages []*village.Village                       `json:"villages"`
	Missions []*Mission                               `json:"missions"`
	Reports  []Report                                 `json:"reports"` // Most recent first
	Profiles map[village.Owner]*village.PlayerProfile `json:"profiles"`
	Map      *world.Grid                              `json:"map"`

	LastTick          time.Time  `json:"last_tick"`
	NextAIAttack      time.Time  `json:"next_ai_attack,omitzero"`
	AIProcessingIndex int        `json:"ai_processing_index"`
	NextVillageID     village.ID `json:"next_village_id"`
	NextWarlord       uint64     `json:"next_warlord"`
	Seed              int64      `json:"seed"`

	cat      *catalog.Catalog
	cfg      config.Config
	rng      entropy.Source
	nobles   entropy.Source
	gen      *world.Generator
	index    map[village.ID]*village.Village
	onReport func(Report)
}

// NewWorld creates a fresh world: the player's village at the map centre
// and the first explored chunk around it.
func NewWorld(cat *catalog.Catalog, cfg config.Config, rng entropy.Source, now time.Time) *World {
	w := &World{
		Profiles:      make(map[village.Owner]*village.PlayerProfile),
		Map:           world.NewGrid(cfg.Sim.MapSize),
		LastTick:      now,
		NextAIAttack:  now.Add(cfg.AI.AttackInterval),
		NextVillageID: 1,
		Seed:          cfg.Seed,
	}
	w.Attach(cat, cfg, rng)

	start := w.Map.Center()
	w.addVillage(start, world.PlayerStartName, village.OwnerPlayer)
	w.generateChunk(start)
	slog.Info("world created", "villages", len(w.Villages), "tiles", w.Map.Len(), "seed", w.Seed)
	return w
}

// Attach wires the static collaborators into a world, typically one just
// decoded from a snapshot, and repairs whatever the snapshot lacks.
func (w *World) Attach(cat *catalog.Catalog, cfg config.Config, rng entropy.Source) {
	w.cat = cat
	w.cfg = cfg
	w.rng = rng
	if w.nobles == nil {
		w.nobles = rng
	}
	w.gen = world.NewGenerator(world.GenConfig{
		Seed:            w.Seed,
		Radius:          cfg.Sim.ChunkRadius,
		WarlordChance:   cfg.Sim.WarlordChance,
		BarbarianChance: cfg.Sim.BarbarianChance,
	}, rng)
	w.Normalize()
}

// SetNobleSource replaces the source used for noble loyalty rolls.
func (w *World) SetNobleSource(src entropy.Source) {
	if src != nil {
		w.nobles = src
	}
}

// OnReport registers fn to be called with every new report.
func (w *World) OnReport(fn func(Report)) {
	w.onReport = fn
}

// Catalog returns the lookup tables the world runs on.
func (w *World) Catalog() *catalog.Catalog { return w.cat }

// Config returns the settings the world runs with.
func (w *World) Config() config.Config { return w.cfg }

// Normalize backfills everything an older or partial snapshot may lack:
// maps, queues, support lists, profiles, tiles and ids. Legacy owner tags
// are rewritten. It never fails.
func (w *World) Normalize() {
	if w.Profiles == nil {
		w.Profiles = make(map[village.Owner]*village.PlayerProfile)
	}
	if w.Map == nil {
		w.Map = world.NewGrid(w.cfg.Sim.MapSize)
	}
	if w.Map.Tiles == nil {
		w.Map.Tiles = make(map[world.Coord]world.Tile)
	}
	if w.Map.Size == 0 {
		w.Map.Size = w.cfg.Sim.MapSize
	}
	if w.NextVillageID == 0 {
		w.NextVillageID = 1
	}

	kept := w.Villages[:0]
	for _, v := range w.Villages {
		if v != nil {
			kept = append(kept, v)
		}
	}
	w.Villages = kept

	for _, v := range w.Villages {
		switch v.Owner {
		case "enemy":
			w.NextWarlord++
			v.Owner = village.WarlordOwner(w.NextWarlord)
		case "barb", "":
			v.Owner = village.OwnerBarbarian
		}
		w.normalizeVillage(v)
		if v.ID >= w.NextVillageID {
			w.NextVillageID = v.ID + 1
		}
		w.ensureProfile(v.Owner, v.Name)
	}

	w.reindex()

	missions := w.Missions[:0]
	for _, m := range w.Missions {
		if m == nil {
			continue
		}
		if m.ID == "" {
			m.ID = MissionID(uuid.NewString())
		}
		if m.Units == nil {
			m.Units = make(village.Units)
		}
		m.Resources = m.Resources.Clamp()
		missions = append(missions, m)
	}
	w.Missions = missions

	if limit := w.cfg.Sim.MaxReports; limit > 0 && len(w.Reports) > limit {
		w.Reports = w.Reports[:limit]
	}
	w.refresh()
}

func (w *World) normalizeVillage(v *village.Village) {
	if v.Buildings == nil {
		v.Buildings = make(map[catalog.BuildingID]int)
	}
	if v.Units == nil {
		v.Units = make(village.Units)
	}
	if v.Techs == nil {
		v.Techs = make(map[catalog.UnitID]int)
	}
	for _, b := range w.cat.Buildings() {
		if _, ok := v.Buildings[b.ID]; !ok {
			v.Buildings[b.ID] = 0
		}
	}
	for _, u := range w.cat.Units() {
		if _, ok := v.Units[u.ID]; !ok {
			v.Units[u.ID] = 0
		}
		if v.Techs[u.ID] < 1 {
			v.Techs[u.ID] = 1
		}
	}
	if v.Queues.Training == nil {
		v.Queues.Training = make(map[village.QueueKind][]village.TrainingBatch)
	}
	for _, b := range w.cat.TrainingBuildings() {
		if _, ok := v.Queues.Training[village.TrainingQueue(b)]; !ok {
			v.Queues.Training[village.TrainingQueue(b)] = nil
		}
	}
	if v.Stationed == nil {
		v.Stationed = []village.SupportStack{}
	}
	stacks := v.Stationed[:0]
	for _, s := range v.Stationed {
		s.Units = s.Units.Compact()
		if !s.Units.Empty() {
			stacks = append(stacks, s)
		}
	}
	v.Stationed = stacks
	v.Resources = v.Resources.Clamp()
	v.ClampLoyalty()
}

func (w *World) reindex() {
	w.index = make(map[village.ID]*village.Village, len(w.Villages))
	for _, v := range w.Villages {
		w.index[v.ID] = v
	}
}

// Village returns the live village with id. Callers outside the engine must
// go through Engine, which hands out copies.
func (w *World) Village(id village.ID) (*village.Village, bool) {
	v, ok := w.index[id]
	return v, ok
}

// requireOwner rejects actions on a village that owner does not hold.
func (w *World) requireOwner(id village.ID, owner village.Owner) error {
	v, ok := w.index[id]
	if !ok {
		return reject(ErrVillageNotFound, "village %d", id)
	}
	if v.Owner != owner {
		return reject(ErrNotOwned, "village %d belongs to %s", id, v.Owner)
	}
	return nil
}

// VillagesOf returns the villages held by owner in id order.
func (w *World) VillagesOf(owner village.Owner) []*village.Village {
	var out []*village.Village
	for _, v := range w.Villages {
		if v.Owner == owner {
			out = append(out, v)
		}
	}
	return out
}

// UnitsAway sums the units village id has outside its walls: carried by
// missions it launched or is owed back, and stationed as support elsewhere.
func (w *World) UnitsAway(id village.ID) village.Units {
	out := make(village.Units)
	for _, m := range w.Missions {
		if m.Origin == id {
			out.Add(m.Units)
		}
	}
	for _, v := range w.Villages {
		if v.ID == id {
			continue
		}
		for _, s := range v.Stationed {
			if s.Origin == id {
				out.Add(s.Units)
			}
		}
	}
	return out.Compact()
}

// Population is the population breakdown of v, counting deployments.
func (w *World) Population(v *village.Village) economy.Population {
	return economy.PopulationOf(w.cat, v, w)
}

// GenerateChunk explores the area around c, creating the villages found there.
func (w *World) GenerateChunk(c world.Coord) ([]*village.Village, error) {
	if !w.Map.InBounds(c) {
		return nil, reject(ErrOutOfBounds, "%s", c)
	}
	return w.generateChunk(c), nil
}

func (w *World) generateChunk(c world.Coord) []*village.Village {
	var created []*village.Village
	for _, s := range w.gen.Chunk(w.Map, c) {
		owner := village.OwnerBarbarian
		if s.Warlord {
			w.NextWarlord++
			owner = village.WarlordOwner(w.NextWarlord)
		}
		created = append(created, w.addVillage(s.Coord, s.Name, owner))
	}
	if len(created) > 0 {
		slog.Debug("chunk explored", "x", c.X, "y", c.Y, "villages", len(created))
	}
	return created
}

func (w *World) addVillage(c world.Coord, name string, owner village.Owner) *village.Village {
	v := village.New(w.cat, w.NextVillageID, c.X, c.Y, name, owner)
	w.NextVillageID++
	if owner.IsWarlord() {
		v.Fortify(w.cat)
	}
	w.Villages = append(w.Villages, v)
	w.index[v.ID] = v
	w.Map.PlaceVillage(v)
	w.ensureProfile(owner, name)
	return v
}

// RemoveVillage deletes a village from the world. Missions heading to it
// resolve as vanished; stacks it keeps elsewhere can still be recalled but
// find no home.
func (w *World) RemoveVillage(id village.ID) bool {
	v, ok := w.index[id]
	if !ok {
		return false
	}
	for i, x := range w.Villages {
		if x.ID == id {
			w.Villages = append(w.Villages[:i], w.Villages[i+1:]...)
			break
		}
	}
	delete(w.index, id)
	w.Map.Clear(world.Coord{X: v.X, Y: v.Y})
	w.checkElimination(v.Owner)
	return true
}

// RenameVillage changes a village's display name.
func (w *World) RenameVillage(id village.ID, name string) error {
	v, ok := w.index[id]
	if !ok {
		return reject(ErrVillageNotFound, "village %d", id)
	}
	if name == "" {
		return reject(ErrInvalidName, "empty name")
	}
	v.Name = name
	w.Map.PlaceVillage(v)
	return nil
}

func (w *World) ensureProfile(owner village.Owner, name string) {
	if _, ok := w.Profiles[owner]; ok {
		return
	}
	p := &village.PlayerProfile{ID: owner, Name: name, Alive: true}
	switch {
	case owner.IsPlayer():
		p.Name = "Player"
		p.Color = "#1e8449"
	case owner == village.OwnerBarbarian:
		p.Name = "Barbarians"
		p.Color = "#7f8c8d"
	default:
		p.Color = village.PaletteColor(len(w.Profiles))
	}
	w.Profiles[owner] = p
}

// checkElimination marks owner dead once it holds no village.
func (w *World) checkElimination(owner village.Owner) {
	p, ok := w.Profiles[owner]
	if !ok || !p.Alive {
		return
	}
	for _, v := range w.Villages {
		if v.Owner == owner {
			return
		}
	}
	p.Alive = false
	slog.Info("owner eliminated", "owner", owner, "name", p.Name)
}

// Tick advances the world to now: economy and queues for every village,
// then missions, then derived points and tiles. A non-positive step is a
// no-op, and any gap is caught up in one call.
func (w *World) Tick(now time.Time) {
	if w.LastTick.IsZero() {
		w.LastTick = now
		return
	}
	if !now.After(w.LastTick) {
		return
	}
	for _, v := range w.Villages {
		w.advanceVillage(v, w.LastTick, now)
	}
	w.advanceMissions(now)
	w.refresh()
	w.LastTick = now
}

// refresh recomputes points, tile summaries and profile liveness.
func (w *World) refresh() {
	alive := make(map[village.Owner]bool)
	for _, v := range w.Villages {
		v.RecomputePoints(w.cat)
		w.Map.PlaceVillage(v)
		alive[v.Owner] = true
	}
	for owner, p := range w.Profiles {
		if alive[owner] {
			p.Alive = true
		} else if p.Alive {
			w.checkElimination(owner)
		}
	}
}

// PlayerPoints is the summed score of the player's villages.
func (w *World) PlayerPoints() int {
	total := 0
	for _, v := range w.VillagesOf(village.OwnerPlayer) {
		total += v.Points
	}
	return total
}

// Owners returns profile ids sorted for stable output.
func (w *World) Owners() []village.Owner {
	out := make([]village.Owner, 0, len(w.Profiles))
	for o := range w.Profiles {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
