package engine

import (
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/hinterland/internal/catalog"
	"github.com/talgya/hinterland/internal/combat"
	"github.com/talgya/hinterland/internal/village"
	"github.com/talgya/hinterland/internal/world"
)

// MissionID identifies a mission.
type MissionID string

// MissionType says what a mission does on arrival.
type MissionType string

const (
	MissionAttack    MissionType = "attack"
	MissionSupport   MissionType = "support"
	MissionTransport MissionType = "transport"
	MissionReturn    MissionType = "return" // Recalled support heading home
)

// Mission is a movement of units or resources between villages.
//
// For a return mission Origin is the home village the units belong to and
// Target is the village they left.
type Mission struct {
	ID        MissionID         `json:"id"`
	Type      MissionType       `json:"type"`
	Origin    village.ID        `json:"origin"`
	Target    village.ID        `json:"target"`
	Owner     village.Owner     `json:"owner"` // Origin's owner at launch
	Units     village.Units     `json:"units"`
	Resources village.Resources `json:"resources"`
	Departure time.Time         `json:"departure"`
	Arrival   time.Time         `json:"arrival"`
}

// Clone deep-copies the mission.
func (m *Mission) Clone() *Mission {
	out := *m
	out.Units = m.Units.Clone()
	return &out
}

// StackRef names a support stack: the village hosting it and the village
// the troops belong to.
type StackRef struct {
	Host   village.ID `json:"host"`
	Origin village.ID `json:"origin"`
}

// LaunchMission sends units (attack, support) or resources (transport)
// from origin to target. Whatever is sent leaves the origin immediately.
func (w *World) LaunchMission(origin, target village.ID, typ MissionType, units village.Units, res village.Resources, now time.Time) (*Mission, error) {
	o, ok := w.index[origin]
	if !ok {
		return nil, reject(ErrVillageNotFound, "village %d", origin)
	}
	t, ok := w.index[target]
	if !ok {
		return nil, reject(ErrTargetVanished, "village %d", target)
	}
	if origin == target {
		return nil, reject(ErrSameVillage, "")
	}
	dist := village.Distance(o, t)

	m := &Mission{
		ID:        MissionID(uuid.NewString()),
		Type:      typ,
		Origin:    origin,
		Target:    target,
		Owner:     o.Owner,
		Units:     make(village.Units),
		Departure: now,
	}

	switch typ {
	case MissionAttack, MissionSupport:
		slowest, err := w.checkUnits(o, units)
		if err != nil {
			return nil, err
		}
		m.Units = units.Clone().Compact()
		m.Arrival = now.Add(seconds(dist * slowest * w.cfg.Sim.TravelSecondsPerSpeed))
		o.Units.Sub(m.Units)
	case MissionTransport:
		market := o.Level(catalog.Market)
		if market < 1 {
			return nil, reject(ErrNoMarket, "")
		}
		res = res.Floor()
		for _, r := range res {
			if r < 0 {
				return nil, reject(ErrInvalidCount, "negative amount")
			}
		}
		if res.Total() <= 0 {
			return nil, reject(ErrInvalidCount, "nothing to carry")
		}
		if limit := float64(market * w.cfg.Sim.MarketCapacityPerLevel); res.Total() > limit {
			return nil, reject(ErrMarketCapacity, "%.0f over %.0f", res.Total(), limit)
		}
		if !o.Resources.Covers(res) {
			return nil, reject(ErrInsufficientResources, "need %v", res)
		}
		m.Resources = res
		m.Arrival = now.Add(seconds(dist * w.cfg.Sim.MerchantSecondsPerTile))
		o.Resources = o.Resources.Sub(res)
	default:
		return nil, reject(ErrInvalidMission, "type %q", typ)
	}

	w.Missions = append(w.Missions, m)
	slog.Debug("mission launched", "id", m.ID, "type", typ, "origin", origin, "target", target, "arrival", m.Arrival)
	return m, nil
}

// checkUnits validates a troop selection against the units at home and
// returns the slowest speed among them.
func (w *World) checkUnits(v *village.Village, units village.Units) (float64, error) {
	slowest := 0.0
	total := 0
	for id, n := range units {
		if n < 0 {
			return 0, reject(ErrInvalidCount, "%s: %d", id, n)
		}
		if n == 0 {
			continue
		}
		def, ok := w.cat.Unit(id)
		if !ok {
			return 0, reject(ErrUnknownUnit, "%q", id)
		}
		if v.Units[id] < n {
			return 0, reject(ErrNotEnoughUnits, "%s: %d of %d", id, n, v.Units[id])
		}
		slowest = max(slowest, def.Speed)
		total += n
	}
	if total == 0 {
		return 0, reject(ErrInvalidCount, "no units selected")
	}
	return slowest, nil
}

// RecallSupport sends a support stack home. The troops travel at merchant
// pace from the host; when their home no longer exists the trip uses a
// fixed fallback distance and the units are lost on arrival.
func (w *World) RecallSupport(ref StackRef, now time.Time) (*Mission, error) {
	host, ok := w.index[ref.Host]
	if !ok {
		return nil, reject(ErrVillageNotFound, "village %d", ref.Host)
	}
	stack, ok := host.Unstation(ref.Origin)
	if !ok {
		return nil, reject(ErrStackNotFound, "village %d has no troops from %d", ref.Host, ref.Origin)
	}
	dist := w.cfg.Sim.RecallFallbackDistance
	var owner village.Owner
	if home, ok := w.index[ref.Origin]; ok {
		dist = village.Distance(host, home)
		owner = home.Owner
	}
	m := &Mission{
		ID:        MissionID(uuid.NewString()),
		Type:      MissionReturn,
		Origin:    ref.Origin,
		Target:    ref.Host,
		Owner:     owner,
		Units:     stack.Units.Clone(),
		Departure: now,
		Arrival:   now.Add(seconds(dist * w.cfg.Sim.MerchantSecondsPerTile)),
	}
	w.Missions = append(w.Missions, m)
	return m, nil
}

// MissionsFor lists missions touching village id (all when id is zero),
// soonest arrival first.
func (w *World) MissionsFor(id village.ID) []*Mission {
	var out []*Mission
	for _, m := range w.Missions {
		if id == 0 || m.Origin == id || m.Target == id {
			out = append(out, m)
		}
	}
	sortMissions(out)
	return out
}

func sortMissions(ms []*Mission) {
	sort.Slice(ms, func(i, j int) bool {
		if !ms[i].Arrival.Equal(ms[j].Arrival) {
			return ms[i].Arrival.Before(ms[j].Arrival)
		}
		return ms[i].ID < ms[j].ID
	})
}

// advanceMissions removes every mission due by now and resolves each once,
// in arrival order.
func (w *World) advanceMissions(now time.Time) {
	var due []*Mission
	pending := w.Missions[:0]
	for _, m := range w.Missions {
		if m.Arrival.After(now) {
			pending = append(pending, m)
		} else {
			due = append(due, m)
		}
	}
	w.Missions = pending
	sortMissions(due)
	for _, m := range due {
		w.resolve(m)
	}
}

func (w *World) resolve(m *Mission) {
	origin := w.index[m.Origin]
	target := w.index[m.Target]

	switch m.Type {
	case MissionTransport:
		if target != nil {
			target.Resources = target.Resources.Add(m.Resources)
		}
		w.addReport(w.movementReport(m, origin, target))
	case MissionSupport:
		if target == nil {
			w.returnHome(m, origin)
			w.addReport(w.movementReport(m, origin, nil))
			return
		}
		target.Station(m.Origin, m.Units)
		w.addReport(w.movementReport(m, origin, target))
	case MissionReturn:
		if origin == nil {
			slog.Debug("returning troops found no home", "mission", m.ID, "origin", m.Origin)
		} else {
			origin.Units.Add(m.Units)
		}
		w.addReport(w.movementReport(m, origin, target))
	case MissionAttack:
		w.resolveAttack(m, origin, target)
	default:
		slog.Warn("dropping mission of unknown type", "mission", m.ID, "type", m.Type)
	}
}

func (w *World) returnHome(m *Mission, origin *village.Village) {
	if origin != nil {
		origin.Units.Add(m.Units)
	}
}

func (w *World) resolveAttack(m *Mission, origin, target *village.Village) {
	if target == nil {
		w.returnHome(m, origin)
		w.addReport(w.movementReport(m, origin, nil))
		return
	}

	battle := combat.Battle{
		Attackers:     m.Units,
		Home:          target.Units,
		Stacks:        target.Stationed,
		DefenderTechs: target.Techs,
		Wall:          target.Level(catalog.Wall),
		Loyalty:       target.Loyalty,
		Resources:     target.Resources,
	}
	if origin != nil {
		battle.AttackerTechs = origin.Techs
	}
	defenderOwner := target.Owner
	res := combat.Resolve(w.cat, battle, w.nobles.Float64)

	target.Units = res.HomeAfter
	target.Stationed = res.StacksAfter
	target.Buildings[catalog.Wall] = res.WallAfter
	target.Resources = target.Resources.Sub(res.Loot)
	target.Loyalty = res.LoyaltyAfter
	w.normalizeVillage(target)

	if origin != nil {
		origin.Units.Add(res.AttackersAfter)
		origin.Resources = origin.Resources.Add(res.Loot)
	}

	var intel *Intel
	if res.ScoutWin {
		intel = w.gatherIntel(target, res.Intel)
	}
	if res.Conquered {
		w.conquer(target, m.Owner)
	}
	w.addReport(w.battleReport(m, origin, target, defenderOwner, res, intel))
}

// conquer hands target to owner and checks whether its old owner is gone.
func (w *World) conquer(target *village.Village, owner village.Owner) {
	if owner == "" {
		return
	}
	prev := target.Owner
	target.Owner = owner
	w.ensureProfile(owner, target.Name)
	w.Map.PlaceVillage(target)
	slog.Info("village conquered", "village", target.ID, "name", target.Name, "from", prev, "to", owner)
	w.checkElimination(prev)
}

func (w *World) gatherIntel(target *village.Village, tiers combat.Intel) *Intel {
	intel := &Intel{}
	if tiers.Resources {
		r := target.Resources.Floor()
		intel.Resources = &r
	}
	if tiers.Buildings {
		intel.Buildings = make(map[catalog.BuildingID]int)
		for b, lvl := range target.Buildings {
			if lvl > 0 {
				intel.Buildings[b] = lvl
			}
		}
	}
	if tiers.Away {
		intel.Away = w.UnitsAway(target.ID)
	}
	return intel
}

// TravelTime is how long units would take between two villages.
func (w *World) TravelTime(from, to village.ID, units village.Units) (time.Duration, error) {
	o, ok := w.index[from]
	if !ok {
		return 0, reject(ErrVillageNotFound, "village %d", from)
	}
	t, ok := w.index[to]
	if !ok {
		return 0, reject(ErrTargetVanished, "village %d", to)
	}
	slowest := 0.0
	for id, n := range units {
		if def, ok := w.cat.Unit(id); ok && n > 0 {
			slowest = max(slowest, def.Speed)
		}
	}
	dist := village.Distance(o, t)
	if slowest == 0 {
		return seconds(dist * w.cfg.Sim.MerchantSecondsPerTile), nil
	}
	return seconds(dist * slowest * w.cfg.Sim.TravelSecondsPerSpeed), nil
}

// coordOf is the map coordinate of v.
func coordOf(v *village.Village) world.Coord {
	return world.Coord{X: v.X, Y: v.Y}
}
