package engine

import (
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/hinterland/internal/catalog"
	"github.com/talgya/hinterland/internal/village"
)

// Order in which warlords grow their villages when levels are tied.
var aiBuildPriority = []catalog.BuildingID{
	catalog.Farm,
	catalog.Warehouse,
	catalog.TimberCamp,
	catalog.ClayPit,
	catalog.IronMine,
	catalog.Headquarters,
	catalog.Barracks,
	catalog.Wall,
	catalog.Smithy,
	catalog.Stable,
	catalog.Academy,
	catalog.Market,
	catalog.Workshop,
}

const (
	aiBuildQueueDepth = 2  // Warlords keep at most this many upgrades queued
	aiBatchLimit      = 25 // Largest single training order
)

// AIStats summarises one AI pass.
type AIStats struct {
	Villages int `json:"villages"`
	Builds   int `json:"builds"`
	Trained  int `json:"trained"`
	Attacks  int `json:"attacks"`
}

// AIPass lets the next few warlord villages take their turn, then rolls for
// a harassment attack on the player. Warlords act through the same order
// gates the player does.
func (w *World) AIPass(now time.Time) AIStats {
	var stats AIStats
	if !w.cfg.AI.Enabled {
		return stats
	}

	var warlords []*village.Village
	for _, v := range w.Villages {
		if v.Owner.IsWarlord() {
			warlords = append(warlords, v)
		}
	}
	if n := len(warlords); n > 0 {
		start := w.AIProcessingIndex % n
		count := min(max(w.cfg.AI.VillagesPerPass, 1), n)
		for i := 0; i < count; i++ {
			w.aiTurn(warlords[(start+i)%n], now, &stats)
		}
		w.AIProcessingIndex = (start + count) % n
		stats.Villages = count
	}

	if w.harass(now) {
		stats.Attacks++
	}
	return stats
}

func (w *World) aiTurn(v *village.Village, now time.Time, stats *AIStats) {
	if len(v.Queues.Build) < aiBuildQueueDepth && w.aiBuild(v, now) {
		stats.Builds++
	}

	for _, name := range []string{"defense", "offense"} {
		template := w.cfg.Templates[name]
		ids := make([]catalog.UnitID, 0, len(template))
		for id := range template {
			ids = append(ids, id)
		}
		w.cat.SortUnitIDs(ids)

		training := v.Queues.TrainingUnits()
		away := w.UnitsAway(v.ID)
		for _, id := range ids {
			have := v.Units[id] + training[id] + away[id]
			n := min(template[id]-have, w.MaxTrainable(v, id), aiBatchLimit)
			if n <= 0 {
				continue
			}
			if _, err := w.IssueTrainOrder(v.ID, id, n, now); err == nil {
				stats.Trained += n
			}
		}
	}

	if v.Level(catalog.Academy) > 0 && v.Units[catalog.Noble] == 0 && v.Queues.TrainingUnits()[catalog.Noble] == 0 {
		if _, err := w.IssueTrainOrder(v.ID, catalog.Noble, 1, now); err == nil {
			stats.Trained++
		}
	}

	if v.Units[catalog.Noble] > 0 && w.rng.Float64() < w.cfg.AI.ConquestChance {
		if w.aiConquest(v, now) {
			stats.Attacks++
		}
	}
}

// aiBuild queues the lowest building on the priority list that the village
// can afford.
func (w *World) aiBuild(v *village.Village, now time.Time) bool {
	candidates := append([]catalog.BuildingID(nil), aiBuildPriority...)
	sort.SliceStable(candidates, func(i, j int) bool {
		return v.VirtualLevel(candidates[i]) < v.VirtualLevel(candidates[j])
	})
	for _, b := range candidates {
		if _, err := w.IssueBuildOrder(v.ID, b, now); err == nil {
			return true
		}
	}
	return false
}

// aiConquest sends the village's offensive units and nobles at the nearest
// barbarian or player village in range.
func (w *World) aiConquest(v *village.Village, now time.Time) bool {
	var target *village.Village
	best := math.Inf(1)
	for _, t := range w.Villages {
		if t.Owner != village.OwnerBarbarian && !t.Owner.IsPlayer() {
			continue
		}
		if d := village.Distance(v, t); d <= w.cfg.AI.AttackRange && d < best {
			target, best = t, d
		}
	}
	if target == nil {
		return false
	}

	army := make(village.Units)
	for id := range w.cfg.Templates["offense"] {
		if n := v.Units[id]; n > 0 {
			army[id] = n
		}
	}
	if army.Empty() {
		return false
	}
	army[catalog.Noble] = v.Units[catalog.Noble]

	m, err := w.LaunchMission(v.ID, target.ID, MissionAttack, army, village.Resources{}, now)
	if err != nil {
		slog.Debug("warlord attack rejected", "village", v.ID, "target", target.ID, "err", err)
		return false
	}
	slog.Info("warlord attack launched", "from", v.Name, "to", target.Name, "arrival", m.Arrival)
	return true
}

// harass rolls, once per attack interval, for a warlord raid on a random
// player village. The raiders are raised on the spot rather than drawn
// from the warlord's garrison.
func (w *World) harass(now time.Time) bool {
	ai := w.cfg.AI
	if !ai.AttackEnabled {
		return false
	}
	if w.NextAIAttack.IsZero() {
		w.NextAIAttack = now.Add(ai.AttackInterval)
		return false
	}
	if now.Before(w.NextAIAttack) {
		return false
	}
	w.NextAIAttack = now.Add(ai.AttackInterval)
	if w.rng.Float64() >= ai.AttackChance {
		return false
	}
	m := w.spawnHarassment(now)
	return m != nil
}

func (w *World) spawnHarassment(now time.Time) *Mission {
	players := w.VillagesOf(village.OwnerPlayer)
	if len(players) == 0 {
		return nil
	}
	target := players[w.rng.Intn(len(players))]

	var sources []*village.Village
	for _, v := range w.Villages {
		if v.Owner.IsWarlord() && village.Distance(v, target) <= w.cfg.AI.AttackRange {
			sources = append(sources, v)
		}
	}
	if len(sources) == 0 {
		return nil
	}
	origin := sources[w.rng.Intn(len(sources))]

	size := max(10, int(math.Floor(float64(target.Points)/10*w.cfg.AI.AttackStrength)))
	units := village.Units{
		catalog.Axe:      size,
		catalog.LightCav: size / 3,
	}
	if w.rng.Float64() > 0.5 {
		units[catalog.Ram] = size / 10
	}

	dist := village.Distance(origin, target)
	m := &Mission{
		ID:        MissionID(uuid.NewString()),
		Type:      MissionAttack,
		Origin:    origin.ID,
		Target:    target.ID,
		Owner:     origin.Owner,
		Units:     units.Compact(),
		Departure: now,
		Arrival:   now.Add(seconds(dist * w.cfg.Sim.MerchantSecondsPerTile)),
	}
	w.Missions = append(w.Missions, m)
	slog.Info("warlord raid launched", "from", origin.Name, "to", target.Name, "axes", size, "arrival", m.Arrival)
	return m
}
