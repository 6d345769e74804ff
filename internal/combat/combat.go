// Package combat resolves a single attack against a village.
//
// Resolve is a pure function: it reads a Battle and returns a Result
// describing casualties, wall damage, loyalty change, loot and intel.
// Applying the result to the world is the caller's job.
package combat

import (
	"math"

	"github.com/talgya/hinterland/internal/catalog"
	"github.com/talgya/hinterland/internal/village"
)

const (
	ramsPerWallLevel  = 20
	wallDefensePerLvl = 0.05
	wallFlatDefense   = 20.0
	lossExponent      = 1.5
	nobleDropMin      = 20
	nobleDropSpread   = 16 // Drops land in [20, 36)
	intelResources    = 0.50
	intelBuildings    = 0.70
	intelAway         = 0.90
)

// Roll returns a uniform value in [0, 1).
type Roll func() float64

// Battle is everything the resolver needs to know.
type Battle struct {
	Attackers     village.Units
	AttackerTechs map[catalog.UnitID]int

	Home          village.Units          // Defender's own units at home
	Stacks        []village.SupportStack // Garrisons from other villages
	DefenderTechs map[catalog.UnitID]int

	Wall      int
	Loyalty   float64
	Resources village.Resources
}

// Intel says what the attacker gets to see of the target.
type Intel struct {
	Resources bool `json:"resources"`
	Buildings bool `json:"buildings"`
	Away      bool `json:"away"`
}

// Result is the outcome of one battle.
type Result struct {
	AttackerWon bool `json:"attacker_won"`
	ScoutWin    bool `json:"scout_win"`

	AttackersBefore village.Units `json:"attackers_before"`
	AttackersAfter  village.Units `json:"attackers_after"`
	DefendersBefore village.Units `json:"defenders_before"`
	DefendersAfter  village.Units `json:"defenders_after"`

	HomeAfter   village.Units          `json:"-"`
	StacksAfter []village.SupportStack `json:"-"`

	ScoutsSent int `json:"scouts_sent"`
	ScoutsLost int `json:"scouts_lost"`

	Offense float64 `json:"offense"`
	Defense float64 `json:"defense"`

	WallBefore    int `json:"wall_before"`
	EffectiveWall int `json:"effective_wall"`
	WallAfter     int `json:"wall_after"`

	LoyaltyBefore  float64 `json:"loyalty_before"`
	LoyaltyAfter   float64 `json:"loyalty_after"`
	LoyaltyDrop    int     `json:"loyalty_drop"`
	Conquered      bool    `json:"conquered"`
	NoblesConsumed int     `json:"nobles_consumed"`

	Loot  village.Resources `json:"loot"`
	Intel Intel             `json:"intel"`
}

// Resolve runs the scouting phase, the main battle and the post-battle
// effects. roll feeds the noble loyalty drops and may be nil when no nobles
// take part.
func Resolve(cat *catalog.Catalog, b Battle, roll Roll) Result {
	res := Result{
		AttackersBefore: b.Attackers.Clone().Compact(),
		DefendersBefore: defenders(b),
		WallBefore:      b.Wall,
		EffectiveWall:   b.Wall,
		WallAfter:       b.Wall,
		LoyaltyBefore:   b.Loyalty,
		LoyaltyAfter:    b.Loyalty,
	}
	survivors := b.Attackers.Clone().Compact()
	home := b.Home.Clone()
	stacks := cloneStacks(b.Stacks)

	scouts, fighters := split(cat, survivors)

	if scouts > 0 {
		res.ScoutsSent = scouts
		res.ScoutsLost = scoutLosses(scouts, roleCount(cat, res.DefendersBefore, catalog.RoleScout))
		removeScouts(cat, survivors, res.ScoutsLost)
		res.ScoutWin = scouts-res.ScoutsLost >= 1
	}

	if fighters > 0 {
		off, offInf, offCav := offense(cat, survivors, b.AttackerTechs)
		defGen, defCav := defense(cat, res.DefendersBefore, b.DefenderTechs)

		def := defGen
		if off > 0 {
			def = defGen*(offInf/off) + defCav*(offCav/off)
		}

		rams := roleCount(cat, res.AttackersBefore, catalog.RoleRam)
		res.EffectiveWall = max(0, b.Wall-rams/ramsPerWallLevel)
		def = def*(1+float64(res.EffectiveWall)*wallDefensePerLvl) + float64(res.EffectiveWall)*wallFlatDefense

		res.Offense = off
		res.Defense = def
		res.AttackerWon = off > def

		switch {
		case off == 0 && def == 0:
			// Nobody can hurt anybody; the attack simply fails.
		case res.AttackerWon:
			ratio := math.Pow(def/off, lossExponent)
			for id, n := range survivors {
				if !isScout(cat, id) {
					survivors[id] = n - int(math.Floor(float64(n)*ratio))
				}
			}
			wipe(home)
			for i := range stacks {
				wipe(stacks[i].Units)
			}
		default:
			for id := range survivors {
				if !isScout(cat, id) {
					survivors[id] = 0
				}
			}
			ratio := math.Pow(off/def, lossExponent)
			grade(home, ratio)
			for i := range stacks {
				grade(stacks[i].Units, ratio)
			}
		}

		if rams > 0 && b.Wall > 0 {
			power := roleCount(cat, survivors, catalog.RoleRam)
			if !res.AttackerWon {
				power = int(math.Floor(float64(rams) * math.Min(1, safeRatio(off, def))))
			}
			res.WallAfter = max(0, b.Wall-power/ramsPerWallLevel)
		}

		if res.AttackerWon {
			nobleLoyalty(cat, &res, survivors, b.Loyalty, roll)
		}
	}

	if res.AttackerWon || res.ScoutWin {
		res.Loot = Loot(carry(cat, survivors), b.Resources)
	}

	if res.ScoutWin {
		res.Intel = intel(res.ScoutsSent, res.ScoutsSent-res.ScoutsLost, tech(b.AttackerTechs, catalog.Scout))
	}

	res.AttackersAfter = survivors.Compact()
	res.HomeAfter = home.Compact()
	res.StacksAfter = stacks
	res.DefendersAfter = aggregate(res.HomeAfter, stacks)
	return res
}

// scoutLosses is the number of attacking scouts that die to defending scouts.
func scoutLosses(attacking, defending int) int {
	switch {
	case attacking <= 0:
		return 0
	case defending >= 2*attacking:
		return attacking
	case defending <= 0:
		return 0
	}
	ratio := math.Pow(float64(defending)/float64(2*attacking), lossExponent)
	return int(math.Floor(float64(attacking) * ratio))
}

// removeScouts takes lost scouts out of units, scout types in table order.
func removeScouts(cat *catalog.Catalog, units village.Units, lost int) {
	var ids []catalog.UnitID
	for id := range units {
		if isScout(cat, id) {
			ids = append(ids, id)
		}
	}
	cat.SortUnitIDs(ids)
	for _, id := range ids {
		if lost <= 0 {
			return
		}
		take := min(units[id], lost)
		units[id] -= take
		lost -= take
	}
}

func nobleLoyalty(cat *catalog.Catalog, res *Result, survivors village.Units, loyalty float64, roll Roll) {
	var nobleID catalog.UnitID
	nobles := 0
	for id, n := range survivors {
		if u, ok := cat.Unit(id); ok && u.Role == catalog.RoleNoble && n > 0 {
			nobleID = id
			nobles += n
		}
	}
	if nobles == 0 {
		return
	}
	if roll == nil {
		roll = func() float64 { return 0.5 }
	}
	drop := 0
	for i := 0; i < nobles; i++ {
		drop += int(math.Floor(nobleDropMin + roll()*nobleDropSpread))
	}
	res.LoyaltyDrop = drop
	res.LoyaltyAfter = math.Max(0, loyalty-float64(drop))
	if loyalty-float64(drop) <= 0 {
		res.Conquered = true
		res.LoyaltyAfter = village.ConquestLoyalty
		res.NoblesConsumed = 1
		survivors[nobleID]--
	}
}

// Loot splits capacity evenly over the resource types that still have
// stock, repeating until capacity or stock runs out. Amounts are whole
// numbers, never more than capacity in total and never more than the
// stock of any type.
func Loot(capacity int, stock village.Resources) village.Resources {
	var left [3]int
	for i := range left {
		left[i] = int(math.Floor(math.Max(0, stock[i])))
	}
	var taken [3]int
	for capacity > 0 {
		var open []int
		for i := range left {
			if left[i] > 0 {
				open = append(open, i)
			}
		}
		if len(open) == 0 {
			break
		}
		share := capacity / len(open)
		if share == 0 {
			for _, i := range open {
				if capacity == 0 {
					break
				}
				taken[i]++
				left[i]--
				capacity--
			}
			continue
		}
		for _, i := range open {
			take := min(share, left[i])
			taken[i] += take
			left[i] -= take
			capacity -= take
		}
	}
	return village.Resources{float64(taken[0]), float64(taken[1]), float64(taken[2])}
}

func intel(sent, survived, scoutTech int) Intel {
	if sent <= 0 {
		return Intel{}
	}
	ratio := float64(survived) / float64(sent)
	return Intel{
		Resources: ratio > intelResources && scoutTech >= 1,
		Buildings: ratio > intelBuildings && scoutTech >= 2,
		Away:      ratio > intelAway && scoutTech >= 3,
	}
}

func offense(cat *catalog.Catalog, units village.Units, techs map[catalog.UnitID]int) (total, inf, cav float64) {
	for id, n := range units {
		u, ok := cat.Unit(id)
		if !ok || n <= 0 || u.Role == catalog.RoleScout {
			continue
		}
		v := float64(n) * u.Attack * catalog.TechMultiplier(tech(techs, id))
		if u.Class == catalog.Cavalry {
			cav += v
		} else {
			inf += v
		}
	}
	return inf + cav, inf, cav
}

func defense(cat *catalog.Catalog, units village.Units, techs map[catalog.UnitID]int) (general, cavalry float64) {
	for id, n := range units {
		u, ok := cat.Unit(id)
		if !ok || n <= 0 {
			continue
		}
		m := float64(n) * catalog.TechMultiplier(tech(techs, id))
		general += m * u.DefenseGeneral
		cavalry += m * u.DefenseCavalry
	}
	return general, cavalry
}

func carry(cat *catalog.Catalog, units village.Units) int {
	total := 0
	for id, n := range units {
		if u, ok := cat.Unit(id); ok && n > 0 {
			total += n * u.Carry
		}
	}
	return total
}

func split(cat *catalog.Catalog, units village.Units) (scouts, fighters int) {
	for id, n := range units {
		if n <= 0 {
			continue
		}
		if isScout(cat, id) {
			scouts += n
		} else {
			fighters += n
		}
	}
	return scouts, fighters
}

func isScout(cat *catalog.Catalog, id catalog.UnitID) bool {
	u, ok := cat.Unit(id)
	return ok && u.Role == catalog.RoleScout
}

func roleCount(cat *catalog.Catalog, units village.Units, role catalog.Role) int {
	n := 0
	for id, c := range units {
		if u, ok := cat.Unit(id); ok && u.Role == role {
			n += c
		}
	}
	return n
}

func tech(techs map[catalog.UnitID]int, id catalog.UnitID) int {
	if lvl := techs[id]; lvl > 0 {
		return lvl
	}
	return 1
}

func wipe(u village.Units) {
	for id := range u {
		u[id] = 0
	}
}

func grade(u village.Units, ratio float64) {
	for id, n := range u {
		u[id] = max(0, n-int(math.Floor(float64(n)*ratio)))
	}
}

func safeRatio(a, b float64) float64 {
	if b == 0 {
		return 1
	}
	return a / b
}

func defenders(b Battle) village.Units {
	return aggregate(b.Home, b.Stacks)
}

func aggregate(home village.Units, stacks []village.SupportStack) village.Units {
	out := home.Clone()
	for _, s := range stacks {
		out.Add(s.Units)
	}
	return out.Compact()
}

func cloneStacks(in []village.SupportStack) []village.SupportStack {
	out := make([]village.SupportStack, len(in))
	for i, s := range in {
		out[i] = village.SupportStack{Origin: s.Origin, Units: s.Units.Clone()}
	}
	return out
}
