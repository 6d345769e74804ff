package world

import (
	"fmt"

	"github.com/talgya/hinterland/internal/entropy"
)

// BarbarianName is shared by every barbarian village.
const BarbarianName = "Barbarian"

// PlayerStartName is the name of the player's first village.
const PlayerStartName = "My Village"

var (
	warlordAdjectives = []string{
		"Dark", "Red", "Iron", "Black", "Grim", "Savage",
		"Cruel", "Blood", "Storm", "Chaos", "Vile", "Shadow",
	}
	warlordNouns = []string{
		"Keep", "Fort", "Tower", "Hold", "Bastion", "Citadel",
		"Outpost", "Lair", "Den", "Gate", "Dominion", "Empire",
	}
)

// NameGenerator produces warlord names by combining an adjective and a noun.
type NameGenerator struct {
	rng entropy.Source
}

// NewNameGenerator wraps rng.
func NewNameGenerator(rng entropy.Source) *NameGenerator {
	return &NameGenerator{rng: rng}
}

// Warlord returns a name like "Grim Bastion", one in ten with a number suffix.
func (n *NameGenerator) Warlord() string {
	name := warlordAdjectives[n.rng.Intn(len(warlordAdjectives))] + " " +
		warlordNouns[n.rng.Intn(len(warlordNouns))]
	if n.rng.Float64() > 0.9 {
		name = fmt.Sprintf("%s %d", name, n.rng.Intn(99))
	}
	return name
}
