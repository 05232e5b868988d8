package server

import (
	"fmt"
	"math/rand"

	"github.com/dicecrawl/dicecrawl/internal/engine"
	"github.com/dicecrawl/dicecrawl/internal/models"
)

const baseHealth = 20

// Battle is one running encounter. The player is pinned to it until the
// enemy dies, the retreat check succeeds, or the player falls.
type Battle struct {
	Name    string
	Level   int
	HP      int
	Defense int
	Speed   int

	// Guard is temporary defense from the enemy's last defend action.
	// It lapses at the start of the enemy's next turn.
	Guard int

	// Pool is the enemy's remaining dice, dropped as loot on victory.
	// Spend caps how many dice it commits per action.
	Pool  models.DicePool
	Spend models.DicePool
}

// NewBattle rolls up an enemy scaled to the floor. Bosses run a couple
// of levels hot for their depth.
func NewBattle(r *rand.Rand, floor int, boss bool) *Battle {
	level := randRange(r, floor*10-9, floor*10+5)
	if boss {
		level = floor*10 + randRange(r, 5, 15)
	}
	if level < 1 {
		level = 1
	}

	// Split a stat budget across health, defense and speed by random
	// weights, the same scheme armor generation uses.
	wh := randRange(r, 20, 100)
	wd := randRange(r, 0, 50)
	ws := randRange(r, 20, 100)
	budget := level + randRange(r, -level/10, level/10) + 10
	sum := wh + wd + ws

	name := fmt.Sprintf("Lvl. %d Goon", level)
	if boss {
		name = fmt.Sprintf("Lvl. %d Floor Boss", level)
	}
	return &Battle{
		Name:    name,
		Level:   level,
		HP:      baseHealth + budget*wh/sum,
		Defense: budget * wd / sum,
		Speed:   1 + budget*ws/sum/10,
		Pool:    engine.FillBudget(r, level, models.DicePool{}),
		Spend:   engine.FillBudget(r, level/4, models.DicePool{1, 0, 0, 0, 0, 0}),
	}
}

// EnemyTurn plays the enemy's half of the round: half the time it
// spends dice on guard, otherwise it attacks. Damage is raw roll total;
// the caller subtracts the player's mitigation.
func (b *Battle) EnemyTurn(r *rand.Rand) (damage int, line string) {
	b.Guard = 0
	spend, rest := engine.SpendUpTo(b.Pool, b.Spend)
	if spend.Total() == 0 {
		return 0, fmt.Sprintf("The %s cowers, out of dice.", b.Name)
	}
	total, roll := engine.RollPool(r, spend)
	if r.Intn(2) == 0 {
		b.Pool = rest
		b.Guard = total
		return 0, fmt.Sprintf("The %s guards: %s.", b.Name, roll)
	}
	b.Pool = rest
	return total, fmt.Sprintf("The %s attacks: %s.", b.Name, roll)
}

// ========================= Item generation =========================

var weaponNames = []string{"Shortsword", "Mace", "Handaxe", "Dagger"}
var twoHandedNames = []string{"Greatsword", "Warhammer", "Halberd"}

// randItem rolls a piece of loot scaled to the floor.
func randItem(r *rand.Rand, floor int) models.Item {
	level := randRange(r, floor*10-5, floor*10+5)
	if level < 1 {
		level = 1
	}
	it := models.Item{
		Kind:     models.ItemKind(r.Intn(3)),
		Level:    level,
		Location: models.LocInventory,
	}
	switch it.Kind {
	case models.KindWeapon:
		it.Attack = 1 + randRange(r, 0, level/6)
		it.TwoHanded = r.Intn(2) == 0
		if it.TwoHanded {
			it.Attack = it.Attack * 5 / 2
			it.Name = fmt.Sprintf("Lvl. %d %s", level, twoHandedNames[r.Intn(len(twoHandedNames))])
		} else {
			it.Name = fmt.Sprintf("Lvl. %d %s", level, weaponNames[r.Intn(len(weaponNames))])
		}
		budget := level/3 - it.Attack*2
		it.Budget = engine.FillBudget(r, budget, models.DicePool{1, 0, 0, 0, 0, 0})
	case models.KindShield:
		it.Name = fmt.Sprintf("Lvl. %d Shield", level)
		it.Budget = engine.FillBudget(r, level/5-2, models.DicePool{1, 0, 0, 0, 0, 0})
	case models.KindArmor:
		it.Name = fmt.Sprintf("Lvl. %d Armor", level)
		wh := randRange(r, 20, 100)
		wd := randRange(r, 0, 50)
		ws := randRange(r, 20, 100)
		budget := level + randRange(r, -level/5, level/5) + 10
		sum := wh + wd + ws
		it.Health = budget * wh / sum
		it.Defense = budget * wd / sum
		it.Speed = 1 + budget*ws/sum/10
	}
	return it
}

// loadout pulls the equipped pieces out of an item list.
func loadout(items []models.Item) (weapon, shield, armor *models.Item) {
	for i := range items {
		if items[i].Location != models.LocEquipped {
			continue
		}
		switch items[i].Kind {
		case models.KindWeapon:
			weapon = &items[i]
		case models.KindShield:
			shield = &items[i]
		case models.KindArmor:
			armor = &items[i]
		}
	}
	return weapon, shield, armor
}
