package models

import (
	"fmt"
	"strings"
)

// ========================= Domain Models =========================
// Wire shapes shared by the client, the practice server and the tests.

// TileCode identifies one map cell's visual/semantic state as rendered
// by the server. The server is the only producer of codes; anything it
// sends outside this range must degrade, never crash.
type TileCode int

const (
	TileUnexplored TileCode = iota // fogged, contents unknown
	TileExplored
	TileBlocked
	TileEntrance
	TileExit
	TilePlayer
)

// DungeonMap is the floor exactly as the server last rendered it. It is
// replaced wholesale on every successful fetch, never patched in place.
type DungeonMap [][]TileCode

// Die slots, in the positional order the server expects on the wire.
const (
	D4 = iota
	D6
	D8
	D10
	D12
	D20
	NumDice
)

// DiceSides is what each die slot rolls; DiceCosts is its value in
// d4-equivalents, the denomination market prices are quoted in.
var (
	DiceSides = [NumDice]int{4, 6, 8, 10, 12, 20}
	DiceCosts = [NumDice]int{2, 3, 4, 5, 6, 10}
)

// DicePool is a fixed 6-slot vector of dice by type: d4, d6, d8, d10,
// d12, d20. Order is significant and zero slots are kept on the wire.
type DicePool [NumDice]int

// Total returns the number of dice in the pool.
func (p DicePool) Total() int {
	n := 0
	for _, c := range p {
		n += c
	}
	return n
}

// Value returns the pool's worth in d4-equivalents.
func (p DicePool) Value() int {
	v := 0
	for i, c := range p {
		v += c * DiceCosts[i]
	}
	return v
}

// Contains reports whether every slot of other fits inside p.
func (p DicePool) Contains(other DicePool) bool {
	for i := range p {
		if other[i] > p[i] {
			return false
		}
	}
	return true
}

// Add returns p with other added slot-wise.
func (p DicePool) Add(other DicePool) DicePool {
	for i := range p {
		p[i] += other[i]
	}
	return p
}

// Sub returns p with other removed slot-wise. Slots never go negative;
// callers are expected to check Contains first.
func (p DicePool) Sub(other DicePool) DicePool {
	for i := range p {
		p[i] -= other[i]
		if p[i] < 0 {
			p[i] = 0
		}
	}
	return p
}

// String renders the pool as "2d6 + 1d20"; an empty pool is "nothing".
func (p DicePool) String() string {
	var parts []string
	for i, c := range p {
		if c == 0 {
			continue
		}
		parts = append(parts, fmt.Sprintf("%dd%d", c, DiceSides[i]))
	}
	if len(parts) == 0 {
		return "nothing"
	}
	return strings.Join(parts, " + ")
}

// Direction tokens accepted by the move endpoint.
const (
	North = "north"
	South = "south"
	East  = "east"
	West  = "west"
)

// ValidDirection reports whether s is a direction the server understands.
func ValidDirection(s string) bool {
	switch s {
	case North, South, East, West:
		return true
	}
	return false
}

// ItemKind distinguishes the three equipment categories.
type ItemKind int

const (
	KindWeapon ItemKind = iota
	KindShield
	KindArmor
)

func (k ItemKind) String() string {
	switch k {
	case KindWeapon:
		return "weapon"
	case KindShield:
		return "shield"
	case KindArmor:
		return "armor"
	default:
		return "unknown"
	}
}

// ItemLocation tracks where an item currently lives. Transitions happen
// only on the server; the client never speculates about them.
type ItemLocation int

const (
	LocInventory ItemLocation = iota
	LocEquipped
	LocVault
	LocMarket
)

func (l ItemLocation) String() string {
	switch l {
	case LocInventory:
		return "inventory"
	case LocEquipped:
		return "equipped"
	case LocVault:
		return "vault"
	case LocMarket:
		return "market"
	default:
		return "unknown"
	}
}

// Item is one piece of equipment as the server reports it. Stat fields
// are populated according to Kind: weapons use Attack/Budget/TwoHanded,
// shields use Budget, armor uses Health/Defense/Speed.
type Item struct {
	ID       int64        `json:"id"`
	Kind     ItemKind     `json:"kind"`
	Name     string       `json:"name"`
	Level    int          `json:"level"`
	Location ItemLocation `json:"location"`
	Price    int          `json:"price,omitempty"` // set while listed on the market

	Attack    int      `json:"attack,omitempty"`
	TwoHanded bool     `json:"two_handed,omitempty"`
	Budget    DicePool `json:"budget"` // max dice spend per action

	Health  int `json:"health,omitempty"`
	Defense int `json:"defense,omitempty"`
	Speed   int `json:"speed,omitempty"`
}

// Character is the full sheet returned by /character: the dice currency
// held plus every item the player owns, wherever it lives.
type Character struct {
	Username string   `json:"username"`
	Dice     DicePool `json:"dice"`
	Floor    int      `json:"floor"`
	Items    []Item   `json:"items"`
}
